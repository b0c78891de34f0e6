package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

type attractionRequest struct {
	ExternalID  *string  `json:"external_id" binding:"omitempty,max=255"`
	Name        *string  `json:"name" binding:"omitempty,max=255"`
	Description *string  `json:"description"`
	Category    *string  `json:"category" binding:"omitempty,max=255"`
	Location    *string  `json:"location" binding:"omitempty,max=255"`
	Province    *string  `json:"province" binding:"omitempty,max=100"`
	Price       *float64 `json:"price" binding:"omitempty,gte=0,lte=99999999.99"`
	ImageURL    *string  `json:"image_url" binding:"omitempty,max=2048"`
}

func (r attractionRequest) input() model.AttractionInput {
	return model.AttractionInput{
		ExternalID:  r.ExternalID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
		Location:    r.Location,
		Province:    r.Province,
		Price:       r.Price,
		ImageURL:    r.ImageURL,
	}
}

type importRequest struct {
	Lat      *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lon      *float64 `json:"lon" binding:"required,gte=-180,lte=180"`
	Radius   int      `json:"radius" binding:"omitempty,gte=1,lte=50000"`
	Province string   `json:"province" binding:"required,max=100"`
}

// ListAttractions handles GET /attractions.
func (h *Handler) ListAttractions(c *gin.Context) {
	filter := model.AttractionFilter{
		Province: c.Query("province"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
	}
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))

	result, err := h.Catalog.List(c.Request.Context(), filter, page, perPage)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListProvinces handles GET /attractions/provinces.
func (h *Handler) ListProvinces(c *gin.Context) {
	provinces, err := h.Catalog.Provinces(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": provinces})
}

// GetAttraction handles GET /attractions/:id.
func (h *Handler) GetAttraction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	a, err := h.Catalog.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// CreateAttraction handles POST /attractions.
func (h *Handler) CreateAttraction(c *gin.Context) {
	var req attractionRequest
	if !h.bind(c, &req) {
		return
	}
	a, err := h.Catalog.Create(c.Request.Context(), currentUser(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// UpdateAttraction handles PUT /attractions/:id.
func (h *Handler) UpdateAttraction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req attractionRequest
	if !h.bind(c, &req) {
		return
	}
	a, err := h.Catalog.Update(c.Request.Context(), currentUser(c), id, req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAttraction handles DELETE /attractions/:id.
func (h *Handler) DeleteAttraction(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Catalog.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attraction deleted."})
}

// UploadAttractionImage handles POST /attractions/:id/image (multipart field "image").
func (h *Handler) UploadAttractionImage(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("image")
	if err != nil {
		h.fail(c, service.NewValidationError("image", "The image field is required."))
		return
	}
	if fh.Size > service.MaxImageSize {
		h.fail(c, service.NewValidationError("image", "The image may not be greater than 2048 kilobytes."))
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.fail(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, service.MaxImageSize+1))
	if err != nil {
		h.fail(c, err)
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	url, err := h.Catalog.UploadImage(c.Request.Context(), currentUser(c), id, data, contentType)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_url": url})
}

// ImportAttractions handles POST /attractions/import.
func (h *Handler) ImportAttractions(c *gin.Context) {
	var req importRequest
	if !h.bind(c, &req) {
		return
	}
	list, err := h.Importer.ImportArea(c.Request.Context(), currentUser(c), service.ImportRequest{
		Lat:      *req.Lat,
		Lon:      *req.Lon,
		Radius:   req.Radius,
		Province: req.Province,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(list), "attractions": list})
}
