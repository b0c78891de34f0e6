package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // webp decoder for imaging

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/repository"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxPage        = 1_000_000
	MaxImageSize   = 2 << 20 // 2 MiB
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AttractionService contains the catalog business logic.
type AttractionService struct {
	attractions  AttractionStore
	reservations ReservationStore
	images       ImageStore
	log          *zap.Logger
	now          func() time.Time
}

// NewAttractionService creates a new catalog service.
func NewAttractionService(attractions AttractionStore, reservations ReservationStore, images ImageStore, log *zap.Logger) *AttractionService {
	return &AttractionService{
		attractions:  attractions,
		reservations: reservations,
		images:       images,
		log:          log,
		now:          time.Now,
	}
}

// List returns one page of attractions. page and perPage fall back to 1 and 20.
func (s *AttractionService) List(ctx context.Context, f model.AttractionFilter, page, perPage int) (model.Page[model.Attraction], error) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	f.Province = strings.TrimSpace(f.Province)
	f.Category = strings.TrimSpace(f.Category)
	f.Search = strings.TrimSpace(f.Search)

	items, total, err := s.attractions.List(ctx, f, perPage, (page-1)*perPage)
	if err != nil {
		return model.Page[model.Attraction]{}, err
	}
	return model.NewPage(items, page, perPage, total), nil
}

// Get returns the attraction. Reservations are attached only for admin viewers.
func (s *AttractionService) Get(ctx context.Context, id int64, viewer *model.User) (*model.Attraction, error) {
	a, err := s.attractions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if viewer.IsAdmin() {
		if a.Reservations, err = s.reservations.ListByAttraction(ctx, id); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Provinces lists the provinces present in the catalog.
func (s *AttractionService) Provinces(ctx context.Context) ([]string, error) {
	return s.attractions.Provinces(ctx)
}

// Create adds an attraction to the catalog.
func (s *AttractionService) Create(ctx context.Context, caller *model.User, in model.AttractionInput) (*model.Attraction, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	in = trimAttractionInput(in)
	if err := validateAttraction(in, true); err != nil {
		return nil, err
	}
	a, err := s.attractions.Create(ctx, in)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, NewValidationError("external_id", "The external id has already been taken.")
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("attraction created", zap.Int64("attraction_id", a.ID), zap.Int64("by", caller.ID))
	return a, nil
}

// Update changes the provided fields of an attraction.
func (s *AttractionService) Update(ctx context.Context, caller *model.User, id int64, in model.AttractionInput) (*model.Attraction, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	in = trimAttractionInput(in)
	in.ExternalID = nil
	if err := validateAttraction(in, false); err != nil {
		return nil, err
	}
	a, err := s.attractions.Update(ctx, id, in)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// Delete removes an attraction and, through the schema, its reservations.
func (s *AttractionService) Delete(ctx context.Context, caller *model.User, id int64) error {
	if err := RequireAdmin(caller); err != nil {
		return err
	}
	if err := s.attractions.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.log.Info("attraction deleted", zap.Int64("attraction_id", id), zap.Int64("by", caller.ID))
	return nil
}

// UploadImage validates the payload, stores it and records its public URL on the attraction.
func (s *AttractionService) UploadImage(ctx context.Context, caller *model.User, id int64, data []byte, contentType string) (string, error) {
	if err := RequireAdmin(caller); err != nil {
		return "", err
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := imageExtensions[contentType]
	switch {
	case len(data) == 0:
		return "", NewValidationError("image", "The image field is required.")
	case len(data) > MaxImageSize:
		return "", NewValidationError("image", "The image may not be greater than 2048 kilobytes.")
	case !ok:
		return "", NewValidationError("image", "The image must be a file of type: jpeg, png, gif, webp.")
	}
	if _, err := imaging.Decode(bytes.NewReader(data)); err != nil {
		return "", NewValidationError("image", "The image must be an image.")
	}

	if _, err := s.attractions.GetByID(ctx, id); err != nil {
		return "", notFound(err)
	}

	key := fmt.Sprintf("attractions/%d_%d%s", id, s.now().UnixNano(), ext)
	url, err := s.images.Put(ctx, key, contentType, data)
	if err != nil {
		return "", &UpstreamError{Service: "blob storage", Err: err}
	}
	if err := s.attractions.SetImageURL(ctx, id, url); err != nil {
		return "", notFound(err)
	}
	s.log.Info("attraction image uploaded", zap.Int64("attraction_id", id), zap.String("key", key), zap.Int("bytes", len(data)))
	return url, nil
}

func trimAttractionInput(in model.AttractionInput) model.AttractionInput {
	for _, p := range []*string{in.ExternalID, in.Name, in.Description, in.Category, in.Location, in.Province, in.ImageURL} {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	if in.ImageURL != nil && *in.ImageURL == "" {
		in.ImageURL = nil
	}
	if in.ExternalID != nil && *in.ExternalID == "" {
		in.ExternalID = nil
	}
	return in
}

func validateAttraction(in model.AttractionInput, create bool) error {
	verr := &ValidationError{}
	checkText := func(field string, v *string, max int) {
		if v == nil {
			if create {
				verr.add(field, fmt.Sprintf("The %s field is required.", field))
			}
			return
		}
		if *v == "" {
			verr.add(field, fmt.Sprintf("The %s field is required.", field))
		} else if max > 0 && utf8.RuneCountInString(*v) > max {
			verr.add(field, fmt.Sprintf("The %s may not be greater than %d characters.", field, max))
		}
	}
	checkText("name", in.Name, 255)
	checkText("description", in.Description, 0)
	checkText("category", in.Category, 255)
	checkText("location", in.Location, 255)
	checkText("province", in.Province, 100)
	if in.Price != nil {
		switch p := *in.Price; {
		case math.IsNaN(p) || p < 0:
			verr.add("price", "The price must be at least 0.")
		case p > model.MaxPrice:
			verr.add("price", fmt.Sprintf("The price may not be greater than %.2f.", model.MaxPrice))
		}
	}
	if in.ImageURL != nil && utf8.RuneCountInString(*in.ImageURL) > 2048 {
		verr.add("image_url", "The image url may not be greater than 2048 characters.")
	}
	return verr.orNil()
}

// notFound maps repository.ErrNotFound to ErrNotFound and passes other errors through.
func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
