package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

// Accounts is implemented by service.AuthService.
type Accounts interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*model.User, error)
	ListUsers(ctx context.Context, caller *model.User) ([]model.User, error)
	DeleteUser(ctx context.Context, caller *model.User, id int64) error
}

// Catalog is implemented by service.AttractionService.
type Catalog interface {
	List(ctx context.Context, f model.AttractionFilter, page, perPage int) (model.Page[model.Attraction], error)
	Get(ctx context.Context, id int64, viewer *model.User) (*model.Attraction, error)
	Provinces(ctx context.Context) ([]string, error)
	Create(ctx context.Context, caller *model.User, in model.AttractionInput) (*model.Attraction, error)
	Update(ctx context.Context, caller *model.User, id int64, in model.AttractionInput) (*model.Attraction, error)
	Delete(ctx context.Context, caller *model.User, id int64) error
	UploadImage(ctx context.Context, caller *model.User, id int64, data []byte, contentType string) (string, error)
}

// Bookings is implemented by service.ReservationService.
type Bookings interface {
	ListForCaller(ctx context.Context, caller *model.User) ([]model.Reservation, error)
	Get(ctx context.Context, id int64, caller *model.User) (*model.Reservation, error)
	Create(ctx context.Context, caller *model.User, in service.ReservationInput) (*model.Reservation, error)
	Update(ctx context.Context, id int64, caller *model.User, patch service.ReservationPatch) (*model.Reservation, error)
	SetStatus(ctx context.Context, id int64, status string, caller *model.User) (*model.Reservation, error)
	Delete(ctx context.Context, id int64, caller *model.User) error
	Ticket(ctx context.Context, id int64, caller *model.User) ([]byte, error)
}

// Importer is implemented by service.ImportService.
type Importer interface {
	ImportArea(ctx context.Context, caller *model.User, req service.ImportRequest) ([]model.Attraction, error)
}

// Handler groups the services behind the HTTP API.
type Handler struct {
	Accounts Accounts
	Catalog  Catalog
	Bookings Bookings
	Importer Importer
	log      *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(accounts Accounts, catalog Catalog, bookings Bookings, importer Importer, log *zap.Logger) *Handler {
	return &Handler{
		Accounts: accounts,
		Catalog:  catalog,
		Bookings: bookings,
		Importer: importer,
		log:      log,
	}
}

// Options tune the router.
type Options struct {
	// UploadDir is served at /uploads when set.
	UploadDir string
}

// Router builds the gin engine with every route of the API.
func (h *Handler) Router(opts Options) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(h.log))
	r.MaxMultipartMemory = 4 << 20

	r.GET("/health", h.Health)
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.RequireAuth(), h.Logout)
		auth.GET("/me", h.RequireAuth(), h.Me)
	}

	attractions := r.Group("/attractions")
	{
		attractions.GET("", h.ListAttractions)
		attractions.GET("/provinces", h.ListProvinces)
		attractions.GET("/:id", h.OptionalAuth(), h.GetAttraction)

		admin := attractions.Group("", h.RequireAuth(), h.RequireAdmin())
		admin.POST("", h.CreateAttraction)
		admin.POST("/import", h.ImportAttractions)
		admin.PUT("/:id", h.UpdateAttraction)
		admin.DELETE("/:id", h.DeleteAttraction)
		admin.POST("/:id/image", h.UploadAttractionImage)
	}

	reservations := r.Group("/reservations", h.RequireAuth())
	{
		reservations.GET("", h.ListReservations)
		reservations.POST("", h.CreateReservation)
		reservations.GET("/:id", h.GetReservation)
		reservations.PUT("/:id", h.UpdateReservation)
		reservations.DELETE("/:id", h.DeleteReservation)
		reservations.GET("/:id/ticket", h.ReservationTicket)
		reservations.PUT("/:id/status", h.RequireAdmin(), h.SetReservationStatus)
	}

	users := r.Group("/users", h.RequireAuth(), h.RequireAdmin())
	{
		users.GET("", h.ListUsers)
		users.DELETE("/:id", h.DeleteUser)
	}
	return r
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
