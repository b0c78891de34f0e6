package service

import (
	"context"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/places"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/ticket"
)

// AttractionStore is implemented by repository.AttractionRepository.
type AttractionStore interface {
	List(ctx context.Context, f model.AttractionFilter, limit, offset int) ([]model.Attraction, int, error)
	GetByID(ctx context.Context, id int64) (*model.Attraction, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Attraction, error)
	Create(ctx context.Context, in model.AttractionInput) (*model.Attraction, error)
	Update(ctx context.Context, id int64, in model.AttractionInput) (*model.Attraction, error)
	SetImageURL(ctx context.Context, id int64, url string) error
	Delete(ctx context.Context, id int64) error
	UpsertByExternalID(ctx context.Context, in model.AttractionInput) (*model.Attraction, error)
	Provinces(ctx context.Context) ([]string, error)
}

// ReservationStore is implemented by repository.ReservationRepository.
type ReservationStore interface {
	ListAll(ctx context.Context) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)
	ListByAttraction(ctx context.Context, attractionID int64) ([]model.Reservation, error)
	GetByID(ctx context.Context, id int64) (*model.Reservation, error)
	Create(ctx context.Context, res *model.Reservation) error
	Update(ctx context.Context, id int64, upd model.ReservationUpdate) (*model.Reservation, error)
	Delete(ctx context.Context, id int64) error
}

// UserStore is implemented by repository.UserRepository.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	SetRole(ctx context.Context, id int64, role model.Role) error
	Delete(ctx context.Context, id int64) error
}

// TokenStore keeps hashed bearer tokens. Implemented by repository.TokenRepository
// and repository.RedisTokenStore.
type TokenStore interface {
	Save(ctx context.Context, userID int64, hash string) error
	UserID(ctx context.Context, hash string) (int64, error)
	Delete(ctx context.Context, hash string) error
}

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// PlacesSource yields the places around a region.
type PlacesSource interface {
	Nearby(ctx context.Context, region places.Region) ([]places.Place, error)
}

// VoucherRenderer renders the PDF voucher of an accepted reservation.
type VoucherRenderer interface {
	Render(v ticket.Voucher) ([]byte, error)
}

// AttractionUpserter is the part of AttractionStore the import job needs.
type AttractionUpserter interface {
	UpsertByExternalID(ctx context.Context, in model.AttractionInput) (*model.Attraction, error)
}
