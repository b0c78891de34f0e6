package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"

	"github.com/jmoiron/sqlx"
)

const attractionColumns = `id, external_id, name, description, category, location, province, price, image_url, created_at, updated_at`

// AttractionRepository provides access to the attractions table.
type AttractionRepository struct {
	db *sqlx.DB
}

// NewAttractionRepository creates a new attraction repository.
func NewAttractionRepository(db *sqlx.DB) *AttractionRepository {
	return &AttractionRepository{db: db}
}

// List returns one page of attractions matching the filter, newest first, and the total match count.
func (r *AttractionRepository) List(ctx context.Context, f model.AttractionFilter, limit, offset int) ([]model.Attraction, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	if f.Province != "" {
		where += " AND province = ?"
		args = append(args, f.Province)
	}
	if f.Category != "" {
		where += " AND category = ?"
		args = append(args, f.Category)
	}
	if f.Search != "" {
		where += " AND name ILIKE ?"
		args = append(args, "%"+escapeLike(f.Search)+"%")
	}

	var total int
	countQuery := sqlx.Rebind(sqlx.DOLLAR, "SELECT COUNT(*) FROM attractions"+where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count attractions: %w", err)
	}

	query := sqlx.Rebind(sqlx.DOLLAR,
		"SELECT "+attractionColumns+" FROM attractions"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?")
	attractions := []model.Attraction{}
	if err := r.db.SelectContext(ctx, &attractions, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list attractions: %w", err)
	}
	return attractions, total, nil
}

// GetByID returns the attraction with the given id.
func (r *AttractionRepository) GetByID(ctx context.Context, id int64) (*model.Attraction, error) {
	var a model.Attraction
	err := r.db.GetContext(ctx, &a, "SELECT "+attractionColumns+" FROM attractions WHERE id=$1", id)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// GetByIDs returns the attractions with the given ids keyed by id.
func (r *AttractionRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Attraction, error) {
	out := make(map[int64]*model.Attraction, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args, err := sqlx.In("SELECT "+attractionColumns+" FROM attractions WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []model.Attraction
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load attractions: %w", err)
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// Create inserts a new attraction. All required fields of in must be set.
func (r *AttractionRepository) Create(ctx context.Context, in model.AttractionInput) (*model.Attraction, error) {
	var a model.Attraction
	err := r.db.GetContext(ctx, &a,
		`INSERT INTO attractions (external_id, name, description, category, location, province, price, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+attractionColumns,
		in.ExternalID, deref(in.Name), deref(in.Description), deref(in.Category),
		deref(in.Location), deref(in.Province), in.Price, in.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("create attraction: %w", translate(err))
	}
	return &a, nil
}

// Update changes the provided fields of the attraction and returns the updated row.
func (r *AttractionRepository) Update(ctx context.Context, id int64, in model.AttractionInput) (*model.Attraction, error) {
	sets := []string{}
	args := []interface{}{}
	add := func(col string, v interface{}) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	if in.Name != nil {
		add("name", *in.Name)
	}
	if in.Description != nil {
		add("description", *in.Description)
	}
	if in.Category != nil {
		add("category", *in.Category)
	}
	if in.Location != nil {
		add("location", *in.Location)
	}
	if in.Province != nil {
		add("province", *in.Province)
	}
	if in.Price != nil {
		add("price", *in.Price)
	}
	if in.ImageURL != nil {
		add("image_url", *in.ImageURL)
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id)

	query := sqlx.Rebind(sqlx.DOLLAR,
		"UPDATE attractions SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING "+attractionColumns)
	var a model.Attraction
	if err := r.db.GetContext(ctx, &a, query, args...); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

// SetImageURL stores the public URL of the attraction image.
func (r *AttractionRepository) SetImageURL(ctx context.Context, id int64, url string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE attractions SET image_url=$1, updated_at=now() WHERE id=$2", url, id)
	if err != nil {
		return fmt.Errorf("set attraction image: %w", err)
	}
	return expectAffected(res)
}

// Delete removes the attraction; its reservations go with it (ON DELETE CASCADE).
func (r *AttractionRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM attractions WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete attraction: %w", err)
	}
	return expectAffected(res)
}

// UpsertByExternalID inserts the attraction or refreshes the row with the same external id.
// Price and image are only overwritten when the import provides them.
func (r *AttractionRepository) UpsertByExternalID(ctx context.Context, in model.AttractionInput) (*model.Attraction, error) {
	if in.ExternalID == nil || *in.ExternalID == "" {
		return nil, fmt.Errorf("upsert attraction: external id is required")
	}
	var a model.Attraction
	err := r.db.GetContext(ctx, &a,
		`INSERT INTO attractions (external_id, name, description, category, location, province, price, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (external_id) DO UPDATE SET
		     name = EXCLUDED.name,
		     description = EXCLUDED.description,
		     category = EXCLUDED.category,
		     location = EXCLUDED.location,
		     province = EXCLUDED.province,
		     price = COALESCE(EXCLUDED.price, attractions.price),
		     image_url = COALESCE(EXCLUDED.image_url, attractions.image_url),
		     updated_at = now()
		 RETURNING `+attractionColumns,
		in.ExternalID, deref(in.Name), deref(in.Description), deref(in.Category),
		deref(in.Location), deref(in.Province), in.Price, in.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("upsert attraction %s: %w", *in.ExternalID, err)
	}
	return &a, nil
}

// Provinces returns the distinct non-empty provinces present in the catalog.
func (r *AttractionRepository) Provinces(ctx context.Context) ([]string, error) {
	provinces := []string{}
	err := r.db.SelectContext(ctx, &provinces,
		"SELECT DISTINCT province FROM attractions WHERE province <> '' ORDER BY province")
	if err != nil {
		return nil, fmt.Errorf("list provinces: %w", err)
	}
	return provinces, nil
}
