package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/places"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/repository"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/ticket"
)

var (
	admin = &model.User{ID: 1, Name: "Admin", Email: "admin@example.com", Role: model.RoleAdmin}
	alice = &model.User{ID: 2, Name: "Alice", Email: "alice@example.com", Role: model.RoleUser}
	bob   = &model.User{ID: 3, Name: "Bob", Email: "bob@example.com", Role: model.RoleUser}
)

func nopLogger() *zap.Logger { return zap.NewNop() }

type fakeAttractions struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*model.Attraction
	// cascade, when set, drops reservations of deleted attractions.
	cascade *fakeReservations
}

func newFakeAttractions() *fakeAttractions {
	return &fakeAttractions{rows: map[int64]*model.Attraction{}}
}

func (f *fakeAttractions) add(name, province, category string) *model.Attraction {
	a, _ := f.Create(context.Background(), model.AttractionInput{
		Name: &name, Description: ptr(name + " description"), Category: &category,
		Location: ptr("somewhere"), Province: &province,
	})
	return a
}

func (f *fakeAttractions) List(_ context.Context, flt model.AttractionFilter, limit, offset int) ([]model.Attraction, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Attraction
	for _, a := range f.rows {
		if flt.Province != "" && a.Province != flt.Province {
			continue
		}
		if flt.Category != "" && a.Category != flt.Category {
			continue
		}
		if s := strings.ToLower(flt.Search); s != "" && !strings.Contains(strings.ToLower(a.Name), s) {
			continue
		}
		all = append(all, *a)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeAttractions) GetByID(_ context.Context, id int64) (*model.Attraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttractions) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.Attraction, error) {
	out := map[int64]*model.Attraction{}
	for _, id := range ids {
		if a, err := f.GetByID(ctx, id); err == nil {
			out[id] = a
		}
	}
	return out, nil
}

func (f *fakeAttractions) Create(_ context.Context, in model.AttractionInput) (*model.Attraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in.ExternalID != nil {
		for _, a := range f.rows {
			if a.ExternalID != nil && *a.ExternalID == *in.ExternalID {
				return nil, repository.ErrDuplicate
			}
		}
	}
	f.nextID++
	a := &model.Attraction{ID: f.nextID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	apply(a, in)
	f.rows[a.ID] = a
	cp := *a
	return &cp, nil
}

func (f *fakeAttractions) Update(_ context.Context, id int64, in model.AttractionInput) (*model.Attraction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	apply(a, in)
	cp := *a
	return &cp, nil
}

func (f *fakeAttractions) SetImageURL(_ context.Context, id int64, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.ImageURL = &url
	return nil
}

func (f *fakeAttractions) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	f.cascade.drop(func(r *model.Reservation) bool { return r.AttractionID == id })
	return nil
}

func (f *fakeAttractions) UpsertByExternalID(ctx context.Context, in model.AttractionInput) (*model.Attraction, error) {
	f.mu.Lock()
	for _, a := range f.rows {
		if a.ExternalID != nil && *a.ExternalID == *in.ExternalID {
			if in.Price == nil {
				in.Price = a.Price
			}
			if in.ImageURL == nil {
				in.ImageURL = a.ImageURL
			}
			apply(a, in)
			cp := *a
			f.mu.Unlock()
			return &cp, nil
		}
	}
	f.mu.Unlock()
	return f.Create(ctx, in)
}

func (f *fakeAttractions) Provinces(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, a := range f.rows {
		if a.Province != "" && !seen[a.Province] {
			seen[a.Province] = true
			out = append(out, a.Province)
		}
	}
	sort.Strings(out)
	return out, nil
}

func apply(a *model.Attraction, in model.AttractionInput) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	if in.ExternalID != nil {
		a.ExternalID = in.ExternalID
	}
	set(&a.Name, in.Name)
	set(&a.Description, in.Description)
	set(&a.Category, in.Category)
	set(&a.Location, in.Location)
	set(&a.Province, in.Province)
	if in.Price != nil {
		a.Price = in.Price
	}
	if in.ImageURL != nil {
		a.ImageURL = in.ImageURL
	}
}

// fakeReservations mirrors the storage rule: one accepted reservation per slot.
type fakeReservations struct {
	mu     sync.Mutex
	nextID int64
	rows   []*model.Reservation
	// beforeUpdate runs once, under the lock, at the start of the next Update.
	beforeUpdate func(*model.Reservation)
}

func (f *fakeReservations) find(id int64) *model.Reservation {
	for _, r := range f.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (f *fakeReservations) slotTaken(attractionID int64, date, tm string, exclude int64) bool {
	for _, r := range f.rows {
		if r.ID != exclude && r.AttractionID == attractionID && r.Date == date && r.Time == tm && r.Status == model.StatusAccepted {
			return true
		}
	}
	return false
}

func (f *fakeReservations) filter(keep func(*model.Reservation) bool) []model.Reservation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range f.rows {
		if keep(r) {
			out = append(out, *r)
		}
	}
	return out
}

// drop removes matching rows the way the foreign keys cascade.
func (f *fakeReservations) drop(match func(*model.Reservation) bool) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.rows[:0]
	for _, r := range f.rows {
		if !match(r) {
			kept = append(kept, r)
		}
	}
	f.rows = kept
}

func (f *fakeReservations) ListAll(context.Context) ([]model.Reservation, error) {
	return f.filter(func(*model.Reservation) bool { return true }), nil
}

func (f *fakeReservations) ListByUser(_ context.Context, userID int64) ([]model.Reservation, error) {
	return f.filter(func(r *model.Reservation) bool { return r.UserID == userID }), nil
}

func (f *fakeReservations) ListByAttraction(_ context.Context, attractionID int64) ([]model.Reservation, error) {
	return f.filter(func(r *model.Reservation) bool { return r.AttractionID == attractionID }), nil
}

func (f *fakeReservations) GetByID(_ context.Context, id int64) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(id)
	if r == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReservations) Create(_ context.Context, res *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.slotTaken(res.AttractionID, res.Date, res.Time, 0) {
		return repository.ErrSlotTaken
	}
	f.nextID++
	res.ID = f.nextID
	res.CreatedAt, res.UpdatedAt = time.Now(), time.Now()
	cp := *res
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeReservations) Update(_ context.Context, id int64, upd model.ReservationUpdate) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.find(id)
	if r == nil {
		return nil, repository.ErrNotFound
	}
	if hook := f.beforeUpdate; hook != nil {
		f.beforeUpdate = nil
		hook(r)
	}
	if upd.IfStatus != nil && r.Status != *upd.IfStatus {
		return nil, repository.ErrStatusChanged
	}
	next := *r
	if upd.Date != nil {
		next.Date = *upd.Date
	}
	if upd.Time != nil {
		next.Time = *upd.Time
	}
	if upd.Status != nil {
		next.Status = *upd.Status
	}
	if upd.Comment != nil {
		next.Comment = upd.Comment
	}
	moved := next.Date != r.Date || next.Time != r.Time
	accepting := next.Status == model.StatusAccepted && r.Status != model.StatusAccepted
	if (moved || accepting) && f.slotTaken(next.AttractionID, next.Date, next.Time, id) {
		return nil, repository.ErrSlotTaken
	}
	*r = next
	cp := next
	return &cp, nil
}

func (f *fakeReservations) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.rows {
		if r.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeUsers struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*model.User
	cascade *fakeReservations
}

func newFakeUsers(seed ...*model.User) *fakeUsers {
	f := &fakeUsers{rows: map[int64]*model.User{}}
	for _, u := range seed {
		cp := *u
		f.rows[u.ID] = &cp
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	cp := *user
	f.rows[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.rows {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) GetByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	out := map[int64]*model.User{}
	for _, id := range ids {
		if u, err := f.GetByID(ctx, id); err == nil {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeUsers) List(context.Context) ([]model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.User{}
	for _, u := range f.rows {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) SetRole(_ context.Context, id int64, role model.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, id)
	f.cascade.drop(func(r *model.Reservation) bool { return r.UserID == id })
	return nil
}

type fakeTokens struct {
	mu   sync.Mutex
	rows map[string]int64
}

func newFakeTokens() *fakeTokens { return &fakeTokens{rows: map[string]int64{}} }

func (f *fakeTokens) Save(_ context.Context, userID int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[hash] = userID
	return nil
}

func (f *fakeTokens) UserID(_ context.Context, hash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.rows[hash]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return id, nil
}

func (f *fakeTokens) Delete(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[hash]; !ok {
		return repository.ErrNotFound
	}
	delete(f.rows, hash)
	return nil
}

type fakeImages struct {
	keys []string
	err  error
}

func (f *fakeImages) Put(_ context.Context, key, _ string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

// fakeSource fails the first failures[region] calls for a region.
type fakeSource struct {
	mu       sync.Mutex
	places   map[string][]places.Place
	failures map[string]int
	calls    map[string]int
}

func (f *fakeSource) Nearby(_ context.Context, region places.Region) ([]places.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[region.Name]++
	if f.calls[region.Name] <= f.failures[region.Name] {
		return nil, errors.New("upstream unavailable")
	}
	return f.places[region.Name], nil
}

type fakeVouchers struct {
	last ticket.Voucher
}

func (f *fakeVouchers) Render(v ticket.Voucher) ([]byte, error) {
	f.last = v
	return []byte("%PDF-fake"), nil
}
