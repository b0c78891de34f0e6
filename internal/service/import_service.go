package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/places"
)

const (
	DefaultImportAttempts = 4
	noDescription         = "No description"
)

// ErrImportDisabled is returned by ad-hoc imports when no places source is configured.
var ErrImportDisabled = errors.New("places source is not configured")

// ImportService pulls places from an external source and upserts them as attractions.
type ImportService struct {
	attractions AttractionUpserter
	source      PlacesSource
	limiter     *rate.Limiter
	maxAttempts int
	newBackOff  func() backoff.BackOff
	log         *zap.Logger
}

// NewImportService creates an import service issuing at most one source request per
// interval. A nil source disables imports.
func NewImportService(attractions AttractionUpserter, source PlacesSource, interval time.Duration, log *zap.Logger) *ImportService {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &ImportService{
		attractions: attractions,
		source:      source,
		limiter:     rate.NewLimiter(limit, 1),
		maxAttempts: DefaultImportAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			return b
		},
		log: log,
	}
}

// RegionResult is the outcome of importing one region.
type RegionResult struct {
	Region   string
	Count    int
	Attempts int
	Err      error
}

// Report summarizes a batch import.
type Report struct {
	Regions  []RegionResult
	Imported int
	Failed   int
}

// Write prints the report as a table followed by totals.
func (r Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REGION\tIMPORTED\tATTEMPTS\tERROR")
	for _, res := range r.Regions {
		msg := "-"
		if res.Err != nil {
			msg = res.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", res.Region, res.Count, res.Attempts, msg)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "total: %d attractions imported, %d of %d regions failed\n", r.Imported, r.Failed, len(r.Regions))
	return err
}

// Run imports every region in order. A failing region is recorded and skipped; a
// cancelled context stops the run.
func (s *ImportService) Run(ctx context.Context, regions []places.Region) Report {
	var rep Report
	for _, region := range regions {
		if ctx.Err() != nil {
			break
		}
		list, attempts, err := s.importRegion(ctx, region)
		res := RegionResult{Region: region.Name, Count: len(list), Attempts: attempts, Err: err}
		if err != nil {
			rep.Failed++
			s.log.Warn("region import failed", zap.String("region", region.Name), zap.Int("attempts", attempts), zap.Error(err))
		} else {
			s.log.Info("region imported", zap.String("region", region.Name), zap.Int("count", len(list)))
		}
		rep.Imported += len(list)
		rep.Regions = append(rep.Regions, res)
	}
	return rep
}

// ImportRegion fetches one region and upserts its places.
func (s *ImportService) ImportRegion(ctx context.Context, region places.Region) ([]model.Attraction, error) {
	list, _, err := s.importRegion(ctx, region)
	return list, err
}

// ImportRequest is the admin ad-hoc import payload.
type ImportRequest struct {
	Lat      float64
	Lon      float64
	Radius   int
	Province string
}

// ImportArea runs an ad-hoc import around a coordinate. Admin only.
func (s *ImportService) ImportArea(ctx context.Context, caller *model.User, req ImportRequest) ([]model.Attraction, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	verr := &ValidationError{}
	if req.Lat < -90 || req.Lat > 90 {
		verr.add("lat", "The lat must be between -90 and 90.")
	}
	if req.Lon < -180 || req.Lon > 180 {
		verr.add("lon", "The lon must be between -180 and 180.")
	}
	if req.Radius == 0 {
		req.Radius = places.DefaultRadius
	}
	if req.Radius < 1 || req.Radius > places.DefaultRadius {
		verr.add("radius", fmt.Sprintf("The radius must be between 1 and %d.", places.DefaultRadius))
	}
	req.Province = strings.TrimSpace(req.Province)
	if req.Province == "" {
		verr.add("province", "The province field is required.")
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	if s.source == nil {
		return nil, &UpstreamError{Service: "places", Err: ErrImportDisabled}
	}
	list, err := s.ImportRegion(ctx, places.Region{Name: req.Province, Lat: req.Lat, Lon: req.Lon, Radius: req.Radius})
	if err != nil {
		return nil, err
	}
	s.log.Info("ad-hoc import", zap.String("province", req.Province), zap.Int("count", len(list)), zap.Int64("by", caller.ID))
	return list, nil
}

func (s *ImportService) importRegion(ctx context.Context, region places.Region) ([]model.Attraction, int, error) {
	if s.source == nil {
		return nil, 0, &UpstreamError{Service: "places", Err: ErrImportDisabled}
	}
	var (
		found    []places.Place
		attempts int
	)
	fetch := func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		attempts++
		var err error
		found, err = s.source.Nearby(ctx, region)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(s.maxAttempts-1)), ctx)
	notify := func(err error, wait time.Duration) {
		s.log.Debug("retrying region", zap.String("region", region.Name), zap.Int("attempt", attempts), zap.Duration("wait", wait), zap.Error(err))
	}
	if err := backoff.RetryNotify(fetch, policy, notify); err != nil {
		return nil, attempts, &UpstreamError{Service: "places", Err: err}
	}

	out := make([]model.Attraction, 0, len(found))
	for _, p := range found {
		a, err := s.attractions.UpsertByExternalID(ctx, placeToInput(p, region.Name))
		if err != nil {
			return out, attempts, fmt.Errorf("upsert %s: %w", p.ExternalID, err)
		}
		out = append(out, *a)
	}
	return out, attempts, nil
}

func placeToInput(p places.Place, province string) model.AttractionInput {
	description := p.Description
	if description == "" {
		description = p.Location
	}
	if description == "" {
		description = noDescription
	}
	in := model.AttractionInput{
		ExternalID:  &p.ExternalID,
		Name:        &p.Name,
		Description: &description,
		Category:    ptr(strings.Join(p.Types, ",")),
		Location:    &p.Location,
		Province:    &province,
		Price:       p.Price,
	}
	if p.ImageURL != "" {
		in.ImageURL = &p.ImageURL
	}
	return in
}

func ptr[T any](v T) *T { return &v }
