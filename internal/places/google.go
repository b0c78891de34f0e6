package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	nearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"
	photoEndpoint   = "https://maps.googleapis.com/maps/api/place/photo"
)

// GoogleClient queries the Google Places Nearby Search API.
type GoogleClient struct {
	key     string
	baseURL string
	http    *http.Client
}

// NewGoogleClient creates a client authenticated with the given API key.
func NewGoogleClient(key string) *GoogleClient {
	return &GoogleClient{
		key:     key,
		baseURL: nearbySearchURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

type nearbyResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []googlePlace `json:"results"`
}

type googlePlace struct {
	PlaceID  string   `json:"place_id"`
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Types    []string `json:"types"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Photos []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

// Nearby returns the tourist attractions within the region.
func (c *GoogleClient) Nearby(ctx context.Context, region Region) ([]Place, error) {
	radius := region.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	q := url.Values{}
	q.Set("location", strconv.FormatFloat(region.Lat, 'f', -1, 64)+","+strconv.FormatFloat(region.Lon, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(radius))
	q.Set("type", "tourist_attraction")
	q.Set("key", c.key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places request: unexpected status %d", resp.StatusCode)
	}

	var body nearbyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode places response: %w", err)
	}
	switch body.Status {
	case "OK", "ZERO_RESULTS", "":
	default:
		return nil, fmt.Errorf("places api: %s %s", body.Status, body.ErrorMessage)
	}

	out := make([]Place, 0, len(body.Results))
	for _, r := range body.Results {
		if r.PlaceID == "" || r.Name == "" {
			continue
		}
		p := Place{
			ExternalID:  r.PlaceID,
			Name:        r.Name,
			Description: r.Vicinity,
			Types:       r.Types,
			Location:    r.Vicinity,
			Lat:         r.Geometry.Location.Lat,
			Lon:         r.Geometry.Location.Lng,
		}
		if len(r.Photos) > 0 && r.Photos[0].PhotoReference != "" {
			p.ImageURL = c.photoURL(r.Photos[0].PhotoReference)
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *GoogleClient) photoURL(ref string) string {
	q := url.Values{}
	q.Set("maxwidth", "800")
	q.Set("photo_reference", ref)
	q.Set("key", c.key)
	return photoEndpoint + "?" + q.Encode()
}
