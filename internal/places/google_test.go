package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *GoogleClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewGoogleClient("test-key")
	c.baseURL = srv.URL
	return c
}

func TestGoogleClientNearby(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "-0.2299,-78.5045", q.Get("location"))
		assert.Equal(t, "50000", q.Get("radius"))
		assert.Equal(t, "tourist_attraction", q.Get("type"))
		assert.Equal(t, "test-key", q.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"place_id": "p1", "name": "Mitad del Mundo", "vicinity": "San Antonio",
				 "types": ["tourist_attraction", "museum"],
				 "geometry": {"location": {"lat": -0.002, "lng": -78.455}},
				 "photos": [{"photo_reference": "ref1"}]},
				{"place_id": "p2", "name": "Basilica", "types": ["church"]},
				{"place_id": "", "name": "broken"}
			]}`))
	})

	got, err := c.Nearby(context.Background(), Region{Name: "Pichincha", Lat: -0.2299, Lon: -78.5045})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "p1", got[0].ExternalID)
	assert.Equal(t, []string{"tourist_attraction", "museum"}, got[0].Types)
	assert.Equal(t, "San Antonio", got[0].Location)
	assert.InDelta(t, -78.455, got[0].Lon, 1e-9)
	assert.Contains(t, got[0].ImageURL, "photo_reference=ref1")
	assert.Contains(t, got[0].ImageURL, "maxwidth=800")

	assert.Empty(t, got[1].ImageURL)
	assert.Empty(t, got[1].Description)
}

func TestGoogleClientZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})
	got, err := c.Nearby(context.Background(), Region{Name: "Galápagos", Radius: 1000})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGoogleClientErrors(t *testing.T) {
	t.Run("api status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "bad key"}`))
		})
		_, err := c.Nearby(context.Background(), Region{Name: "Loja"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REQUEST_DENIED")
	})
	t.Run("http status", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		_, err := c.Nearby(context.Background(), Region{Name: "Loja"})
		assert.Error(t, err)
	})
}

func TestProvinces(t *testing.T) {
	all, ok := Provinces("", 1000)
	require.True(t, ok)
	assert.Len(t, all, 23)
	assert.Equal(t, 1000, all[0].Radius)

	one, ok := Provinces("galápagos", DefaultRadius)
	require.True(t, ok)
	require.Len(t, one, 1)
	assert.Equal(t, "Galápagos", one[0].Name)

	_, ok = Provinces("Atlantis", DefaultRadius)
	assert.False(t, ok)
}
