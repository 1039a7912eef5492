package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"field-crm/internal/integrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"40.7128","lon":"-74.0060","display_name":"New York"}]`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, time.Second).Geocode(context.Background(), "New York")
	require.NoError(t, err)
	assert.Equal(t, 40.7128, res.Lat)
	assert.Equal(t, -74.006, res.Lng)
}

func TestProvider_EmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, integrations.ErrNoResults)
}

func TestProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := New(srv.URL, 20*time.Millisecond).Geocode(context.Background(), "slow")
	assert.Error(t, err)
}
