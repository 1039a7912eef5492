package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"field-crm/internal/integrations"
	"field-crm/internal/integrations/geocode"
)

const (
	defaultBaseURL = "https://nominatim.openstreetmap.org"
	userAgent      = "field-crm/1.0"
)

// Provider queries an OpenStreetMap Nominatim instance. No API key is needed.
type Provider struct {
	httpClient *http.Client
	baseURL    string
}

func New(baseURL string, timeout time.Duration) integrations.GeocodingProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (p *Provider) Name() string {
	return "nominatim"
}

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p *Provider) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("format", "json")
	q.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build geocode request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %s", resp.Status)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(places) == 0 {
		return nil, integrations.ErrNoResults
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", places[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", places[0].Lon, err)
	}
	return &geocode.Result{Lat: lat, Lng: lng, FormattedAddress: places[0].DisplayName}, nil
}
