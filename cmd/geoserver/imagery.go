package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/signalsfoundry/drone-geolocator/internal/config"
	"github.com/signalsfoundry/drone-geolocator/internal/logging"
	"github.com/signalsfoundry/drone-geolocator/tilecache"
)

// httpImageryFetcher pulls reference tiles from an HTTP imagery API. The
// cache bounds each call with its fetch timeout, so no client timeout is set
// here.
type httpImageryFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// newImageryFetcher builds the tile fetcher from config. With no base URL
// configured every fetch fails, which the correlation engine degrades from
// gracefully; that keeps the server usable for triangulation-only
// deployments.
func newImageryFetcher(cfg config.ImageryConfig, log logging.Logger) tilecache.Fetcher {
	if cfg.BaseURL == "" {
		log.Warn(context.Background(), "no imagery base URL configured; GPS correction will degrade to uncorrected fixes")
		return tilecache.FetcherFunc(func(context.Context, float64, float64, int) ([]byte, error) {
			return nil, fmt.Errorf("imagery provider not configured")
		})
	}
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	return &httpImageryFetcher{
		baseURL: cfg.BaseURL,
		apiKey:  apiKey,
		client:  http.DefaultClient,
	}
}

func (f *httpImageryFetcher) FetchTile(ctx context.Context, lat, lon float64, zoom int) ([]byte, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%.6f", lat))
	q.Set("lon", fmt.Sprintf("%.6f", lon))
	q.Set("zoom", fmt.Sprintf("%d", zoom))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagery API returned %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}
