package pricefeed

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nftbarter/discovery-engine/domain/identity"
	"github.com/tidwall/gjson"
)

// SourceConfig describes one third-party HTTP endpoint a tenant can wire
// up for real floor-price data, following the teacher's URL-template +
// JSONPath source shape (services/datafeeds/datafeeds.go).
type SourceConfig struct {
	URLTemplate      string // "%s" is replaced with the collection id
	FloorPriceField  string // gjson path into the response body
	VolumeProxyField string // gjson path; empty means "no volume signal"
	Timeout          time.Duration
	Headers          map[string]string
}

// HTTPSource fetches floor-price quotes over HTTP and extracts fields
// with a lenient gjson path, tolerating whatever shape the third-party
// API happens to return (grounded on
// services/datafeeds/datafeeds.go:fetchPriceFromSource).
type HTTPSource struct {
	client *http.Client
	config SourceConfig
}

// NewHTTPSource builds an HTTP-backed FloorPriceSource. The server's
// default wiring does not construct one (it uses NeutralSource), and no
// configuration field selects it.
func NewHTTPSource(config SourceConfig) *HTTPSource {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		config: config,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
	}
}

func (s *HTTPSource) Quote(ctx context.Context, collection identity.CollectionID) (Quote, bool) {
	url := strings.Replace(s.config.URLTemplate, "%s", string(collection), 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Quote{}, false
	}
	for k, v := range s.config.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Quote{}, false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, false
	}

	floor := gjson.GetBytes(body, s.config.FloorPriceField)
	if !floor.Exists() {
		return Quote{}, false
	}

	quote := Quote{FloorPrice: floor.Float()}
	if s.config.VolumeProxyField != "" {
		if vol := gjson.GetBytes(body, s.config.VolumeProxyField); vol.Exists() {
			quote.VolumeProxy = clamp01(vol.Float())
		}
	}
	return quote, true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
