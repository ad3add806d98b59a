// Package deviceapi reads device settings from the Alexa device API on
// behalf of the user who owns the device.
package deviceapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"foodie-skill/internal/domain"
)

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("deviceapi: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the device settings endpoints. One breaker guards every call
// so a failing platform API stops costing a timeout per turn.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *slog.Logger
	settings   gobreaker.Settings
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// WithBreakerSettings overrides the circuit breaker thresholds.
func WithBreakerSettings(maxRequests uint32, interval, timeout time.Duration, minRequests uint32, failureRatio float64) Option {
	return func(c *Client) {
		c.settings.MaxRequests = maxRequests
		c.settings.Interval = interval
		c.settings.Timeout = timeout
		c.settings.ReadyToTrip = tripAfter(minRequests, failureRatio)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 3 * time.Second},
		log:        slog.Default(),
		settings: gobreaker.Settings{
			Name:        "alexa-device-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: tripAfter(3, 0.6),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.settings.OnStateChange = func(name string, from, to gobreaker.State) {
		c.log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
	}
	c.breaker = gobreaker.NewCircuitBreaker(c.settings)
	return c
}

func tripAfter(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests < minRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
	}
}

type addressResponse struct {
	City          string `json:"city"`
	StateOrRegion string `json:"stateOrRegion"`
	PostalCode    string `json:"postalCode"`
	CountryCode   string `json:"countryCode"`
}

// SystemTimeZone returns the IANA timezone configured on the device.
func (c *Client) SystemTimeZone(ctx context.Context, api domain.APIAccess, deviceID string) (string, error) {
	raw, err := c.get(ctx, api, deviceID, "/v2/devices/%s/settings/System.timeZone")
	if err != nil {
		return "", fmt.Errorf("deviceapi: time zone: %w", err)
	}
	var tz string
	if err := json.Unmarshal(raw, &tz); err != nil {
		return "", fmt.Errorf("deviceapi: decode time zone: %w", err)
	}
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", errors.New("deviceapi: empty time zone")
	}
	return tz, nil
}

// FullAddress returns the postal address of the device. It requires the
// address permission; without it the API answers 403.
func (c *Client) FullAddress(ctx context.Context, api domain.APIAccess, deviceID string) (domain.DeviceAddress, error) {
	raw, err := c.get(ctx, api, deviceID, "/v1/devices/%s/settings/address")
	if err != nil {
		return domain.DeviceAddress{}, fmt.Errorf("deviceapi: address: %w", err)
	}
	var payload addressResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.DeviceAddress{}, fmt.Errorf("deviceapi: decode address: %w", err)
	}
	return domain.DeviceAddress{
		City:          strings.TrimSpace(payload.City),
		StateOrRegion: strings.TrimSpace(payload.StateOrRegion),
		PostalCode:    strings.TrimSpace(payload.PostalCode),
		CountryCode:   strings.TrimSpace(payload.CountryCode),
	}, nil
}

func (c *Client) get(ctx context.Context, api domain.APIAccess, deviceID, pathFormat string) ([]byte, error) {
	if api.Endpoint == "" {
		return nil, errors.New("api endpoint must not be empty")
	}
	if deviceID == "" {
		return nil, errors.New("device id must not be empty")
	}
	target := strings.TrimRight(api.Endpoint, "/") + fmt.Sprintf(pathFormat, url.PathEscape(deviceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+api.Token)

	// 4xx responses leave the breaker as results and never count as failures.
	res, err := c.breaker.Execute(func() (interface{}, error) {
		raw, err := c.doJSONRequest(req, target)
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
			return statusErr, nil
		}
		return raw, err
	})
	if err != nil {
		return nil, err
	}
	if statusErr, ok := res.(*HTTPStatusError); ok {
		return nil, statusErr
	}
	return res.([]byte), nil
}

func (c *Client) doJSONRequest(req *http.Request, url string) ([]byte, error) {
	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
