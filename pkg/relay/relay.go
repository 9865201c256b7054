// Package relay calls the optional per-config forwarding endpoints. A
// VALIDATION relay is awaited and its verdict replaces the local one; a
// NOTIFICATION relay is told and never answered.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/pkg/errors"

	"github.com/Ramsey-B/fern/pkg/models"
)

const (
	// DefaultTimeout bounds a single relay call.
	DefaultTimeout = 5 * time.Second

	// MaxResponseSize is the maximum relay response body size (1MB)
	MaxResponseSize = 1 * 1024 * 1024
)

// Verdict is the answer from a VALIDATION relay.
type Verdict struct {
	Result   bool           `json:"result"`
	Message  string         `json:"message,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Config holds relay client configuration
type Config struct {
	Timeout time.Duration
	// BypassHTTPS allows plain-http relay endpoints. Intended for local
	// development only.
	BypassHTTPS bool
}

// Service executes relay calls for the criteria engine.
type Service struct {
	client      *http.Client
	logger      ectologger.Logger
	bypassHTTPS bool
}

// NewService creates a new relay service
func NewService(cfg Config, logger ectologger.Logger) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
		bypassHTTPS: cfg.BypassHTTPS,
	}
}

// CheckPrerequisites validates that the relay may be called for the
// environment: the endpoint must exist, be verified since its last change,
// and use HTTPS unless bypass is configured.
func (s *Service) CheckPrerequisites(relay *models.ConfigRelay, environment string) error {
	endpoint, ok := relay.EndpointFor(environment)
	if !ok {
		return errors.Errorf("relay has no endpoint for environment %q", environment)
	}
	if !relay.IsVerified(environment) {
		return errors.Errorf("relay endpoint %s is not verified", endpoint)
	}
	if !s.bypassHTTPS {
		parsed, err := url.Parse(endpoint)
		if err != nil || parsed.Scheme != "https" {
			return errors.Errorf("relay endpoint %s must use https", endpoint)
		}
	}
	return nil
}

// Validate performs a synchronous VALIDATION relay call and returns its
// verdict. Errors identify the endpoint and method so callers can report
// an unreachable relay precisely.
func (s *Service) Validate(ctx context.Context, relay *models.ConfigRelay, entries []models.StrategyEntry, environment string) (*Verdict, error) {
	endpoint, _ := relay.EndpointFor(environment)

	response, err := s.call(ctx, relay, endpoint, entries, environment)
	if err != nil {
		return nil, err
	}

	var verdict Verdict
	if err := json.Unmarshal(response, &verdict); err != nil {
		return nil, errors.Wrapf(err, "invalid response from relay %s %s", relay.Method, endpoint)
	}
	return &verdict, nil
}

// Notify performs a fire-and-forget NOTIFICATION relay call. It is meant
// to run on its own goroutine; failures are logged and swallowed.
func (s *Service) Notify(ctx context.Context, relay *models.ConfigRelay, entries []models.StrategyEntry, environment string) {
	endpoint, _ := relay.EndpointFor(environment)

	if _, err := s.call(ctx, relay, endpoint, entries, environment); err != nil {
		s.logger.WithContext(ctx).WithError(err).Warnf("Relay notification to %s failed", endpoint)
	}
}

func (s *Service) call(ctx context.Context, relay *models.ConfigRelay, endpoint string, entries []models.StrategyEntry, environment string) ([]byte, error) {
	req, err := s.buildRequest(ctx, relay, endpoint, entries, environment)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", relay.Method, endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, errors.Wrapf(err, "reading response from %s %s", relay.Method, endpoint)
	}

	s.logger.WithContext(ctx).Debugf("Relay %s %s -> %d (%s)", relay.Method, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("%s %s returned status %d", relay.Method, endpoint, resp.StatusCode)
	}
	return body, nil
}

// buildRequest translates the caller entries into the relay's payload,
// keyed by the lowercased strategy kind, plus the environment. GET relays
// receive the payload as query parameters, POST relays as a JSON body.
func (s *Service) buildRequest(ctx context.Context, relay *models.ConfigRelay, endpoint string, entries []models.StrategyEntry, environment string) (*http.Request, error) {
	params := map[string]string{"environment": environment}
	for _, entry := range entries {
		params[strings.ToLower(string(entry.Strategy))] = entry.Input
	}

	var req *http.Request
	var err error
	if relay.Method == models.RelayGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err == nil {
			query := req.URL.Query()
			for key, value := range params {
				query.Set(key, value)
			}
			req.URL.RawQuery = query.Encode()
		}
	} else {
		var body []byte
		body, err = json.Marshal(params)
		if err == nil {
			req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
			if req != nil {
				req.Header.Set("Content-Type", "application/json")
			}
		}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "building request for %s %s", relay.Method, endpoint)
	}

	if token, ok := relay.AuthToken[environment]; ok && token != "" {
		prefix := relay.AuthPrefix
		if prefix == "" {
			prefix = "Bearer"
		}
		req.Header.Set("Authorization", fmt.Sprintf("%s %s", prefix, token))
	}
	return req, nil
}
