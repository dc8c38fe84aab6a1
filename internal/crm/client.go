package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/debriefhub/debriefhub/internal/config"
)

const (
	maxAttempts       = 3
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	defaultRetryAfter = 60 * time.Second
	requestTimeout    = 30 * time.Second
)

// baseClient carries the protocol mechanics shared by every CRM client:
// lazy cached authentication, sliding-window rate limiting, 429/401 handling
// and capped exponential backoff for transient failures. The per-system
// clients supply endpoints and field formatting on top of it.
type baseClient struct {
	system  System
	baseURL string
	http    *http.Client
	tokens  tokenSource
	limiter *rateLimiter
	logger  *slog.Logger

	sleep func(time.Duration)
}

func newBaseClient(system System, creds config.CRMCredentials, logger *slog.Logger) *baseClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &baseClient{
		system:  system,
		baseURL: creds.BaseURL,
		http:    &http.Client{Timeout: requestTimeout},
		tokens:  newClientCredentialsSource(creds),
		limiter: newRateLimiter(creds.RequestsPerMinute),
		logger:  logger.With("crm_system", string(system)),
		sleep:   time.Sleep,
	}
}

// doJSON issues one logical request to the CRM and returns the response body.
//
// Behavior, in order of precedence:
//   - 429: sleep for Retry-After (default 60s) and re-issue the same request.
//   - 401: discard the token and re-authenticate once; a second 401 or a
//     failed exchange is an AuthError.
//   - Any other failure (network error or non-2xx status): retry with
//     doubling, capped backoff up to maxAttempts, then an APIError.
func (c *baseClient) doJSON(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var (
		attempts int
		backoff  = initialBackoff
		reauthed bool
		lastErr  error
	)

	for {
		if err := c.limiter.wait(ctx); err != nil {
			return nil, err
		}

		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, &AuthError{System: c.system, Err: err}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else {
				switch {
				case resp.StatusCode >= 200 && resp.StatusCode < 300:
					return respBody, nil

				case resp.StatusCode == http.StatusUnauthorized:
					if reauthed {
						return nil, &AuthError{System: c.system, Err: fmt.Errorf("request unauthorized after re-authentication")}
					}
					c.tokens.Invalidate()
					if _, err := c.tokens.Token(ctx); err != nil {
						return nil, &AuthError{System: c.system, Err: err}
					}
					reauthed = true
					c.logger.WarnContext(ctx, "token rejected, re-authenticated", "path", path)
					continue

				case resp.StatusCode == http.StatusTooManyRequests:
					delay := retryAfterDelay(resp.Header.Get("Retry-After"))
					c.logger.WarnContext(ctx, "rate limited by remote", "path", path, "retry_after", delay)
					c.sleep(delay)
					continue

				default:
					lastErr = &APIError{System: c.system, StatusCode: resp.StatusCode, Message: truncate(string(respBody), 500)}
				}
			}
		}

		attempts++
		if attempts >= maxAttempts {
			if apiErr, ok := lastErr.(*APIError); ok {
				return nil, apiErr
			}
			return nil, &APIError{System: c.system, Message: lastErr.Error()}
		}

		c.logger.WarnContext(ctx, "request failed, backing off",
			"path", path, "attempt", attempts, "backoff", backoff, "error", lastErr)
		c.sleep(backoff)
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// retryAfterDelay parses a Retry-After header value in seconds, falling back
// to the default delay.
func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return defaultRetryAfter
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
