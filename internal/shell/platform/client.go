package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// maxErrorBody bounds how much of an error response ends up in record notes.
const maxErrorBody = 200

// maxRetryAfter caps provider wait hints.
const maxRetryAfter = 24 * time.Hour

// =============================================================================
// API Client
// =============================================================================

// apiClient is the bearer-token JSON client shared by the adapters.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	headers    map[string]string
}

func newAPIClient(baseURL, token string, httpClient *http.Client) *apiClient {
	return &apiClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// apiResponse is a fully read HTTP response.
type apiResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *apiResponse) ok(codes ...int) bool {
	for _, c := range codes {
		if r.StatusCode == c {
			return true
		}
	}
	return false
}

func (r *apiResponse) decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do sends a request to path, which is relative to the base URL unless it is
// already absolute. Only relative requests carry the token.
func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*apiResponse, error) {
	url := path
	authorize := false
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + path
		authorize = true
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if authorize && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return &apiResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*apiResponse, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

func (c *apiClient) postJSON(ctx context.Context, path string, payload any) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json")
}

// =============================================================================
// Outcome Classification
// =============================================================================

// ClassifyError converts a transport error into an outcome. Network errors
// and timeouts are transient.
func ClassifyError(op string, err error) domain.DeployOutcome {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return domain.TransientError(op + ": timed out")
	case errors.Is(err, context.Canceled):
		return domain.TransientError(op + ": canceled")
	}
	return domain.TransientError(fmt.Sprintf("%s: %v", op, err))
}

// ClassifyResponse converts an unexpected HTTP response into an outcome:
// 429 and exhausted rate limits are RateLimited, 408 and 5xx are Transient,
// anything else is Permanent.
func ClassifyResponse(op string, resp *apiResponse, now time.Time) domain.DeployOutcome {
	detail := fmt.Sprintf("%s: HTTP %d", op, resp.StatusCode)
	if snippet := bodySnippet(resp.Body); snippet != "" {
		detail += ": " + snippet
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.RateLimited(ParseRetryAfter(resp.Header, now), fmt.Sprintf("%s: HTTP %d", op, resp.StatusCode))
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return domain.RateLimited(ParseRetryAfter(resp.Header, now), fmt.Sprintf("%s: HTTP %d", op, resp.StatusCode))
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode >= 500:
		return domain.TransientError(detail)
	}
	return domain.PermanentError(detail)
}

// classify handles the result of a call that did not return one of the
// expected status codes.
func classify(op string, resp *apiResponse, err error) domain.DeployOutcome {
	if err != nil {
		return ClassifyError(op, err)
	}
	return ClassifyResponse(op, resp, time.Now())
}

// ParseRetryAfter reads the provider's wait hint: Retry-After as seconds or
// an HTTP date, else X-RateLimit-Reset as a unix timestamp or seconds.
// It returns zero when no usable hint is present.
func ParseRetryAfter(h http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			if secs < 0 {
				return 0
			}
			if secs > int64(maxRetryAfter/time.Second) {
				return maxRetryAfter
			}
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := t.Sub(now); d > 0 {
				return min(d, maxRetryAfter)
			}
			return 0
		}
	}

	if v := strings.TrimSpace(h.Get("X-RateLimit-Reset")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			return 0
		}
		// Values below one billion are relative seconds, not epoch time.
		if n < 1_000_000_000 {
			return time.Duration(n) * time.Second
		}
		if d := time.Unix(n, 0).Sub(now); d > 0 {
			return min(d.Round(time.Second), maxRetryAfter)
		}
	}
	return 0
}

func bodySnippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	if len(s) > maxErrorBody {
		cut := maxErrorBody
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}
