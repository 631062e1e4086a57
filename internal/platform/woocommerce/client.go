package woocommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
)

const (
	apiVersion     = "wc/v3"
	wpAPIVersion   = "wp/v2"
	requestTimeout = 25 * time.Second

	// WooCommerce rejects a duplicate SKU with this code; retrying cannot
	// succeed without human correction, so it is always permanent.
	codeInvalidSKU = "product_invalid_sku"
)

// apiError carries the classified outcome of a failed API call.
type apiError struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
}

func (e *apiError) Error() string {
	return fmt.Sprintf("woocommerce api error (status %d, code %q): %s", e.Status, e.Code, e.Message)
}

type client struct {
	creds      *credential.Credentials
	httpClient *http.Client
	log        *slog.Logger
}

func newClient(creds *credential.Credentials, log *slog.Logger) *client {
	return &client{
		creds: creds,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		log: log,
	}
}

func (c *client) storeBaseURL() string {
	return fmt.Sprintf("%s/wp-json/%s", c.creds.APIURL, apiVersion)
}

func (c *client) blogBaseURL() string {
	return fmt.Sprintf("%s/wp-json/%s", c.creds.BlogURL, wpAPIVersion)
}

// doStore issues a request against the WooCommerce REST API using
// consumer-key query auth. Returns the body and response headers.
func (c *client) doStore(ctx context.Context, method, path string, query url.Values, body any) ([]byte, http.Header, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("consumer_key", c.creds.ConsumerKey)
	query.Set("consumer_secret", c.creds.ConsumerSecret)

	fullURL := c.storeBaseURL() + path + "?" + query.Encode()
	return c.do(ctx, method, fullURL, body, "")
}

// doBlog issues a request against the WordPress REST API using application
// password basic auth.
func (c *client) doBlog(ctx context.Context, method, path string, query url.Values, body any) ([]byte, http.Header, error) {
	fullURL := c.blogBaseURL() + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}
	auth := ""
	if c.creds.BlogUser != "" {
		auth = c.creds.BlogUser + ":" + c.creds.BlogPassword
	}
	return c.do(ctx, method, fullURL, body, auth)
}

func (c *client) do(ctx context.Context, method, fullURL string, body any, basicAuth string) ([]byte, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if basicAuth != "" {
		parts := strings.SplitN(basicAuth, ":", 2)
		req.SetBasicAuth(parts[0], parts[1])
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and transport failures are transient by definition.
		return nil, nil, &apiError{
			Message:   "network error calling store",
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &apiError{Message: "failed reading store response", Retryable: true}
	}

	if resp.StatusCode >= 400 {
		return nil, nil, classifyError(resp.StatusCode, respBody, c.log)
	}

	return respBody, resp.Header, nil
}

// classifyError maps an HTTP failure to the retry taxonomy: 429/502/503/504
// are retryable, other 4xx are permanent, and a duplicate-SKU code is
// permanent regardless of status.
func classifyError(status int, body []byte, log *slog.Logger) *apiError {
	var wooErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &wooErr)

	// Raw platform detail stays server-side.
	log.Warn("store API call failed",
		slog.Int("status", status),
		slog.String("code", wooErr.Code),
		slog.String("detail", wooErr.Message),
	)

	ae := &apiError{
		Status:  status,
		Code:    wooErr.Code,
		Message: fmt.Sprintf("store rejected the request (status %d)", status),
	}

	if wooErr.Code == codeInvalidSKU {
		ae.Message = "duplicate SKU rejected by store"
		ae.Retryable = false
		return ae
	}

	switch status {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		ae.Retryable = true
		ae.Message = fmt.Sprintf("store temporarily unavailable (status %d)", status)
	default:
		ae.Retryable = status >= 500
	}
	return ae
}

// totalFromHeader reads the X-WP-Total count header used by both the
// WooCommerce and WordPress REST APIs.
func totalFromHeader(h http.Header) int {
	total, err := strconv.Atoi(h.Get("X-WP-Total"))
	if err != nil {
		return 0
	}
	return total
}
