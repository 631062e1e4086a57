package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/domain/credential"
)

const (
	apiVersion     = "2024-01"
	requestTimeout = 25 * time.Second

	// Admin API error code for a burst over the cost budget.
	codeThrottled = "THROTTLED"
)

type apiError struct {
	Status    int
	Message   string
	Retryable bool
}

func (e *apiError) Error() string {
	return fmt.Sprintf("shopify api error (status %d): %s", e.Status, e.Message)
}

type graphQLError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
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

func (c *client) endpoint() string {
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", c.creds.APIURL, apiVersion)
}

// query runs one GraphQL request and unmarshals the "data" object into out.
// Top-level GraphQL errors become apiError; THROTTLED is retryable.
func (c *client) query(ctx context.Context, q string, vars map[string]any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	payload, err := json.Marshal(map[string]any{"query": q, "variables": vars})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apiError{Message: "network error calling store", Retryable: true}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apiError{Message: "failed reading store response", Retryable: true}
	}

	if resp.StatusCode >= 400 {
		c.log.Warn("store API call failed",
			slog.Int("status", resp.StatusCode),
			slog.String("detail", string(body)),
		)
		return &apiError{
			Status:    resp.StatusCode,
			Message:   fmt.Sprintf("store rejected the request (status %d)", resp.StatusCode),
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphQLError  `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("parse graphql response: %w", err)
	}

	if len(envelope.Errors) > 0 {
		first := envelope.Errors[0]
		c.log.Warn("graphql query failed",
			slog.String("code", first.Extensions.Code),
			slog.String("detail", first.Message),
		)
		if first.Extensions.Code == codeThrottled {
			return &apiError{Message: "store rate limit reached", Retryable: true}
		}
		return &apiError{Message: "store rejected the query", Retryable: false}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("parse graphql data: %w", err)
		}
	}
	return nil
}
