package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"storesync/internal/app/client/config"
	"storesync/internal/domain/credential"
	"storesync/internal/domain/heartbeat"
	"storesync/internal/domain/importer"
	"storesync/internal/domain/push"
	"storesync/internal/domain/queue"
)

type httpClient struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) *httpClient {
	client := &http.Client{
		Timeout: 90 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 10,
		},
	}

	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}

	return &httpClient{
		client:    client,
		log:       log,
		baseURL:   scheme + cfg.ServerAddress,
		userAgent: "Storesync-Client/1.0",
	}
}

// SetToken sets the bearer API token for subsequent requests.
func (h *httpClient) SetToken(token string) {
	h.token = token
}

// HealthCheck verifies the server is reachable.
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

type ConnectStoreRequest struct {
	StoreName      string `json:"store_name"`
	Platform       string `json:"platform"`
	APIURL         string `json:"api_url"`
	ConsumerKey    string `json:"consumer_key,omitempty"`
	ConsumerSecret string `json:"consumer_secret,omitempty"`
	AccessToken    string `json:"access_token,omitempty"`
	BlogURL        string `json:"blog_url,omitempty"`
	BlogUser       string `json:"blog_user,omitempty"`
	BlogPassword   string `json:"blog_password,omitempty"`
}

func (h *httpClient) ConnectStore(ctx context.Context, req ConnectStoreRequest) (string, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/stores", req)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (h *httpClient) ListStores(ctx context.Context) ([]*credential.StoreConnection, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/stores", nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Stores []*credential.StoreConnection `json:"stores"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Stores, nil
}

func (h *httpClient) DeleteStore(ctx context.Context, storeID string) error {
	resp, err := h.doRequest(ctx, http.MethodDelete, "/api/stores/"+storeID, nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

type pushRequest struct {
	ProductIDs []string `json:"product_ids,omitempty"`
	ArticleIDs []string `json:"article_ids,omitempty"`
	Force      bool     `json:"force,omitempty"`
}

func (h *httpClient) Push(ctx context.Context, storeID string, req pushRequest) (*push.Result, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/stores/"+storeID+"/push", req)
	if err != nil {
		return nil, err
	}

	var out push.Result
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) StartImport(ctx context.Context, storeID string, forceRestart bool) (*importer.SyncImportJob, error) {
	body := struct {
		ForceRestart bool `json:"force_restart,omitempty"`
	}{ForceRestart: forceRestart}

	resp, err := h.doRequest(ctx, http.MethodPost, "/api/stores/"+storeID+"/import", body)
	if err != nil {
		return nil, err
	}

	var out importer.SyncImportJob
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) RunImport(ctx context.Context, jobID string) (*importer.RunResult, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/imports/"+jobID+"/run", nil)
	if err != nil {
		return nil, err
	}

	var out importer.RunResult
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) ImportStatus(ctx context.Context, jobID string) (*importer.Status, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/imports/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	var out importer.Status
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) QueueStats(ctx context.Context, storeID string) (*queue.QueueStats, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/stores/"+storeID+"/queue/stats", nil)
	if err != nil {
		return nil, err
	}

	var out queue.QueueStats
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) ListJobs(ctx context.Context, storeID, status string, limit int) ([]*queue.SyncJob, error) {
	path := fmt.Sprintf("/api/stores/%s/queue?limit=%d", storeID, limit)
	if status != "" {
		path += "&status=" + status
	}

	resp, err := h.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Jobs []*queue.SyncJob `json:"jobs"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

func (h *httpClient) Heartbeat(ctx context.Context, storeID string) (*heartbeat.StoreHeartbeat, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/stores/"+storeID+"/heartbeat", nil)
	if err != nil {
		return nil, err
	}

	var out heartbeat.StoreHeartbeat
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) ForceHeartbeatCheck(ctx context.Context, storeID string) (*heartbeat.CheckResult, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/stores/"+storeID+"/heartbeat/check", nil)
	if err != nil {
		return nil, err
	}

	var out heartbeat.CheckResult
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h *httpClient) ResetHeartbeat(ctx context.Context, storeID string) error {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/stores/"+storeID+"/heartbeat/reset", nil)
	if err != nil {
		return err
	}
	return h.parseResponse(resp, nil)
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Title  string `json:"title"`
			Detail string `json:"detail"`
			Error  string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, &apiErr); err == nil {
			switch {
			case apiErr.Detail != "":
				return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Detail)
			case apiErr.Error != "":
				return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Error)
			case apiErr.Title != "":
				return fmt.Errorf("server error (%d): %s", resp.StatusCode, apiErr.Title)
			}
		}
		return fmt.Errorf("server error: status %d", resp.StatusCode)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
