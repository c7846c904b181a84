package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mkravets/offsync/pkg/api"
)

// Client is the HTTP implementation of the Gateway.
type Client struct {
	httpClient *http.Client
	tokens     TokenProvider
	logger     *slog.Logger
	baseURL    string
}

var _ Gateway = (*Client)(nil)

// NewClient creates an HTTP gateway against baseURL. tokens may be nil for
// an unauthenticated remote.
func NewClient(baseURL string, tokens TokenProvider, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// CreateEntity creates a document remotely.
func (c *Client) CreateEntity(ctx context.Context, entityType, clientID string, payload []byte) (*api.RemoteEntity, error) {
	req := api.CreateEntityRequest{
		EntityType: entityType,
		ClientID:   clientID,
		Payload:    payload,
	}

	var resp api.RemoteEntity
	path := fmt.Sprintf("/api/v1/entities/%s", url.PathEscape(entityType))
	if err := c.doRequest(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("create entity request failed: %w", err)
	}
	return &resp, nil
}

// UpdateEntity writes a document with an optimistic version check.
func (c *Client) UpdateEntity(ctx context.Context, entityType, id string, payload []byte, expectedVersion uint64) (*api.RemoteEntity, error) {
	req := api.UpdateEntityRequest{
		Payload:         payload,
		ExpectedVersion: expectedVersion,
	}

	var resp api.RemoteEntity
	path := fmt.Sprintf("/api/v1/entities/%s/%s", url.PathEscape(entityType), url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodPut, path, req, &resp); err != nil {
		return nil, fmt.Errorf("update entity request failed: %w", err)
	}
	return &resp, nil
}

// DeleteEntity removes a document remotely.
func (c *Client) DeleteEntity(ctx context.Context, entityType, id string) error {
	path := fmt.Sprintf("/api/v1/entities/%s/%s", url.PathEscape(entityType), url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete entity request failed: %w", err)
	}
	return nil
}

// FetchEntity reads one document.
func (c *Client) FetchEntity(ctx context.Context, entityType, id string) (*api.RemoteEntity, error) {
	var resp api.RemoteEntity
	path := fmt.Sprintf("/api/v1/entities/%s/%s", url.PathEscape(entityType), url.PathEscape(id))
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch entity request failed: %w", err)
	}
	return &resp, nil
}

// FetchEntities reads a filtered page of documents.
func (c *Client) FetchEntities(ctx context.Context, entityType string, filters api.FetchFilters, paging api.Paging) (*api.FetchEntitiesResponse, error) {
	query := url.Values{}
	if filters.UpdatedSince != nil {
		query.Set("updated_since", filters.UpdatedSince.UTC().Format(time.RFC3339Nano))
	}
	for field, value := range filters.Fields {
		query.Set("f."+field, value)
	}
	if paging.Limit > 0 {
		query.Set("limit", strconv.Itoa(paging.Limit))
	}
	if paging.Offset > 0 {
		query.Set("offset", strconv.Itoa(paging.Offset))
	}

	path := fmt.Sprintf("/api/v1/entities/%s", url.PathEscape(entityType))
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp api.FetchEntitiesResponse
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch entities request failed: %w", err)
	}
	return &resp, nil
}

// UploadMedia stores a blob remotely and returns its URL.
func (c *Client) UploadMedia(ctx context.Context, data []byte, path string) (string, error) {
	endpoint := c.baseURL + "/api/v1/media?path=" + url.QueryEscape(path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if err := c.authorize(ctx, req); err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Kind: KindTransient, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.statusError(resp.StatusCode, body)
	}

	var uploaded api.UploadMediaResponse
	if err := json.Unmarshal(body, &uploaded); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return uploaded.URL, nil
}

// DownloadMedia fetches a blob by URL. Absolute URLs are used as-is so media
// may live on a CDN separate from the sync service.
func (c *Client) DownloadMedia(ctx context.Context, mediaURL string) ([]byte, error) {
	endpoint := mediaURL
	if parsed, err := url.Parse(mediaURL); err != nil || !parsed.IsAbs() {
		endpoint = c.baseURL + mediaURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, c.statusError(resp.StatusCode, body)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransient, Err: err}
	}
	return data, nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// doRequest runs one JSON round-trip and maps failures onto the taxonomy.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransient, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(resp.StatusCode, respBody)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// transportError classifies an error from the HTTP transport itself.
func (c *Client) transportError(err error) error {
	switch {
	case isOffline(err):
		return &Error{Kind: KindOffline, Err: err}
	case isTimeout(err):
		return &Error{Kind: KindTransient, Err: err}
	default:
		return &Error{Kind: KindTransient, Err: err}
	}
}

// statusError maps a non-2xx response onto the taxonomy. A 409 body carries
// the remote's current state for the conflict resolver.
func (c *Client) statusError(status int, body []byte) error {
	if status == http.StatusConflict {
		var conflict api.ConflictResponse
		if err := json.Unmarshal(body, &conflict); err == nil {
			return &ConflictError{
				RemoteVersion:   conflict.RemoteVersion,
				RemoteData:      conflict.RemotePayload,
				RemoteUpdatedAt: conflict.RemoteUpdatedAt,
			}
		}
		return &ConflictError{}
	}

	message := string(body)
	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	return &Error{
		Kind:       classifyStatus(status),
		StatusCode: status,
		Message:    message,
	}
}
