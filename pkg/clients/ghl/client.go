package ghl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultBaseURL    = "https://services.leadconnectorhq.com"
	DefaultAPIVersion = "2021-07-28"
	DefaultTimeout    = 15 * time.Second
)

// Client defines the interface for interacting with the GoHighLevel API
type Client interface {
	CreateContact(ctx context.Context, payload map[string]any, token string) (*Response, error)
	ListCustomFields(ctx context.Context, locationID, token string) ([]CustomField, error)
	CreateCustomField(ctx context.Context, locationID, token string, field CustomFieldSpec) (string, error)
}

// Response is the raw outcome of a contact creation call
type Response struct {
	StatusCode int
	Body       string
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// CustomField is a custom attribute as listed by the API
type CustomField struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	DataType string `json:"dataType,omitempty"`
}

// CustomFieldSpec describes a custom attribute to create
type CustomFieldSpec struct {
	Name     string `json:"name"`
	DataType string `json:"dataType"`
}

type clientImpl struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

// NewClient creates a new GoHighLevel client. Empty arguments fall back to the defaults.
func NewClient(baseURL, apiVersion string, timeout time.Duration) Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &clientImpl{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *clientImpl) CreateContact(ctx context.Context, payload map[string]any, token string) (*Response, error) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error creating payload: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, c.baseURL+"/contacts/", token, jsonPayload)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: status, Body: string(body)}, nil
}

func (c *clientImpl) ListCustomFields(ctx context.Context, locationID, token string) ([]CustomField, error) {
	status, body, err := c.do(ctx, http.MethodGet, c.customFieldsURL(locationID), token, nil)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	return decodeFieldList(body)
}

func (c *clientImpl) CreateCustomField(ctx context.Context, locationID, token string, field CustomFieldSpec) (string, error) {
	jsonPayload, err := json.Marshal(field)
	if err != nil {
		return "", fmt.Errorf("error creating payload: %w", err)
	}

	status, body, err := c.do(ctx, http.MethodPost, c.customFieldsURL(locationID), token, jsonPayload)
	if err != nil {
		return "", err
	}

	if status < 200 || status >= 300 {
		return "", &APIError{StatusCode: status, Body: string(body)}
	}

	return decodeCreatedFieldID(body)
}

func (c *clientImpl) customFieldsURL(locationID string) string {
	return fmt.Sprintf("%s/locations/%s/customFields/", c.baseURL, locationID)
}

// do performs one authenticated request. Only network-level failures come
// back as errors; any HTTP status is returned to the caller.
func (c *clientImpl) do(ctx context.Context, method, url, token string, payload []byte) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: method + " " + url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Op: "reading response", Err: err}
	}

	return resp.StatusCode, respBody, nil
}
