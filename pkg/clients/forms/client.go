package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"ghl-connector/pkg/models"
)

// ErrEntryNotFound is returned when the form system has no such entry
var ErrEntryNotFound = errors.New("entry not found")

// layoutFieldTypes never carry submitted values
var layoutFieldTypes = map[string]bool{
	"divider":     true,
	"html":        true,
	"break":       true,
	"captcha":     true,
	"end_divider": true,
}

// Client defines the interface for reading entries and fields from the form system
type Client interface {
	GetEntry(ctx context.Context, entryID string) (*models.SubmissionEntry, error)
	GetFormFields(ctx context.Context, formID string) ([]models.FormField, error)
}

type clientImpl struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new form system REST client
func NewClient(baseURL, apiKey string, timeout time.Duration) Client {
	return &clientImpl{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *clientImpl) GetEntry(ctx context.Context, entryID string) (*models.SubmissionEntry, error) {
	endpoint := fmt.Sprintf("%s/entries/%s", c.baseURL, url.PathEscape(entryID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response struct {
		ID     json.Number    `json:"id"`
		FormID json.Number    `json:"form_id"`
		Metas  map[string]any `json:"metas"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	if len(response.Metas) == 0 {
		return nil, fmt.Errorf("%w: entry %s has no field values", ErrEntryNotFound, entryID)
	}

	return &models.SubmissionEntry{
		ID:     response.ID.String(),
		FormID: response.FormID.String(),
		Metas:  response.Metas,
	}, nil
}

func (c *clientImpl) GetFormFields(ctx context.Context, formID string) ([]models.FormField, error) {
	endpoint := fmt.Sprintf("%s/forms/%s/fields", c.baseURL, url.PathEscape(formID))

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var response []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
		Type string      `json:"type"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	fields := make([]models.FormField, 0, len(response))
	for _, f := range response {
		if f.ID == "" || layoutFieldTypes[f.Type] {
			continue
		}
		fields = append(fields, models.FormField{ID: f.ID.String(), Label: f.Name})
	}

	return fields, nil
}

func (c *clientImpl) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	// The form system's REST API takes the key as the basic-auth user
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error calling form API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrEntryNotFound
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error from form API (%d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
