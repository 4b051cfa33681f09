// Package mirror keeps a remote spreadsheet-backed endpoint eventually
// consistent with the local store and pulls remote state back to repair
// local loss. The endpoint is an opaque script service speaking a small
// action-based JSON protocol; everything here is best effort and local
// data is never rolled back on failure.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/afflab/affiliatehub/backend/internal/catalog"
)

const defaultRequestTimeout = 30 * time.Second

var errEmptyEndpoint = errors.New("mirror: endpoint URL is empty")

// envelope is the common shape of every endpoint response. Different
// deployments answer with success or ok, and error or description.
type envelope struct {
	Success     bool   `json:"success"`
	OK          bool   `json:"ok"`
	Error       string `json:"error"`
	Description string `json:"description"`
}

func (e envelope) succeeded() bool {
	return e.Success || e.OK
}

func (e envelope) failureMessage() string {
	if e.Error != "" {
		return e.Error
	}
	if e.Description != "" {
		return e.Description
	}
	return "request rejected"
}

// Client speaks the endpoint's wire protocol: POST with a JSON body
// carrying an action field, GET with an action query parameter.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a Client. A nil httpClient gets a default with a
// fixed request timeout.
func NewClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// post sends an action payload and decodes the response into out when out
// is non-nil. The envelope is always checked.
func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return errEmptyEndpoint
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("mirror: encode request: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mirror: build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	return c.do(request, out)
}

// get issues an action query and decodes the response into out.
func (c *Client) get(ctx context.Context, endpoint, action string, out any) error {
	if endpoint == "" {
		return errEmptyEndpoint
	}
	requestURL, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("mirror: parse endpoint: %w", err)
	}
	query := requestURL.Query()
	query.Set("action", action)
	requestURL.RawQuery = query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return fmt.Errorf("mirror: build request: %w", err)
	}
	return c.do(request, out)
}

func (c *Client) do(request *http.Request, out any) error {
	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("mirror: request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("mirror: endpoint returned status %d", response.StatusCode)
	}
	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("mirror: read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("mirror: parse response: %w", err)
	}
	if !env.succeeded() {
		return fmt.Errorf("mirror: %s", env.failureMessage())
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("mirror: parse response payload: %w", err)
		}
	}
	return nil
}

// SaveProducts pushes the full product collection.
func (c *Client) SaveProducts(ctx context.Context, endpoint string, products []catalog.Product) error {
	payload := struct {
		Action   string            `json:"action"`
		Products []catalog.Product `json:"products"`
	}{Action: "saveProducts", Products: products}
	return c.post(ctx, endpoint, payload, nil)
}

// GetProducts fetches the remote product snapshot.
func (c *Client) GetProducts(ctx context.Context, endpoint string) ([]catalog.Product, error) {
	var out struct {
		Products []catalog.Product `json:"products"`
	}
	if err := c.get(ctx, endpoint, "getProducts", &out); err != nil {
		return nil, err
	}
	return out.Products, nil
}

// SaveSettings pushes the settings record.
func (c *Client) SaveSettings(ctx context.Context, endpoint string, settings catalog.Settings) error {
	payload := struct {
		Action   string           `json:"action"`
		Settings catalog.Settings `json:"settings"`
	}{Action: "saveSettings", Settings: settings}
	return c.post(ctx, endpoint, payload, nil)
}

// GetSettings fetches the remote settings snapshot.
func (c *Client) GetSettings(ctx context.Context, endpoint string) (catalog.Settings, error) {
	var out struct {
		Settings catalog.Settings `json:"settings"`
	}
	if err := c.get(ctx, endpoint, "getSettings", &out); err != nil {
		return catalog.Settings{}, err
	}
	return out.Settings, nil
}

// SubscriberRow is one row of the remote subscriber sheet.
type SubscriberRow struct {
	Email string `json:"email"`
}

// GetSubscribers fetches the remote subscriber rows.
func (c *Client) GetSubscribers(ctx context.Context, endpoint string) ([]SubscriberRow, error) {
	var out struct {
		Subscribers []SubscriberRow `json:"subscribers"`
	}
	if err := c.get(ctx, endpoint, "getSubscribers", &out); err != nil {
		return nil, err
	}
	return out.Subscribers, nil
}

// AddSubscriber appends one email to the remote sheet.
func (c *Client) AddSubscriber(ctx context.Context, endpoint, email string) error {
	payload := struct {
		Action string `json:"action"`
		Email  string `json:"email"`
	}{Action: "addSubscriber", Email: email}
	return c.post(ctx, endpoint, payload, nil)
}

// SendTestEmail asks the endpoint to deliver the rendered campaign to a
// single address.
func (c *Client) SendTestEmail(ctx context.Context, endpoint, email, subject, htmlBody string) error {
	payload := struct {
		Action   string `json:"action"`
		Email    string `json:"email"`
		Subject  string `json:"subject"`
		HTMLBody string `json:"htmlBody"`
	}{Action: "sendTestEmail", Email: email, Subject: subject, HTMLBody: htmlBody}
	return c.post(ctx, endpoint, payload, nil)
}

// CampaignResult reports how far a sendToAll or resume got. The endpoint
// batches deliveries against its daily mail quota.
type CampaignResult struct {
	SentThisBatch int    `json:"sentThisBatch"`
	Remaining     int    `json:"remaining"`
	Message       string `json:"message"`
}

// SendToAll starts a campaign for every subscriber the endpoint knows.
func (c *Client) SendToAll(ctx context.Context, endpoint, subject, htmlBody string) (CampaignResult, error) {
	payload := struct {
		Action   string `json:"action"`
		Subject  string `json:"subject"`
		HTMLBody string `json:"htmlBody"`
	}{Action: "sendToAll", Subject: subject, HTMLBody: htmlBody}
	var result CampaignResult
	if err := c.post(ctx, endpoint, payload, &result); err != nil {
		return CampaignResult{}, err
	}
	return result, nil
}

// ResumeCampaign sends the next batch of a quota-limited campaign.
func (c *Client) ResumeCampaign(ctx context.Context, endpoint string) (CampaignResult, error) {
	payload := struct {
		Action string `json:"action"`
	}{Action: "resumeCampaign"}
	var result CampaignResult
	if err := c.post(ctx, endpoint, payload, &result); err != nil {
		return CampaignResult{}, err
	}
	return result, nil
}

// CampaignStatus describes an in-flight campaign.
type CampaignStatus struct {
	InProgress  bool   `json:"inProgress"`
	Subject     string `json:"subject"`
	SentCount   int    `json:"sentCount"`
	TotalEmails int    `json:"totalEmails"`
	Remaining   int    `json:"remaining"`
	StartedAt   string `json:"startedAt"`
}

// GetCampaignStatus polls the endpoint for campaign progress.
func (c *Client) GetCampaignStatus(ctx context.Context, endpoint string) (CampaignStatus, error) {
	var status CampaignStatus
	if err := c.get(ctx, endpoint, "getCampaignStatus", &status); err != nil {
		return CampaignStatus{}, err
	}
	return status, nil
}
