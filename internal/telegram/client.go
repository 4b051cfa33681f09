// Package telegram posts selected products to a channel through the bot
// HTTP API. Broadcasts are sequential with a fixed delay between posts;
// a failed post is counted and the loop moves on.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBaseURL = "https://api.telegram.org"

var errMissingCredentials = errors.New("telegram: bot token and channel id are required")

// ClientConfig describes a bot API client. BaseURL is overridable for tests.
type ClientConfig struct {
	HTTPClient *http.Client
	Logger     *zap.Logger
	BaseURL    string
	BotToken   string
	ChannelID  string
}

// Client calls the bot API for one token/channel pair.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
	baseURL    string
	botToken   string
	channelID  string
}

// NewClient constructs a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BotToken == "" || cfg.ChannelID == "" {
		return nil, errMissingCredentials
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		botToken:   cfg.BotToken,
		channelID:  cfg.ChannelID,
	}, nil
}

// apiResponse is the bot API envelope; description carries the failure
// reason when ok is false.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.botToken, method)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("telegram: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("telegram: build request: %w", err)
	}
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("telegram: request failed: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("telegram: read response: %w", err)
	}
	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("telegram: parse response: %w", err)
	}
	if !decoded.OK {
		message := decoded.Description
		if message == "" {
			message = "request rejected"
		}
		return nil, fmt.Errorf("telegram: %s", message)
	}
	return decoded.Result, nil
}

// BotInfo is the subset of getMe used for connection checks.
type BotInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// GetMe verifies the bot token and returns the bot identity.
func (c *Client) GetMe(ctx context.Context) (BotInfo, error) {
	result, err := c.call(ctx, "getMe", nil)
	if err != nil {
		return BotInfo{}, err
	}
	var info BotInfo
	if err := json.Unmarshal(result, &info); err != nil {
		return BotInfo{}, fmt.Errorf("telegram: parse bot info: %w", err)
	}
	return info, nil
}

// SendMessage posts a Markdown text message to the channel with link
// previews enabled.
func (c *Client) SendMessage(ctx context.Context, text string) error {
	payload := struct {
		ChatID                string `json:"chat_id"`
		Text                  string `json:"text"`
		ParseMode             string `json:"parse_mode"`
		DisableWebPagePreview bool   `json:"disable_web_page_preview"`
	}{ChatID: c.channelID, Text: text, ParseMode: "Markdown"}
	_, err := c.call(ctx, "sendMessage", payload)
	return err
}

// SendPhoto posts an image by URL with a Markdown caption.
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	payload := struct {
		ChatID    string `json:"chat_id"`
		Photo     string `json:"photo"`
		Caption   string `json:"caption"`
		ParseMode string `json:"parse_mode"`
	}{ChatID: c.channelID, Photo: photoURL, Caption: caption, ParseMode: "Markdown"}
	_, err := c.call(ctx, "sendPhoto", payload)
	return err
}

// TestConnection checks the token via getMe and sends a confirmation
// message to the channel, returning the bot identity on success.
func (c *Client) TestConnection(ctx context.Context) (BotInfo, error) {
	info, err := c.GetMe(ctx)
	if err != nil {
		return BotInfo{}, err
	}
	confirmation := "✅ Connection successful!\n\nYour Affiliate Hub is now connected to this channel."
	if err := c.SendMessage(ctx, confirmation); err != nil {
		return BotInfo{}, err
	}
	c.logger.Info("telegram connection verified", zap.String("bot", info.Username))
	return info, nil
}
