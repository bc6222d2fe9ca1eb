package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WhatsAppClient sends text messages through the Meta WhatsApp Cloud API.
// Failures here never block the sale flow: delivery happens in the worker
// pool behind a circuit breaker.
type WhatsAppClient struct {
	apiURL     string
	token      string
	phoneID    string
	httpClient *http.Client
}

func NewWhatsAppClient(apiURL, token, phoneID string) *WhatsAppClient {
	return &WhatsAppClient{
		apiURL:     apiURL,
		token:      token,
		phoneID:    phoneID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// whatsAppMessage is the Cloud API request body for a plain text message.
type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

// whatsAppResponse carries the message id assigned by the Cloud API.
type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText delivers a text message to the given phone number (E.164, no "+").
// Returns the Cloud API message id on success.
func (c *WhatsAppClient) SendText(ctx context.Context, to, body string) (string, error) {
	msg := whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             whatsAppText{Body: body},
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.apiURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: api unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("whatsapp: api returned %d: %s", resp.StatusCode, raw)
	}

	var result whatsAppResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("whatsapp: decode response: %w", err)
	}
	if len(result.Messages) == 0 {
		return "", fmt.Errorf("whatsapp: empty messages in response")
	}
	return result.Messages[0].ID, nil
}
