// Package notify sends schedule notifications through the WhatsApp Cloud
// API.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v17.0"

// Credentials are the WhatsApp Cloud API credentials for one send. They
// may come from the request or from the injected service configuration;
// the client itself never reads the environment.
type Credentials struct {
	Token         string
	PhoneNumberID string
}

// Valid reports whether both credential parts are present.
func (c Credentials) Valid() bool {
	return c.Token != "" && c.PhoneNumberID != ""
}

// Client sends WhatsApp text messages via the Cloud API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a WhatsApp client with the given request timeout.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultGraphBaseURL,
		logger:     logger,
	}
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// SendText delivers a text message to the recipient phone number
// (international format, e.g. +14155550100).
func (c *Client) SendText(ctx context.Context, creds Credentials, recipientPhone, body string) error {
	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               recipientPhone,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, creds.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("whatsapp api: status %d", resp.StatusCode)
	}

	c.logger.Info("whatsapp message sent",
		zap.String("to", recipientPhone),
		zap.Int("length", len(body)),
	)

	return nil
}

// BuildScheduleSummary renders a concise upcoming-schedule message from
// events ordered by start, grouping lines by day. sourceNames maps source
// IDs to display names for attribution.
func BuildScheduleSummary(events []models.Event, sourceNames map[string]string) string {
	if len(events) == 0 {
		return "No upcoming events."
	}

	lines := []string{"Upcoming schedule (next 7 days):"}
	currentDay := ""
	for _, ev := range events {
		day := ev.Start.Format("Mon 02 Jan")
		if day != currentDay {
			lines = append(lines, "\n"+day)
			currentDay = day
		}

		timePart := "All-day"
		if !ev.AllDay {
			timePart = ev.Start.Format("15:04") + "–" + ev.End.Format("15:04")
		}

		lines = append(lines, fmt.Sprintf("• %s · %s (%s)", timePart, ev.Title, sourceNames[ev.SourceID]))
	}

	return strings.Join(lines, "\n")
}
