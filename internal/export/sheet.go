// Package export posts event rows to an external webhook, typically a
// Google Apps Script Web App backing a spreadsheet.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// Row is one exported event in the shape the spreadsheet webhook expects.
// Instants are RFC 3339 strings.
type Row struct {
	Source      string  `json:"source"`
	Title       string  `json:"title"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	AllDay      bool    `json:"all_day"`
	Location    *string `json:"location"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Payload is the JSON document posted to the webhook.
type Payload struct {
	Events []Row `json:"events"`
}

// SheetExporter delivers event rows to a webhook URL.
type SheetExporter struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSheetExporter creates an exporter with the given request timeout.
func NewSheetExporter(timeout time.Duration, logger *zap.Logger) *SheetExporter {
	return &SheetExporter{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// BuildRows converts stored events to export rows. sourceNames maps
// source IDs to display names.
func BuildRows(events []models.Event, sourceNames map[string]string) []Row {
	rows := make([]Row, 0, len(events))
	for _, ev := range events {
		rows = append(rows, Row{
			Source:      sourceNames[ev.SourceID],
			Title:       ev.Title,
			Start:       ev.Start.UTC().Format(time.RFC3339),
			End:         ev.End.UTC().Format(time.RFC3339),
			AllDay:      ev.AllDay,
			Location:    ev.Location,
			Description: ev.Description,
			Status:      ev.Status,
		})
	}
	return rows
}

// Send posts the rows to the webhook and returns the webhook's HTTP
// status code. A non-2xx status is an error.
func (e *SheetExporter) Send(ctx context.Context, webhookURL string, rows []Row) (int, error) {
	payload, err := json.Marshal(Payload{Events: rows})
	if err != nil {
		return 0, fmt.Errorf("encoding export payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	e.logger.Info("events exported",
		zap.String("webhook_url", webhookURL),
		zap.Int("rows", len(rows)),
	)

	return resp.StatusCode, nil
}
