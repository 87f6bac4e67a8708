package export

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

func TestBuildRows(t *testing.T) {
	location := "Villa Azul"
	events := []models.Event{
		{
			SourceID: "src-1",
			Title:    "Reserved",
			Start:    time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 1, 18, 11, 0, 0, 0, time.UTC),
			Location: &location,
		},
		{
			SourceID: "src-2",
			Title:    "Blocked",
			Start:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC),
			AllDay:   true,
		},
	}
	names := map[string]string{"src-1": "Airbnb", "src-2": "Booking"}

	rows := BuildRows(events, names)

	require.Len(t, rows, 2)
	assert.Equal(t, "Airbnb", rows[0].Source)
	assert.Equal(t, "2024-01-15T09:00:00Z", rows[0].Start)
	assert.Equal(t, "2024-01-18T11:00:00Z", rows[0].End)
	require.NotNil(t, rows[0].Location)
	assert.Equal(t, "Villa Azul", *rows[0].Location)
	assert.True(t, rows[1].AllDay)
	assert.Nil(t, rows[1].Status)
}

func TestSendPostsPayload(t *testing.T) {
	var got Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	exporter := NewSheetExporter(5*time.Second, zap.NewNop())
	status, err := exporter.Send(context.Background(), server.URL, []Row{{Source: "Airbnb", Title: "Reserved"}})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "Reserved", got.Events[0].Title)
}

func TestSendWebhookError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	exporter := NewSheetExporter(5*time.Second, zap.NewNop())
	status, err := exporter.Send(context.Background(), server.URL, nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusBadGateway, status)
}
