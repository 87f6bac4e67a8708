package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

func TestSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, zap.NewNop())
	client.baseURL = server.URL

	creds := Credentials{Token: "secret-token", PhoneNumberID: "12345"}
	err := client.SendText(context.Background(), creds, "+14155550100", "hello")

	require.NoError(t, err)
	assert.Equal(t, "/12345/messages", gotPath)
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "whatsapp", gotBody["messaging_product"])
	assert.Equal(t, "+14155550100", gotBody["to"])
	assert.Equal(t, "text", gotBody["type"])
	text, ok := gotBody["text"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", text["body"])
}

func TestSendTextAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(5*time.Second, zap.NewNop())
	client.baseURL = server.URL

	err := client.SendText(context.Background(), Credentials{Token: "bad", PhoneNumberID: "12345"}, "+14155550100", "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCredentialsValid(t *testing.T) {
	assert.False(t, Credentials{}.Valid())
	assert.False(t, Credentials{Token: "t"}.Valid())
	assert.False(t, Credentials{PhoneNumberID: "p"}.Valid())
	assert.True(t, Credentials{Token: "t", PhoneNumberID: "p"}.Valid())
}

func TestBuildScheduleSummaryEmpty(t *testing.T) {
	assert.Equal(t, "No upcoming events.", BuildScheduleSummary(nil, nil))
}

func TestBuildScheduleSummaryGroupsByDay(t *testing.T) {
	events := []models.Event{
		{
			SourceID: "src-1",
			Title:    "Check-in Smith",
			Start:    time.Date(2024, 1, 15, 15, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 1, 15, 16, 0, 0, 0, time.UTC),
		},
		{
			SourceID: "src-2",
			Title:    "Reserved",
			Start:    time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 1, 15, 19, 0, 0, 0, time.UTC),
		},
		{
			SourceID: "src-1",
			Title:    "Blocked",
			Start:    time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
			AllDay:   true,
		},
	}
	names := map[string]string{"src-1": "Airbnb", "src-2": "Booking"}

	summary := BuildScheduleSummary(events, names)

	assert.Contains(t, summary, "Upcoming schedule (next 7 days):")
	assert.Contains(t, summary, "Mon 15 Jan")
	assert.Contains(t, summary, "Tue 16 Jan")
	assert.Contains(t, summary, "• 15:00–16:00 · Check-in Smith (Airbnb)")
	assert.Contains(t, summary, "• 18:00–19:00 · Reserved (Booking)")
	assert.Contains(t, summary, "• All-day · Blocked (Airbnb)")

	// The day header appears once even with two events on that day.
	assert.Equal(t, 1, strings.Count(summary, "Mon 15 Jan"))
}
