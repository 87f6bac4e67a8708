package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/calendar-aggregator/backend/internal/api/middleware"
	"github.com/calendar-aggregator/backend/internal/notify"
	"github.com/calendar-aggregator/backend/internal/storage"
)

// scheduleDays is how far ahead the generated schedule summary looks.
const scheduleDays = 7

// WhatsAppRequest is the body for sending a schedule over WhatsApp.
// Token and phone_number_id override the configured fallbacks per call.
type WhatsAppRequest struct {
	RecipientPhone string `json:"recipient_phone"`
	Message        string `json:"message"`
	Token          string `json:"token"`
	PhoneNumberID  string `json:"phone_number_id"`
	ListingID      string `json:"listing_id"`
}

// WhatsAppResponse reports a delivered message.
type WhatsAppResponse struct {
	Status        string `json:"status"`
	MessageLength int    `json:"message_length"`
}

// SendWhatsAppSchedule sends a custom message or a generated 7-day
// schedule summary to the given phone number.
func SendWhatsAppSchedule(
	client *notify.Client,
	fallback notify.Credentials,
	events *storage.EventRepository,
	sources *storage.SourceRepository,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req WhatsAppRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		if req.RecipientPhone == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "recipient_phone is required")
			return
		}

		creds := notify.Credentials{Token: req.Token, PhoneNumberID: req.PhoneNumberID}
		if creds.Token == "" {
			creds.Token = fallback.Token
		}
		if creds.PhoneNumberID == "" {
			creds.PhoneNumberID = fallback.PhoneNumberID
		}
		if !creds.Valid() {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation,
				"Missing WhatsApp credentials (token/phone_number_id)")
			return
		}

		body := req.Message
		if body == "" {
			now := time.Now().UTC()
			stored, err := events.ListOverlapping(r.Context(), now, now.AddDate(0, 0, scheduleDays), req.ListingID)
			if err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query events")
				return
			}

			names, err := sourceNames(r, sources)
			if err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query sources")
				return
			}

			body = notify.BuildScheduleSummary(stored, names)
		}

		if err := client.SendText(r.Context(), creds, req.RecipientPhone, body); err != nil {
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrUpstream, "WhatsApp delivery failed")
			return
		}

		writeJSON(w, http.StatusOK, WhatsAppResponse{Status: "sent", MessageLength: len(body)})
	}
}
