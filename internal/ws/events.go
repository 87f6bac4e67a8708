package ws

import (
	"go.uber.org/zap"

	"github.com/calendar-aggregator/backend/internal/storage/models"
)

// Broadcaster encodes and broadcasts typed events over the hub.
type Broadcaster struct {
	hub    *Hub
	logger *zap.Logger
}

// NewBroadcaster creates a new event broadcaster.
func NewBroadcaster(hub *Hub, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{hub: hub, logger: logger}
}

// SyncCompleted announces a finished sync of one source.
func (b *Broadcaster) SyncCompleted(src models.CalendarSource, eventsSaved int) {
	b.send(NewMessage(TypeSyncCompleted, SyncCompletedPayload{
		SourceID:    src.ID,
		SourceName:  src.Name,
		ListingID:   src.ListingID,
		EventsSaved: eventsSaved,
	}))
}

// SyncFailed announces a failed sync of one source.
func (b *Broadcaster) SyncFailed(src models.CalendarSource, err error) {
	b.send(NewMessage(TypeSyncFailed, SyncFailedPayload{
		SourceID:   src.ID,
		SourceName: src.Name,
		ListingID:  src.ListingID,
		Message:    err.Error(),
	}))
}

// Notify sends a user-facing notification to all clients.
func (b *Broadcaster) Notify(level, title, message string) {
	b.send(NewMessage(TypeNotification, NotificationPayload{
		Level:   level,
		Title:   title,
		Message: message,
	}))
}

func (b *Broadcaster) send(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		b.logger.Error("encoding websocket message", zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
