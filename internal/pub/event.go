package pub

import (
	"context"
	"folio/internal/ports"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
)

const (
	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionReordered  = "reordered"
	ActionVisibility = "visibility"
	ActionUploaded   = "uploaded"
)

// Event announces a change made through the admin API.
type Event struct {
	Resource string `json:"resource"`
	Action   string `json:"action"`
	ID       string `json:"id,omitempty"`
}

// Emit publishes ev to topic. Failures are logged and otherwise ignored: the change
// itself is already stored.
func Emit(ctx context.Context, p ports.Publisher, topic string, ev Event) {
	if p == nil {
		return
	}
	b, err := json.Marshal(ev)
	if err != nil {
		log.WithError(err).Error("failed to marshal change event")
		return
	}
	if err := p.PublishRaw(ctx, topic, b); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"resource": ev.Resource,
			"action":   ev.Action,
		}).Error("failed to publish change event")
	}
}
