package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lorrc/devexchange/internal/core/domain"
)

var errMissingID = errors.New("chat frame has no id")

// frame is the union of the fields carried by live frames. The backend
// sends them flat; a nested payload object is also accepted.
type frame struct {
	Type    domain.EventType `json:"type"`
	Payload json.RawMessage  `json:"payload,omitempty"`

	ID            string           `json:"id"`
	Content       string           `json:"content"`
	AttachmentURL *string          `json:"attachment_url"`
	CreatedAt     domain.Timestamp `json:"created_at"`
	AuthorName    string           `json:"author_name"`
	AuthorRole    string           `json:"author_role"`
	Link          string           `json:"link"`
	IsRead        bool             `json:"is_read"`
}

// Decode parses one frame. ok is false for frames of a type this client
// does not handle; those are skipped, not errors.
func Decode(data []byte) (env domain.Envelope, ok bool, err error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.Envelope{}, false, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Type {
	case domain.EventChat, domain.EventNotification:
	default:
		return domain.Envelope{}, false, nil
	}

	if len(f.Payload) > 0 && string(f.Payload) != "null" {
		kind := f.Type
		if err := json.Unmarshal(f.Payload, &f); err != nil {
			return domain.Envelope{}, false, fmt.Errorf("decode %s payload: %w", kind, err)
		}
		f.Type = kind
	}

	switch f.Type {
	case domain.EventChat:
		if f.ID == "" {
			return domain.Envelope{}, false, errMissingID
		}
		return domain.Envelope{
			Type: domain.EventChat,
			Comment: &domain.Comment{
				ID:            f.ID,
				Content:       f.Content,
				AttachmentURL: f.AttachmentURL,
				CreatedAt:     f.CreatedAt,
				AuthorName:    f.AuthorName,
				AuthorRole:    f.AuthorRole,
			},
		}, true, nil

	default:
		n := &domain.Notification{
			ID:        f.ID,
			Content:   f.Content,
			Link:      f.Link,
			CreatedAt: f.CreatedAt,
		}
		// Pushed notifications are unread by construction.
		if n.ID == "" {
			n.ID = uuid.NewString()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = domain.NewTimestamp(time.Now())
		}
		return domain.Envelope{Type: domain.EventNotification, Notification: n}, true, nil
	}
}
