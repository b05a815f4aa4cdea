package domain

// Notification is one entry in a user's feed. IsRead only moves from false
// to true.
type Notification struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt Timestamp `json:"created_at"`
}

// Key returns the merge key.
func (n Notification) Key() string { return n.ID }

// Created returns the creation time.
func (n Notification) Created() Timestamp { return n.CreatedAt }
