package domain

// Comment is one immutable entry in a ticket's thread.
type Comment struct {
	ID            string    `json:"id"`
	Content       string    `json:"content"`
	AttachmentURL *string   `json:"attachment_url,omitempty"`
	CreatedAt     Timestamp `json:"created_at"`
	AuthorName    string    `json:"author_name"`
	AuthorRole    string    `json:"author_role"`
}

// Key returns the merge key.
func (c Comment) Key() string { return c.ID }

// Created returns the server-assigned creation time.
func (c Comment) Created() Timestamp { return c.CreatedAt }

// HasAttachment reports whether the comment references an uploaded file.
func (c Comment) HasAttachment() bool {
	return c.AttachmentURL != nil && *c.AttachmentURL != ""
}

// CreateCommentParams is the body of POST /tickets/{id}/comments.
type CreateCommentParams struct {
	Content       string  `json:"content"`
	AttachmentURL *string `json:"attachment_url"`
}
