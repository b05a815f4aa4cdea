package domain

import (
	"io"
	"time"
)

// NoticeLevel selects how a notice is presented.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
	NoticeInfo    NoticeLevel = "info"
)

// DefaultNoticeTTL is how long a transient notice stays visible.
const DefaultNoticeTTL = 3 * time.Second

// Notice is a dismissable, auto-expiring user-visible message.
type Notice struct {
	Level   NoticeLevel
	Message string
	TTL     time.Duration
}

// NewNotice builds a notice with the default TTL.
func NewNotice(level NoticeLevel, message string) Notice {
	return Notice{Level: level, Message: message, TTL: DefaultNoticeTTL}
}

// Attachment is a file picked for upload alongside a comment.
type Attachment struct {
	Filename string
	Content  io.Reader
}
