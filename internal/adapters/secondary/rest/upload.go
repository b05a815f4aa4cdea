package rest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/lorrc/devexchange/internal/core/domain"
	apperrors "github.com/lorrc/devexchange/internal/core/errors"
)

// Upload stores the attachment and returns its public URL.
func (c *Client) Upload(ctx context.Context, attachment domain.Attachment) (string, error) {
	if attachment.Content == nil {
		return "", fmt.Errorf("upload: %w", apperrors.ErrBadRequest)
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(attachment.Filename))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, attachment.Content); err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("close form: %w", err)
	}

	var resp struct {
		URL string `json:"url"`
	}
	err = c.do(ctx, call{
		method:      http.MethodPost,
		path:        "/upload",
		rawBody:     &buf,
		contentType: form.FormDataContentType(),
		out:         &resp,
		anonymous:   true,
	})
	if err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", apperrors.NewTransportError(http.MethodPost, "/upload", errors.New("response has no url"))
	}
	return resp.URL, nil
}
