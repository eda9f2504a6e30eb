package draft

import (
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// MaxAttachmentSize is the largest accepted upload
const MaxAttachmentSize = 10 * 1024 * 1024

var (
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds size limit")
)

var allowedContentTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// NewAttachment checks an upload's size and sniffed content type. The
// declared type from the client is ignored.
func NewAttachment(name string, data []byte) (Attachment, error) {
	if len(data) > MaxAttachmentSize {
		return Attachment{}, ErrFileTooLarge
	}

	mt := mimetype.Detect(data)
	allowed := false
	for _, ct := range allowedContentTypes {
		if mt.Is(ct) {
			allowed = true
			break
		}
	}
	if !allowed {
		return Attachment{}, ErrUnsupportedFileType
	}

	return Attachment{
		Name:        name,
		ContentType: mt.String(),
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}

// AttachmentMessage returns the user facing message for an upload error
func AttachmentMessage(err error) string {
	switch {
	case errors.Is(err, ErrFileTooLarge):
		return "File size must be less than 10MB"
	case errors.Is(err, ErrUnsupportedFileType):
		return "Please upload a JPG, PNG, or PDF file"
	default:
		return "Unable to read file"
	}
}

// ReadAttachment reads at most one byte past the size limit so oversized
// uploads are rejected without buffering them whole.
func ReadAttachment(name string, r io.Reader) (Attachment, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		return Attachment{}, fmt.Errorf("failed to read attachment: %w", err)
	}
	return NewAttachment(name, data)
}
