package chat

import (
	"encoding/json"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"

	"anonchat/internal/pkg/errs"
)

const (
	// MaxAttachmentSizeMB is the maximum allowed file size in megabytes.
	MaxAttachmentSizeMB = 20

	// MaxAttachmentSize is the maximum allowed file size in bytes.
	MaxAttachmentSize = MaxAttachmentSizeMB * 1024 * 1024

	// PresignedURLDuration is the fixed duration for which the upload URL is valid (5 minutes).
	PresignedURLDuration = 5 * time.Minute
)

// AttachmentKind is how the partner's client should render a file.
type AttachmentKind string

const (
	KindPhoto     AttachmentKind = "photo"
	KindVideo     AttachmentKind = "video"
	KindVoice     AttachmentKind = "voice"
	KindAudio     AttachmentKind = "audio"
	KindDocument  AttachmentKind = "document"
	KindSticker   AttachmentKind = "sticker"
	KindAnimation AttachmentKind = "animation"
)

// mimeKinds defines the set of permitted MIME types and the kind each one is delivered as.
var mimeKinds = map[string]AttachmentKind{
	"image/jpeg":      KindPhoto,
	"image/png":       KindPhoto,
	"image/webp":      KindSticker,
	"image/gif":       KindAnimation,
	"video/mp4":       KindVideo,
	"video/webm":      KindVideo,
	"audio/ogg":       KindVoice,
	"audio/mpeg":      KindAudio,
	"application/pdf": KindDocument,
	"text/plain":      KindDocument,
	"application/zip": KindDocument,
}

// ExtToMIME maps file extensions to their corresponding MIME types.
var ExtToMIME = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".mp3":  "audio/mpeg",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".zip":  "application/zip",
}

// AllowedMIMETypes lists the accepted MIME types in a stable order.
func AllowedMIMETypes() []string {
	types := lo.Keys(mimeKinds)
	slices.Sort(types)
	return types
}

// Attachment represents a file attachment in a relayed message.
type Attachment struct {
	Key      string          `json:"fileKey"`
	Name     string          `json:"fileName"`
	MimeType string          `json:"mimeType"`
	Size     int64           `json:"fileSize"`
	Kind     AttachmentKind  `json:"kind,omitempty"`
	Spoiler  bool            `json:"spoiler,omitempty"`
	Meta     json.RawMessage `json:"meta,omitempty"`
}

// KindOf returns the delivery kind of an allowed MIME type.
func KindOf(mimeType string) (AttachmentKind, bool) {
	kind, ok := mimeKinds[strings.ToLower(mimeType)]
	return kind, ok
}

// Normalize fills the server-decided fields of an attachment and drops client metadata.
// Photos always reach the partner hidden behind a spoiler.
func (a *Attachment) Normalize() {
	a.MimeType = strings.ToLower(a.MimeType)
	a.Kind, _ = KindOf(a.MimeType)
	a.Spoiler = a.Kind == KindPhoto
	a.Meta = nil
}

// ValidateFileSize checks if the provided file size is within acceptable limits.
func ValidateFileSize(fileSize int64) *errs.CustomError {
	if fileSize <= 0 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if fileSize > MaxAttachmentSize {
		return errs.NewError(errs.ErrFileSizeTooLarge)
	}

	return nil
}

// ValidateFileType checks if the provided file name and MIME type are allowed.
func ValidateFileType(fileName string, mimeType string) *errs.CustomError {
	lowerMimeType := strings.ToLower(mimeType)

	if _, ok := mimeKinds[lowerMimeType]; !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if len(ext) < 2 {
		return errs.NewError(errs.ErrInvalidParams)
	}

	expectedMIME, ok := ExtToMIME[ext]
	if !ok {
		return errs.NewError(errs.ErrInvalidParams)
	}

	if expectedMIME != lowerMimeType {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}

// OwnsKey reports whether an attachment key was issued to the given owner prefix.
func OwnsKey(owner, key string) bool {
	prefix := owner + "/"
	return strings.HasPrefix(key, prefix) && len(key) > len(prefix) && !strings.Contains(key[len(prefix):], "/")
}
