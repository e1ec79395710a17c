// Package fileinfo inspects message attachments: it resolves the payload,
// hashes it and summarizes name, kind and size.
package fileinfo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"unihelper/internal/telegram"
)

type Kind string

const (
	KindDocument Kind = "document"
	KindPhoto    Kind = "photo"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
)

// Label is the human-readable attachment kind shown in replies.
func (k Kind) Label() string {
	switch k {
	case KindDocument:
		return "📄 Document"
	case KindPhoto:
		return "🖼️ Photo"
	case KindVideo:
		return "🎥 Video"
	case KindAudio:
		return "🎵 Audio"
	default:
		return string(k)
	}
}

type Attachment struct {
	Kind   Kind
	FileID string
	Name   string
	Size   int64
}

// FromMessage extracts the attachment carried by a message. Photos arrive as
// a size ladder; the largest rendition is used. Missing names fall back to a
// generic label per kind.
func FromMessage(msg *telegram.Message) (Attachment, bool) {
	if msg == nil {
		return Attachment{}, false
	}
	switch {
	case msg.Document != nil:
		name := msg.Document.FileName
		if name == "" {
			name = "Unknown file"
		}
		return Attachment{
			Kind:   KindDocument,
			FileID: msg.Document.FileID,
			Name:   name,
			Size:   msg.Document.FileSize,
		}, true
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		return Attachment{
			Kind:   KindPhoto,
			FileID: largest.FileID,
			Name:   "Photo",
			Size:   largest.FileSize,
		}, true
	case msg.Video != nil:
		name := msg.Video.FileName
		if name == "" {
			name = "Video"
		}
		return Attachment{
			Kind:   KindVideo,
			FileID: msg.Video.FileID,
			Name:   name,
			Size:   msg.Video.FileSize,
		}, true
	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = "Audio"
		}
		return Attachment{
			Kind:   KindAudio,
			FileID: msg.Audio.FileID,
			Name:   name,
			Size:   msg.Audio.FileSize,
		}, true
	default:
		return Attachment{}, false
	}
}

// Fetcher resolves an attachment id to its full byte payload.
type Fetcher interface {
	FileBytes(ctx context.Context, fileID string) ([]byte, error)
}

type Summary struct {
	Name   string
	Kind   Kind
	Size   int64
	SHA256 string
}

// KB is the payload size in kibibytes.
func (s Summary) KB() float64 {
	return float64(s.Size) / 1024
}

// Inspect downloads the attachment and hashes its content with SHA-256.
// The declared size from the platform is reported, or the downloaded length
// when the platform did not declare one.
func Inspect(ctx context.Context, fetcher Fetcher, att Attachment) (Summary, error) {
	data, err := fetcher.FileBytes(ctx, att.FileID)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch attachment %s: %w", att.FileID, err)
	}
	digest := sha256.Sum256(data)
	size := att.Size
	if size == 0 {
		size = int64(len(data))
	}
	return Summary{
		Name:   att.Name,
		Kind:   att.Kind,
		Size:   size,
		SHA256: hex.EncodeToString(digest[:]),
	}, nil
}
