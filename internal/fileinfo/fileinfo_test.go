package fileinfo

import (
	"context"
	"errors"
	"testing"

	"unihelper/internal/telegram"
)

type stubFetcher struct {
	data []byte
	err  error
}

func (f stubFetcher) FileBytes(ctx context.Context, fileID string) ([]byte, error) {
	return f.data, f.err
}

func TestInspectKnownDigest(t *testing.T) {
	t.Parallel()

	att := Attachment{Kind: KindDocument, FileID: "f1", Name: "abc.txt", Size: 3}
	summary, err := Inspect(context.Background(), stubFetcher{data: []byte("abc")}, att)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	const wantDigest = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if summary.SHA256 != wantDigest {
		t.Fatalf("Inspect() sha256 = %q, want %q", summary.SHA256, wantDigest)
	}
	if summary.Size != 3 {
		t.Fatalf("Inspect() size = %d, want 3", summary.Size)
	}
	if kb := summary.KB(); kb < 0.0029 || kb > 0.003 {
		t.Fatalf("Inspect() kb = %v, want ~0.0029 (renders as 0.00)", kb)
	}
}

func TestInspectDownloadFailure(t *testing.T) {
	t.Parallel()

	att := Attachment{Kind: KindPhoto, FileID: "f2", Name: "Photo"}
	_, err := Inspect(context.Background(), stubFetcher{err: errors.New("boom")}, att)
	if err == nil {
		t.Fatalf("Inspect() error = nil, want failure")
	}
}

func TestFromMessageKinds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      *telegram.Message
		wantKind Kind
		wantName string
		wantID   string
		wantSize int64
	}{
		{
			name:     "document with name",
			msg:      &telegram.Message{Document: &telegram.Document{FileID: "d1", FileName: "report.pdf", FileSize: 2048}},
			wantKind: KindDocument,
			wantName: "report.pdf",
			wantID:   "d1",
			wantSize: 2048,
		},
		{
			name:     "document without name",
			msg:      &telegram.Message{Document: &telegram.Document{FileID: "d2"}},
			wantKind: KindDocument,
			wantName: "Unknown file",
			wantID:   "d2",
		},
		{
			name: "photo uses largest rendition",
			msg: &telegram.Message{Photo: []telegram.PhotoSize{
				{FileID: "p-small", FileSize: 100},
				{FileID: "p-big", FileSize: 900},
			}},
			wantKind: KindPhoto,
			wantName: "Photo",
			wantID:   "p-big",
			wantSize: 900,
		},
		{
			name:     "video fallback name",
			msg:      &telegram.Message{Video: &telegram.Video{FileID: "v1", FileSize: 5}},
			wantKind: KindVideo,
			wantName: "Video",
			wantID:   "v1",
			wantSize: 5,
		},
		{
			name:     "audio fallback name",
			msg:      &telegram.Message{Audio: &telegram.Audio{FileID: "a1"}},
			wantKind: KindAudio,
			wantName: "Audio",
			wantID:   "a1",
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			att, ok := FromMessage(tc.msg)
			if !ok {
				t.Fatalf("FromMessage() ok = false, want true")
			}
			if att.Kind != tc.wantKind {
				t.Fatalf("FromMessage() kind = %q, want %q", att.Kind, tc.wantKind)
			}
			if att.Name != tc.wantName {
				t.Fatalf("FromMessage() name = %q, want %q", att.Name, tc.wantName)
			}
			if att.FileID != tc.wantID {
				t.Fatalf("FromMessage() file id = %q, want %q", att.FileID, tc.wantID)
			}
			if att.Size != tc.wantSize {
				t.Fatalf("FromMessage() size = %d, want %d", att.Size, tc.wantSize)
			}
		})
	}
}

func TestFromMessageNoAttachment(t *testing.T) {
	t.Parallel()

	if _, ok := FromMessage(&telegram.Message{Text: "/help"}); ok {
		t.Fatalf("FromMessage() ok = true for text-only message, want false")
	}
	if _, ok := FromMessage(nil); ok {
		t.Fatalf("FromMessage(nil) ok = true, want false")
	}
}
