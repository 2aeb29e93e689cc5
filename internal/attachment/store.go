// Package attachment stores the binary payloads referenced by image and SVG nodes.
// Identical bytes are stored once and always map to the same id.
package attachment

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	MIMESVG   = "image/svg+xml"
	MIMEOctet = "application/octet-stream"
)

var (
	ErrNotFound = errors.New("attachment not found")
	ErrEmpty    = errors.New("attachment is empty")
)

// Info describes a stored attachment without its bytes.
type Info struct {
	ID        string    `json:"id"`
	MIME      string    `json:"mime"`
	Hash      string    `json:"hash"`
	Size      int       `json:"size"`
	Width     int       `json:"width,omitempty"`
	Height    int       `json:"height,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Blob is an attachment with its bytes.
type Blob struct {
	Info
	Data []byte
}

// Store is a key to bytes map for attachments.
type Store interface {
	// Put stores data and returns its id. Storing the same bytes again returns the
	// existing id.
	Put(ctx context.Context, mime string, data []byte) (string, error)
	Get(ctx context.Context, id string) (Blob, error)
	Has(id string) bool
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Info, error)
}

// Checker lets the stage ask a Store whether an attachment exists.
type Checker struct {
	Store Store
}

func (c Checker) HasAttachment(id string) bool {
	return c.Store != nil && c.Store.Has(id)
}

// Hash is the hex BLAKE2b-256 digest of data.
func Hash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Describe fills MIME (sniffed when empty), hash, size and image dimensions.
func Describe(mime string, data []byte) Info {
	if mime == "" || mime == MIMEOctet {
		mime = Sniff(data)
	}
	info := Info{
		MIME: mime,
		Hash: Hash(data),
		Size: len(data),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}
	return info
}

// Sniff guesses the content type, recognising SVG documents that net/http reports as XML.
func Sniff(data []byte) string {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	if bytes.Contains(head, []byte("<svg")) {
		return MIMESVG
	}
	return http.DetectContentType(data)
}
