// Package media encodes and decodes the base64 data URIs that carry
// generated images through the message log.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotDataURI indicates a payload that is not a base64 data URI.
var ErrNotDataURI = errors.New("not a base64 data URI")

// EncodeDataURI wraps raw bytes as "data:<mime>;base64,<payload>".
func EncodeDataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI returns the MIME type and bytes of a base64 data URI.
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrNotDataURI
	}
	mimeType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, ErrNotDataURI
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data URI: %w", err)
	}
	return mimeType, data, nil
}

// Describe returns a short human-readable summary such as "image/png, 12.3 KB".
func Describe(uri string) string {
	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		return "unreadable image"
	}
	return fmt.Sprintf("%s, %.1f KB", mimeType, float64(len(data))/1024)
}

// Save writes the image in uri to dir as <name><ext> and returns the path.
// The extension is derived from the MIME type.
func Save(dir, name, uri string) (string, error) {
	mimeType, data, err := DecodeDataURI(uri)
	if err != nil {
		return "", err
	}

	ext := ".bin"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		ext = exts[0]
	}
	if mimeType == "image/png" {
		ext = ".png"
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	path := filepath.Join(dir, name+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path, nil
}
