// Package transcript exports a conversation snapshot as Markdown or JSON.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raphaelgruber/chatterm/internal/media"
	"github.com/raphaelgruber/chatterm/internal/models"
)

// Format selects the output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// FormatFromPath picks JSON for .json files and Markdown otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatMarkdown
}

// Options controls how images are written.
type Options struct {
	// InlineImages embeds data URIs in Markdown output. When false, images
	// are summarised as "[image: mime, size]".
	InlineImages bool
}

// Write encodes snap to w.
func Write(w io.Writer, snap models.Snapshot, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap.Messages); err != nil {
			return fmt.Errorf("encode transcript: %w", err)
		}
		return nil
	case FormatMarkdown, "":
		_, err := io.WriteString(w, Markdown(snap, opts))
		return err
	default:
		return fmt.Errorf("unknown transcript format %q", format)
	}
}

// WriteFile writes snap to path, choosing the format from the extension.
func WriteFile(path string, snap models.Snapshot, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create transcript: %w", err)
	}
	if err := Write(f, snap, FormatFromPath(path), opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Markdown renders the messages as a Markdown document.
func Markdown(snap models.Snapshot, opts Options) string {
	var b strings.Builder
	b.WriteString("# Conversation\n")

	for _, m := range snap.Messages {
		who := "Model"
		if m.Role == models.RoleUser {
			who = "You"
		}
		fmt.Fprintf(&b, "\n### %s · %s\n\n", who, m.Timestamp.Format(time.RFC3339))

		text := m.Text
		if m.IsError {
			text = "> **Error:** " + text
		}
		if text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}

		if m.HasImage() {
			if opts.InlineImages {
				fmt.Fprintf(&b, "\n![generated image](%s)\n", m.Image)
			} else {
				fmt.Fprintf(&b, "\n[image: %s]\n", media.Describe(m.Image))
			}
		}
	}
	return b.String()
}
