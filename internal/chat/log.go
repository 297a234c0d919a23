package chat

import (
	"fmt"
	"slices"
	"strings"

	"github.com/raphaelgruber/chatterm/internal/models"
)

// Log is an ordered, append-only message log.
// Every operation returns a new Log; a Log value is never modified after
// it is built, so snapshots taken from it stay valid.
type Log struct {
	msgs []models.Message
}

// NewLog creates a log holding the given messages in order.
func NewLog(seed ...models.Message) Log {
	return Log{msgs: slices.Clone(seed)}
}

// Len returns the number of messages.
func (l Log) Len() int {
	return len(l.msgs)
}

// Messages returns a copy of the messages in order.
func (l Log) Messages() []models.Message {
	return slices.Clone(l.msgs)
}

// Last returns the newest message.
func (l Log) Last() (models.Message, bool) {
	if len(l.msgs) == 0 {
		return models.Message{}, false
	}
	return l.msgs[len(l.msgs)-1], true
}

// Append returns a new log with m added at the end.
func (l Log) Append(m models.Message) Log {
	next := make([]models.Message, len(l.msgs), len(l.msgs)+1)
	copy(next, l.msgs)
	return Log{msgs: append(next, m)}
}

// Find looks up a message by id.
func (l Log) Find(id string) (models.Message, bool) {
	if i := l.index(id); i >= 0 {
		return l.msgs[i], true
	}
	return models.Message{}, false
}

func (l Log) index(id string) int {
	return slices.IndexFunc(l.msgs, func(m models.Message) bool { return m.ID == id })
}

// Patch holds the mutable fields of a MODEL message.
// Nil fields are left untouched.
type Patch struct {
	Text    *string
	Image   *string
	IsError *bool
}

// TextPatch replaces the text of a message.
func TextPatch(text string) Patch {
	return Patch{Text: &text}
}

// ImagePatch sets the caption and image of a message.
func ImagePatch(caption, image string) Patch {
	return Patch{Text: &caption, Image: &image}
}

// ErrorPatch turns a message into a terminal error entry.
func ErrorPatch(text string) Patch {
	isErr := true
	return Patch{Text: &text, IsError: &isErr}
}

func (p Patch) String() string {
	var parts []string
	if p.Text != nil {
		parts = append(parts, fmt.Sprintf("text=%d bytes", len(*p.Text)))
	}
	if p.Image != nil {
		parts = append(parts, fmt.Sprintf("image=%d bytes", len(*p.Image)))
	}
	if p.IsError != nil {
		parts = append(parts, fmt.Sprintf("error=%t", *p.IsError))
	}
	return "patch{" + strings.Join(parts, " ") + "}"
}

// Mutate returns a new log where the message with the given id has the patch
// merged in. ID, Role and Timestamp are never changed.
// Returns ErrNotFound if no message has that id, in which case the caller
// decides whether to append a replacement.
func (l Log) Mutate(id string, p Patch) (Log, error) {
	i := l.index(id)
	if i < 0 {
		return l, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	cur := l.msgs[i]
	switch {
	case cur.Role != models.RoleModel:
		return l, fmt.Errorf("%w: %s entry %s", ErrImmutable, cur.Role, id)
	case cur.IsError:
		return l, fmt.Errorf("%w: %s already failed", ErrImmutable, id)
	case p.Image != nil && cur.HasImage():
		return l, fmt.Errorf("%w: %s already has an image", ErrImmutable, id)
	}

	if p.Text != nil {
		cur.Text = *p.Text
	}
	if p.Image != nil {
		cur.Image = *p.Image
	}
	if p.IsError != nil {
		cur.IsError = *p.IsError
	}

	next := slices.Clone(l.msgs)
	next[i] = cur
	return Log{msgs: next}, nil
}
