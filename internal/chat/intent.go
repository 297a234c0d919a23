package chat

import (
	"strings"

	"golang.org/x/text/cases"
)

// Mode selects which remote capability serves a request.
type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

// Default image-request heuristics, English and Indonesian.
var (
	DefaultImagePrefixes = []string{"draw ", "create image", "generate image", "buatkan gambar", "gambar"}
	DefaultImagePhrases  = []string{"buat gambar"}
)

// Classifier maps user text to a request mode.
// Text is an image request if it starts with one of Prefixes or contains
// one of Phrases, compared after Unicode case folding.
type Classifier struct {
	Prefixes []string
	Phrases  []string
}

// DefaultClassifier returns a classifier with the built-in heuristics.
func DefaultClassifier() Classifier {
	return Classifier{
		Prefixes: DefaultImagePrefixes,
		Phrases:  DefaultImagePhrases,
	}
}

// Classify returns ModeImage for image requests and ModeText otherwise.
func (c Classifier) Classify(text string) Mode {
	// cases.Caser is stateful; build one per call.
	folded := cases.Fold().String(strings.TrimLeft(text, " \t\r\n"))

	for _, p := range c.Prefixes {
		if p != "" && strings.HasPrefix(folded, cases.Fold().String(p)) {
			return ModeImage
		}
	}
	for _, p := range c.Phrases {
		if p != "" && strings.Contains(folded, cases.Fold().String(p)) {
			return ModeImage
		}
	}
	return ModeText
}
