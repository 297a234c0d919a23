package chat

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Mode
	}{
		{"draw prefix", "draw a cat", ModeImage},
		{"draw uppercase", "Draw A Neon Cat", ModeImage},
		{"create image", "create image of a sunset", ModeImage},
		{"generate image mixed case", "Generate Image: mountains", ModeImage},
		{"indonesian gambar", "gambar kucing", ModeImage},
		{"indonesian buatkan gambar", "Buatkan gambar rumah", ModeImage},
		{"embedded buat gambar", "tolong buat gambar pantai", ModeImage},
		{"embedded buat gambar uppercase", "TOLONG BUAT GAMBAR PANTAI", ModeImage},
		{"leading whitespace", "   draw a dog", ModeImage},
		{"plain question", "hello", ModeText},
		{"draw later in text", "how do I draw a cat", ModeText},
		{"drawing word", "drawing tips please", ModeText},
		{"image mentioned", "what is an image?", ModeText},
		{"generate without image", "generate a poem", ModeText},
	}

	c := DefaultClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.in); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomRules(t *testing.T) {
	c := Classifier{Prefixes: []string{"Paint "}, Phrases: []string{"as a picture"}}

	if got := c.Classify("paint the sea"); got != ModeImage {
		t.Errorf("custom prefix: got %q", got)
	}
	if got := c.Classify("show me a tree as a picture"); got != ModeImage {
		t.Errorf("custom phrase: got %q", got)
	}
	if got := c.Classify("draw a cat"); got != ModeText {
		t.Errorf("default prefix should not apply: got %q", got)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := DefaultClassifier()
	for i := 0; i < 10; i++ {
		if c.Classify("Draw a cat") != ModeImage {
			t.Fatal("classification changed between calls")
		}
	}
}
