package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/raphaelgruber/chatterm/internal/media"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestResponseText(t *testing.T) {
	tests := []struct {
		name string
		resp *genai.GenerateContentResponse
		want string
	}{
		{"nil response", nil, ""},
		{"no candidates", &genai.GenerateContentResponse{}, ""},
		{
			name: "nil content",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}},
			want: "",
		},
		{
			name: "joins text parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{Text: "Hel"}, nil, {Text: "lo"}}},
			}}},
			want: "Hello",
		},
		{
			name: "skips thoughts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "planning the answer", Thought: true},
					{Text: "Answer"},
				}},
			}}},
			want: "Answer",
		},
		{
			name: "first candidate only",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "one"}}}},
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "two"}}}},
			}},
			want: "one",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, responseText(tt.resp))
		})
	}
}

func TestFirstImage(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	tests := []struct {
		name         string
		images       []*genai.GeneratedImage
		want         string
		wantFiltered []string
	}{
		{"no images", nil, "", nil},
		{
			name: "filtered then empty",
			images: []*genai.GeneratedImage{
				{RAIFilteredReason: "unsafe content"},
				nil,
				{Image: &genai.Image{}},
			},
			want:         "",
			wantFiltered: []string{"unsafe content"},
		},
		{
			name:   "mime type defaults to png",
			images: []*genai.GeneratedImage{{Image: &genai.Image{ImageBytes: png}}},
			want:   media.EncodeDataURI("image/png", png),
		},
		{
			name: "skips to first usable image",
			images: []*genai.GeneratedImage{
				{RAIFilteredReason: "people"},
				{Image: &genai.Image{ImageBytes: []byte("jpeg"), MIMEType: "image/jpeg"}},
				{Image: &genai.Image{ImageBytes: png}},
			},
			want:         media.EncodeDataURI("image/jpeg", []byte("jpeg")),
			wantFiltered: []string{"people"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, filtered := firstImage(tt.images)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantFiltered, filtered)
		})
	}
}

// newTestGemini points a Gemini collaborator at handler.
func newTestGemini(t *testing.T, handler http.HandlerFunc) *Gemini {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      "test-key",
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: srv.URL + "/"},
	})
	require.NoError(t, err)

	return &Gemini{
		client:     client,
		model:      "gemini-test",
		imageModel: "imagen-test",
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGeminiGenerateImage(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
		fatal  bool
	}{
		{
			name:   "image returned",
			status: http.StatusOK,
			body:   `{"predictions":[{"bytesBase64Encoded":"iVBORw==","mimeType":"image/png"}]}`,
			want:   "data:image/png;base64,iVBORw==",
		},
		{
			name:   "filtered prompt",
			status: http.StatusOK,
			body:   `{"predictions":[{"raiFilteredReason":"unsafe content"}]}`,
			want:   "",
		},
		{
			name:   "no predictions",
			status: http.StatusOK,
			body:   `{}`,
			want:   "",
		},
		{
			name:   "bad key",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`,
			fatal:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			g := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			got, err := g.GenerateImage(context.Background(), "a lighthouse")
			assert.True(t, strings.Contains(path, "imagen-test"), "request path %q", path)

			if tt.fatal {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrFatalAPI))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
