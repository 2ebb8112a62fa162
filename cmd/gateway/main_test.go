package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"doc-clerk/internal/app"
	"doc-clerk/internal/config"
	"doc-clerk/internal/llm"
	"doc-clerk/internal/summarizer"
)

func newTestDeps() app.Deps {
	return app.Deps{
		Config: config.Config{
			MaxUploadSize:      1024 * 1024, // 1MB for tests
			MaxChars:           2500,
			SummaryConcurrency: 2,
			RequestTimeout:     time.Minute,
		},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		FS:  afero.NewMemMapFs(),
	}
}

func newTestSummarizer(t *testing.T, client llm.Client) *summarizer.Summarizer {
	t.Helper()
	s, err := summarizer.New(client, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), summarizer.Options{
		Model:            "gemini-1.5-pro",
		ChunkTemperature: 0.25,
		ChunkMaxTokens:   512,
		FinalTemperature: 0.25,
		FinalMaxTokens:   768,
	})
	require.NoError(t, err)
	return s
}

func TestNormalizeHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantText   string
	}{
		{
			name:       "cleans text",
			body:       `{"text":"Intro text.\narXiv:2310.08754v4\n3\nSecond line of intro."}`,
			wantStatus: http.StatusOK,
			wantText:   "Intro text. Second line of intro.",
		},
		{
			name:       "empty text",
			body:       `{"text":""}`,
			wantStatus: http.StatusOK,
			wantText:   "",
		},
		{
			name:       "malformed json",
			body:       `{"text":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"text":"a","extra":1}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/normalize", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			normalizeHandler(newTestDeps())(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp normalizeResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Equal(t, tt.wantText, resp.Text)
		})
	}
}

func TestChunkHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantChunks []string
	}{
		{
			name:       "explicit budget",
			body:       `{"text":"one\n\ntwo\n\nthree","max_chars":10}`,
			wantStatus: http.StatusOK,
			wantChunks: []string{"one\n\ntwo", "three"},
		},
		{
			name:       "default budget",
			body:       `{"text":"one\n\ntwo"}`,
			wantStatus: http.StatusOK,
			wantChunks: []string{"one\n\ntwo"},
		},
		{
			name:       "negative budget",
			body:       `{"text":"one","max_chars":-1}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chunk", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			chunkHandler(newTestDeps())(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp struct {
				Chunks []chunkResponse `json:"chunks"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			require.Len(t, resp.Chunks, len(tt.wantChunks))
			for i, want := range tt.wantChunks {
				assert.Equal(t, i, resp.Chunks[i].Index)
				assert.Equal(t, want, resp.Chunks[i].Text)
				assert.Equal(t, len([]rune(want)), resp.Chunks[i].CharCount)
			}
		})
	}
}

func TestSummarizeHandler(t *testing.T) {
	tests := []struct {
		name          string
		filename      string
		contentType   string
		content       []byte
		setup         func(*llm.MockClient)
		wantStatus    int
		checkResponse func(*testing.T, summarizeResponse)
	}{
		{
			name:        "successful summary",
			filename:    "paper.txt",
			contentType: "text/plain",
			content:     []byte("Intro paragraph.\n\nMethod paragraph.\n\nReferences\n\n[1] Someone."),
			setup: func(c *llm.MockClient) {
				c.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
					return *req.Temperature == float32(0.25) && req.MaxOutputTokens == 512
				})).Return(llm.DirectText{Text: "- Claim: x"}, nil).Once()
				c.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
					return req.MaxOutputTokens == 768
				})).Return(llm.DirectText{Text: "Brief."}, nil).Once()
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp summarizeResponse) {
				assert.NotEmpty(t, resp.RunID)
				assert.Equal(t, "paper.txt", resp.Filename)
				assert.Equal(t, 1, resp.Chunks)
				assert.Equal(t, 0, resp.Failed)
				assert.Equal(t, []string{"- Claim: x"}, resp.ChunkSummaries)
				assert.Equal(t, "Brief.", resp.Summary)
			},
		},
		{
			name:        "chunk failure is reported in place",
			filename:    "paper.txt",
			contentType: "",
			content:     []byte("Only paragraph."),
			setup: func(c *llm.MockClient) {
				c.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
					return req.MaxOutputTokens == 512
				})).Return(nil, errors.New("quota exceeded")).Once()
				c.On("Generate", mock.Anything, mock.MatchedBy(func(req llm.Request) bool {
					return req.MaxOutputTokens == 768
				})).Return(llm.DirectText{Text: "Brief."}, nil).Once()
			},
			wantStatus: http.StatusOK,
			checkResponse: func(t *testing.T, resp summarizeResponse) {
				assert.Equal(t, 1, resp.Failed)
				assert.Equal(t, []string{"(summary failed: failed to generate chunk summary: quota exceeded)"}, resp.ChunkSummaries)
			},
		},
		{
			name:        "empty document",
			filename:    "blank.txt",
			contentType: "text/plain",
			content:     []byte("  \n\n 12 \n"),
			wantStatus:  http.StatusUnprocessableEntity,
		},
		{
			name:        "unreadable pdf",
			filename:    "broken.pdf",
			contentType: "application/pdf",
			content:     []byte("not a pdf"),
			wantStatus:  http.StatusUnprocessableEntity,
		},
		{
			name:        "file too large",
			filename:    "large.txt",
			contentType: "text/plain",
			content:     make([]byte, 2*1024*1024), // 2MB
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported extension",
			filename:    "test.docx",
			contentType: "",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
		{
			name:        "unsupported Content-Type",
			filename:    "test.doc",
			contentType: "application/msword",
			content:     []byte("content"),
			wantStatus:  http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(llm.MockClient)
			if tt.setup != nil {
				tt.setup(client)
			}
			handler := summarizeHandler(newTestDeps(), newTestSummarizer(t, client))

			req, err := createMultipartRequest(tt.filename, tt.contentType, tt.content)
			require.NoError(t, err)

			w := httptest.NewRecorder()
			handler(w, req)

			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.checkResponse != nil {
				var resp summarizeResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				tt.checkResponse(t, resp)
			}
			client.AssertExpectations(t)
		})
	}

	// Test missing file separately since it requires different request setup
	t.Run("missing file", func(t *testing.T) {
		handler := summarizeHandler(newTestDeps(), newTestSummarizer(t, new(llm.MockClient)))

		req := httptest.NewRequest(http.MethodPost, "/api/documents/summarize", nil)
		req.Header.Set("Content-Type", "multipart/form-data")
		w := httptest.NewRecorder()

		handler(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		contentType string
		filename    string
		want        string
		wantErr     bool
	}{
		{"", "a.TXT", "text/plain", false},
		{"", "a.pdf", "application/pdf", false},
		{"text/plain; charset=utf-8", "a.txt", "text/plain", false},
		{"", "a.md", "", true},
		{"image/png", "a.pdf", "", true},
	}
	for _, tt := range tests {
		got, err := detectContentType(tt.contentType, tt.filename)
		if tt.wantErr {
			assert.Error(t, err, tt.filename)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRouterHealthz(t *testing.T) {
	srv := httptest.NewServer(newRouter(newTestDeps(), newTestSummarizer(t, new(llm.MockClient))))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp2, err := http.Post(srv.URL+"/api/normalize", "application/json", strings.NewReader(`{"text":"a   b"}`))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func createMultipartRequest(filename, contentType string, content []byte) (*http.Request, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(map[string][]string)
	h["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename)}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}

	if _, err := part.Write(content); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}

	req := httptest.NewRequest(http.MethodPost, "/api/documents/summarize", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return req, nil
}
