package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"doc-clerk/internal/app"
	"doc-clerk/internal/chunker"
	"doc-clerk/internal/cleaner"
	"doc-clerk/internal/httputil"
	"doc-clerk/internal/pdftext"
	"doc-clerk/internal/pipeline"
	"doc-clerk/internal/summarizer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build dependencies:", err)
		os.Exit(1)
	}
	defer deps.Close()

	summ, err := summarizer.New(deps.LLM, deps.Cache, deps.Log, summarizer.Options{
		Model:            deps.Config.Model(),
		Language:         deps.Config.BriefLanguage,
		ChunkTemperature: deps.Config.ChunkTemperature,
		ChunkMaxTokens:   deps.Config.ChunkMaxTokens,
		FinalTemperature: deps.Config.FinalTemperature,
		FinalMaxTokens:   deps.Config.FinalMaxTokens,
		CacheTTL:         deps.Config.CacheTTL,
	})
	if err != nil {
		deps.Log.Error("failed to build summarizer", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps, summ),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			deps.Log.Error("shutdown failed", "err", err)
		}
	}()

	deps.Log.Info("gateway listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		deps.Log.Error("server failed", "err", err)
	}
}

func newRouter(deps app.Deps, summ pipeline.Summarizer) chi.Router {
	r := httputil.NewRouter(deps.Log, deps.Config.RequestTimeout)

	r.Post("/api/normalize", normalizeHandler(deps))
	r.Post("/api/chunk", chunkHandler(deps))
	r.Post("/api/documents/summarize", summarizeHandler(deps, summ))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	return r
}

type normalizeRequest struct {
	Text string `json:"text"`
}

type normalizeResponse struct {
	Text string `json:"text"`
}

func normalizeHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req normalizeRequest
		if err := httputil.DecodeJSON(w, r, deps.Config.MaxUploadSize, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, normalizeResponse{Text: cleaner.Normalize(req.Text)})
	}
}

type chunkRequest struct {
	Text     string `json:"text"`
	MaxChars int    `json:"max_chars" validate:"gte=0"`
}

type chunkResponse struct {
	Index     int    `json:"index"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}

func chunkHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chunkRequest
		if err := httputil.DecodeJSON(w, r, deps.Config.MaxUploadSize, &req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		if req.MaxChars == 0 {
			req.MaxChars = deps.Config.MaxChars
		}

		chunks, err := chunker.ChunkText(req.Text, chunker.Options{MaxChars: req.MaxChars})
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		out := make([]chunkResponse, 0, len(chunks))
		for _, c := range chunks {
			out = append(out, chunkResponse{Index: c.Index, Text: c.Text, CharCount: c.CharCount})
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"max_chars": req.MaxChars,
			"chunks":    out,
		})
	}
}

type summarizeResponse struct {
	RunID          string   `json:"run_id"`
	Filename       string   `json:"filename"`
	Chunks         int      `json:"chunks"`
	Failed         int      `json:"failed"`
	ChunkSummaries []string `json:"chunk_summaries"`
	Summary        string   `json:"summary"`
}

func summarizeHandler(deps app.Deps, summ pipeline.Summarizer) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		// Validate file size before parsing
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		contentType, err := detectContentType(header.Header.Get("Content-Type"), header.Filename)
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), nil, http.StatusBadRequest)
			return
		}

		keepRefs := deps.Config.KeepRefs
		if v := r.FormValue("keep_refs"); v != "" {
			keepRefs, err = strconv.ParseBool(v)
			if err != nil {
				httputil.Fail(deps.Log, w, "keep_refs must be a boolean", err, http.StatusBadRequest)
				return
			}
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := extractText(contentType, content)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to extract pdf text", err, http.StatusUnprocessableEntity)
			return
		}

		p := pipeline.New(deps.FS, nil, summ, deps.Log.With("filename", header.Filename), pipeline.Options{
			MaxChars:    deps.Config.MaxChars,
			KeepRefs:    keepRefs,
			Concurrency: deps.Config.SummaryConcurrency,
		})
		res, err := p.Process(r.Context(), text)
		switch {
		case errors.Is(err, pipeline.ErrNoText):
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusUnprocessableEntity)
			return
		case err != nil:
			httputil.Fail(deps.Log, w, "failed to summarize document", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, summarizeResponse{
			RunID:          res.RunID,
			Filename:       header.Filename,
			Chunks:         len(res.Chunks),
			Failed:         res.Failed,
			ChunkSummaries: res.ChunkSummaries,
			Summary:        res.Summary,
		})
	}
}

var allowedTypes = map[string]bool{
	"text/plain":      true,
	"application/pdf": true,
}

// detectContentType falls back to the file extension when the part has no
// Content-Type and rejects anything but PDF and plain text.
func detectContentType(contentType, filename string) (string, error) {
	unsupported := errors.New("unsupported file type (only PDF and TXT allowed)")
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(filename)) {
		case ".txt":
			contentType = "text/plain"
		case ".pdf":
			contentType = "application/pdf"
		default:
			return "", unsupported
		}
	}
	// drop parameters such as charset
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !allowedTypes[contentType] {
		return "", unsupported
	}
	return contentType, nil
}

func extractText(contentType string, content []byte) (string, error) {
	if contentType != "application/pdf" {
		return string(content), nil
	}
	pages, err := pdftext.ExtractBytes(content)
	if err != nil {
		return "", err
	}
	return pdftext.Join(pages), nil
}
