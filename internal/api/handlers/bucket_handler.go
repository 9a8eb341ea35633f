package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	db "github.com/markdave123-py/wordbook/internal/core/database"
	"github.com/markdave123-py/wordbook/internal/models"
	"github.com/markdave123-py/wordbook/internal/services"
)

type BucketHandler struct {
	vocab *services.VocabularyService
	log   *slog.Logger
}

func NewBucketHandler(vocab *services.VocabularyService, log *slog.Logger) *BucketHandler {
	if log == nil {
		log = slog.Default()
	}
	return &BucketHandler{vocab: vocab, log: log}
}

type recordsResponse struct {
	Bucket  string          `json:"bucket"`
	Count   int             `json:"count"`
	Records []models.Record `json:"records"`
}

// ListBuckets handles GET /api/buckets.
func (h *BucketHandler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.vocab.Buckets(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"buckets": buckets})
}

// GetRecords handles GET /api/buckets/{bucket}/records?sample=N.
func (h *BucketHandler) GetRecords(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")

	sample := 0
	if v := r.URL.Query().Get("sample"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "sample must be a non-negative integer")
			return
		}
		sample = n
	}

	records, err := h.vocab.Records(r.Context(), bucket, sample)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Bucket: bucket, Count: len(records), Records: records})
}

// GetArtifact handles GET /api/buckets/{bucket}/artifact.
func (h *BucketHandler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	data, err := h.vocab.Artifact(r.Context(), chi.URLParam(r, "bucket"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *BucketHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, db.ErrBucketNotFound):
		writeError(w, http.StatusNotFound, "bucket not found")
	case errors.Is(err, db.ErrInvalidBucket):
		writeError(w, http.StatusBadRequest, "invalid bucket name")
	case errors.Is(err, services.ErrArtifactUnavailable):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
