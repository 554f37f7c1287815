package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/Brownie44l1/acne-api/internal/model"
)

// maxUploadMemory bounds the multipart form held in memory by ClassifyUpload.
const maxUploadMemory = 10 << 20

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Preprocessor interface {
	Tensor(data []byte) (model.Tensor, error)
}

type Classifier interface {
	Classify(ctx context.Context, input model.Tensor) (*model.Prediction, error)
}

type Handler struct {
	fetcher      Fetcher
	preprocessor Preprocessor
	classifier   Classifier
}

func NewHandler(fetcher Fetcher, preprocessor Preprocessor, classifier Classifier) *Handler {
	return &Handler{
		fetcher:      fetcher,
		preprocessor: preprocessor,
		classifier:   classifier,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "healthy"})
}

// Classify downloads the image at image_url and returns its top label.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	var req model.ClassificationRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.ImageURL == "" {
		h.fail(w, r, badRequest("Missing image_url", nil))
		return
	}

	data, err := h.fetcher.Fetch(r.Context(), req.ImageURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	slog.DebugContext(r.Context(), "image fetched", "url", req.ImageURL, "bytes", len(data))

	h.classifyBytes(w, r, data)
}

// ClassifyUpload classifies an image sent as the "image" multipart field.
func (h *Handler) ClassifyUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.fail(w, r, badRequest("Failed to parse form", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.fail(w, r, badRequest("No image file provided. Use 'image' as the form field name", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, r, badRequest("Failed to read uploaded file", err))
		return
	}
	slog.DebugContext(r.Context(), "image received", "filename", header.Filename, "bytes", len(data))

	h.classifyBytes(w, r, data)
}

func (h *Handler) classifyBytes(w http.ResponseWriter, r *http.Request, data []byte) {
	tensor, err := h.preprocessor.Tensor(data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	pred, err := h.classifier.Classify(r.Context(), tensor)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "image classified",
		"classification", pred.Label,
		"confidence", pred.Confidence,
		"request_id", RequestIDFrom(r.Context()))

	render.JSON(w, r, model.ClassificationResponse{
		Classification: pred.Label,
		Confidence:     pred.Confidence,
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, detail := classifyError(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "classification failed",
		"kind", kind,
		"status", status,
		"error", err,
		"request_id", RequestIDFrom(r.Context()))

	render.Status(r, status)
	render.JSON(w, r, model.ErrorResponse{Detail: detail})
}
