package service

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/billsnap/internal/imagestore"
	"github.com/mmynk/billsnap/internal/metrics"
	"github.com/mmynk/billsnap/internal/models"
	"github.com/mmynk/billsnap/internal/ocr"
	"github.com/mmynk/billsnap/internal/storage"
)

// maxReceiptBytes caps the uploaded image size at 10 MiB.
const maxReceiptBytes = 10 << 20

// ReceiptService handles receipt upload and extraction.
type ReceiptService struct {
	store   storage.Store
	client  ocr.Client
	archive *imagestore.Client // nil when archival is not configured
}

// NewReceiptService creates a ReceiptService. The archive client may be
// nil; archival then is skipped.
func NewReceiptService(store storage.Store, client ocr.Client, archive *imagestore.Client) *ReceiptService {
	return &ReceiptService{store: store, client: client, archive: archive}
}

// Analyze accepts a multipart receipt image, extracts its line items via
// the OCR collaborator and replaces the session's items with the result.
// Extraction failures never populate partial items.
func (s *ReceiptService) Analyze(c *gin.Context) {
	sess, err := s.store.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load session"})
		}
		return
	}

	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "receipt image is required"})
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read receipt image"})
		return
	}
	if len(image) > maxReceiptBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "receipt image too large"})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	if s.archive != nil {
		key := "receipts/" + sess.ID + path.Ext(header.Filename)
		url, err := s.archive.Upload(c.Request.Context(), key, image, mimeType)
		if err != nil {
			// Archival is best effort; extraction proceeds regardless.
			slog.Warn("receipt archive upload failed", "session_id", sess.ID, "error", err)
		} else {
			sess.ReceiptImageURL = url
		}
	}

	extraction, err := s.client.ExtractReceipt(c.Request.Context(), image, mimeType)
	if err != nil {
		s.extractionError(c, sess.ID, err)
		return
	}

	items, err := ocr.Ingest(extraction)
	if err != nil {
		metrics.CountExtraction("validation")
		slog.Error("extracted items failed validation", "session_id", sess.ID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	next := sess.SetItems(items)
	if err := s.store.UpdateSession(c.Request.Context(), next); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save session"})
		return
	}

	metrics.CountExtraction("ok")
	slog.Info("receipt extracted", "session_id", sess.ID, "items", len(items), "total", extraction.Total)
	c.JSON(http.StatusOK, gin.H{
		"session": viewSession(next),
		"total":   extraction.Total,
	})
}

func (s *ReceiptService) extractionError(c *gin.Context, sessionID string, err error) {
	var svcErr *ocr.ServiceError
	var malformed *ocr.MalformedResponseError
	var verr *models.ValidationError

	switch {
	case errors.As(err, &svcErr):
		metrics.CountExtraction("service_error")
		slog.Error("extraction service failed", "session_id", sessionID, "status", svcErr.StatusCode, "detail", svcErr.Detail)
		c.JSON(http.StatusBadGateway, gin.H{"error": svcErr.Error()})
	case errors.As(err, &malformed):
		metrics.CountExtraction("malformed")
		slog.Error("extraction response malformed", "session_id", sessionID, "detail", malformed.Detail)
		c.JSON(http.StatusBadGateway, gin.H{"error": malformed.Error()})
	case errors.As(err, &verr):
		metrics.CountExtraction("validation")
		c.JSON(http.StatusBadGateway, gin.H{"error": verr.Error()})
	default:
		metrics.CountExtraction("network_error")
		slog.Error("extraction request failed", "session_id", sessionID, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "receipt extraction failed, try again"})
	}
}
