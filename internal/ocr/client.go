// Package ocr talks to the receipt extraction collaborator: an LLM vision
// service that turns a receipt photo into structured line items. The core
// only consumes the structured output; the service itself is a black box
// behind the Client interface.
package ocr

import (
	"context"
	"fmt"

	"github.com/mmynk/billsnap/internal/models"
)

// Extraction is the validated response of the extraction service.
type Extraction struct {
	Items []models.RawItem `json:"items"`
	Total float64          `json:"total"`
}

// Client extracts line items from a receipt image.
type Client interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (Extraction, error)
}

// MalformedResponseError reports an extraction response missing required
// structure: no items, no total, or an item without one of name,
// quantity, unitPrice, totalPrice.
type MalformedResponseError struct {
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed extraction response: %s", e.Detail)
}

// ServiceError reports a non-200 answer from the extraction service, with
// whatever human-readable detail the service offered.
type ServiceError struct {
	StatusCode int
	Detail     string
}

func (e *ServiceError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("extraction service error (status %d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("extraction service error (status %d)", e.StatusCode)
}

// Ingest validates and normalizes an extraction into domain items. A
// single bad item aborts the whole ingestion; no partial item list is
// ever produced.
func Ingest(ex Extraction) ([]models.Item, error) {
	items := make([]models.Item, 0, len(ex.Items))
	for i, raw := range ex.Items {
		item, err := models.NewItem(i, raw)
		if err != nil {
			return nil, fmt.Errorf("extracted item %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
