package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/mmynk/billsnap/internal/models"
)

const extractionPrompt = `You are an expert at analyzing restaurant receipts.

Carefully examine this receipt image and extract:
1. All individual menu items with their exact names, quantities, unit prices, and total prices
2. The total amount of the bill

Format your response as a clean JSON object with this exact structure:
{
"items": [
  {"name": "Item Name 1", "quantity": 2, "unitPrice": 10.99, "totalPrice": 21.98},
  {"name": "Item Name 2", "quantity": 1, "unitPrice": 5.99, "totalPrice": 5.99}
],
"total": 27.97
}

Be precise with item names, quantities, and prices. If you can't read something clearly, make your best guess.
For quantities, if not explicitly stated, assume 1.
For unit prices, divide the total price by the quantity.
For total prices, multiply the unit price by the quantity.

IMPORTANT: Your response must ONLY contain this JSON object and nothing else.`

// jsonObjectRe pulls the JSON object out of the candidate text, which may
// be wrapped in markdown fencing or prose despite the prompt.
var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// GeminiClient implements Client against Google's Gemini generateContent
// API with an inline base64 image.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGeminiClient builds a client for the given API key and model. There
// is no retry or backoff: a failed extraction surfaces immediately and
// the user re-triggers manually.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// wire types use pointers so an absent field is distinguishable from a
// zero value; absence is a MalformedResponseError.
type wireExtraction struct {
	Items *[]wireItem `json:"items"`
	Total *float64    `json:"total"`
}

type wireItem struct {
	Name       *string  `json:"name"`
	Quantity   *float64 `json:"quantity"`
	UnitPrice  *float64 `json:"unitPrice"`
	TotalPrice *float64 `json:"totalPrice"`
}

// ExtractReceipt sends the receipt image to Gemini and parses the
// structured item list out of the model's answer.
func (g *GeminiClient) ExtractReceipt(ctx context.Context, image []byte, mimeType string) (Extraction, error) {
	if g.apiKey == "" {
		return Extraction{}, errors.New("missing gemini api key")
	}
	if g.model == "" {
		return Extraction{}, errors.New("missing gemini model")
	}
	if len(image) == 0 {
		return Extraction{}, errors.New("empty image")
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	payload := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"text": extractionPrompt},
					{"inline_data": map[string]string{
						"mime_type": mimeType,
						"data":      base64.StdEncoding.EncodeToString(image),
					}},
				},
			},
		},
		"generation_config": map[string]any{
			"temperature":       0.2,
			"max_output_tokens": 4000,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Extraction{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Extraction{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return Extraction{}, fmt.Errorf("extraction request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Extraction{}, fmt.Errorf("reading extraction response: %w", err)
	}

	var result geminiResponse
	if resp.StatusCode != http.StatusOK {
		detail := ""
		if json.Unmarshal(raw, &result) == nil && result.Error != nil {
			detail = fmt.Sprintf("%s (code: %d) %s", result.Error.Message, result.Error.Code, result.Error.Status)
		}
		return Extraction{}, &ServiceError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if err := json.Unmarshal(raw, &result); err != nil {
		return Extraction{}, &MalformedResponseError{Detail: "response is not valid JSON"}
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return Extraction{}, &MalformedResponseError{Detail: "response has no candidates"}
	}

	return parseCandidate(result.Candidates[0].Content.Parts[0].Text)
}

// parseCandidate extracts and validates the JSON object in the model's
// free-text answer.
func parseCandidate(text string) (Extraction, error) {
	match := jsonObjectRe.FindString(text)
	if match == "" {
		return Extraction{}, &MalformedResponseError{Detail: "no JSON object in candidate text"}
	}

	var wire wireExtraction
	if err := json.Unmarshal([]byte(match), &wire); err != nil {
		return Extraction{}, &MalformedResponseError{Detail: "candidate JSON does not parse"}
	}
	if wire.Items == nil {
		return Extraction{}, &MalformedResponseError{Detail: "items is missing"}
	}
	if wire.Total == nil {
		return Extraction{}, &MalformedResponseError{Detail: "total is missing"}
	}

	ex := Extraction{Total: *wire.Total}
	for i, item := range *wire.Items {
		if item.Name == nil || item.Quantity == nil || item.UnitPrice == nil || item.TotalPrice == nil {
			return Extraction{}, &MalformedResponseError{
				Detail: fmt.Sprintf("item %d is missing name, quantity, unitPrice, or totalPrice", i),
			}
		}
		ex.Items = append(ex.Items, models.RawItem{
			Name:       *item.Name,
			Quantity:   int(*item.Quantity),
			UnitPrice:  *item.UnitPrice,
			TotalPrice: *item.TotalPrice,
		})
	}
	return ex, nil
}
