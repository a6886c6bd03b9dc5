package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(serverURL string) *GeminiClient {
	return &GeminiClient{
		apiKey:  "test-key",
		model:   "test-model",
		baseURL: serverURL,
		client:  &http.Client{Timeout: time.Second},
	}
}

// candidateResponse wraps text the way the Gemini API does.
func candidateResponse(text string) string {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return string(body)
}

func TestExtractReceipt(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantItems     int
		wantTotal     float64
		wantService   bool
		wantMalformed bool
	}{
		{
			name:   "clean JSON answer",
			status: http.StatusOK,
			body: candidateResponse(`{"items":[` +
				`{"name":"Pizza","quantity":1,"unitPrice":19.99,"totalPrice":19.99},` +
				`{"name":"Beer","quantity":2,"unitPrice":3.5,"totalPrice":7.0}` +
				`],"total":26.99}`),
			wantItems: 2,
			wantTotal: 26.99,
		},
		{
			name:   "JSON wrapped in markdown fencing",
			status: http.StatusOK,
			body: candidateResponse("```json\n" +
				`{"items":[{"name":"Salad","quantity":1,"unitPrice":8,"totalPrice":8}],"total":8}` +
				"\n```"),
			wantItems: 1,
			wantTotal: 8,
		},
		{
			name:          "missing total",
			status:        http.StatusOK,
			body:          candidateResponse(`{"items":[]}`),
			wantMalformed: true,
		},
		{
			name:          "item missing unit price",
			status:        http.StatusOK,
			body:          candidateResponse(`{"items":[{"name":"Pizza","quantity":1,"totalPrice":19.99}],"total":19.99}`),
			wantMalformed: true,
		},
		{
			name:          "no JSON object in answer",
			status:        http.StatusOK,
			body:          candidateResponse("sorry, I cannot read this receipt"),
			wantMalformed: true,
		},
		{
			name:          "empty candidates",
			status:        http.StatusOK,
			body:          `{"candidates":[]}`,
			wantMalformed: true,
		},
		{
			name:        "api error",
			status:      http.StatusBadRequest,
			body:        `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`,
			wantService: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
					t.Errorf("api key header = %q", got)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			ex, err := testClient(server.URL).ExtractReceipt(context.Background(), []byte("img"), "image/jpeg")

			if tt.wantService {
				var svcErr *ServiceError
				if !errors.As(err, &svcErr) {
					t.Fatalf("error = %v, want *ServiceError", err)
				}
				if svcErr.Detail == "" {
					t.Error("expected the API error detail to be captured")
				}
				return
			}
			if tt.wantMalformed {
				var malformed *MalformedResponseError
				if !errors.As(err, &malformed) {
					t.Fatalf("error = %v, want *MalformedResponseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractReceipt: %v", err)
			}
			if len(ex.Items) != tt.wantItems {
				t.Errorf("items = %d, want %d", len(ex.Items), tt.wantItems)
			}
			if ex.Total != tt.wantTotal {
				t.Errorf("total = %v, want %v", ex.Total, tt.wantTotal)
			}
		})
	}
}

func TestExtractReceiptNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := testClient(server.URL).ExtractReceipt(context.Background(), []byte("img"), "image/jpeg")
	if err == nil {
		t.Fatal("expected a transport error")
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		t.Fatal("a network failure is not a service error")
	}
}

func TestExtractReceiptEmptyImage(t *testing.T) {
	_, err := NewGeminiClient("key", "model").ExtractReceipt(context.Background(), nil, "")
	if err == nil {
		t.Fatal("expected an error for an empty image")
	}
}
