package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mmynk/billsnap/internal/models"
	"github.com/mmynk/billsnap/internal/ocr"
	"github.com/mmynk/billsnap/internal/storage/memory"
)

// fakeOCR simulates the extraction collaborator.
type fakeOCR struct {
	extraction ocr.Extraction
	err        error
}

func (f *fakeOCR) ExtractReceipt(_ context.Context, _ []byte, _ string) (ocr.Extraction, error) {
	if f.err != nil {
		return ocr.Extraction{}, f.err
	}
	return f.extraction, nil
}

func setupTestRouter(ocrClient ocr.Client) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	store := memory.New()
	sessions := NewSessionService(store, "USD")
	receipts := NewReceiptService(store, ocrClient, nil)

	s := r.Group("/sessions")
	s.POST("", sessions.Create)
	s.GET("/:id", sessions.Get)
	s.POST("/:id/receipt", receipts.Analyze)
	s.POST("/:id/people", sessions.AddPerson)
	s.DELETE("/:id/people/:personID", sessions.RemovePerson)
	s.PUT("/:id/payer", sessions.SetPayer)
	s.POST("/:id/items", sessions.AddItem)
	s.POST("/:id/items/:index/quantity", sessions.ChangeQuantity)
	s.POST("/:id/items/:index/toggle", sessions.ToggleParticipant)
	s.POST("/:id/items/:index/units/increment", sessions.IncrementUnits)
	s.GET("/:id/summary", sessions.Summary)

	return r
}

func do(t *testing.T, router *gin.Engine, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshal response %q: %v", w.Body.String(), err)
		}
	}
	return w.Code, resp
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	code, resp := do(t, router, "POST", "/sessions", nil)
	if code != http.StatusCreated {
		t.Fatalf("create session: status %d", code)
	}
	return resp["session"].(map[string]any)["id"].(string)
}

func addPerson(t *testing.T, router *gin.Engine, sessionID, name string) string {
	t.Helper()
	code, resp := do(t, router, "POST", "/sessions/"+sessionID+"/people", gin.H{"name": name})
	if code != http.StatusOK {
		t.Fatalf("add person %s: status %d (%v)", name, code, resp)
	}
	return resp["participant_id"].(string)
}

func TestSessionFlow(t *testing.T) {
	router := setupTestRouter(&fakeOCR{})
	id := createSession(t, router)

	aliceID := addPerson(t, router, id, "Alice")
	bobID := addPerson(t, router, id, "Bob")

	code, _ := do(t, router, "POST", "/sessions/"+id+"/items",
		gin.H{"name": "Pizza", "quantity": 1, "unitPrice": 20.0})
	if code != http.StatusOK {
		t.Fatalf("add item: status %d", code)
	}

	for _, pid := range []string{aliceID, bobID} {
		code, _ = do(t, router, "POST", "/sessions/"+id+"/items/0/toggle", gin.H{"participant_id": pid})
		if code != http.StatusOK {
			t.Fatalf("toggle: status %d", code)
		}
	}

	code, summary := do(t, router, "GET", "/sessions/"+id+"/summary", nil)
	if code != http.StatusOK {
		t.Fatalf("summary: status %d", code)
	}
	if got := summary["total_bill"].(string); got != "$20.00" {
		t.Errorf("total_bill = %q, want $20.00", got)
	}
	if got := summary["payer_id"].(string); got != aliceID {
		t.Errorf("payer_id = %q, want %q (first person auto-payer)", got, aliceID)
	}
	if got := summary["payer_refund"].(string); got != "$10.00" {
		t.Errorf("payer_refund = %q, want $10.00", got)
	}

	owed := summary["owed"].([]any)
	for _, entry := range owed {
		e := entry.(map[string]any)
		want := "$0.00"
		if e["participant_id"].(string) == bobID {
			want = "$10.00"
		}
		if e["amount"].(string) != want {
			t.Errorf("%s owes %q, want %q", e["name"], e["amount"], want)
		}
	}
}

func TestOverAssignmentSurfacesNotice(t *testing.T) {
	router := setupTestRouter(&fakeOCR{})
	id := createSession(t, router)
	aliceID := addPerson(t, router, id, "Alice")

	code, _ := do(t, router, "POST", "/sessions/"+id+"/items",
		gin.H{"name": "Beer", "quantity": 2, "unitPrice": 3.0})
	if code != http.StatusOK {
		t.Fatalf("add item: status %d", code)
	}

	for i := 0; i < 2; i++ {
		code, _ = do(t, router, "POST", "/sessions/"+id+"/items/0/units/increment", gin.H{"participant_id": aliceID})
		if code != http.StatusOK {
			t.Fatalf("increment %d: status %d", i, code)
		}
	}

	code, resp := do(t, router, "POST", "/sessions/"+id+"/items/0/units/increment", gin.H{"participant_id": aliceID})
	if code != http.StatusOK {
		t.Fatalf("blocked increment should still be 200, got %d", code)
	}
	notices := resp["notices"].([]any)
	if len(notices) != 1 {
		t.Fatalf("notices = %v, want one limit notice", notices)
	}
	notice := notices[0].(map[string]any)
	if notice["kind"].(string) != "limit_exceeded" {
		t.Errorf("notice kind = %q, want limit_exceeded", notice["kind"])
	}

	// The blocked increment must not have changed the counts.
	_, state := do(t, router, "GET", "/sessions/"+id, nil)
	items := state["session"].(map[string]any)["items"].([]any)
	counts := items[0].(map[string]any)["unit_counts"].(map[string]any)
	if got := counts[aliceID].(float64); got != 2 {
		t.Errorf("unit count = %v, want 2", got)
	}
}

func multipartReceipt(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	w.Close()
	return body, w.FormDataContentType()
}

func TestReceiptAnalyze(t *testing.T) {
	client := &fakeOCR{
		extraction: ocr.Extraction{
			Items: []models.RawItem{
				{Name: "Pizza", Quantity: 1, UnitPrice: 19.99, TotalPrice: 19.99},
				{Name: "Beer", Quantity: 2, UnitPrice: 3.50, TotalPrice: 7.00},
			},
			Total: 26.99,
		},
	}
	router := setupTestRouter(client)
	id := createSession(t, router)

	body, contentType := multipartReceipt(t, "receipt", "bill.jpg", []byte("fake image"))
	req, _ := http.NewRequest("POST", "/sessions/"+id+"/receipt", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("analyze: status %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	items := resp["session"].(map[string]any)["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	first := items[0].(map[string]any)
	if first["name"].(string) != "Pizza" || first["unit_price"].(string) != "19.99" {
		t.Errorf("unexpected first item: %v", first)
	}
}

func TestReceiptAnalyzeServiceFailure(t *testing.T) {
	router := setupTestRouter(&fakeOCR{err: &ocr.ServiceError{StatusCode: 429, Detail: "quota exceeded"}})
	id := createSession(t, router)

	body, contentType := multipartReceipt(t, "receipt", "bill.jpg", []byte("fake image"))
	req, _ := http.NewRequest("POST", "/sessions/"+id+"/receipt", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	if !strings.Contains(w.Body.String(), "quota exceeded") {
		t.Errorf("detail not surfaced: %s", w.Body.String())
	}
}

func TestReceiptRequiresImage(t *testing.T) {
	router := setupTestRouter(&fakeOCR{})
	id := createSession(t, router)

	code, resp := do(t, router, "POST", fmt.Sprintf("/sessions/%s/receipt", id), nil)
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 (%v)", code, resp)
	}
}

func TestSessionNotFound(t *testing.T) {
	router := setupTestRouter(&fakeOCR{})
	code, _ := do(t, router, "GET", "/sessions/nope", nil)
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
}
