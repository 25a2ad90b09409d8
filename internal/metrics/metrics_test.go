package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	// Observations after Init must not panic.
	ObservePageFetch("ok")
	ObservePageFetch("error")
	ObserveScrapeRun("succeeded")
	ObserveInstitution("discovered")
	ObserveBotEvent("message")
	ObserveHTTPRequest(http.MethodGet, "/institutions", http.StatusOK, 25*time.Millisecond)
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveScrapeRun("succeeded")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Fatal("expected non-empty metrics payload")
	}
}
