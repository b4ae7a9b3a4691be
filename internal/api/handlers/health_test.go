package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pratik-mahalle/jobtrail/internal/pkg/logger"
	"github.com/pratik-mahalle/jobtrail/internal/testutil"
)

func TestHealthHandler(t *testing.T) {
	db := testutil.NewTestDB(t)
	handler := NewHealthHandler(db, false, logger.Nop())

	rr := httptest.NewRecorder()
	handler.Healthz(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Healthz status = %v, want %v", rr.Code, http.StatusOK)
	}

	rr = httptest.NewRecorder()
	handler.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("Readyz status = %v, want %v", rr.Code, http.StatusOK)
	}

	db.Close()
	rr = httptest.NewRecorder()
	handler.Readyz(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Readyz after close = %v, want %v", rr.Code, http.StatusServiceUnavailable)
	}
}
