package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bpineau/katagrafi/pkg/log"
)

func TestNoopHealth(t *testing.T) {
	logger := log.New("error", "", "test")

	// shouldn't panic with 0 as port
	hc := New(logger, 0)
	_ = hc.Start()
	hc.Stop()

	// shouldn't panic or block on a bogus port either
	hc = New(logger, -42)
	_ = hc.Start()
	hc.Stop()
}

func TestHealthCheck(t *testing.T) {
	hc := New(log.New("info", "", "test"), 0)

	req, err := http.NewRequest("GET", "/health", nil)
	if err != nil {
		t.Error(err)
	}

	rr := httptest.NewRecorder()

	handler := http.HandlerFunc(hc.healthCheckReply)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("healthCheckReply handler didn't return an HTTP 200 status code")
	}
}
