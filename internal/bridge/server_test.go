package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/plainread/plainread/internal/domain"
	"github.com/plainread/plainread/internal/orchestrator"
)

type fakeExplainer struct {
	resp    orchestrator.Response
	err     error
	cleared bool
	lastReq domain.SelectionRequest
}

func (f *fakeExplainer) Explain(ctx context.Context, req domain.SelectionRequest) (orchestrator.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeExplainer) ClearCache() error {
	f.cleared = true
	return nil
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleExplainSuccess(t *testing.T) {
	fe := &fakeExplainer{resp: orchestrator.Response{
		RequestID: "r1",
		Result:    domain.ExplainResult{Explanation: "A simple text.", Confidence: 0.9},
	}}
	s := NewServer(fe, NewHub())

	w := doRequest(t, s, "POST", "/v1/explain",
		`{"requestId":"r1","selectedText":"Some complex prose.","pageOrigin":"https://example.com","explanationMode":"simple"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if fe.lastReq.Text != "Some complex prose." {
		t.Errorf("decoded text = %q", fe.lastReq.Text)
	}
	if fe.lastReq.Mode != domain.ModeSimple {
		t.Errorf("decoded mode = %q", fe.lastReq.Mode)
	}

	var resp envelope
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if !resp.OK || resp.Data == nil {
		t.Fatalf("envelope = %+v, want ok with data", resp)
	}
	if resp.Data.Result.Explanation != "A simple text." {
		t.Errorf("explanation = %q", resp.Data.Result.Explanation)
	}
}

func TestHandleExplainBadJSON(t *testing.T) {
	s := NewServer(&fakeExplainer{}, NewHub())
	w := doRequest(t, s, "POST", "/v1/explain", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestHandleExplainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"empty selection", domain.ErrEmptySelection, 400, "select some text"},
		{"too long", &domain.SelectionTooLongError{Actual: 6000, Max: 5000}, 400, "6000"},
		{"flagged", domain.ErrFlaggedContent, 422, "cannot be processed"},
		{"network", &domain.CallError{Class: domain.ClassNetworkRetryable, Retriable: true}, 502, "connection"},
		{"busy", &domain.CallError{Class: domain.ClassProxyRetryable, Status: 429, Retriable: true}, 502, "busy"},
		{"proxy", &domain.CallError{Class: domain.ClassProxyError, Status: 400}, 502, "try again"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(&fakeExplainer{err: tt.err}, NewHub())
			w := doRequest(t, s, "POST", "/v1/explain", `{"selectedText":"x"}`)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantMsg) {
				t.Errorf("body %q does not contain %q", w.Body.String(), tt.wantMsg)
			}
		})
	}
}

func TestHandleCacheClear(t *testing.T) {
	fe := &fakeExplainer{}
	s := NewServer(fe, NewHub())
	w := doRequest(t, s, "POST", "/v1/cache/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !fe.cleared {
		t.Error("cache was not cleared")
	}
}

func TestHealthAndVersion(t *testing.T) {
	s := NewServer(&fakeExplainer{}, NewHub())

	w := doRequest(t, s, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/health status = %d", w.Code)
	}

	w = doRequest(t, s, "GET", "/api/version", "")
	if w.Code != http.StatusOK {
		t.Fatalf("/api/version status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), Version) {
		t.Errorf("version body = %q", w.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	s := NewServer(&fakeExplainer{}, NewHub())
	w := doRequest(t, s, "OPTIONS", "/v1/explain", "")
	if w.Code != http.StatusOK {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS allow-origin header")
	}
}
