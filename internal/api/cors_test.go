package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		wantOrigin  string
		wantCode    int
		wantMethods bool
	}{
		{"no origins configured", nil, "GET", "https://pos.example.com", "", http.StatusOK, false},
		{"no origin header", []string{"https://pos.example.com"}, "GET", "", "", http.StatusOK, false},
		{"allowed origin", []string{"https://pos.example.com"}, "GET", "https://pos.example.com", "https://pos.example.com", http.StatusOK, false},
		{"other origin", []string{"https://pos.example.com"}, "GET", "https://evil.example", "", http.StatusOK, false},
		{"preflight", []string{"https://pos.example.com"}, "OPTIONS", "https://pos.example.com", "https://pos.example.com", http.StatusNoContent, true},
		{"preflight from other origin reaches router", []string{"https://pos.example.com"}, "OPTIONS", "https://evil.example", "", http.StatusOK, false},
		{"wildcard echoes origin", []string{"*"}, "PATCH", "https://till-2.example.com", "https://till-2.example.com", http.StatusOK, false},
		{"second of two", []string{"https://a.example.com", "https://b.example.com"}, "GET", "https://b.example.com", "https://b.example.com", http.StatusOK, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := cors(corsPolicy{origins: tc.origins})(okHandler)

			req := httptest.NewRequest(tc.method, "/v1/collections/products/docs", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tc.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tc.wantOrigin)
			}
			if w.Code != tc.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tc.wantCode)
			}
			gotMethods := w.Header().Get("Access-Control-Allow-Methods") != ""
			if gotMethods != tc.wantMethods {
				t.Errorf("Allow-Methods set = %v, want %v", gotMethods, tc.wantMethods)
			}
		})
	}
}

func TestWriteErrorCodes(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusNotFound, `"code":"not_found"`},
		{http.StatusTooManyRequests, `"code":"rate_limited"`},
		{http.StatusTeapot, `"code":"internal"`},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		writeError(w, tc.status, "boom")
		if w.Code != tc.status {
			t.Errorf("status = %d, want %d", w.Code, tc.status)
		}
		if body := w.Body.String(); !strings.Contains(body, tc.want) || !strings.Contains(body, `"message":"boom"`) {
			t.Errorf("body = %s, want %s", body, tc.want)
		}
	}
}
