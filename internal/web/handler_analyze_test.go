package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/foodscan/internal/domain"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// stubRunner returns a canned result and records the requests it saw.
type stubRunner struct {
	data     json.RawMessage
	err      error
	panicMsg string
	got      []domain.AnalysisRequest
}

func (s *stubRunner) Analyze(_ context.Context, req domain.AnalysisRequest) (json.RawMessage, error) {
	s.got = append(s.got, req)
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.data, s.err
}

func newTestHandler(runner *stubRunner) *Server {
	return NewServer(runner, Options{MaxBodyBytes: 1024}, slog.Default())
}

func do(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestToDomain(t *testing.T) {
	tests := []struct {
		name       string
		body       analyzeRequest
		wantKind   string
		wantURL    string
		wantInline string
	}{
		{name: "url only", body: analyzeRequest{ImageURL: "http://x/y.jpg"}, wantKind: "remote", wantURL: "http://x/y.jpg"},
		{name: "base64 only", body: analyzeRequest{ImageBase64: "AAAA"}, wantKind: "inline", wantInline: "AAAA"},
		{name: "base64 wins over url", body: analyzeRequest{ImageURL: "http://x/y.jpg", ImageBase64: "AAAA"}, wantKind: "inline", wantInline: "AAAA"},
		{name: "neither", body: analyzeRequest{UserEmail: "a@b.com"}, wantKind: "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.body.toDomain()
			assert.Equal(t, tt.wantKind, got.Image.Kind())
			assert.Equal(t, tt.wantURL, got.Image.URL())
			assert.Equal(t, tt.wantInline, got.Image.Encoded())
		})
	}
}

func TestHandleAnalyzeSuccess(t *testing.T) {
	runner := &stubRunner{data: json.RawMessage(`{"foods":[],"total_calories":0}`)}
	h := newTestHandler(runner)

	rec := do(t, h, http.MethodPost, "/analyze-food", "application/json",
		`{"imageUrl":"http://x/y.jpg","userEmail":"a@b.com","userName":"A"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"foods":[],"total_calories":0},"userEmail":"a@b.com","userName":"A"}`, rec.Body.String())
	require.Len(t, runner.got, 1)
	assert.Equal(t, "http://x/y.jpg", runner.got[0].Image.URL())
}

func TestHandleAnalyzeFormBody(t *testing.T) {
	runner := &stubRunner{data: json.RawMessage(`{}`)}
	h := newTestHandler(runner)

	form := url.Values{"imageBase64": {"AAAA"}, "userEmail": {"a@b.com"}, "userName": {"A"}}
	rec := do(t, h, http.MethodPost, "/analyze-food", "application/x-www-form-urlencoded", form.Encode())

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runner.got, 1)
	assert.Equal(t, "AAAA", runner.got[0].Image.Encoded())
	assert.Equal(t, "a@b.com", runner.got[0].UserEmail)
}

func TestHandleAnalyzeEmptyBodyReachesValidation(t *testing.T) {
	runner := &stubRunner{err: &domain.Error{Kind: domain.KindValidation, Err: errors.New("no image URL or base64 data provided")}}
	h := newTestHandler(runner)

	rec := do(t, h, http.MethodPost, "/analyze-food", "application/json", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"no image URL or base64 data provided"}`, rec.Body.String())
	require.Len(t, runner.got, 1)
	assert.True(t, runner.got[0].Image.IsZero())
}

func TestHandleAnalyzeInvalidJSON(t *testing.T) {
	runner := &stubRunner{}
	h := newTestHandler(runner)

	rec := do(t, h, http.MethodPost, "/analyze-food", "application/json", `{"imageUrl":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"invalid request body"}`, rec.Body.String())
	assert.Empty(t, runner.got)
}

func TestHandleAnalyzeBodyTooLarge(t *testing.T) {
	runner := &stubRunner{}
	h := newTestHandler(runner)

	body := `{"imageBase64":"` + strings.Repeat("A", 4096) + `"}`
	rec := do(t, h, http.MethodPost, "/analyze-food", "application/json", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, runner.got)
}

func TestHandleAnalyzeErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "fetch",
			err:      domain.NewError(domain.KindFetch, errors.New("failed to download image: connection refused")),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"success":false,"error":"failed to download image: connection refused"}`,
		},
		{
			name:     "inference with details",
			err:      domain.NewError(domain.KindInference, &domain.StatusError{Service: "gemini", StatusCode: 503, Body: "overloaded"}),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"success":false,"error":"gemini returned status 503","details":"overloaded"}`,
		},
		{
			name:     "parse",
			err:      &domain.Error{Kind: domain.KindParse, Err: errors.New("failed to parse model response"), Details: "nope"},
			wantCode: http.StatusInternalServerError,
			wantBody: `{"success":false,"error":"failed to parse model response","details":"nope"}`,
		},
		{
			name:     "untagged",
			err:      errors.New("surprise"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"success":false,"error":"surprise"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubRunner{err: tt.err})
			rec := do(t, h, http.MethodPost, "/analyze-food", "application/json", `{"imageBase64":"AAAA"}`)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestHandleAnalyzePanicKeepsServing(t *testing.T) {
	runner := &stubRunner{panicMsg: "boom"}
	h := newTestHandler(runner)

	rec := do(t, h, http.MethodPost, "/analyze-food", "application/json", `{"imageBase64":"AAAA"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"internal server error"}`, rec.Body.String())

	runner.panicMsg = ""
	runner.data = json.RawMessage(`{}`)
	rec = do(t, h, http.MethodPost, "/analyze-food", "application/json", `{"imageBase64":"AAAA"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	h := newTestHandler(&stubRunner{})

	rec := do(t, h, http.MethodGet, "/", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"Food Scanner Server is running!","endpoints":{"health":"GET /","analyze":"POST /analyze-food"}}`, rec.Body.String())
}

func TestNotFound(t *testing.T) {
	h := newTestHandler(&stubRunner{})

	rec := do(t, h, http.MethodGet, "/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"not found"}`, rec.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	h := newTestHandler(&stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))

	rec = do(t, h, http.MethodGet, "/", "", "")
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}

func TestCORSAllowsAnyOriginByDefault(t *testing.T) {
	h := newTestHandler(&stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRestrictedOrigins(t *testing.T) {
	h := NewServer(&stubRunner{}, Options{CORSOrigins: []string{"https://app.example"}}, slog.Default())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPprofRoutes(t *testing.T) {
	off := newTestHandler(&stubRunner{})
	assert.Equal(t, http.StatusNotFound, do(t, off, http.MethodGet, "/debug/pprof/cmdline", "", "").Code)

	on := NewServer(&stubRunner{}, Options{EnablePprof: true}, slog.Default())
	assert.Equal(t, http.StatusOK, do(t, on, http.MethodGet, "/debug/pprof/cmdline", "", "").Code)
}
