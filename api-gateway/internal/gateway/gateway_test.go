package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testMaxBody = 1 << 10

type upstreamCall struct {
	method, path, query, body, auth, requestID string
}

type upstreamLog struct {
	mu    sync.Mutex
	calls []upstreamCall
}

func (l *upstreamLog) snapshot() []upstreamCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]upstreamCall(nil), l.calls...)
}

func newTestGateway(t *testing.T, upstream http.Handler) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := auth.NewTokenManager("gateway-secret-0123456789", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	target := httptest.NewServer(upstream)
	t.Cleanup(target.Close)

	r := gin.New()
	r.Use(middleware.LoggingMiddleware(zap.NewNop()))
	RegisterRoutes(r, tokens, NewProxy(target.URL+"/", time.Second, testMaxBody))
	return r, tokens
}

func recordingUpstream(log *upstreamLog) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		log.mu.Lock()
		log.calls = append(log.calls, upstreamCall{
			method:    r.Method,
			path:      r.URL.Path,
			query:     r.URL.RawQuery,
			body:      string(body),
			auth:      r.Header.Get("Authorization"),
			requestID: r.Header.Get(middleware.RequestIDHeader),
		})
		log.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"msg":"ok"}`))
	})
}

func send(router http.Handler, method, url, token, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestEdgeAuthorization(t *testing.T) {
	upstream := &upstreamLog{}
	router, tokens := newTestGateway(t, recordingUpstream(upstream))
	userToken, _, _ := tokens.Issue("acc-001", auth.RoleUser)
	adminToken, _, _ := tokens.Issue("adm-001", auth.RoleAdmin)

	tests := []struct {
		name           string
		method         string
		url            string
		token          string
		expectedStatus int
		forwarded      bool
	}{
		{name: "public register", method: http.MethodPost, url: "/register", expectedStatus: http.StatusCreated, forwarded: true},
		{name: "user route without token", method: http.MethodGet, url: "/profile", expectedStatus: http.StatusUnauthorized},
		{name: "user route with user token", method: http.MethodGet, url: "/profile", token: userToken, expectedStatus: http.StatusCreated, forwarded: true},
		{name: "user route with admin token", method: http.MethodPost, url: "/deposit", token: adminToken, expectedStatus: http.StatusForbidden},
		{name: "admin route without token", method: http.MethodGet, url: "/admin/users", expectedStatus: http.StatusUnauthorized},
		{name: "admin route with user token", method: http.MethodGet, url: "/admin/users", token: userToken, expectedStatus: http.StatusForbidden},
		{name: "admin route with admin token", method: http.MethodGet, url: "/admin/users", token: adminToken, expectedStatus: http.StatusCreated, forwarded: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(upstream.snapshot())
			w := send(router, tt.method, tt.url, tt.token, "")
			if w.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if forwarded := len(upstream.snapshot()) > before; forwarded != tt.forwarded {
				t.Errorf("forwarded = %v, want %v", forwarded, tt.forwarded)
			}
		})
	}
}

func TestForwardCopiesRequestAndResponse(t *testing.T) {
	upstream := &upstreamLog{}
	router, tokens := newTestGateway(t, recordingUpstream(upstream))
	userToken, _, _ := tokens.Issue("acc-001", auth.RoleUser)

	w := send(router, http.MethodPost, "/transfer?trace=1", userToken, `{"to_account":"AVS1002","amount":50}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", w.Code)
	}
	calls := upstream.snapshot()
	if len(calls) != 1 {
		t.Fatalf("expected one upstream call, got %d", len(calls))
	}
	got := calls[0]
	if got.method != http.MethodPost || got.path != "/transfer" || got.query != "trace=1" {
		t.Errorf("upstream saw %s %s?%s", got.method, got.path, got.query)
	}
	if got.body != `{"to_account":"AVS1002","amount":50}` {
		t.Errorf("body = %q", got.body)
	}
	if got.auth != "Bearer "+userToken {
		t.Errorf("authorization header not forwarded: %q", got.auth)
	}
	if got.requestID == "" || got.requestID != w.Header().Get(middleware.RequestIDHeader) {
		t.Errorf("request id %q not propagated (response has %q)", got.requestID, w.Header().Get(middleware.RequestIDHeader))
	}
	if values := w.Header().Values(middleware.RequestIDHeader); len(values) != 1 {
		t.Errorf("expected one request id header, got %v", values)
	}

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["msg"] != "ok" {
		t.Errorf("response body = %s", w.Body.String())
	}
}

func TestUpstreamDown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens, _ := auth.NewTokenManager("gateway-secret-0123456789", time.Hour)
	target := httptest.NewServer(http.NotFoundHandler())
	url := target.URL
	target.Close()

	r := gin.New()
	RegisterRoutes(r, tokens, NewProxy(url, time.Second, testMaxBody))

	w := send(r, http.MethodPost, "/login", "", `{"phone":"9876543210","password":"x"}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
}

func TestOversizedBodyNeverReachesUpstream(t *testing.T) {
	upstream := &upstreamLog{}
	router, tokens := newTestGateway(t, recordingUpstream(upstream))
	userToken, _, _ := tokens.Issue("acc-001", auth.RoleUser)
	big := strings.Repeat("x", testMaxBody+1)

	tests := []struct {
		name          string
		contentLength int64
	}{
		{name: "declared length", contentLength: int64(len(big))},
		{name: "chunked body", contentLength: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodPost, "/request-kyc-update", io.NopCloser(strings.NewReader(big)))
			req.ContentLength = tt.contentLength
			req.Header.Set("Authorization", "Bearer "+userToken)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("expected 413, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
	if calls := upstream.snapshot(); len(calls) != 0 {
		t.Errorf("oversized bodies were forwarded %d times", len(calls))
	}

	w := send(router, http.MethodPost, "/request-update", userToken, `{"name":"Asha"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("small body should pass, got %d", w.Code)
	}
}
