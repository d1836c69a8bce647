package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	perr "callrota/internal/platform/errors"
	phttp "callrota/internal/platform/net/http"
	"callrota/internal/platform/net/middleware"
)

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func TestRecoverJSON_WritesEnvelope(t *testing.T) {
	t.Parallel()

	h := chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), middleware.RequestID(), middleware.RecoverJSON)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status got %d want 500", rec.Code)
	}
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Code != perr.ErrorCodePanic {
		t.Fatalf("code got %v want Panic", env.Code)
	}
	if env.RequestID == "" {
		t.Fatalf("request id missing from envelope")
	}
}

func TestRecoverJSON_RepanicsAbort(t *testing.T) {
	t.Parallel()

	h := middleware.RecoverJSON(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler re-panic, got %v", v)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
}

func TestAccessLog_PassesThroughStatusAndBody(t *testing.T) {
	t.Parallel()

	h := middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: time.Nanosecond, Quiet: []string{"/healthz"}})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			_, _ = w.Write([]byte("short and stout"))
		}))

	for _, path := range []string{"/x", "/healthz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusTeapot || rec.Body.String() != "short and stout" {
			t.Fatalf("%s: got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func TestAccessLog_HijackUnsupportedOnRecorder(t *testing.T) {
	t.Parallel()

	var hijackErr error
	h := middleware.AccessLogZerolog(middleware.AccessLogOptions{})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Errorf("wrapped writer must expose Hijack")
				return
			}
			_, _, hijackErr = hj.Hijack()
		}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws", nil))
	if hijackErr != http.ErrNotSupported {
		t.Fatalf("got %v want ErrNotSupported", hijackErr)
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	h := middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"https://ops.example"}})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	req := httptest.NewRequest(http.MethodOptions, "/v1/status", nil)
	req.Header.Set("Origin", "https://ops.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ops.example" {
		t.Fatalf("allow-origin got %q", got)
	}
}

func TestDefaults_Order(t *testing.T) {
	t.Parallel()

	mws := middleware.Defaults(time.Second, nil)
	if len(mws) != 5 {
		t.Fatalf("got %d middlewares want 5", len(mws))
	}
	h := chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), mws...)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status got %d", rec.Code)
	}
}
