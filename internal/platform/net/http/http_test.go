package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"callrota/internal/platform/config"
	perr "callrota/internal/platform/errors"
	pnet "callrota/internal/platform/net"
	phttp "callrota/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

type ping struct {
	N int `json:"n" validate:"min=1"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) phttp.Envelope {
	t.Helper()
	var env phttp.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return env
}

func newRouter() phttp.Router {
	r := phttp.AdaptChi(chi.NewRouter())
	r.Route("/v1", func(v1 phttp.Router) {
		phttp.GetJSON(v1, "/ok", func(*http.Request) (any, error) { return map[string]string{"a": "b"}, nil })
		phttp.GetJSON(v1, "/busy", func(*http.Request) (any, error) { return nil, perr.Busyf("held by web-1") })
		phttp.PostJSON(v1, "/double", func(_ *http.Request, in ping) (any, error) { return in.N * 2, nil })
	})
	r.Group(func(g phttp.Router) {
		g.Get("/empty", phttp.Handle(func(*http.Request) phttp.Response { return phttp.Response{Status: http.StatusNoContent} }))
	})
	return r
}

func TestEnvelope(t *testing.T) {
	t.Parallel()
	r := newRouter()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   perr.ErrorCode
	}{
		{"ok", http.MethodGet, "/v1/ok", "", http.StatusOK, 0},
		{"busy", http.MethodGet, "/v1/busy", "", perr.HTTPStatusCode(perr.ErrorCodeBusy), perr.ErrorCodeBusy},
		{"post binds", http.MethodPost, "/v1/double", `{"n":21}`, http.StatusOK, 0},
		{"post validates", http.MethodPost, "/v1/double", `{"n":0}`, perr.HTTPStatusCode(perr.ErrorCodeValidation), perr.ErrorCodeValidation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			req = req.WithContext(pnet.WithRequest(req.Context(), "rid-1"))
			rec := httptest.NewRecorder()
			r.Mux().ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("status got %d want %d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			env := decode(t, rec)
			if env.StatusCode != tc.status || env.RequestID != "rid-1" || env.Code != tc.code {
				t.Fatalf("envelope %+v", env)
			}
		})
	}
}

func TestNoContent(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	newRouter().Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/empty", nil))
	if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRespondError_ForeignError(t *testing.T) {
	t.Parallel()
	rec := httptest.NewRecorder()
	phttp.RespondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("plain"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status got %d", rec.Code)
	}
}

func TestMountProfiler(t *testing.T) {
	t.Parallel()

	on := phttp.AdaptChi(chi.NewRouter())
	phttp.MountProfiler(on, "/debug", true)
	rec := httptest.NewRecorder()
	on.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("enabled profiler got %d", rec.Code)
	}

	off := phttp.AdaptChi(chi.NewRouter())
	phttp.MountProfiler(off, "/debug", false)
	rec = httptest.NewRecorder()
	off.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("disabled profiler got %d", rec.Code)
	}
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	t.Setenv("CALLROTA_HTTP_ADDR", "127.0.0.1:0")
	srv := phttp.NewServer(config.New().Prefix("CALLROTA_"))
	if srv.Addr() != "127.0.0.1:0" {
		t.Fatalf("addr got %q", srv.Addr())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}
