package httpkit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"callrota/internal/modkit/httpkit"
	perr "callrota/internal/platform/errors"
	phttp "callrota/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
)

func TestMountAPI(t *testing.T) {
	t.Parallel()

	r := phttp.AdaptChi(chi.NewRouter())
	httpkit.MountAPI(r, "/v1/", httpkit.JSONStack(time.Second), func(api httpkit.Router) {
		httpkit.Get(api, "/status", func(*http.Request) (any, error) { return "idle", nil })
		httpkit.Get(api, "/missing", func(*http.Request) (any, error) { return nil, perr.NotFoundf("no window") })
	})

	tests := []struct {
		path   string
		status int
	}{
		{"/v1/status", http.StatusOK},
		{"/v1/missing", http.StatusNotFound},
		{"/status", http.StatusNotFound},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
		if rec.Code != tc.status {
			t.Fatalf("%s: got %d want %d", tc.path, rec.Code, tc.status)
		}
	}
}

func TestJSONStack_SetsNoCache(t *testing.T) {
	t.Parallel()

	r := phttp.AdaptChi(chi.NewRouter())
	httpkit.MountUnder(r, "/x", httpkit.JSONStack(time.Second), func(sub httpkit.Router) {
		sub.Get("/", httpkit.Handle(func(*http.Request) httpkit.Response { return httpkit.Response{Status: http.StatusAccepted, Body: "queued"} }))
	})
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x/", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") == "" {
		t.Fatalf("expected no-cache headers")
	}
}
