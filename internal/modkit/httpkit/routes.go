package httpkit

import (
	"net/http"
	"strings"
	"time"

	"callrota/internal/platform/net/middleware"
)

// MountUnder mounts a subrouter at prefix and applies per-module middlewares
func MountUnder(r Router, prefix string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	r.Route(prefix, func(sub Router) {
		if len(mw) > 0 {
			sub.Use(mw...)
		}
		mount(sub)
	})
}

// MountAPI mounts routes under /{version}
//
//	httpkit.MountAPI(r, "v1", httpkit.JSONStack(10*time.Second), orch.MountRoutes)
func MountAPI(r Router, version string, mw []func(http.Handler) http.Handler, mount func(Router)) {
	MountUnder(r, "/"+strings.Trim(version, "/"), mw, mount)
}

// JSONStack is the per-group chain for short JSON endpoints
func JSONStack(timeout time.Duration) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		middleware.NoCache(),
		middleware.Timeout(timeout),
	}
}
