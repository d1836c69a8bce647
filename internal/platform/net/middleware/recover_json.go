package middleware

import (
	"errors"
	stdhttp "net/http"
	"runtime/debug"

	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	phttp "callrota/internal/platform/net/http"
)

// RecoverJSON turns a handler panic into the standard 500 envelope and logs the stack
// http.ErrAbortHandler is re-panicked so net/http can abort the connection quietly
func RecoverJSON(next stdhttp.Handler) stdhttp.Handler {
	return stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, stdhttp.ErrAbortHandler) {
				panic(v)
			}
			logger.C(r.Context()).Error().
				Interface("panic", v).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered")
			phttp.RespondError(w, r, perr.PanicErrf("panic recovered"))
		}()
		next.ServeHTTP(w, r)
	})
}
