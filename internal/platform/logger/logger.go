// Package logger wraps zerolog with process defaults and context-scoped fields
// (HTTP request ids, apply attempt ids and device ids)
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"callrota/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Logger is the project-wide logging type
type Logger = zerolog.Logger

type Options struct {
	Level  string
	Format string // console or json
	// Service and Device are stamped on every line; two agents often share one log sink
	Service    string
	Device     string
	Writer     io.Writer
	WithCaller bool
}

// FromEnv reads LOG_* plus the agent's CALLROTA_DEVICE_ID
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:      strings.ToLower(rc.Get("LEVEL", "debug")),
		Format:     strings.ToLower(rc.Get("FORMAT", "console")),
		Service:    rc.Get("SERVICE", ""),
		Device:     raw.New().Get("CALLROTA_DEVICE_ID", ""),
		WithCaller: rc.GetBool("CALLER", false),
	}
}

var (
	once sync.Once
	root atomic.Pointer[zerolog.Logger]
)

// Get returns the root logger, initializing it from the environment on first use
func Get() *Logger {
	if l := root.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return root.Load()
}

// Init builds the root logger; only the first call has any effect
func Init(opt Options) {
	once.Do(func() {
		zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var w io.Writer = os.Stdout
		if opt.Writer != nil {
			w = opt.Writer
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
		}

		b := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if opt.Service != "" {
			b = b.Str("service", opt.Service)
		}
		if opt.Device != "" {
			b = b.Str("agent", opt.Device)
		}
		if opt.WithCaller {
			b = b.Caller()
		}
		l := b.Logger()
		root.Store(&l)
	})
}

// parseLevel falls back to debug for blank or unknown names and accepts "warning"
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.DebugLevel
	}
	return lvl
}

type ctxKey uint8

const (
	keyRequestID ctxKey = iota
	keyApplyID
	keyDeviceID
)

var ctxFields = [...]struct {
	key  ctxKey
	name string
}{
	{keyRequestID, "request_id"},
	{keyApplyID, "apply_id"},
	{keyDeviceID, "device_id"},
}

// WithRequest tags ctx with the HTTP request id
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	return context.WithValue(ctx, keyRequestID, reqID)
}

// WithApply tags ctx so every line of one apply attempt, SQL traces included, carries its ids
func WithApply(ctx context.Context, applyID, deviceID string) context.Context {
	if applyID != "" {
		ctx = context.WithValue(ctx, keyApplyID, applyID)
	}
	if deviceID != "" {
		ctx = context.WithValue(ctx, keyDeviceID, deviceID)
	}
	return ctx
}

func ApplyID(ctx context.Context) string {
	s, _ := ctx.Value(keyApplyID).(string)
	return s
}

// C is the root logger plus whatever ids ctx carries
func C(ctx context.Context) *Logger {
	b := Get().With()
	for _, f := range ctxFields {
		if s, ok := ctx.Value(f.key).(string); ok && s != "" {
			b = b.Str(f.name, s)
		}
	}
	l := b.Logger()
	return &l
}

// Named returns a child logger with a component field
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
