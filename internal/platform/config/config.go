// Package config reads process configuration from environment variables.
// cmd mains load optional .env files first, so values here already include them
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // MayLocation must work on images without zoneinfo

	"callrota/internal/platform/logger"
)

// Conf is a prefixed view over the environment ("CALLROTA_", "SERVICE_PGSQL_")
type Conf struct{ prefix string }

func New() Conf { return Conf{} }

// Prefix nests: New().Prefix("CALLROTA_").Prefix("HTTP_") reads CALLROTA_HTTP_*
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p} }

func (c Conf) key(k string) string { return c.prefix + k }

func (c Conf) lookup(k string) string { return strings.TrimSpace(os.Getenv(c.key(k))) }

// may parses a set value with parse; blank yields def and a parse failure logs a warning and yields def
func may[T any](c Conf, key string, def T, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).Msg("invalid value; using default")
		return def
	}
	return v
}

// MustString panics when key is unset or blank
func (c Conf) MustString(key string) string {
	v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

func (c Conf) MayString(key, def string) string {
	return may(c, key, def, func(s string) (string, error) { return s, nil })
}

func (c Conf) MayInt(key string, def int) int { return may(c, key, def, strconv.Atoi) }

func (c Conf) MayBool(key string, def bool) bool { return may(c, key, def, strconv.ParseBool) }

// MayDuration takes Go durations: 90s, 2m, 250ms
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, time.ParseDuration)
}

// MayCSV splits on commas and drops blanks; nothing left means def
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for _, p := range strings.Split(c.lookup(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns the value as set when it matches one of allowed case-insensitively; anything else panics
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return v
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}

// MayLocation resolves an IANA zone; an unknown zone falls back to def after a warning
func (c Conf) MayLocation(key, def string) *time.Location {
	loc := may(c, key, (*time.Location)(nil), time.LoadLocation)
	if loc != nil {
		return loc
	}
	loc, err := time.LoadLocation(def)
	if err != nil {
		logger.Get().Panic().Err(err).Str("default", def).Msg("default time zone not loadable")
	}
	return loc
}

// MayAddr returns a listen address; a bare port like "4000" becomes ":4000"
func (c Conf) MayAddr(key, def string) string {
	return may(c, key, def, func(v string) (string, error) {
		if strings.Contains(v, ":") {
			return v, nil
		}
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 || p > 65535 {
			return "", strconv.ErrRange
		}
		return ":" + v, nil
	})
}
