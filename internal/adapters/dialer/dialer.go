// Package dialer submits call forwarding feature codes
// Submit is fire and forget: a nil error means the code was handed off, not that forwarding changed
package dialer

import (
	"context"

	"callrota/internal/platform/logger"
)

// Log only logs the feature code; used for dry runs and on hosts without telephony
type Log struct {
	Device string
}

// Submit logs code
func (l Log) Submit(ctx context.Context, code string) error {
	logger.C(ctx).Info().Str("device", l.Device).Str("code", code).Msg("dry run: feature code not dialed")
	return nil
}
