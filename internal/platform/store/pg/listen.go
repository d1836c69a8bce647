package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Notification is one NOTIFY delivery
// Ready marks the single synthetic delivery made once every LISTEN is in place
type Notification struct {
	Channel string
	Payload string
	Ready   bool
}

// Listen takes one connection out of the pool, LISTENs on channels and calls fn for
// every notification until ctx ends or the session breaks. The connection is closed
// on return rather than handed back still subscribed
func (p *PG) Listen(ctx context.Context, channels []string, fn func(Notification)) error {
	if len(channels) == 0 {
		return errors.New("pg: listen needs at least one channel")
	}
	pc, err := p.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn := pc.Hijack()
	defer conn.Close(context.WithoutCancel(ctx))

	for _, ch := range channels {
		if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ch}.Sanitize()); err != nil {
			return err
		}
	}
	fn(Notification{Ready: true})

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(Notification{Channel: n.Channel, Payload: n.Payload})
	}
}
