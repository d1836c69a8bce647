// Package service implements the apply lock protocol on top of the lock repo
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"callrota/internal/modkit/repokit"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	"callrota/internal/services/lock/domain"
	"callrota/internal/services/lock/repo"
)

// Config for the lock service
type Config struct {
	TTL time.Duration
	Now func() time.Time
}

// Service implements domain.LockPort
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Storage]
	cfg    Config
}

var _ domain.LockPort = (*Service)(nil)

// New constructs the lock service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], cfg Config) *Service {
	if db == nil {
		panic("lock.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("lock.Service requires a non nil repo binder")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = domain.DefaultTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{db: db, binder: binder, cfg: cfg}
}

// Acquire takes the lock on req.Resource in one read-modify-write transaction
// An active lock under a different LockID yields *domain.BusyError; the same LockID is adopted
func (s *Service) Acquire(ctx context.Context, req domain.Request) (domain.Lease, error) {
	if strings.TrimSpace(req.Resource) == "" || strings.TrimSpace(req.LockID) == "" {
		return domain.Lease{}, perr.InvalidArgf("lock: resource and lock id are required")
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}

	// one more try when the row was held past lock_timeout or the tx lost a serialization race
	lease, err := s.acquireOnce(ctx, req, ttl)
	if err != nil && perr.IsRetryable(err) {
		logger.C(ctx).Debug().Err(err).Str("device", req.Resource).Msg("lock acquire retry")
		lease, err = s.acquireOnce(ctx, req, ttl)
	}

	log := logger.C(ctx)
	var busy *domain.BusyError
	switch {
	case errors.As(err, &busy):
		acquireTotal.WithLabelValues("busy").Inc()
		log.Info().Str("device", req.Resource).Str("holder", busy.Holder.LockedBy).
			Str("holder_lock", busy.Holder.LockID).Msg("lock busy")
		return domain.Lease{}, err
	case err != nil:
		acquireTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("device", req.Resource).Msg("lock acquire failed")
		return domain.Lease{}, err
	case lease.Adopted:
		acquireTotal.WithLabelValues("adopted").Inc()
	default:
		acquireTotal.WithLabelValues("acquired").Inc()
	}
	log.Debug().Str("device", req.Resource).Str("lock_id", req.LockID).Bool("adopted", lease.Adopted).
		Time("expires_at", lease.ExpiresAt).Msg("lock acquired")
	return lease, nil
}

func (s *Service) acquireOnce(ctx context.Context, req domain.Request, ttl time.Duration) (domain.Lease, error) {
	var lease domain.Lease
	err := repokit.InTx(ctx, s.db, s.binder, func(r repo.Storage) error {
		cur, err := r.LockRow(ctx, req.Resource)
		if err != nil {
			return err
		}
		now := s.cfg.Now()
		adopted := false
		if cur.Active(now) {
			if cur.LockID != req.LockID {
				return &domain.BusyError{Resource: req.Resource, Holder: cur}
			}
			adopted = true
		}

		owner := req.Owner
		if adopted && cur.LockedBy != "" {
			owner = cur.LockedBy
		}
		exp := now.Add(ttl)
		next := domain.State{Locked: true, LockID: req.LockID, LockedBy: owner, ExpiresAt: exp.UnixMilli()}
		if err := r.Write(ctx, req.Resource, next, req.Status); err != nil {
			return err
		}
		lease = domain.Lease{Resource: req.Resource, LockID: req.LockID, Owner: owner, ExpiresAt: exp, Adopted: adopted}
		return nil
	})
	return lease, err
}

// Release clears the lock only while it is still ours; a mismatch is a silent no-op
// A non-empty owner must also match lockedBy
func (s *Service) Release(ctx context.Context, resource, lockID, owner string) (bool, error) {
	if resource == "" || lockID == "" {
		return false, nil
	}
	var ok bool
	err := repokit.InTx(ctx, s.db, s.binder, func(r repo.Storage) error {
		var err error
		ok, err = r.Clear(ctx, resource, lockID, owner)
		return err
	})
	releaseTotal.WithLabelValues(releaseOutcome(ok, err)).Inc()
	if err != nil {
		logger.C(ctx).Error().Err(err).Str("device", resource).Msg("lock release failed")
		return false, err
	}
	logger.C(ctx).Debug().Str("device", resource).Str("lock_id", lockID).Bool("released", ok).Msg("lock release")
	return ok, nil
}

// AcquireAll locks every resource under one LockID or none of them
// on failure the already granted leases are released before the error is returned
func (s *Service) AcquireAll(ctx context.Context, resources []string, req domain.Request) ([]domain.Lease, error) {
	leases := make([]domain.Lease, 0, len(resources))
	for _, res := range resources {
		r := req
		r.Resource = res
		lease, err := s.Acquire(ctx, r)
		if err != nil {
			for _, l := range leases {
				if _, rerr := s.Release(context.WithoutCancel(ctx), l.Resource, l.LockID, l.Owner); rerr != nil {
					logger.C(ctx).Warn().Err(rerr).Str("device", l.Resource).Msg("rollback release failed")
				}
			}
			return nil, err
		}
		leases = append(leases, lease)
	}
	return leases, nil
}

// Inspect returns the stored lock state; a missing device reads as unlocked
func (s *Service) Inspect(ctx context.Context, resource string) (domain.State, error) {
	return s.binder.Bind(s.db).Read(ctx, resource)
}

// ReleaseOwnedBy clears a lock left behind by owner, e.g. after a crash and restart
func (s *Service) ReleaseOwnedBy(ctx context.Context, resource, owner string) (bool, error) {
	if resource == "" || owner == "" {
		return false, nil
	}
	var ok bool
	err := repokit.InTx(ctx, s.db, s.binder, func(r repo.Storage) error {
		var err error
		ok, err = r.ClearOwnedBy(ctx, resource, owner)
		return err
	})
	releaseTotal.WithLabelValues(releaseOutcome(ok, err)).Inc()
	if ok {
		logger.C(ctx).Info().Str("device", resource).Str("owner", owner).Msg("reclaimed orphan lock")
	}
	return ok, err
}
