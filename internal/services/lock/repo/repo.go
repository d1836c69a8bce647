// Package repo stores apply locks in the lock_* columns of the devices table
package repo

import (
	"context"
	"time"

	"callrota/internal/modkit/repokit"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/store"
	"callrota/internal/services/lock/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs the repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage is the lock row access used inside one transaction
type Storage interface {
	// LockRow creates the device row when missing and returns its lock under FOR UPDATE
	LockRow(ctx context.Context, resource string) (domain.State, error)
	// Read returns the lock without row locking
	Read(ctx context.Context, resource string) (domain.State, error)
	// Write overwrites the lock and, when st is non-nil, the status columns
	Write(ctx context.Context, resource string, lk domain.State, st *domain.Status) error
	// Clear releases when lock_id matches and, if owner is set, lock_locked_by matches too
	Clear(ctx context.Context, resource, lockID, owner string) (bool, error)
	// ClearOwnedBy releases whatever lock owner holds on resource
	ClearOwnedBy(ctx context.Context, resource, owner string) (bool, error)
}

const selectLock = `
	SELECT lock_locked, lock_id, lock_locked_by, lock_locked_at, lock_expires_at
	  FROM devices
	 WHERE device_id = $1`

func scanState(r store.Row) (domain.State, error) {
	var (
		s  domain.State
		at *time.Time
	)
	if err := r.Scan(&s.Locked, &s.LockID, &s.LockedBy, &at, &s.ExpiresAt); err != nil {
		return domain.State{}, err
	}
	if at != nil {
		s.LockedAt = *at
	}
	return s, nil
}

// LockRow implements Storage
func (p *pg) LockRow(ctx context.Context, resource string) (domain.State, error) {
	if _, err := p.q.Exec(ctx,
		`INSERT INTO devices (device_id) VALUES ($1) ON CONFLICT (device_id) DO NOTHING`, resource); err != nil {
		return domain.State{}, perr.FromPostgresWithField(err, "ensure device row")
	}
	s, err := store.One(ctx, p.q, scanState, selectLock+` FOR UPDATE`, resource)
	if err != nil {
		return domain.State{}, perr.FromPostgresWithField(err, "lock device row")
	}
	return s, nil
}

// Read implements Storage
func (p *pg) Read(ctx context.Context, resource string) (domain.State, error) {
	s, err := store.One(ctx, p.q, scanState, selectLock, resource)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.State{}, nil
	}
	if err != nil {
		return domain.State{}, perr.FromPostgresWithField(err, "read device lock")
	}
	return s, nil
}

// Write implements Storage
func (p *pg) Write(ctx context.Context, resource string, lk domain.State, st *domain.Status) error {
	if st == nil {
		return store.ExecOne(ctx, p.q, `
			UPDATE devices
			   SET lock_locked = $2, lock_id = $3, lock_locked_by = $4,
			       lock_locked_at = now(), lock_expires_at = $5
			 WHERE device_id = $1`,
			resource, lk.Locked, lk.LockID, lk.LockedBy, lk.ExpiresAt)
	}
	return store.ExecOne(ctx, p.q, `
		UPDATE devices
		   SET lock_locked = $2, lock_id = $3, lock_locked_by = $4,
		       lock_locked_at = now(), lock_expires_at = $5,
		       status = $6, result_code = $7, resultado = $8,
		       motivo = $9, status_reason = $9, last_at = now()
		 WHERE device_id = $1`,
		resource, lk.Locked, lk.LockID, lk.LockedBy, lk.ExpiresAt,
		st.Status, st.ResultCode, st.Resultado, st.Reason)
}

// Clear implements Storage; lock_id and lock_locked_by are kept for audit
func (p *pg) Clear(ctx context.Context, resource, lockID, owner string) (bool, error) {
	tag, err := p.q.Exec(ctx, `
		UPDATE devices
		   SET lock_locked = false, lock_expires_at = 0, lock_locked_at = now()
		 WHERE device_id = $1
		   AND lock_locked
		   AND lock_id = $2
		   AND ($3 = '' OR lock_locked_by = $3)`,
		resource, lockID, owner)
	if err != nil {
		return false, perr.FromPostgresWithField(err, "release device lock")
	}
	return tag.RowsAffected() == 1, nil
}

// ClearOwnedBy implements Storage
func (p *pg) ClearOwnedBy(ctx context.Context, resource, owner string) (bool, error) {
	tag, err := p.q.Exec(ctx, `
		UPDATE devices
		   SET lock_locked = false, lock_expires_at = 0, lock_locked_at = now()
		 WHERE device_id = $1 AND lock_locked AND lock_locked_by = $2`,
		resource, owner)
	if err != nil {
		return false, perr.FromPostgresWithField(err, "reclaim device lock")
	}
	return tag.RowsAffected() == 1, nil
}
