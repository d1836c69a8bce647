// Package repo reads and writes the control plane tables: configs, commands, contacts,
// device status and the audit log
package repo

import (
	"context"
	_ "embed"
	"encoding/json"
	"time"

	"callrota/internal/core/shift"
	"callrota/internal/modkit/repokit"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/store"
	"callrota/internal/services/control/domain"
)

//go:embed schema.sql
var schema string

// Schema returns the embedded DDL
func Schema() string { return schema }

// Migrate applies the embedded schema; every statement is idempotent
func Migrate(ctx context.Context, q repokit.Queryer) error {
	if _, err := q.Exec(ctx, schema); err != nil {
		return perr.FromPostgresWithField(err, "apply schema")
	}
	return nil
}

// wrapRead keeps NotFound from store.One and maps everything else from Postgres
func wrapRead(err error, msg string) error {
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return perr.Wrap(err, perr.ErrorCodeNotFound, msg+" not found")
	}
	return perr.FromPostgresWithField(err, msg)
}

// NOTIFY channels raised by the schema triggers
const (
	ChannelConfig   = "callrota_config"
	ChannelCommands = "callrota_commands"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs the repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage is the control plane data access
type Storage interface {
	// LoadConfig returns the raw config document; found is false when the device has none
	LoadConfig(ctx context.Context, device string) (raw []byte, found bool, err error)
	SaveConfig(ctx context.Context, device string, raw []byte) error
	// MergeOverride merges patch into doc.override
	MergeOverride(ctx context.Context, device string, patch shift.Override) error

	LoadCommand(ctx context.Context, device string) (domain.Command, bool, error)
	PutCommand(ctx context.Context, cmd domain.Command) error

	Contact(ctx context.Context, id string) (domain.Contact, error)
	Contacts(ctx context.Context) ([]domain.Contact, error)
	UpsertContact(ctx context.Context, c domain.Contact) error

	UpsertStatus(ctx context.Context, device string, s domain.Snapshot) error
	Device(ctx context.Context, device string) (domain.DeviceState, error)

	AppendAudit(ctx context.Context, e domain.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}

// LoadConfig implements Storage
func (p *pg) LoadConfig(ctx context.Context, device string) ([]byte, bool, error) {
	raw, err := store.One(ctx, p.q, func(r store.Row) ([]byte, error) {
		var b []byte
		err := r.Scan(&b)
		return b, err
	}, `SELECT doc FROM device_configs WHERE device_id = $1`, device)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, perr.FromPostgresWithField(err, "load config")
	}
	return raw, true, nil
}

// SaveConfig implements Storage
func (p *pg) SaveConfig(ctx context.Context, device string, raw []byte) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO device_configs (device_id, doc, updated_at)
		VALUES ($1, $2::jsonb, now())
		ON CONFLICT (device_id) DO UPDATE
		   SET doc = device_configs.doc || EXCLUDED.doc, updated_at = now()`,
		device, string(raw))
	return perr.FromPostgresWithField(err, "save config")
}

// MergeOverride implements Storage
func (p *pg) MergeOverride(ctx context.Context, device string, patch shift.Override) error {
	b, err := json.Marshal(patch)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode override")
	}
	_, err = p.q.Exec(ctx, `
		INSERT INTO device_configs (device_id, doc, updated_at)
		VALUES ($1, jsonb_build_object('override', $2::jsonb), now())
		ON CONFLICT (device_id) DO UPDATE
		   SET doc = jsonb_set(device_configs.doc, '{override}',
		                       coalesce(device_configs.doc->'override', '{}'::jsonb) || $2::jsonb),
		       updated_at = now()`,
		device, string(b))
	return perr.FromPostgresWithField(err, "merge override")
}

// LoadCommand implements Storage
func (p *pg) LoadCommand(ctx context.Context, device string) (domain.Command, bool, error) {
	c, err := store.One(ctx, p.q, scanCommand, `
		SELECT device_id, action, request_id, lock_id, requested_by, requested_at
		  FROM device_commands
		 WHERE device_id = $1`, device)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.Command{}, false, nil
	}
	if err != nil {
		return domain.Command{}, false, perr.FromPostgresWithField(err, "load command")
	}
	return c, true, nil
}

func scanCommand(r store.Row) (domain.Command, error) {
	var c domain.Command
	err := r.Scan(&c.DeviceID, &c.Action, &c.RequestID, &c.LockID, &c.RequestedBy, &c.RequestedAt)
	return c, err
}

// PutCommand implements Storage; the row is replaced so the feed always sees the latest command
func (p *pg) PutCommand(ctx context.Context, cmd domain.Command) error {
	at := cmd.RequestedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := p.q.Exec(ctx, `
		INSERT INTO device_commands (device_id, action, request_id, lock_id, requested_by, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (device_id) DO UPDATE
		   SET action = EXCLUDED.action, request_id = EXCLUDED.request_id,
		       lock_id = EXCLUDED.lock_id, requested_by = EXCLUDED.requested_by,
		       requested_at = EXCLUDED.requested_at`,
		cmd.DeviceID, cmd.Action, cmd.RequestID, cmd.LockID, cmd.RequestedBy, at)
	return perr.FromPostgresWithField(err, "put command")
}

func scanContact(r store.Row) (domain.Contact, error) {
	var (
		c      domain.Contact
		labels []byte
	)
	if err := r.Scan(&c.ID, &c.DisplayName, &labels); err != nil {
		return c, err
	}
	if len(labels) > 0 {
		if err := json.Unmarshal(labels, &c.Labels); err != nil {
			return c, perr.Wrapf(err, perr.ErrorCodeJSON, "contact %s labels", c.ID)
		}
	}
	return c, nil
}

// Contact implements Storage
func (p *pg) Contact(ctx context.Context, id string) (domain.Contact, error) {
	c, err := store.One(ctx, p.q, scanContact, `
		SELECT contact_id, display_name, labels_by_device
		  FROM contacts
		 WHERE contact_id = $1`, id)
	if err != nil {
		return domain.Contact{}, wrapRead(err, "contact")
	}
	return c, nil
}

// Contacts implements Storage
func (p *pg) Contacts(ctx context.Context) ([]domain.Contact, error) {
	out, err := store.Many(ctx, p.q, scanContact, `
		SELECT contact_id, display_name, labels_by_device
		  FROM contacts
		 ORDER BY display_name, contact_id`)
	if err != nil {
		return nil, perr.FromPostgresWithField(err, "list contacts")
	}
	return out, nil
}

// UpsertContact implements Storage; labels merge per device
func (p *pg) UpsertContact(ctx context.Context, c domain.Contact) error {
	labels := c.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	b, err := json.Marshal(labels)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "encode labels")
	}
	_, err = p.q.Exec(ctx, `
		INSERT INTO contacts (contact_id, display_name, labels_by_device)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (contact_id) DO UPDATE
		   SET display_name = CASE WHEN EXCLUDED.display_name = '' THEN contacts.display_name
		                           ELSE EXCLUDED.display_name END,
		       labels_by_device = contacts.labels_by_device || EXCLUDED.labels_by_device`,
		c.ID, c.DisplayName, string(b))
	return perr.FromPostgresWithField(err, "upsert contact")
}

// UpsertStatus implements Storage; lock columns are left alone
func (p *pg) UpsertStatus(ctx context.Context, device string, s domain.Snapshot) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO devices (device_id, status, resultado, motivo, status_reason, turno, result_code,
		                     last_target_id, last_target_name, next_target_id, next_target_name,
		                     next_change_at, forced, forced_reason, apply_source, apply_trigger,
		                     apply_id, last_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now())
		ON CONFLICT (device_id) DO UPDATE
		   SET status = EXCLUDED.status, resultado = EXCLUDED.resultado,
		       motivo = EXCLUDED.motivo, status_reason = EXCLUDED.status_reason,
		       turno = EXCLUDED.turno, result_code = EXCLUDED.result_code,
		       last_target_id = EXCLUDED.last_target_id, last_target_name = EXCLUDED.last_target_name,
		       next_target_id = EXCLUDED.next_target_id, next_target_name = EXCLUDED.next_target_name,
		       next_change_at = EXCLUDED.next_change_at, forced = EXCLUDED.forced,
		       forced_reason = EXCLUDED.forced_reason, apply_source = EXCLUDED.apply_source,
		       apply_trigger = EXCLUDED.apply_trigger, apply_id = EXCLUDED.apply_id,
		       last_at = now()`,
		device, s.Status, s.Resultado, s.Motivo, s.StatusReason, s.Turno, s.ResultCode,
		s.LastTargetID, s.LastTargetName, s.NextTargetID, s.NextTargetName,
		s.NextChangeAt, s.Forced, s.ForcedReason, s.ApplySource, s.ApplyTrigger, s.ApplyID)
	return perr.FromPostgresWithField(err, "report status")
}

// Device implements Storage
func (p *pg) Device(ctx context.Context, device string) (domain.DeviceState, error) {
	d, err := store.One(ctx, p.q, func(r store.Row) (domain.DeviceState, error) {
		var (
			d              domain.DeviceState
			s              = &d.Snapshot
			lastAt, lockAt *time.Time
		)
		err := r.Scan(&d.DeviceID, &s.Status, &s.Resultado, &s.Motivo, &s.StatusReason, &s.Turno,
			&s.ResultCode, &s.LastTargetID, &s.LastTargetName, &s.NextTargetID, &s.NextTargetName,
			&s.NextChangeAt, &s.Forced, &s.ForcedReason, &s.ApplySource, &s.ApplyTrigger, &s.ApplyID,
			&lastAt, &d.Lock.Locked, &d.Lock.LockID, &d.Lock.LockedBy, &lockAt, &d.Lock.ExpiresAt)
		if lastAt != nil {
			d.LastAt = *lastAt
		}
		if lockAt != nil {
			d.Lock.LockedAt = *lockAt
		}
		return d, err
	}, `
		SELECT device_id, status, resultado, motivo, status_reason, turno, result_code,
		       last_target_id, last_target_name, next_target_id, next_target_name,
		       next_change_at, forced, forced_reason, apply_source, apply_trigger, apply_id,
		       last_at, lock_locked, lock_id, lock_locked_by, lock_locked_at, lock_expires_at
		  FROM devices
		 WHERE device_id = $1`, device)
	if err != nil {
		return domain.DeviceState{}, wrapRead(err, "device")
	}
	return d, nil
}

// AppendAudit implements Storage
func (p *pg) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	_, err := p.q.Exec(ctx, `
		INSERT INTO audit_logs (type, scope, action, action_es, request_id, user_email)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Type, e.Scope, e.Action, e.ActionES, e.RequestID, e.UserEmail)
	return perr.FromPostgresWithField(err, "append audit")
}

// ListAudit implements Storage, newest first
func (p *pg) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	out, err := store.Many(ctx, p.q, func(r store.Row) (domain.AuditEntry, error) {
		var e domain.AuditEntry
		err := r.Scan(&e.ID, &e.Type, &e.Scope, &e.Action, &e.ActionES, &e.RequestID, &e.UserEmail, &e.At)
		return e, err
	}, `
		SELECT id, type, scope, action, action_es, request_id, user_email, at
		  FROM audit_logs
		 ORDER BY at DESC, id DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, perr.FromPostgresWithField(err, "list audit")
	}
	return out, nil
}
