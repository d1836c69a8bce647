// Package service implements the control plane ports over the control repo
package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"callrota/internal/core/shift"
	"callrota/internal/modkit/repokit"
	perr "callrota/internal/platform/errors"
	"callrota/internal/platform/logger"
	"callrota/internal/platform/store"
	"callrota/internal/services/control/domain"
	"callrota/internal/services/control/repo"
)

// Config for the control service
type Config struct {
	// Backoff is the first wait before a broken feed is re-established; it doubles up to MaxBackoff
	Backoff    time.Duration
	MaxBackoff time.Duration
	// AuditLimit caps ListAudit
	AuditLimit int
	Now        func() time.Time
}

// Service implements domain.AgentPort and domain.ConsolePort
type Service struct {
	db     repokit.TxRunner
	binder repokit.Binder[repo.Storage]
	notify store.Listener
	cfg    Config
}

var (
	_ domain.AgentPort   = (*Service)(nil)
	_ domain.ConsolePort = (*Service)(nil)
)

// New constructs the control service; notify may be nil when feeds are not used
func New(db repokit.TxRunner, binder repokit.Binder[repo.Storage], notify store.Listener, cfg Config) *Service {
	if db == nil {
		panic("control.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("control.Service requires a non nil repo binder")
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBackoff < cfg.Backoff {
		cfg.MaxBackoff = 30 * time.Second
	}
	if cfg.AuditLimit <= 0 {
		cfg.AuditLimit = 200
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{db: db, binder: binder, notify: notify, cfg: cfg}
}

func (s *Service) repo() repo.Storage { return s.binder.Bind(s.db) }

// Resolve returns the contact with its device label; a missing contact is NotFound
func (s *Service) Resolve(ctx context.Context, contactID, device string) (domain.Contact, error) {
	id := shift.NormalizeID(contactID)
	if id == "" {
		return domain.Contact{}, perr.InvalidArgf("contact id is required")
	}
	c, err := s.repo().Contact(ctx, id)
	if err != nil {
		return domain.Contact{}, err
	}
	logger.C(ctx).Debug().Str("contact", id).Str("device", device).Str("label", c.LabelFor(device)).Msg("contact resolved")
	return c, nil
}

// Report upserts the status columns of device
func (s *Service) Report(ctx context.Context, device string, snap domain.Snapshot) error {
	if err := s.repo().UpsertStatus(ctx, device, snap); err != nil {
		logger.C(ctx).Error().Err(err).Str("device", device).Str("status", snap.Status).Msg("status report failed")
		return err
	}
	return nil
}

// ConsumeForceNextTurn clears the pending override and records which request consumed it
func (s *Service) ConsumeForceNextTurn(ctx context.Context, device, requestID string) error {
	at := s.cfg.Now().UnixMilli()
	return s.repo().MergeOverride(ctx, device, shift.Override{
		ForceNextTurn:  false,
		ForceRequestID: requestID,
		ConsumedAt:     &at,
	})
}

// PutCommand replaces the device command
func (s *Service) PutCommand(ctx context.Context, cmd domain.Command) error {
	if strings.TrimSpace(cmd.DeviceID) == "" || strings.TrimSpace(cmd.RequestID) == "" {
		return perr.InvalidArgf("command needs a device and a request id")
	}
	if cmd.Action == "" {
		cmd.Action = domain.ActionApplyNow
	}
	if cmd.RequestedAt.IsZero() {
		cmd.RequestedAt = s.cfg.Now()
	}
	return s.repo().PutCommand(ctx, cmd)
}

// SetForceNextTurn arms the override and writes its command in one transaction
func (s *Service) SetForceNextTurn(ctx context.Context, device string, req domain.ForceRequest) error {
	if strings.TrimSpace(req.RequestID) == "" {
		return perr.InvalidArgf("force request needs a request id")
	}
	now := s.cfg.Now()
	at := now.UnixMilli()
	return repokit.InTx(ctx, s.db, s.binder, func(r repo.Storage) error {
		if err := r.MergeOverride(ctx, device, shift.Override{
			ForceNextTurn:  true,
			ForceRequestID: req.RequestID,
			UITag:          req.UITag,
			UIReason:       req.UIReason,
			RequestedBy:    req.RequestedBy,
			RequestedAt:    &at,
		}); err != nil {
			return err
		}
		return r.PutCommand(ctx, domain.Command{
			DeviceID:    device,
			Action:      domain.ActionApplyNow,
			RequestID:   req.CommandID(),
			LockID:      req.LockID,
			RequestedBy: req.RequestedBy,
			RequestedAt: now,
		})
	})
}

// AppendAudit records one console action
func (s *Service) AppendAudit(ctx context.Context, e domain.AuditEntry) error {
	if e.Type == "" || e.Action == "" {
		return perr.InvalidArgf("audit entry needs a type and an action")
	}
	return s.repo().AppendAudit(ctx, e)
}

// ListAudit returns the newest entries first
func (s *Service) ListAudit(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > s.cfg.AuditLimit {
		limit = s.cfg.AuditLimit
	}
	return s.repo().ListAudit(ctx, limit)
}

// DeviceState reads one device row
func (s *Service) DeviceState(ctx context.Context, device string) (domain.DeviceState, error) {
	return s.repo().Device(ctx, device)
}

// LoadConfig returns the stored document; a device without one reads as the zero document
func (s *Service) LoadConfig(ctx context.Context, device string) (shift.Document, error) {
	raw, _, err := s.repo().LoadConfig(ctx, device)
	if err != nil {
		return shift.Document{}, err
	}
	doc, err := shift.ParseDocument(raw)
	if err != nil {
		return shift.Document{}, perr.Wrapf(err, perr.ErrorCodeJSON, "config %s", device)
	}
	return doc, nil
}

// SaveConfig validates and stores the schedule; n2 is mandatory
func (s *Service) SaveConfig(ctx context.Context, device string, in domain.ConfigInput) (shift.Document, error) {
	doc, err := in.Document()
	if err != nil {
		return shift.Document{}, err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return shift.Document{}, perr.Wrap(err, perr.ErrorCodeJSON, "encode config")
	}
	if err := s.repo().SaveConfig(ctx, device, raw); err != nil {
		return shift.Document{}, err
	}
	logger.C(ctx).Info().Str("device", device).Str("mode", doc.Mode).Str("n2", doc.N2GuardID).Msg("config saved")
	return doc, nil
}

// UpsertContact creates or updates a contact, merging device labels
func (s *Service) UpsertContact(ctx context.Context, c domain.Contact) error {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" || c.ID == shift.None {
		return perr.WithField(perr.New(perr.ErrorCodeValidation, "contact id is required"), "contactId")
	}
	return s.repo().UpsertContact(ctx, c)
}

// ListContacts returns every contact ordered by display name
func (s *Service) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	return s.repo().Contacts(ctx)
}
