package domain

import (
	"context"

	"callrota/internal/core/shift"
)

// FeedPort delivers push updates for one device; channels close when ctx ends
type FeedPort interface {
	ConfigFeed(ctx context.Context, device string) <-chan ConfigEvent
	CommandFeed(ctx context.Context, device string) <-chan CommandEvent
}

// ResolverPort looks contacts up by id
type ResolverPort interface {
	Resolve(ctx context.Context, contactID, device string) (Contact, error)
}

// StatusPort records the device status snapshot
type StatusPort interface {
	Report(ctx context.Context, device string, s Snapshot) error
}

// OverridePort clears a consumed force-next-turn override
type OverridePort interface {
	ConsumeForceNextTurn(ctx context.Context, device, requestID string) error
}

// AgentPort is everything the orchestrator needs from the control plane
type AgentPort interface {
	FeedPort
	ResolverPort
	StatusPort
	OverridePort
}

// ConsolePort is the operator side of the control plane
type ConsolePort interface {
	ResolverPort
	PutCommand(ctx context.Context, cmd Command) error
	SetForceNextTurn(ctx context.Context, device string, req ForceRequest) error
	AppendAudit(ctx context.Context, e AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	DeviceState(ctx context.Context, device string) (DeviceState, error)
	LoadConfig(ctx context.Context, device string) (shift.Document, error)
	SaveConfig(ctx context.Context, device string, in ConfigInput) (shift.Document, error)
	UpsertContact(ctx context.Context, c Contact) error
	ListContacts(ctx context.Context) ([]Contact, error)
}
