package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"callrota/internal/core/shift"
)

// ActionApplyNow is the only command action the agent executes
const ActionApplyNow = "APPLY_NOW"

// Devices is the default pair of forwarded lines the console drives
var Devices = []string{"rediris", "telefonica"}

// Contact is one rotation member
// Labels maps device id to the phonebook entry name on that device
type Contact struct {
	ID          string            `json:"contactId"`
	DisplayName string            `json:"displayName"`
	Labels      map[string]string `json:"labelsByDevice"`
}

// LabelFor returns the phonebook label for device, "" when none is set
func (c Contact) LabelFor(device string) string {
	return shift.NormalizeID(c.Labels[device])
}

// Command is the latest remote instruction for a device
type Command struct {
	DeviceID    string    `json:"deviceId"`
	Action      string    `json:"action"`
	RequestID   string    `json:"requestId"`
	LockID      string    `json:"lockId,omitempty"`
	RequestedBy string    `json:"requestedBy,omitempty"`
	RequestedAt time.Time `json:"requestedAt"`
}

// ConfigEvent is one config feed delivery: a full document snapshot or an error
type ConfigEvent struct {
	DeviceID string
	Raw      []byte
	Doc      shift.Document
	Missing  bool
	Err      error
}

// CommandEvent is one command feed delivery
type CommandEvent struct {
	Command Command
	Err     error
}

// Snapshot is the status record an agent publishes for its device
type Snapshot struct {
	Status         string `json:"status"`
	Resultado      string `json:"resultado,omitempty"`
	Motivo         string `json:"motivo,omitempty"`
	StatusReason   string `json:"statusReason,omitempty"`
	Turno          string `json:"turno,omitempty"`
	ResultCode     string `json:"resultCode,omitempty"`
	LastTargetID   string `json:"lastTargetId,omitempty"`
	LastTargetName string `json:"lastTargetName,omitempty"`
	NextTargetID   string `json:"nextTargetId,omitempty"`
	NextTargetName string `json:"nextTargetName,omitempty"`
	NextChangeAt   int64  `json:"nextChangeAt,omitempty"`
	Forced         bool   `json:"forced"`
	ForcedReason   string `json:"forcedReason,omitempty"`
	ApplySource    string `json:"applySource,omitempty"`
	ApplyTrigger   string `json:"applyTrigger,omitempty"`
	ApplyID        string `json:"applyId,omitempty"`
}

// Fingerprint hashes the payload; equal fingerprints mean the write can be skipped
func (s Snapshot) Fingerprint() string {
	b, _ := json.Marshal(s)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// Lock mirrors the lock_* columns for read-only views
type Lock struct {
	Locked    bool      `json:"locked"`
	LockID    string    `json:"lockId,omitempty"`
	LockedBy  string    `json:"lockedBy,omitempty"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt int64     `json:"expiresAt"`
}

// DeviceState is the console view of one device row
type DeviceState struct {
	DeviceID string    `json:"deviceId"`
	Snapshot Snapshot  `json:"snapshot"`
	Lock     Lock      `json:"lock"`
	LastAt   time.Time `json:"lastAt"`
}

// Busy reports whether an apply is in flight or the lock is still live at now
func (d DeviceState) Busy(now time.Time) bool {
	if strings.EqualFold(d.Snapshot.Status, "running") {
		return true
	}
	return d.Lock.Locked && d.Lock.ExpiresAt > now.UnixMilli()
}

// AuditEntry is one append-only console action record
type AuditEntry struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Scope     string    `json:"scope"`
	Action    string    `json:"action"`
	ActionES  string    `json:"actionEs"`
	RequestID string    `json:"requestId"`
	UserEmail string    `json:"userEmail"`
	At        time.Time `json:"at"`
}

// ForceRequest is the override the console writes to skip to the next turn
// the matching APPLY_NOW command is written in the same transaction
type ForceRequest struct {
	RequestID   string
	LockID      string
	RequestedBy string
	UITag       string
	UIReason    string
}

// CommandID is the request id of the command paired with a force override
func (f ForceRequest) CommandID() string { return "force-next-" + f.RequestID }
