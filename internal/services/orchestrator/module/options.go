package module

import (
	"time"

	"callrota/internal/adapters/dialer"
	"callrota/internal/platform/config"
	lockdom "callrota/internal/services/lock/domain"
)

// Dialer kinds accepted by CALLROTA_DIALER
const (
	DialerLog    = "log"
	DialerTwilio = "twilio"
)

// Options for the orchestrator module
type Options struct {
	DeviceID       string
	Owner          string
	Zone           *time.Location
	ConfirmTimeout time.Duration
	RetryDelay     time.Duration
	RetryMax       int
	LockTTL        time.Duration
	CommandDelay   time.Duration
	BoundaryDelay  time.Duration
	ReclaimOnStart bool

	LedgerPath    string
	LedgerGC      time.Duration
	PhonebookPath string
	Dialer        string
	Blocked       []string
	Twilio        dialer.TwilioOpts
}

// FromConfig fills options from environment
// CALLROTA_DEVICE_ID is required. CALLROTA_ZONE (default Europe/Madrid) is the rotation zone
// CALLROTA_CONFIRM_TIMEOUT (60s), CALLROTA_RETRY_DELAY (1.2s), CALLROTA_RETRY_MAX (0, unbounded)
// CALLROTA_COMMAND_DELAY (400ms) and CALLROTA_BOUNDARY_DELAY (600ms) pace an apply
// CALLROTA_RECLAIM_ON_START (true) releases a lock this agent left behind
// CALLROTA_LEDGER_PATH (var/ledger, "memory" keeps it in process), CALLROTA_PHONEBOOK_PATH (phonebook.yaml)
// CALLROTA_DIALER log|twilio; twilio reads TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN,
// TWILIO_FROM_NUMBER, TWILIO_SERVICE_NUMBER and TWILIO_DTMF_LEAD
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("CALLROTA_")
	tw := cfg.Prefix("TWILIO_")
	return Options{
		DeviceID:       c.MustString("DEVICE_ID"),
		Owner:          c.MayString("OWNER", ""),
		Zone:           c.MayLocation("ZONE", "Europe/Madrid"),
		ConfirmTimeout: c.MayDuration("CONFIRM_TIMEOUT", 60*time.Second),
		RetryDelay:     c.MayDuration("RETRY_DELAY", 1200*time.Millisecond),
		RetryMax:       c.MayInt("RETRY_MAX", 0),
		LockTTL:        c.MayDuration("LOCK_TTL", lockdom.DefaultTTL),
		CommandDelay:   c.MayDuration("COMMAND_DELAY", 400*time.Millisecond),
		BoundaryDelay:  c.MayDuration("BOUNDARY_DELAY", 600*time.Millisecond),
		ReclaimOnStart: c.MayBool("RECLAIM_ON_START", true),

		LedgerPath:    c.MayString("LEDGER_PATH", "var/ledger"),
		LedgerGC:      c.MayDuration("LEDGER_GC", 10*time.Minute),
		PhonebookPath: c.MayString("PHONEBOOK_PATH", "phonebook.yaml"),
		Dialer:        c.MayEnum("DIALER", DialerLog, DialerLog, DialerTwilio),
		Blocked:       c.MayCSV("BLOCKED_NUMBERS", nil),
		Twilio: dialer.TwilioOpts{
			AccountSID:    tw.MayString("ACCOUNT_SID", ""),
			AuthToken:     tw.MayString("AUTH_TOKEN", ""),
			From:          tw.MayString("FROM_NUMBER", ""),
			ServiceNumber: tw.MayString("SERVICE_NUMBER", ""),
			Lead:          tw.MayString("DTMF_LEAD", ""),
		},
	}
}
