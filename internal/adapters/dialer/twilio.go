package dialer

import (
	"context"
	"fmt"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"callrota/internal/platform/logger"
)

// holdTwiml keeps the call up long enough for the carrier to read the digits
const holdTwiml = `<Response><Pause length="15"/></Response>`

// callCreator is the slice of the Twilio REST API the dialer needs
type callCreator interface {
	CreateCall(params *twilioApi.CreateCallParams) (*twilioApi.ApiV2010Call, error)
}

// TwilioOpts configures the Twilio dialer
type TwilioOpts struct {
	AccountSID string
	AuthToken  string
	// From is the forwarded line; it must be a verified caller id on the account
	From string
	// ServiceNumber is the carrier number that accepts feature codes as DTMF
	ServiceNumber string
	// Lead is prepended to the digits; each w waits half a second after answer
	Lead string
}

// TwilioOption mutates TwilioOpts
type TwilioOption func(*TwilioOpts)

// WithLead overrides the DTMF lead in
func WithLead(lead string) TwilioOption { return func(o *TwilioOpts) { o.Lead = lead } }

// Twilio dials the carrier service number from the forwarded line and sends the code as DTMF
type Twilio struct {
	api  callCreator
	opts TwilioOpts
}

// NewTwilio validates opts and builds the REST client
func NewTwilio(opts TwilioOpts, more ...TwilioOption) (*Twilio, error) {
	if opts.Lead == "" {
		opts.Lead = "ww"
	}
	for _, o := range more {
		o(&opts)
	}
	if opts.AccountSID == "" || opts.AuthToken == "" {
		return nil, fmt.Errorf("dialer: twilio account sid and auth token are required")
	}
	if opts.From == "" || opts.ServiceNumber == "" {
		return nil, fmt.Errorf("dialer: twilio from and service numbers are required")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: opts.AccountSID,
		Password: opts.AuthToken,
	})
	return &Twilio{api: client.Api, opts: opts}, nil
}

// Submit places the call; it returns once Twilio has queued it
func (t *Twilio) Submit(ctx context.Context, code string) error {
	digits := dtmf(code)
	if digits == "" {
		return fmt.Errorf("dialer: code %q has no dialable digits", code)
	}
	params := &twilioApi.CreateCallParams{}
	params.SetTo(t.opts.ServiceNumber)
	params.SetFrom(t.opts.From)
	params.SetTwiml(holdTwiml)
	params.SetSendDigits(t.opts.Lead + digits)

	call, err := t.api.CreateCall(params)
	if err != nil {
		return fmt.Errorf("dialer: twilio create call: %w", err)
	}
	sid := ""
	if call != nil && call.Sid != nil {
		sid = *call.Sid
	}
	logger.C(ctx).Info().Str("call_sid", sid).Str("code", code).Msg("feature code call queued")
	return nil
}

// dtmf keeps the characters Twilio accepts in SendDigits
func dtmf(code string) string {
	var b strings.Builder
	for _, r := range code {
		if (r >= '0' && r <= '9') || r == '*' || r == '#' || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
