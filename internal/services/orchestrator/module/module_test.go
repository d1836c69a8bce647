package module

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"callrota/internal/adapters/dialer"
	"callrota/internal/modkit"
	modreg "callrota/internal/modkit/module"
	"callrota/internal/platform/config"
	perr "callrota/internal/platform/errors"
	phttp "callrota/internal/platform/net/http"
	"callrota/internal/platform/testkit"
	ctrl "callrota/internal/services/control/domain"
	lockdom "callrota/internal/services/lock/domain"
)

type stubControl struct{ ctrl.AgentPort }

func (stubControl) ConfigFeed(ctx context.Context, _ string) <-chan ctrl.ConfigEvent {
	ch := make(chan ctrl.ConfigEvent)
	go func() { <-ctx.Done(); close(ch) }()
	return ch
}

func (stubControl) CommandFeed(ctx context.Context, _ string) <-chan ctrl.CommandEvent {
	ch := make(chan ctrl.CommandEvent)
	go func() { <-ctx.Done(); close(ch) }()
	return ch
}

func (stubControl) Report(context.Context, string, ctrl.Snapshot) error { return nil }

type stubLock struct{ lockdom.LockPort }

func (stubLock) ReleaseOwnedBy(context.Context, string, string) (bool, error) { return false, nil }

func agentEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	book := filepath.Join(dir, "phonebook.yaml")
	if err := os.WriteFile(book, []byte("contacts:\n  - name: Guardia Ana\n    phone: \"600123456\"\n"), 0o600); err != nil {
		t.Fatalf("write phonebook: %v", err)
	}
	t.Setenv("CALLROTA_DEVICE_ID", "rediris")
	t.Setenv("CALLROTA_PHONEBOOK_PATH", book)
	t.Setenv("CALLROTA_LEDGER_PATH", "memory")
	return book
}

func TestFromConfig(t *testing.T) {
	agentEnv(t)
	t.Setenv("CALLROTA_RETRY_MAX", "5")
	t.Setenv("CALLROTA_ZONE", "Atlantic/Canary")
	t.Setenv("CALLROTA_BLOCKED_NUMBERS", "900111222, 900333444")
	t.Setenv("TWILIO_FROM_NUMBER", "+34600000001")

	o := FromConfig(config.New())
	if o.DeviceID != "rediris" || o.RetryMax != 5 || o.Zone.String() != "Atlantic/Canary" {
		t.Fatalf("options %+v", o)
	}
	if o.ConfirmTimeout != time.Minute || o.RetryDelay != 1200*time.Millisecond ||
		o.CommandDelay != 400*time.Millisecond || o.BoundaryDelay != 600*time.Millisecond || !o.ReclaimOnStart {
		t.Fatalf("defaults %+v", o)
	}
	if o.Dialer != DialerLog || len(o.Blocked) != 2 || o.Twilio.From != "+34600000001" {
		t.Fatalf("adapters %+v", o)
	}
}

func TestFromConfig_RequiresDevice(t *testing.T) {
	t.Setenv("CALLROTA_DEVICE_ID", "")
	testkit.MustPanic(t, func() { FromConfig(config.New()) })
}

func TestNew_RequiresPorts(t *testing.T) {
	agentEnv(t)
	_, err := New(modkit.Deps{Cfg: config.New()})
	if !perr.IsCode(err, perr.ErrorCodePrecondition) {
		t.Fatalf("err = %v", err)
	}
}

func TestNew_MissingPhonebook(t *testing.T) {
	agentEnv(t)
	t.Setenv("CALLROTA_PHONEBOOK_PATH", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := New(modkit.Deps{Cfg: config.New()}, modkit.WithPorts(Uses{Control: stubControl{}, Lock: stubLock{}}))
	if !perr.IsCode(err, perr.ErrorCodePrecondition) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewDialer(t *testing.T) {
	t.Parallel()
	d, err := newDialer(Options{DeviceID: "rediris", Dialer: "LOG"})
	if err != nil {
		t.Fatalf("log dialer: %v", err)
	}
	if _, ok := d.(dialer.Log); !ok {
		t.Fatalf("dialer = %T", d)
	}
	if _, err := newDialer(Options{Dialer: DialerTwilio}); !perr.IsCode(err, perr.ErrorCodePrecondition) {
		t.Fatalf("twilio without credentials: %v", err)
	}
}

func TestRegisterRunAndRoutes(t *testing.T) {
	agentEnv(t)
	modreg.Reset()
	t.Cleanup(modreg.Reset)

	m, err := Register(modkit.Deps{Cfg: config.New()}, modkit.WithPorts(Uses{Control: stubControl{}, Lock: stubLock{}}))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	p, ok := modreg.PortsAs[Ports]("orchestrator")
	if !ok || p.Agent == nil || p.Agent.Device() != "rediris" {
		t.Fatalf("ports not registered: %+v", p)
	}

	r := phttp.AdaptChi(chi.NewRouter())
	m.MountRoutes(r)
	srv := httptest.NewServer(r.Mux())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- m.Run(ctx) }()

	testkit.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return m.Agent().View().Snapshot.ResultCode == "READY"
	}, "agent reports READY")

	res, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", res.StatusCode)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not stop")
	}
}
