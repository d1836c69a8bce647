package classify

import (
	"strings"
	"testing"

	"callrota/internal/platform/testkit"
)

func TestClassifyRaw_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want Outcome
	}{
		{"spanish success", "Desvío de llamadas: El registro se ha realizado correctamente.", OK},
		{"spanish success past tense", "El registro se realizó correctamente", OK},
		{"english success", "Call forwarding\nService code registered", OK},
		{"spanish failure", "Se ha producido un problema de conexión o el código MMI no es válido.", Fail},
		{"english failure", "Call forwarding failed", Fail},
		{"negated success is mixed", "El registro no se realizó correctamente", FailMixed},
		{"both sets", "success, but a connection problem occurred", FailMixed},
		{"bare token", "Conexión perdida", Fail},
		{"bare token no valido", "numero no valido", Fail},
		{"nothing", "Desvío de llamadas", Unknown},
		{"empty", "", Unknown},
		{"accents and case ignored", "SE HA REALIZADO CORRECTAMENTE", OK},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyRaw(tc.in); got != tc.want {
				t.Fatalf("ClassifyRaw(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestClassify_MixedNeverOK(t *testing.T) {
	t.Parallel()
	for _, ok := range []string{"success", "se realizo correctamente", "registration was successful"} {
		for _, bad := range []string{"error", "fallo", "invalid", "failure"} {
			for _, text := range []string{ok + " " + bad, bad + " " + ok} {
				if got := Classify(text); got != FailMixed {
					t.Fatalf("Classify(%q) = %s, want FAIL_MIXED", text, got)
				}
			}
		}
	}
}

func TestIsIntermediate(t *testing.T) {
	t.Parallel()
	c := Default()
	if !c.IsIntermediate("codigo mmi iniciado") || !c.IsIntermediate("mmi code started") {
		t.Fatalf("intermediate toast not recognised")
	}
	if c.IsIntermediate("el registro se ha realizado correctamente") {
		t.Fatalf("result dialog flagged as intermediate")
	}
}

func TestLooksLikeForwardingResult(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want bool
	}{
		{"desvio de llamadas el registro se ha realizado correctamente", true},
		{"call forwarding registration was successful", true},
		{"codigo mmi no es valido", true}, // codigo mmi + mmi
		{"desvio", false},
		{"battery low", false},
	}
	for _, tc := range tests {
		if got := LooksLikeForwardingResult(tc.in); got != tc.want {
			t.Fatalf("LooksLikeForwardingResult(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRead(t *testing.T) {
	t.Parallel()
	v := Default().Read("Desvío de llamadas\nEl registro se ha realizado correctamente")
	if !v.Relevant || v.Intermediate || v.Outcome != OK {
		t.Fatalf("Read = %+v", v)
	}
	if strings.ContainsAny(v.Normalized, "\nÍí") {
		t.Fatalf("Normalized not folded: %q", v.Normalized)
	}
}

func TestParseOutcome(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]Outcome{"OK": OK, "FAIL": Fail, "FAIL_MIXED": FailMixed, "UNKNOWN": Unknown, "ok": Unknown, "": Unknown} {
		if got := ParseOutcome(in); got != want {
			t.Fatalf("ParseOutcome(%q) = %s, want %s", in, got, want)
		}
	}
	if Unknown.Success() || Fail.Success() || !OK.Success() {
		t.Fatalf("only OK is a success")
	}
}

func TestNew_RejectsIncompletePhrases(t *testing.T) {
	t.Parallel()
	if _, err := New([]byte(`{"success":["ok"]}`)); err == nil {
		t.Fatalf("expected error for missing failure set")
	}
	if _, err := New([]byte(`{`)); err == nil {
		t.Fatalf("expected decode error")
	}
	testkit.MustNotPanic(t, func() { _ = Default() })
}
