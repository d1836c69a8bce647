package normalize

import "testing"

func TestNormalize_Table(t *testing.T) {
	t.Parallel()
	n := New()

	tests := []struct {
		name string
		in   string
		out  string
	}{
		{"identity ascii", "desvio activado", "desvio activado"},
		{"utf8 repair drops invalid bytes", string([]byte{0xff, 'o', 'k', 0x80, ' ', 'x'}), "ok x"},
		{"accents stripped", "Desvío de llamadas ACTIVADO", "desvio de llamadas activado"},
		{"combining marks", "codigó mmi", "codigo mmi"},
		{"n tilde folds", "Mañana", "manana"},
		{"zero widths removed", "reg\u200bistrado\ufeff", "registrado"},
		{"fullwidth", "ＥＲＲＯＲ", "error"},
		{"digits and symbols survive", "*21*600 111 222#", "*21*600 111 222#"},
		{"newlines collapse", "  Desvío\n\n activado \t ", "desvio activado"},
		{"control bytes dropped", "ok\x00\x07 done\x7f", "ok done"},
		{"empty", "", ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := n.Normalize(tc.in)
			if got != tc.out {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.out)
			}
			if again := n.Normalize(got); again != got {
				t.Fatalf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestCollapseSpaces(t *testing.T) {
	t.Parallel()
	in := " \t a \n b   c \r\n "
	if got := collapseSpaces(in); got != "a b c" {
		t.Fatalf("collapseSpaces(%q) = %q", in, got)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, out string }{
		{"clean", "clean"},
		{"tab\tand\nnl", "tab\tand\nnl"},
		{"nul\x00byte", "nulbyte"},
		{"c1\u0085ctl", "c1ctl"},
		{string([]byte{'a', 0xff, 'b'}), "ab"},
	}
	for _, tc := range tests {
		if got := Sanitize(tc.in); got != tc.out {
			t.Fatalf("Sanitize(%q) = %q, want %q", tc.in, got, tc.out)
		}
	}
}
