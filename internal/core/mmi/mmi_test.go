package mmi

import (
	"testing"

	perr "callrota/internal/platform/errors"
)

func TestBuildForward(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
		code perr.ErrorCode
	}{
		{"bare number", "600111222", "*21*600111222#", 0},
		{"spaced number", " 600 11 12 22 ", "*21*600111222#", 0},
		{"international", "+34 600-111-222", "*21*+34600111222#", 0},
		{"stored code", "*21*600111222#", "*21*600111222#", 0},
		{"double star code", "**21*600111222#", "*21*600111222#", 0},
		{"code without hash", "*21*600111222", "*21*600111222#", 0},
		{"code with label", "Guardia: **21*912 345 678#", "*21*912345678#", 0},
		{"blank", "   ", "", perr.ErrorCodePrecondition},
		{"letters only", "ext", "", perr.ErrorCodePrecondition},
		{"too short", "12345", "", perr.ErrorCodePrecondition},
		{"blocked", "900 442 290", "", perr.ErrorCodeForbidden},
		{"blocked inside code", "*21*900442290#", "", perr.ErrorCodeForbidden},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildForward(tc.in)
			if tc.want == "" {
				if err == nil {
					t.Fatalf("BuildForward(%q) = %q, want error", tc.in, got)
				}
				if c := perr.CodeOf(err); c != tc.code {
					t.Fatalf("BuildForward(%q) code = %s, want %s", tc.in, c, tc.code)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("BuildForward(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
		})
	}
}

func TestBuilder_ExtraBlocked(t *testing.T) {
	t.Parallel()
	b := NewBuilder("611 000 000")
	if _, err := b.BuildForward("611000000"); err == nil {
		t.Fatalf("extra blocked destination accepted")
	}
	if _, err := b.BuildForward("900442290"); err == nil {
		t.Fatalf("default blocked destination accepted")
	}
}

func TestDestinations(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want []string
	}{
		{"*21*600111222#", []string{"600111222"}},
		{"Desvío *21*600111222 activado", []string{"600111222"}},
		{"** 21 * +34600111222 #", []string{"+34600111222"}},
		{"*21*600111222# then *21*699999999#", []string{"600111222", "699999999"}},
		{"Desvío de llamadas activo", nil},
	}
	for _, tc := range tests {
		got := Destinations(tc.text)
		if len(got) != len(tc.want) {
			t.Fatalf("Destinations(%q) = %v, want %v", tc.text, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("Destinations(%q) = %v, want %v", tc.text, got, tc.want)
			}
		}
	}
}
