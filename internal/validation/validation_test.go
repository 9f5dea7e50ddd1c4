package validation

import (
	"errors"
	"testing"
)

func TestValidCPF(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"529.982.247-25", true},
		{"52998224725", true},
		{"529.982.247-24", false},
		{"111.111.111-11", false},
		{"1234567890", false},
		{"", false},
		{"\u0665\u0662\u0669.982.247-25", false},
	}
	for _, c := range cases {
		if got := ValidCPF(c.in); got != c.want {
			t.Fatalf("cpf=%q want=%v got=%v", c.in, c.want, got)
		}
	}
}

type sample struct {
	Start    string `json:"start_time" validate:"required,hhmm"`
	Duration int    `json:"duration" validate:"gt=0"`
	Kind     string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestMessageUsesJSONNames(t *testing.T) {
	err := Struct(sample{Start: "9:00", Duration: 0, Kind: "c"})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := "start_time must be a time in HH:MM format, duration must be greater than 0, kind must be one of: a, b"
	if got := Message(err); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if err := Struct(sample{Start: "23:59", Duration: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Message(errors.New("boom")); got != "boom" {
		t.Fatalf("plain error passthrough: %q", got)
	}
	if IsValidationError(errors.New("boom")) {
		t.Fatal("plain error is not a validation error")
	}
}

func TestOnlyDigits(t *testing.T) {
	if got := OnlyDigits("+55 (85) 99999-0000"); got != "5585999990000" {
		t.Fatalf("got %q", got)
	}
	// Dígitos de outros sistemas numéricos (árabe-índicos) são descartados.
	if got := OnlyDigits("\u0663\u0664-12"); got != "12" {
		t.Fatalf("got %q", got)
	}
}
