package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"\n", true},
		{"N\n", false},
		{" n \n", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		c := NewConsole(strings.NewReader(tt.input), &out)
		got, err := c.Confirm("retry? ")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("Confirm(%q) = %v; want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "retry? ") {
			t.Errorf("prompt not printed: %q", out.String())
		}
	}
}

func TestConsoleAskTrims(t *testing.T) {
	c := NewConsole(strings.NewReader("  123456  \n"), &bytes.Buffer{})
	got, err := c.Ask("OTP: ")
	if err != nil || got != "123456" {
		t.Errorf("Ask = %q, %v; want \"123456\", nil", got, err)
	}
}
