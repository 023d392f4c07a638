package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerSinkLevels(t *testing.T) {
	var console, file bytes.Buffer
	l := NewLoggerTo(&console, &file)

	l.Debug("token %s", "abc")
	l.Info("row %d", 1)
	l.Error("save failed")

	if strings.Contains(console.String(), "token abc") {
		t.Error("debug message must not reach the console")
	}
	if !strings.Contains(console.String(), "row 1") || !strings.Contains(console.String(), "save failed") {
		t.Errorf("console missing info/error lines: %q", console.String())
	}
	for _, want := range []string{"DEBUG - token abc", "INFO - row 1", "ERROR - save failed"} {
		if !strings.Contains(file.String(), want) {
			t.Errorf("file sink missing %q in %q", want, file.String())
		}
	}
	if strings.Contains(file.String(), "\033[") {
		t.Error("file sink must not contain colour codes")
	}
}
