package matchapro

import (
	"errors"
	"testing"
)

const dirPage = `<!DOCTYPE html>
<html><head>
<meta charset="utf-8">
<meta name="csrf-token" content="csrf-abc">
</head><body>
<form><input type="hidden" name="_token" value="csrf-abc"></form>
<script>
  var gcSubmitToken = 'gc-123';
</script>
</body></html>`

const loginPage = `<html><body>
<a href="/auth/sso" class="btn">
   Sign in with SSO BPS</a>
</body></html>`

const otpPage = `<html><body><form>
<input type="text" id="otp" name="otp">
<input type="submit" value="Sign In">
</form></body></html>`

func TestParsePageDirectory(t *testing.T) {
	st := ParsePage(dirPage)
	if st.CSRFToken != "csrf-abc" {
		t.Errorf("CSRFToken: got %q, want csrf-abc", st.CSRFToken)
	}
	if st.SubmissionToken != "gc-123" {
		t.Errorf("SubmissionToken: got %q, want gc-123", st.SubmissionToken)
	}
	if st.HasSSOLink || st.HasOTPField {
		t.Errorf("directory page flagged as login page: %+v", st)
	}
}

func TestParsePageLoginMarkers(t *testing.T) {
	if st := ParsePage(loginPage); !st.HasSSOLink || st.CSRFToken != "" {
		t.Errorf("login page: %+v", st)
	}
	if st := ParsePage(otpPage); !st.HasOTPField {
		t.Errorf("otp page: %+v", st)
	}
}

func TestParsePageSubmitTokenQuotes(t *testing.T) {
	tests := []struct {
		html string
		want string
	}{
		{`gcSubmitToken="dbl"`, "dbl"},
		{`gcSubmitToken   =   'spaced'`, "spaced"},
		{`gcSubmitToken = ''`, ""},
		{`nothing here`, ""},
	}
	for _, tt := range tests {
		if got := ParsePage(tt.html).SubmissionToken; got != tt.want {
			t.Errorf("ParsePage(%q) token = %q; want %q", tt.html, got, tt.want)
		}
	}
}

func TestIsConnectionReset(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("page load error net::ERR_CONNECTION_RESET"), true},
		{errors.New("page load error net::ERR_CONNECTION_CLOSED"), true},
		{errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), false},
	}
	for _, tt := range tests {
		if got := isConnectionReset(tt.err); got != tt.want {
			t.Errorf("isConnectionReset(%v) = %v; want %v", tt.err, got, tt.want)
		}
	}
}

func TestOTPCodeFromSecret(t *testing.T) {
	a := New(Options{OTPSecret: "JBSWY3DPEHPK3PXP"})
	code, err := a.otpCode()
	if err != nil {
		t.Fatalf("otpCode: %v", err)
	}
	if len(code) != 6 {
		t.Errorf("code %q: want 6 digits", code)
	}
}

type scriptedPrompt struct{ answers []string }

func (p *scriptedPrompt) Banner(lines ...string) {}
func (p *scriptedPrompt) Ask(string) (string, error) {
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}
func (p *scriptedPrompt) Confirm(q string) (bool, error) {
	a, _ := p.Ask(q)
	return a != "n", nil
}

func TestOTPCodeFallsBackToPrompt(t *testing.T) {
	a := New(Options{Prompt: &scriptedPrompt{answers: []string{"123456"}}})
	code, err := a.otpCode()
	if err != nil || code != "123456" {
		t.Errorf("otpCode() = %q, %v; want 123456", code, err)
	}

	if _, err := New(Options{}).otpCode(); err == nil {
		t.Error("expected an error without secret or console")
	}
}
