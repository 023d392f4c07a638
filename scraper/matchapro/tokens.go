package matchapro

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	ssoLinkText = "Sign in with SSO BPS"
	// otpSelector matches the visible one-time-code field of the SSO page.
	otpSelector = `input[name*="otp"]:not([type="hidden"]), input[id*="otp"]:not([type="hidden"]), ` +
		`input[name*="token"]:not([type="hidden"]), input[id*="token"]:not([type="hidden"])`
)

var submitTokenRe = regexp.MustCompile(`gcSubmitToken\s*=\s*['"]([^'"]+)['"]`)

// PageState is what the authenticator needs to know about a loaded page.
type PageState struct {
	CSRFToken       string
	SubmissionToken string
	HasSSOLink      bool
	HasOTPField     bool
}

// ParsePage extracts tokens and login markers from page HTML.
func ParsePage(html string) PageState {
	var st PageState
	if m := submitTokenRe.FindStringSubmatch(html); m != nil {
		st.SubmissionToken = m[1]
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return st
	}
	if v, ok := doc.Find(`meta[name="csrf-token"]`).Attr("content"); ok {
		st.CSRFToken = strings.TrimSpace(v)
	}
	st.HasSSOLink = doc.Find("a").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), ssoLinkText)
	}).Length() > 0
	st.HasOTPField = doc.Find(otpSelector).Length() > 0
	return st
}
