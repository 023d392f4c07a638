package models

// Cookie is a browser cookie captured from the authenticated portal session.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path,omitempty"`
	Expiry   float64 `json:"expiry,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// SessionMaterial is an immutable snapshot of everything a submission needs.
// It is replaced wholesale on refresh; rotation only swaps SubmissionToken.
type SessionMaterial struct {
	Cookies         []Cookie
	CSRFToken       string
	SubmissionToken string
}

// Copy returns a SessionMaterial that shares no slices with m.
func (m SessionMaterial) Copy() SessionMaterial {
	m.Cookies = append([]Cookie(nil), m.Cookies...)
	return m
}

// ShortToken truncates a token for logging.
func ShortToken(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10] + "..."
}
