package domain

import "time"

// RequiredCookies are the cookie names a session must carry to be usable
// against the platform endpoints.
var RequiredCookies = []string{"uin", "skey", "p_uin", "p_skey"}

// Session holds the authenticated cookie set for the platform plus the
// acquisition method that produced it. Owned by the session manager; callers
// only read it.
type Session struct {
	Cookies    map[string]string
	Method     string
	AcquiredAt time.Time
	Valid      bool
}

// NewSession creates a valid session from a cookie set and the acquisition
// method tag.
func NewSession(cookies map[string]string, method string) *Session {
	return &Session{
		Cookies:    cookies,
		Method:     method,
		AcquiredAt: time.Now(),
		Valid:      true,
	}
}

// Complete reports whether all required cookie names are present and
// non-empty. An incomplete set fails structural validation and the next
// provider in the chain is tried.
func (s *Session) Complete() bool {
	if s == nil || len(s.Cookies) == 0 {
		return false
	}
	for _, name := range RequiredCookies {
		if s.Cookies[name] == "" {
			return false
		}
	}
	return true
}

// Uin returns the bare account number from the uin cookie, stripping the
// platform's "o" zero-padding prefix.
func (s *Session) Uin() string {
	uin := s.Cookies["uin"]
	for len(uin) > 0 && (uin[0] == 'o' || uin[0] == '0') {
		uin = uin[1:]
	}
	return uin
}

// GTk derives the request-signing token from the p_skey cookie using the
// platform's additive hash.
func (s *Session) GTk() int {
	hash := 5381
	for _, r := range s.Cookies["p_skey"] {
		hash += (hash << 5) + int(r)
	}
	return hash & 0x7fffffff
}
