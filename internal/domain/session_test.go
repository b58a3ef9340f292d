package domain

import "testing"

func fullCookieSet() map[string]string {
	return map[string]string{
		"uin":    "o0123456789",
		"skey":   "@abcDEF123",
		"p_uin":  "o0123456789",
		"p_skey": "xyz-789",
	}
}

// TestSessionComplete tests structural validation of the cookie set
func TestSessionComplete(t *testing.T) {
	session := NewSession(fullCookieSet(), "napcat")
	if !session.Complete() {
		t.Error("expected full cookie set to be complete")
	}
	if session.Method != "napcat" {
		t.Errorf("expected method tag napcat, got %s", session.Method)
	}
	if !session.Valid {
		t.Error("expected fresh session to be valid")
	}
}

// TestSessionCompleteMissingCookie tests that each required cookie is checked
func TestSessionCompleteMissingCookie(t *testing.T) {
	for _, name := range RequiredCookies {
		cookies := fullCookieSet()
		delete(cookies, name)
		session := NewSession(cookies, "local")
		if session.Complete() {
			t.Errorf("expected session missing %q to be incomplete", name)
		}

		cookies = fullCookieSet()
		cookies[name] = ""
		session = NewSession(cookies, "local")
		if session.Complete() {
			t.Errorf("expected session with empty %q to be incomplete", name)
		}
	}
}

// TestSessionCompleteNil tests the nil receiver path
func TestSessionCompleteNil(t *testing.T) {
	var session *Session
	if session.Complete() {
		t.Error("expected nil session to be incomplete")
	}
}

// TestSessionUin tests prefix stripping of the uin cookie
func TestSessionUin(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"o0123456789", "123456789"},
		{"o123456789", "123456789"},
		{"123456789", "123456789"},
	}
	for _, tc := range cases {
		cookies := fullCookieSet()
		cookies["uin"] = tc.raw
		session := NewSession(cookies, "local")
		if got := session.Uin(); got != tc.want {
			t.Errorf("Uin() with raw %q = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

// TestSessionGTk tests the signing token derivation is stable and positive
func TestSessionGTk(t *testing.T) {
	session := NewSession(fullCookieSet(), "local")

	first := session.GTk()
	second := session.GTk()
	if first != second {
		t.Errorf("expected stable token, got %d then %d", first, second)
	}
	if first < 0 {
		t.Errorf("expected non-negative token, got %d", first)
	}

	other := NewSession(map[string]string{
		"uin": "o1", "skey": "a", "p_uin": "o1", "p_skey": "different",
	}, "local")
	if other.GTk() == first {
		t.Error("expected different p_skey values to produce different tokens")
	}
}
