package entity

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"user", "instructor", "admin"} {
		r, ok := ParseRole(valid)
		if !ok || r.String() != valid {
			t.Errorf("ParseRole(%q) = %q, %v", valid, r, ok)
		}
	}
	for _, invalid := range []string{"", "User", "superadmin", "ADMIN"} {
		if _, ok := ParseRole(invalid); ok {
			t.Errorf("ParseRole(%q) accepted", invalid)
		}
	}
}

func TestHasOpenReset(t *testing.T) {
	tok, code := "tok", "123456"
	exp := time.Now().Add(5 * time.Minute)

	u := &User{}
	if u.HasOpenReset() {
		t.Error("no reset fields set")
	}
	u.ResetToken = &tok
	u.ResetCode = &code
	if u.HasOpenReset() {
		t.Error("partial reset fields must not count as open")
	}
	u.ResetTokenExpires = &exp
	if !u.HasOpenReset() {
		t.Error("all three fields set")
	}
}

func TestUserJSONHidesSecrets(t *testing.T) {
	tok := "reset-token"
	u := &User{
		ID:           "u-1",
		Email:        "a@b.c",
		PasswordHash: "$2a$10$secret",
		ResetToken:   &tok,
	}
	b, err := json.Marshal(u)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if strings.Contains(s, "secret") || strings.Contains(s, "reset-token") {
		t.Errorf("serialized user leaks secrets: %s", s)
	}
	if !strings.Contains(s, `"avatar"`) || !strings.Contains(s, `"courses"`) {
		t.Errorf("missing expected fields: %s", s)
	}
}
