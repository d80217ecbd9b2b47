package auth

import (
	"errors"
	"testing"

	"github.com/verte-zerg/easytalk/internal/model"
)

func TestAuthenticate(t *testing.T) {
	role, err := Authenticate(" EASY TALK ", "1234 ")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	if role != model.RoleAdmin {
		t.Fatalf("expected admin role, got %q", role)
	}
	role, err = Authenticate("guest", "guest123")
	if err != nil {
		t.Fatalf("guest login: %v", err)
	}
	if role != model.RoleGuest {
		t.Fatalf("expected guest role, got %q", role)
	}
	for _, pair := range [][2]string{{"guest", "1234"}, {"EASY TALK", "guest123"}, {"", ""}, {"easy talk", "1234"}} {
		if _, err := Authenticate(pair[0], pair[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected invalid credentials for %v, got %v", pair, err)
		}
	}
}

func TestRequire(t *testing.T) {
	admin := &model.Session{User: AdminID, Role: model.RoleAdmin, Capabilities: CapabilitiesFor(model.RoleAdmin)}
	guest := &model.Session{User: "guest", Role: model.RoleGuest, Capabilities: CapabilitiesFor(model.RoleGuest)}
	for _, c := range []Capability{ChangeStyle, ManageDictionary, ExportSystemData, ClearHistory} {
		if err := Require(admin, c); err != nil {
			t.Fatalf("admin should be allowed to %s: %v", c, err)
		}
		err := Require(guest, c)
		var denied *DeniedError
		if !errors.As(err, &denied) {
			t.Fatalf("guest should be denied %s, got %v", c, err)
		}
		if denied.Capability != c {
			t.Fatalf("unexpected capability in error: %v", denied.Capability)
		}
	}
	if err := Require(nil, ChangeStyle); err == nil {
		t.Fatalf("expected nil session to be denied")
	}
}
