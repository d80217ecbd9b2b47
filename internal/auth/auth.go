// Package auth checks the two built-in accounts and maps them to capabilities.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/easytalk/internal/model"
)

// ErrInvalidCredentials is returned for any unknown id/password pair.
var ErrInvalidCredentials = errors.New("invalid login credentials")

// Capability names one privileged action.
type Capability int

const (
	ChangeStyle Capability = iota
	ManageDictionary
	ExportSystemData
	ClearHistory
)

func (c Capability) String() string {
	switch c {
	case ChangeStyle:
		return "change speech style"
	case ManageDictionary:
		return "manage dictionary"
	case ExportSystemData:
		return "export system data"
	case ClearHistory:
		return "clear history"
	default:
		return "unknown capability"
	}
}

// DeniedError reports that a role lacks a capability.
type DeniedError struct {
	User       string
	Capability Capability
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("%s is not allowed to %s", e.User, e.Capability)
}

type account struct {
	id       string
	password string
	role     model.Role
}

// AdminID is the display name of the privileged account.
const AdminID = "EASY TALK"

var accounts = []account{
	{id: AdminID, password: "1234", role: model.RoleAdmin},
	{id: "guest", password: "guest123", role: model.RoleGuest},
}

// Authenticate returns the role for an id/password pair. Both are trimmed.
func Authenticate(id, password string) (model.Role, error) {
	id = strings.TrimSpace(id)
	password = strings.TrimSpace(password)
	for _, acc := range accounts {
		if acc.id == id && acc.password == password {
			return acc.role, nil
		}
	}
	return "", ErrInvalidCredentials
}

// CapabilitiesFor returns the capability set of a role.
func CapabilitiesFor(role model.Role) model.Capabilities {
	if role == model.RoleAdmin {
		return model.Capabilities{
			CanChangeStyle:      true,
			CanManageDictionary: true,
			CanExportSystemData: true,
			CanClearHistory:     true,
		}
	}
	return model.Capabilities{}
}

// Allowed reports whether caps include c.
func Allowed(caps model.Capabilities, c Capability) bool {
	switch c {
	case ChangeStyle:
		return caps.CanChangeStyle
	case ManageDictionary:
		return caps.CanManageDictionary
	case ExportSystemData:
		return caps.CanExportSystemData
	case ClearHistory:
		return caps.CanClearHistory
	default:
		return false
	}
}

// Require returns a *DeniedError when the session lacks c.
func Require(sess *model.Session, c Capability) error {
	if sess == nil {
		return &DeniedError{User: "anonymous", Capability: c}
	}
	if !Allowed(sess.Capabilities, c) {
		return &DeniedError{User: sess.User, Capability: c}
	}
	return nil
}

// DisplayName returns the account id shown for a role.
func DisplayName(role model.Role) string {
	for _, acc := range accounts {
		if acc.role == role {
			return acc.id
		}
	}
	return string(role)
}
