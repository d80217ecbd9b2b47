package model

// Role identifies what kind of user is logged in.
type Role string

// Known roles.
const (
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// Capabilities lists what a role is allowed to do beyond converting text.
type Capabilities struct {
	CanChangeStyle      bool
	CanManageDictionary bool
	CanExportSystemData bool
	CanClearHistory     bool
}

// ConversionState is the orchestrator state for a session.
type ConversionState int

const (
	StateIdle ConversionState = iota
	StateRequesting
	StateSuccess
	StateFallback
	StateFailed
)

func (s ConversionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateSuccess:
		return "success"
	case StateFallback:
		return "fallback"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CurrentResult is the last conversion shown to the user.
type CurrentResult struct {
	Original string
	Result   ConversionResult
}

// Session carries all per-user state. It is passed to every operation
// instead of living in package globals.
type Session struct {
	User         string
	Role         Role
	Capabilities Capabilities
	Style        SpeechStyle
	State        ConversionState
	Current      *CurrentResult
	Stats        UsageStats
	History      []HistoryEntry
}

// IsAdmin reports whether the session belongs to the privileged role.
func (s *Session) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}
