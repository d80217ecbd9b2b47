package app

import "time"

// Level is the severity of a user-facing alert.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Duration is how long an alert of this level stays visible.
func (l Level) Duration() time.Duration {
	switch l {
	case LevelError:
		return 5 * time.Second
	case LevelWarning:
		return 4 * time.Second
	default:
		return 3 * time.Second
	}
}

// Alert is a transient message for the user. Only one is shown at a time.
type Alert struct {
	Level   Level
	Message string
}

func info(msg string) Alert    { return Alert{Level: LevelInfo, Message: msg} }
func success(msg string) Alert { return Alert{Level: LevelSuccess, Message: msg} }
func warning(msg string) Alert { return Alert{Level: LevelWarning, Message: msg} }
func failure(msg string) Alert { return Alert{Level: LevelError, Message: msg} }
