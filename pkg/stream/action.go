package stream

import "fmt"

// ActionKind enumerates what the session controller should do with an
// interpreted event.
type ActionKind int

const (
	// ActionIgnore drops the event.
	ActionIgnore ActionKind = iota

	// ActionAppendToken appends Action.Content to the response.
	ActionAppendToken

	// ActionFinalize ends the stream successfully.
	ActionFinalize

	// ActionReportError ends the stream with the server-provided
	// Action.Message.
	ActionReportError
)

func (k ActionKind) String() string {
	switch k {
	case ActionIgnore:
		return "ignore"
	case ActionAppendToken:
		return "append_token"
	case ActionFinalize:
		return "finalize"
	case ActionReportError:
		return "report_error"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// Action is the semantic result of interpreting one event.
type Action struct {
	Kind ActionKind

	// Content is set for ActionAppendToken.
	Content string

	// Message is set for ActionReportError.
	Message string
}

// Terminal reports whether the action ends the stream.
func (a Action) Terminal() bool {
	return a.Kind == ActionFinalize || a.Kind == ActionReportError
}

// AppendToken builds an ActionAppendToken.
func AppendToken(content string) Action {
	return Action{Kind: ActionAppendToken, Content: content}
}

// Finalize builds an ActionFinalize.
func Finalize() Action {
	return Action{Kind: ActionFinalize}
}

// ReportError builds an ActionReportError.
func ReportError(message string) Action {
	return Action{Kind: ActionReportError, Message: message}
}

// Ignore builds an ActionIgnore.
func Ignore() Action {
	return Action{Kind: ActionIgnore}
}
