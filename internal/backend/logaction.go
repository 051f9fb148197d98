package backend

import (
	"fmt"
	"regexp"
	"strings"
)

// LogAction is the effect of a matched model server log line.
type LogAction int

const (
	// ActionModelLoaded marks the model server ready.
	ActionModelLoaded LogAction = iota + 1
	// ActionInfo is logged and published; state is unchanged.
	ActionInfo
	// ActionModelError moves the backend to the terminal error state.
	ActionModelError
)

func (a LogAction) String() string {
	switch a {
	case ActionModelLoaded:
		return "model_loaded"
	case ActionInfo:
		return "info"
	case ActionModelError:
		return "model_error"
	default:
		return "unknown"
	}
}

// ParseLogAction accepts snake_case or CamelCase action names.
func ParseLogAction(s string) (LogAction, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", "")) {
	case "modelloaded", "loaded":
		return ActionModelLoaded, nil
	case "info":
		return ActionInfo, nil
	case "modelerror", "error":
		return ActionModelError, nil
	default:
		return 0, fmt.Errorf("unknown log action %q", s)
	}
}

// LogRule pairs an action with a literal substring or a regular expression.
type LogRule struct {
	Action  LogAction
	Literal string
	Pattern *regexp.Regexp
}

// Literal matches lines containing s.
func Literal(a LogAction, s string) LogRule { return LogRule{Action: a, Literal: s} }

// Regex matches lines against expr.
func Regex(a LogAction, expr string) (LogRule, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return LogRule{}, fmt.Errorf("log rule %s: %w", a, err)
	}
	return LogRule{Action: a, Pattern: re}, nil
}

func (r LogRule) matches(line string) bool {
	if r.Pattern != nil {
		return r.Pattern.MatchString(line)
	}
	return r.Literal != "" && strings.Contains(line, r.Literal)
}

func (r LogRule) String() string {
	if r.Pattern != nil {
		return r.Action.String() + " /" + r.Pattern.String() + "/"
	}
	return r.Action.String() + " " + fmt.Sprintf("%q", r.Literal)
}

// LogRules is evaluated in declaration order; the first match wins.
type LogRules []LogRule

// Classify returns the first rule matching line.
func (rs LogRules) Classify(line string) (LogRule, bool) {
	for _, r := range rs {
		if r.matches(line) {
			return r, true
		}
	}
	return LogRule{}, false
}

// Default model server log messages.
const (
	DefaultLoadedMessage   = "infer server has started"
	DefaultDownloadMessage = `"message":"Download`
	DefaultErrorMessage    = "Exception: corrupted model file"
)

// DefaultLogRules returns the rules used when none are configured.
func DefaultLogRules() LogRules {
	return LogRules{
		Literal(ActionModelLoaded, DefaultLoadedMessage),
		Literal(ActionInfo, DefaultDownloadMessage),
		Literal(ActionModelError, DefaultErrorMessage),
	}
}
