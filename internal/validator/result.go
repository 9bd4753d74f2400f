package validator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNilInput is returned when a validator is called without its input.
var ErrNilInput = errors.New("validator: nil input")

// Severity ranks an issue.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Issue is one finding. Subject identifies what it is about, usually a node
// or element id.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Subject  string   `json:"subject,omitempty"`
}

func (i Issue) String() string {
	if i.Subject == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", i.Severity, i.Message, i.Subject)
}

// Result accumulates issues as a set: reporting the same issue twice keeps
// one copy. Insertion order is preserved.
type Result struct {
	issues []Issue
	seen   map[Issue]struct{}
}

// NewResult creates an empty result.
func NewResult() *Result {
	return &Result{seen: make(map[Issue]struct{})}
}

// Add records issue.
func (r *Result) Add(issue Issue) *Result {
	if _, ok := r.seen[issue]; ok {
		return r
	}
	r.seen[issue] = struct{}{}
	r.issues = append(r.issues, issue)
	return r
}

// AddError records an error-severity issue.
func (r *Result) AddError(message, subject string) *Result {
	return r.Add(Issue{Severity: SeverityError, Message: message, Subject: subject})
}

// AddErrorIf records an error when cond holds.
func (r *Result) AddErrorIf(cond bool, message, subject string) *Result {
	if cond {
		r.AddError(message, subject)
	}
	return r
}

// AddWarning records a warning.
func (r *Result) AddWarning(message, subject string) *Result {
	return r.Add(Issue{Severity: SeverityWarning, Message: message, Subject: subject})
}

// Merge adds every issue of other.
func (r *Result) Merge(other *Result) *Result {
	for _, issue := range other.issues {
		r.Add(issue)
	}
	return r
}

// Issues returns the recorded issues in insertion order.
func (r *Result) Issues() []Issue {
	out := make([]Issue, len(r.issues))
	copy(out, r.issues)
	return out
}

// Len returns the number of distinct issues.
func (r *Result) Len() int {
	return len(r.issues)
}

// IsSuccessful reports whether no error-severity issue was recorded.
func (r *Result) IsSuccessful() bool {
	for _, issue := range r.issues {
		if issue.Severity == SeverityError {
			return false
		}
	}
	return true
}

// HasMessage reports whether some issue's message contains substr.
func (r *Result) HasMessage(substr string) bool {
	for _, issue := range r.issues {
		if strings.Contains(issue.Message, substr) {
			return true
		}
	}
	return false
}

// Err joins the error-severity issues into one error, or returns nil.
func (r *Result) Err() error {
	var errs []error
	for _, issue := range r.issues {
		if issue.Severity == SeverityError {
			errs = append(errs, errors.New(issue.String()))
		}
	}
	return errors.Join(errs...)
}

func (r *Result) String() string {
	var b strings.Builder
	for _, issue := range r.issues {
		b.WriteString(issue.String())
		b.WriteByte('\n')
	}
	return b.String()
}
