// Package classify decides whether a candidate shell command may run.
//
// The classifier is a pure function of a fixed, ordered rule table and the
// input string. Rules are tested in order and the first match wins. The policy
// is default-allow: a command that matches no rule is approved. Absence of a
// match is absence of a known danger signature, not proof of safety.
package classify

import "strings"

// Outcome is the classification decision.
type Outcome int

const (
	Approved Outcome = iota // command may be executed
	Blocked                 // command must not be executed
)

func (o Outcome) String() string {
	switch o {
	case Approved:
		return "approved"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// BlockReason names the category of danger a blocking rule detects.
type BlockReason string

const (
	DestructivePath      BlockReason = "destructive-path"
	FilesystemFormat     BlockReason = "filesystem-format"
	PrivilegedInvocation BlockReason = "privileged-invocation"
	SystemPowerControl   BlockReason = "system-power-control"
	ForkBomb             BlockReason = "fork-bomb"
	CriticalPathMutation BlockReason = "critical-path-mutation"
)

// Verdict is the result of classifying one command string.
// Reason and Rule are empty when the command is approved.
type Verdict struct {
	Outcome Outcome
	Reason  BlockReason
	Rule    string // ID of the matched rule
}

// Classifier evaluates command strings against an immutable rule table.
// The table is fixed at construction; Classify performs no I/O and never fails.
type Classifier struct {
	rules []Rule
}

// New creates a Classifier over the given ordered rules. The slice is not
// copied; callers must not mutate it after construction.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify evaluates text and returns the verdict. Empty or whitespace-only
// input normalizes to the empty string and is approved; the pipeline treats it
// as a no-op rather than running the shell.
func (c *Classifier) Classify(text string) Verdict {
	norm := Normalize(text)
	if norm == "" {
		return Verdict{Outcome: Approved}
	}
	for _, r := range c.rules {
		if r.Pattern.MatchString(norm) {
			return Verdict{Outcome: Blocked, Reason: r.Reason, Rule: r.ID}
		}
	}
	return Verdict{Outcome: Approved}
}

// Normalize trims the input and collapses internal runs of whitespace to a
// single space. Rules match against the normalized form.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
