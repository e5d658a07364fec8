// Package sanitize decides whether a server error message may be shown to
// a user. Messages must read like business language; anything technical,
// unrecognised or overlong is replaced with a fixed default.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxLength is the longest message, in characters, ever shown verbatim.
const MaxLength = 200

// Action is what the user was doing when the error happened.
type Action int

// Actions.
const (
	ActionGeneric Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionFetch
	ActionAuth
)

var defaults = map[Action]string{
	ActionGeneric: "Something went wrong. Please try again.",
	ActionCreate:  "Could not create the record. Please check the data and try again.",
	ActionUpdate:  "Could not save the changes. Please try again.",
	ActionDelete:  "Could not delete the record. Please try again.",
	ActionFetch:   "Could not load the data. Please try again.",
	ActionAuth:    "Could not sign in. Please check your credentials.",
}

// unsafe patterns identify technical detail that must never reach a user.
var unsafe = compile(
	// Stack traces.
	`(?i)traceback \(most recent call last\)`,
	`(?i)\bfile "[^"]+", line \d+`,
	`\bat [\w$.]+\([^)]*\)`,
	`\bgoroutine \d+ \[`,
	`(?i)\bpanic:`,
	`\.(go|py|java|js|ts|rb|php):\d+`,
	// Exception and error class names.
	`\b[A-Z][A-Za-z]+(Exception|Error)\b`,
	`\b(java|javax|org|com|django|sqlalchemy)\.[a-z]+\.`,
	// SQL.
	`(?i)\bselect\b.+\bfrom\b`,
	`(?i)\binsert\s+into\b`,
	`(?i)\bupdate\b.+\bset\b`,
	`(?i)\bdelete\s+from\b`,
	`(?i)\b(constraint failed|foreign key constraint|unique constraint|syntax error at or near|duplicate key value)\b`,
	`(?i)\b(sqlite|postgres|postgresql|psycopg2?|mysql|sql:)`,
	// Driver, network and runtime internals.
	`(?i)\b(dial tcp|connection refused|econnrefused|broken pipe|i/o timeout|no such host|errno)\b`,
	`(?i)\bnil pointer\b`,
	`0x[0-9a-fA-F]{4,}`,
)

// safe patterns describe messages written for people.
var safe = compile(
	`(?i)\bnot found\b`,
	`(?i)\balready (exists|registered|taken|open|closed|voided|received|cancelled)\b`,
	`(?i)\b(is|are) required\b`,
	`(?i)\brequired\b`,
	`(?i)\binvalid (credentials|username or password|password|email|barcode|quantity|amount|date|status|role|color|colour)\b`,
	`(?i)\bincorrect\b`,
	`(?i)\binsufficient (stock|payment|quantity|funds)\b`,
	`(?i)\bout of stock\b`,
	`(?i)\bplan limit reached\b`,
	`(?i)\b(permission|not allowed|not permitted|forbidden)\b`,
	`(?i)\b(must|cannot|can't|should) (be|have|contain|exceed|include)\b`,
	`(?i)\bno open shift\b`,
	`(?i)\bshift\b.*\b(open|closed)\b`,
	`(?i)\bsession (has )?expired\b`,
	`(?i)\btoo many (login )?attempts\b`,
	`(?i)\bpassword\b`,
	`(?i)\bsuspended\b`,
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func matchAny(list []*regexp.Regexp, s string) bool {
	for _, re := range list {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsSafe reports whether msg may be shown verbatim. The deny list always
// wins over the allow list.
func IsSafe(msg string) bool {
	msg = strings.TrimSpace(msg)
	if msg == "" || utf8.RuneCountInString(msg) > MaxLength {
		return false
	}
	if matchAny(unsafe, msg) {
		return false
	}
	return matchAny(safe, msg)
}

// Message returns msg when it is safe, otherwise the default for a.
func Message(msg string, a Action) string {
	if IsSafe(msg) {
		return strings.TrimSpace(msg)
	}
	return Default(a)
}

// Default returns the fixed fallback message for a.
func Default(a Action) string {
	if m, ok := defaults[a]; ok {
		return m
	}
	return defaults[ActionGeneric]
}
