// Package literal recognizes the atomic literal tokens of IEC 61131-3
// Structured Text and reports their type family.
package literal

import (
	"regexp"
	"strings"
)

// Kind is the type family of a recognized literal
type Kind int

const (
	None Kind = iota
	Bool
	Int
	Real
	String
	Time
	Date
	TimeOfDay
	DateAndTime
)

var kindNames = [...]string{
	None:        "",
	Bool:        "BOOL",
	Int:         "INT",
	Real:        "REAL",
	String:      "STRING",
	Time:        "TIME",
	Date:        "DATE",
	TimeOfDay:   "TIME_OF_DAY",
	DateAndTime: "DATE_AND_TIME",
}

// String returns the elementary type name of the literal family
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return ""
	}
	return kindNames[k]
}

// IsTemporal reports whether k is one of the four date/time families
func (k Kind) IsTemporal() bool {
	return k == Time || k == Date || k == TimeOfDay || k == DateAndTime
}

var (
	reBool  = regexp.MustCompile(`^(?i:TRUE|FALSE)$`)
	reInt   = regexp.MustCompile(`^[+-]?\d+$`)
	reBased = regexp.MustCompile(`^(?:2#[01][01_]*|8#[0-7][0-7_]*|10#\d[\d_]*|16#[0-9A-Fa-f][0-9A-Fa-f_]*)$`)
	reReal  = regexp.MustCompile(`^[+-]?(?:\d+\.\d*|\d*\.\d+)(?:[eE][+-]?\d+)?$`)
	reStr   = regexp.MustCompile(`^(?:"[^"\\]*(?:\\.[^"\\]*)*"|'[^'\\]*(?:\\.[^'\\]*)*')$`)
	reTime  = regexp.MustCompile(`^(?i)(?:T|TIME)#[+-]?(\d+D)?(\d+H)?(\d+M)?(\d+S)?(\d+MS)?$`)
	reDate  = regexp.MustCompile(`^(?i)(?:D|DATE)#\d{4}-\d{2}-\d{2}$`)
	reTOD   = regexp.MustCompile(`^(?i)(?:TOD|TIME_OF_DAY)#(?:[01]?\d|2[0-3]):[0-5]\d:[0-5]\d(?:\.\d{1,3})?$`)
	reDT    = regexp.MustCompile(`^(?i)(?:DT|DATE_AND_TIME)#\d{4}-\d{2}-\d{2}-(?:[01]\d|2[0-3]):[0-5]\d:[0-5]\d(?:\.\d{1,3})?$`)
	reIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	rePath  = regexp.MustCompile(`^[A-Za-z_]\w*(?:[.\[][\w\].]+)*$`)
)

// Classify returns the literal family of tok, or None when tok is not a literal.
// Surrounding whitespace is ignored.
func Classify(tok string) Kind {
	s := strings.TrimSpace(tok)
	switch {
	case s == "":
		return None
	case reBool.MatchString(s):
		return Bool
	case reInt.MatchString(s), reBased.MatchString(s):
		return Int
	case reReal.MatchString(s):
		return Real
	case reStr.MatchString(s):
		return String
	case isTime(s):
		return Time
	case reDate.MatchString(s):
		return Date
	case reTOD.MatchString(s):
		return TimeOfDay
	case reDT.MatchString(s):
		return DateAndTime
	}
	return None
}

// isTime requires at least one duration component after the prefix
func isTime(s string) bool {
	m := reTime.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	for _, c := range m[1:] {
		if c != "" {
			return true
		}
	}
	return false
}

var temporalPrefixes = []string{"TIME_OF_DAY#", "DATE_AND_TIME#", "TIME#", "DATE#", "TOD#", "DT#", "T#", "D#"}

// HasTemporalPrefix reports whether s starts with one of the IEC date/time
// literal prefixes, regardless of what follows.
func HasTemporalPrefix(s string) bool {
	u := strings.ToUpper(s)
	for _, p := range temporalPrefixes {
		if strings.HasPrefix(u, p) {
			return true
		}
	}
	return false
}

// IsTemporalPrefix reports whether word, without the '#', names a date/time literal prefix
func IsTemporalPrefix(word string) bool {
	switch strings.ToUpper(word) {
	case "T", "TIME", "D", "DATE", "TOD", "TIME_OF_DAY", "DT", "DATE_AND_TIME":
		return true
	}
	return false
}

// IsIdent reports whether s is a bare identifier
func IsIdent(s string) bool { return reIdent.MatchString(s) }

// IsAccessPath reports whether s is an identifier followed by member or
// constant index accessors, such as Motor.Speed or Data[3].Value
func IsAccessPath(s string) bool { return rePath.MatchString(s) }
