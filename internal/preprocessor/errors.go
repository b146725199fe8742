package preprocessor

import (
	"fmt"
	"strings"

	"modernc.org/mathutil"
	"modernc.org/token"
)

// ErrorKind classifies a preprocessing failure.
type ErrorKind int

const (
	_ ErrorKind = iota
	SyntaxError
	UnknownDirective
	MacroRedefinitionConflict
	ArgumentCountMismatch
	InvalidPaste
	MissingInclude
	RecursionLimitExceeded
	UnterminatedConditional
	UnmatchedEndif
	DuplicateElse
	ElifAfterElse
	DivisionByZero
	UserError
	IoError
)

var kindNames = [...]string{
	SyntaxError:               "syntax error",
	UnknownDirective:          "unknown directive",
	MacroRedefinitionConflict: "macro redefinition",
	ArgumentCountMismatch:     "macro arg mismatch",
	InvalidPaste:              "invalid paste",
	MissingInclude:            "include not found",
	RecursionLimitExceeded:    "recursion limit",
	UnterminatedConditional:   "conditional error",
	UnmatchedEndif:            "conditional error",
	DuplicateElse:             "conditional error",
	ElifAfterElse:             "conditional error",
	DivisionByZero:            "division by zero",
	UserError:                 "#error",
	IoError:                   "i/o error",
}

func (k ErrorKind) String() string {
	if k > 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is returned for every failed run. Pos is the position of the
// offending token; Source holds its physical line when it is known.
type Error struct {
	Kind   ErrorKind
	Pos    token.Position
	Msg    string
	Source string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors that only carry a kind, so that
// errors.Is(err, ErrMissingInclude) works on positioned errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && !t.Pos.IsValid() && t.Kind == e.Kind
}

// Pretty renders the error followed by the offending source line and a
// caret under the column.
func (e *Error) Pretty() string {
	var sb strings.Builder
	sb.WriteString(e.Error())
	sb.WriteByte('\n')
	if e.Source == "" || !e.Pos.IsValid() {
		return sb.String()
	}
	prefix := fmt.Sprintf("%4d | ", e.Pos.Line)
	sb.WriteString(prefix)
	sb.WriteString(strings.TrimRight(e.Source, "\r\n"))
	sb.WriteByte('\n')
	col := mathutil.Clamp(e.Pos.Column-1, 0, len(e.Source))
	sb.WriteString(strings.Repeat(" ", len(prefix)+col))
	sb.WriteString("^\n")
	return sb.String()
}

var (
	ErrSyntax           = &Error{Kind: SyntaxError}
	ErrUnknownDirective = &Error{Kind: UnknownDirective}
	ErrRedefinition     = &Error{Kind: MacroRedefinitionConflict}
	ErrArgumentCount    = &Error{Kind: ArgumentCountMismatch}
	ErrInvalidPaste     = &Error{Kind: InvalidPaste}
	ErrMissingInclude   = &Error{Kind: MissingInclude}
	ErrRecursionLimit   = &Error{Kind: RecursionLimitExceeded}
	ErrUnterminatedCond = &Error{Kind: UnterminatedConditional}
	ErrUnmatchedEndif   = &Error{Kind: UnmatchedEndif}
	ErrDuplicateElse    = &Error{Kind: DuplicateElse}
	ErrElifAfterElse    = &Error{Kind: ElifAfterElse}
	ErrDivisionByZero   = &Error{Kind: DivisionByZero}
	ErrUser             = &Error{Kind: UserError}
	ErrIO               = &Error{Kind: IoError}
)

func errorf(kind ErrorKind, tok Token, format string, args ...any) *Error {
	return &Error{Kind: kind, Pos: tok.Position(), Msg: fmt.Sprintf(format, args...)}
}

// ---------------- Diagnostics ----------------

type Severity int

const (
	Warning Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "error"
	}
	return "warning"
}

// Diagnostic is one entry of the ordered list a run accumulates.
type Diagnostic struct {
	Severity Severity
	Pos      token.Position
	Msg      string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Msg)
}
