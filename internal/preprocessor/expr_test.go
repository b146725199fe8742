package preprocessor

import (
	"errors"
	"testing"
)

func eval(t *testing.T, p *Preprocessor, expr string) (bool, error) {
	t.Helper()
	toks, err := lexText("test.c", expr)
	if err != nil {
		t.Fatal(err)
	}
	return p.evalCondition(Token{Kind: Ident, Text: "if"}, toks)
}

func TestEvalCondition(t *testing.T) {
	p := NewPreprocessor(Config{Resolver: testHeaders})
	if err := p.Define("TWO", "2"); err != nil {
		t.Fatal(err)
	}
	if err := p.Define("EMPTY", ""); err != nil {
		t.Fatal(err)
	}
	if err := p.Define("HAS_TWO", "defined(TWO)"); err != nil {
		t.Fatal(err)
	}
	if err := p.Define("HAS_NOPE", "defined NOPE"); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		expr string
		want bool
	}{
		{"1", true},
		{"0", false},
		{"1 + 2 * 3 == 7", true},
		{"(1 + 2) * 3 == 9", true},
		{"10 / 3 == 3 && 10 % 3 == 1", true},
		{"-1 < 0", true},
		{"~0 == -1", true},
		{"!5", false},
		{"1 << 4 == 16", true},
		{"256 >> 4 == 16", true},
		{"(6 & 3) == 2 && (6 | 1) == 7 && (6 ^ 3) == 5", true},
		{"1 ? 2 : 0", true},
		{"0 ? 1 : 0", false},
		{"0 ? 1/0 : 3", true},
		{"1 || 1/0", true},
		{"(1, 0)", false},
		{"0x10 == 16", true},
		{"010 == 8", true},
		{"0b101 == 5", true},
		{"10UL == 10", true},
		{"'A' == 65", true},
		{`'\n' == 10`, true},
		{`'\0' == 0`, true},
		{`'\x41' == 65`, true},
		{"'ab' == 24930", true},
		{"TWO * TWO == 4", true},
		{"UNDEFINED", false},
		{"UNDEFINED == 0", true},
		{"defined TWO", true},
		{"defined(TWO) && !defined(NOPE)", true},
		{"defined EMPTY", true},
		{"__has_include(\"config.h\")", true},
		{"__has_include(<nope.h>)", false},
		{"__STDC_VERSION__ >= 201112L", true},
		{"true", false},
		{"HAS_TWO", true},
		{"HAS_NOPE", false},
		{"HAS_TWO && !HAS_NOPE", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := eval(t, p, tt.expr)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvalConditionErrors(t *testing.T) {
	p := NewPreprocessor(Config{})
	tests := []struct {
		expr string
		err  error
		msg  string
	}{
		{"1 / 0", ErrDivisionByZero, "division by zero in #if"},
		{"1 % 0", ErrDivisionByZero, "division by zero in #if"},
		{"1 && 2 / 0", ErrDivisionByZero, "division by zero in #if"},
		{"", ErrSyntax, "#if with no expression"},
		{"1 2", ErrSyntax, `missing binary operator before token "2"`},
		{"(1", ErrSyntax, "missing ')' in expression"},
		{"1 ? 2", ErrSyntax, "expected ':' in conditional expression"},
		{"1.5", ErrSyntax, "floating constant in preprocessor expression"},
		{"defined", ErrSyntax, `operator "defined" requires an identifier`},
		{"defined(X", ErrSyntax, `missing ')' after "defined"`},
		{`"str"`, ErrSyntax, `token "\"str\"" is not valid in preprocessor expressions`},
		{"1 +", ErrSyntax, "#if expression ends unexpectedly"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := eval(t, p, tt.expr)
			if !errors.Is(err, tt.err) {
				t.Fatalf("got %v, want %v", err, tt.err)
			}
			var e *Error
			if errors.As(err, &e) && e.Msg != tt.msg {
				t.Errorf("message: got %q, want %q", e.Msg, tt.msg)
			}
		})
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		text string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"0x7fffffffffffffff", 1<<63 - 1},
		{"0xffffffffffffffff", -1},
		{"077", 63},
		{"0B11", 3},
		{"1'000", 1000},
		{"5llu", 5},
	}
	for _, tt := range tests {
		got, err := parseInteger(Token{Kind: Number, Text: tt.text})
		if err != nil {
			t.Errorf("%s: %v", tt.text, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%s: got %d, want %d", tt.text, got, tt.want)
		}
	}
}
