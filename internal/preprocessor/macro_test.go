package preprocessor

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHideSet(t *testing.T) {
	var s hideSet
	s = s.add(5).add(1).add(3).add(3)
	if diff := cmp.Diff(hideSet{1, 3, 5}, s); diff != "" {
		t.Errorf("add mismatch (-want +got):\n%s", diff)
	}
	if !s.has(3) || s.has(4) {
		t.Error("has")
	}
	if diff := cmp.Diff(hideSet{1, 2, 3, 5, 7}, s.union(hideSet{2, 3, 7})); diff != "" {
		t.Errorf("union mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(hideSet{3, 5}, s.intersect(hideSet{0, 3, 5, 9})); diff != "" {
		t.Errorf("intersect mismatch (-want +got):\n%s", diff)
	}
	if got := s.intersect(nil); len(got) != 0 {
		t.Errorf("intersect with empty set = %v", got)
	}

	// add must not write into a shared backing array.
	base := make(hideSet, 2, 8)
	base[0], base[1] = 1, 9
	a, b := base.add(4), base.add(5)
	if diff := cmp.Diff(hideSet{1, 4, 9}, a); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(hideSet{1, 5, 9}, b); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestNames(t *testing.T) {
	n := newNames()
	a, b := n.id("A"), n.id("B")
	if n.id("A") != a {
		t.Error("ids are not stable")
	}
	var s hideSet
	s = s.add(b).add(a)
	if diff := cmp.Diff([]string{"A", "B"}, n.list(s)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func define(t *testing.T, def string) *Macro {
	t.Helper()
	p := NewPreprocessor(Config{})
	m, err := p.parseDefinition("test.c", def)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestParseDefinition(t *testing.T) {
	tests := []struct {
		def      string
		funcLike bool
		params   []string
		variadic bool
		body     string
	}{
		{"A", false, nil, false, ""},
		{"A 1", false, nil, false, "1"},
		{"A (x)", false, nil, false, "(x)"},
		{"F() x", true, nil, false, "x"},
		{"F(a, b) a   +  b", true, []string{"a", "b"}, false, "a + b"},
		{"F(...) __VA_ARGS__", true, []string{"__VA_ARGS__"}, true, "__VA_ARGS__"},
		{"F(x, ...) x", true, []string{"x", "__VA_ARGS__"}, true, "x"},
		{"F(rest...) rest", true, []string{"rest"}, true, "rest"},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			m := define(t, tt.def)
			if m.FuncLike != tt.funcLike || m.Variadic != tt.variadic {
				t.Errorf("funcLike=%v variadic=%v", m.FuncLike, m.Variadic)
			}
			if diff := cmp.Diff(tt.params, m.Params); diff != "" {
				t.Errorf("params mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.body, spell(m.Body)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBadParseDefinition(t *testing.T) {
	tests := []struct{ def, msg string }{
		{"1", "macro names must be identifiers"},
		{"defined", `"defined" cannot be used as a macro name`},
		{"F(a, a) a", `duplicate macro parameter "a"`},
		{"F(a,", "missing ')' in macro parameter list"},
		{"F(a b) a", "expected ',' or ')' in macro parameter list"},
		{"F(..., a)", `missing ')' after "..."`},
		{"F(__VA_ARGS__) x", "__VA_ARGS__ can only appear in the expansion of a variadic macro"},
		{"F(1) x", `invalid token "1" in macro parameter list`},
		{"A ## b", "'##' cannot appear at either end of a macro expansion"},
		{"A b ##", "'##' cannot appear at either end of a macro expansion"},
		{"F(x) #", "'#' is not followed by a macro parameter"},
	}
	p := NewPreprocessor(Config{})
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			_, err := p.parseDefinition("test.c", tt.def)
			var e *Error
			if !errors.As(err, &e) || e.Kind != SyntaxError {
				t.Fatalf("got %v, want a syntax error", err)
			}
			if diff := cmp.Diff(tt.msg, e.Msg); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMacroTable(t *testing.T) {
	mt := NewMacroTable()
	if err := mt.Define(define(t, "B 2")); err != nil {
		t.Fatal(err)
	}
	if err := mt.Define(define(t, "A 1")); err != nil {
		t.Fatal(err)
	}
	if err := mt.Define(define(t, "A  1")); err != nil {
		t.Errorf("identical redefinition: %v", err)
	}
	if err := mt.Define(define(t, "A 2")); !errors.Is(err, ErrRedefinition) {
		t.Errorf("got %v, want a redefinition error", err)
	}
	if err := mt.Define(define(t, "A(x) 1")); !errors.Is(err, ErrRedefinition) {
		t.Errorf("got %v, want a redefinition error", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, mt.Names()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	mt.Undefine("A")
	mt.Undefine("never defined")
	if mt.IsDefined("A") || mt.Len() != 1 {
		t.Errorf("after #undef: %v", mt.Names())
	}
	if m, ok := mt.Lookup("B"); !ok || spell(m.Body) != "2" {
		t.Errorf("Lookup(B) = %v, %v", m, ok)
	}
}

func TestPredefined(t *testing.T) {
	tests := []struct {
		cfg     Config
		defined []string
		absent  []string
	}{
		{Config{}, []string{"__linux__", "__unix__", "__GNUC__", "__STDC__", "__LINE__"}, []string{"_WIN32", "_MSC_VER", "__clang__"}},
		{Config{Target: Windows, Compiler: MSVC}, []string{"_WIN32", "_WIN64", "_MSC_VER"}, []string{"__linux__", "__GNUC__"}},
		{Config{Target: MacOS, Compiler: Clang}, []string{"__APPLE__", "__MACH__", "__clang__", "__GNUC__"}, []string{"__linux__", "_WIN32"}},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Target.String()+"/"+tt.cfg.Compiler.String(), func(t *testing.T) {
			mt := NewPreprocessor(tt.cfg).Macros()
			for _, name := range tt.defined {
				if !mt.IsDefined(name) {
					t.Errorf("%s not defined", name)
				}
			}
			for _, name := range tt.absent {
				if mt.IsDefined(name) {
					t.Errorf("%s defined", name)
				}
			}
		})
	}
}

func TestSizeofLong(t *testing.T) {
	for _, tt := range []struct {
		target Target
		want   string
	}{{Linux, "8"}, {Windows, "4"}, {MacOS, "8"}} {
		p := NewPreprocessor(Config{Target: tt.target})
		got, err := p.ProcessString("test.c", "__SIZEOF_LONG__")
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("%v: got %s, want %s", tt.target, got, tt.want)
		}
	}
}

func TestIncludeLevel(t *testing.T) {
	p := NewPreprocessor(Config{Resolver: MapResolver{"lvl.h": "__INCLUDE_LEVEL__ __BASE_FILE__ __FILE__\n"}})
	got, err := p.ProcessString("main.c", "__INCLUDE_LEVEL__\n#include \"lvl.h\"\n")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("0\n1 \"main.c\" \"lvl.h\"\n", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
