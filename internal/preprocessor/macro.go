package preprocessor

import (
	"sort"

	"modernc.org/token"
)

// ---------------- Macros ----------------

// Macro is one macro definition. For a variadic macro the last entry of
// Params names the variadic parameter (__VA_ARGS__ unless GNU named
// variadics are used).
type Macro struct {
	Name     string
	FuncLike bool
	Params   []string
	Variadic bool
	Body     []Token
	Builtin  bool
	Pos      token.Position

	// dynamic macros compute their replacement at the point of use.
	dynamic func(p *Preprocessor, at Token) Token
}

func (m *Macro) param(name string) int {
	if !m.FuncLike {
		return -1
	}
	for i, p := range m.Params {
		if p == name {
			return i
		}
	}
	return -1
}

// same reports whether m and o are identical definitions; redefining a
// macro identically is allowed.
func (m *Macro) same(o *Macro) bool {
	if m.FuncLike != o.FuncLike || m.Variadic != o.Variadic || len(m.Params) != len(o.Params) {
		return false
	}
	for i := range m.Params {
		if m.Params[i] != o.Params[i] {
			return false
		}
	}
	return sameTokens(m.Body, o.Body)
}

// MacroTable maps macro names to their single current definition.
type MacroTable struct {
	m map[string]*Macro
}

func NewMacroTable() *MacroTable {
	return &MacroTable{m: map[string]*Macro{}}
}

// Define adds m. Redefining a name with a different definition is a
// conflict unless the previous definition is predefined.
func (t *MacroTable) Define(m *Macro) error {
	if prev, ok := t.m[m.Name]; ok && !prev.Builtin && !prev.same(m) {
		return &Error{
			Kind: MacroRedefinitionConflict,
			Pos:  m.Pos,
			Msg:  "\"" + m.Name + "\" redefined (previous definition at " + prev.Pos.String() + ")",
		}
	}
	t.m[m.Name] = m
	return nil
}

func (t *MacroTable) Undefine(name string) {
	delete(t.m, name)
}

func (t *MacroTable) Lookup(name string) (*Macro, bool) {
	m, ok := t.m[name]
	return m, ok
}

func (t *MacroTable) IsDefined(name string) bool {
	_, ok := t.m[name]
	return ok
}

func (t *MacroTable) Len() int { return len(t.m) }

// Names returns the defined names in sorted order.
func (t *MacroTable) Names() []string {
	r := make([]string, 0, len(t.m))
	for name := range t.m {
		r = append(r, name)
	}
	sort.Strings(r)
	return r
}
