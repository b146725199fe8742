package preprocessor

import (
	"sort"

	"modernc.org/strutil"
)

// ---------------- Hide sets ----------------

// hideSet is a sorted set of interned macro names. A hideSet is never
// modified after creation; all tokens of one substitution share the
// same backing array.
type hideSet []int

func (s hideSet) has(id int) bool {
	i := sort.SearchInts(s, id)
	return i < len(s) && s[i] == id
}

func (s hideSet) add(id int) hideSet {
	i := sort.SearchInts(s, id)
	if i < len(s) && s[i] == id {
		return s
	}
	r := make(hideSet, 0, len(s)+1)
	r = append(r, s[:i]...)
	r = append(r, id)
	return append(r, s[i:]...)
}

func (s hideSet) union(t hideSet) hideSet {
	switch {
	case len(t) == 0:
		return s
	case len(s) == 0:
		return t
	}
	r := make(hideSet, 0, len(s)+len(t))
	i, j := 0, 0
	for i < len(s) && j < len(t) {
		switch {
		case s[i] < t[j]:
			r = append(r, s[i])
			i++
		case s[i] > t[j]:
			r = append(r, t[j])
			j++
		default:
			r = append(r, s[i])
			i++
			j++
		}
	}
	r = append(r, s[i:]...)
	return append(r, t[j:]...)
}

func (s hideSet) intersect(t hideSet) hideSet {
	if len(s) == 0 || len(t) == 0 {
		return nil
	}
	var r hideSet
	i, j := 0, 0
	for i < len(s) && j < len(t) {
		switch {
		case s[i] < t[j]:
			i++
		case s[i] > t[j]:
			j++
		default:
			r = append(r, s[i])
			i++
			j++
		}
	}
	if len(r) == len(s) {
		return s
	}
	return r
}

// names interns macro names for hide sets. One instance lives for one run.
type names struct {
	dict *strutil.Dict
}

func newNames() names { return names{strutil.NewDict()} }

func (n names) id(s string) int { return n.dict.Id(s) }

func (n names) list(s hideSet) []string {
	r := make([]string, 0, len(s))
	for _, id := range s {
		if name, ok := n.dict.S(id); ok {
			r = append(r, name)
		}
	}
	return r
}

// paint returns toks with hs merged into each hide set.
func paint(toks []Token, hs hideSet) []Token {
	if len(hs) == 0 {
		return toks
	}
	r := make([]Token, len(toks))
	for i, t := range toks {
		t.hs = t.hs.union(hs)
		r[i] = t
	}
	return r
}
