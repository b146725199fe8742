package preprocessor

import (
	"bytes"
	"fmt"
	"strings"
)

// ---------------- Includes ----------------

// IncludeKind tells the resolver which search order applies.
type IncludeKind int

const (
	IncludeQuote IncludeKind = iota // #include "path"
	IncludeAngle                    // #include <path>
)

func (k IncludeKind) String() string {
	if k == IncludeAngle {
		return "angle"
	}
	return "quote"
}

// IncludeRequest describes one #include to resolve. Chain lists the
// files being processed, outermost first; From is its last element.
type IncludeRequest struct {
	Path  string
	Kind  IncludeKind
	From  string
	Chain []string
}

// Source is the text of a resolved include. Name identifies the file in
// positions, __FILE__ and #pragma once bookkeeping.
type Source struct {
	Name string
	Text string
}

// IncludeResolver maps an include request to source text. found is false
// when no file matches; err reports a failure to read one that does.
type IncludeResolver interface {
	Resolve(req IncludeRequest) (src Source, found bool, err error)
}

type ResolverFunc func(req IncludeRequest) (Source, bool, error)

func (f ResolverFunc) Resolve(req IncludeRequest) (Source, bool, error) { return f(req) }

// MapResolver serves includes from memory, keyed by the path as written.
type MapResolver map[string]string

func (m MapResolver) Resolve(req IncludeRequest) (Source, bool, error) {
	text, ok := m[req.Path]
	return Source{Name: req.Path, Text: text}, ok, nil
}

// includeOperand parses "path" or <path>.
func includeOperand(directive Token, toks []Token) (string, IncludeKind, error) {
	toks = trimSpace(toks)
	switch {
	case len(toks) == 1 && toks[0].Kind == String && strings.HasPrefix(toks[0].Text, `"`) && len(toks[0].Text) >= 2:
		s := toks[0].Text
		if s[len(s)-1] == '"' {
			return s[1 : len(s)-1], IncludeQuote, nil
		}
	case len(toks) >= 2 && toks[0].is("<") && toks[len(toks)-1].is(">"):
		return spell(toks[1 : len(toks)-1]), IncludeAngle, nil
	}
	return "", 0, errorf(SyntaxError, directive, "#%s expects \"FILENAME\" or <FILENAME>", directive.Text)
}

func (p *Preprocessor) request(path string, kind IncludeKind) IncludeRequest {
	req := IncludeRequest{Path: path, Kind: kind}
	for _, f := range p.files {
		req.Chain = append(req.Chain, f.name)
	}
	if n := len(req.Chain); n > 0 {
		req.From = req.Chain[n-1]
	}
	return req
}

func (p *Preprocessor) canInclude(at Token, path string, kind IncludeKind) (bool, error) {
	if p.resolver == nil {
		return false, nil
	}
	_, found, err := p.resolver.Resolve(p.request(path, kind))
	if err != nil {
		return false, &Error{Kind: IoError, Pos: at.Position(), Msg: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	return found, nil
}

// includeDirective handles #include. It reports whether the included
// text replaced the directive line including its newline.
func (p *Preprocessor) includeDirective(f *fileState, name Token, args []Token) (bool, error) {
	path, kind, err := includeOperand(name, args)
	if err != nil {
		expanded, xerr := p.expandTokens(args)
		if xerr != nil {
			return false, xerr
		}
		if path, kind, err = includeOperand(name, expanded); err != nil {
			return false, err
		}
	}
	if len(p.files) > p.limit {
		return false, errorf(RecursionLimitExceeded, name, "#include nested deeper than %d: %s -> %s",
			p.limit, strings.Join(p.request(path, kind).Chain, " -> "), path)
	}
	if p.resolver == nil {
		return false, errorf(MissingInclude, name, "%s (no include resolver configured)", path)
	}
	src, found, err := p.resolver.Resolve(p.request(path, kind))
	if err != nil {
		return false, &Error{Kind: IoError, Pos: name.Position(), Msg: fmt.Sprintf("%s: %v", path, err), Err: err}
	}
	if !found {
		return false, errorf(MissingInclude, name, "%s", path)
	}
	if p.once[src.Name] {
		return false, nil
	}
	p.logf("include %s (%s, depth %d)", src.Name, kind, len(p.files))
	start := f.out.buf.Len()
	if err := p.processFile(src.Name, src.Text, f.out.buf); err != nil {
		return false, err
	}
	b := f.out.buf.Bytes()[start:]
	return len(b) > 0 && bytes.HasSuffix(b, []byte{'\n'}), nil
}
