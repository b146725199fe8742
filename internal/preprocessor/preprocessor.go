package preprocessor

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"time"

	"modernc.org/token"
)

// ---------------- Preprocessor ----------------

// Preprocessor is one engine. It is not safe for concurrent use; run
// independent engines instead.
type Preprocessor struct {
	cfg      Config
	limit    int
	resolver IncludeResolver
	macros   *MacroTable
	names    names

	files   []*fileState
	once    map[string]bool
	diags   []Diagnostic
	counter int
	now     time.Time
}

func NewPreprocessor(cfg Config) *Preprocessor {
	p := &Preprocessor{cfg: cfg, limit: cfg.RecursionLimit, resolver: cfg.Resolver}
	if p.limit <= 0 {
		p.limit = DefaultRecursionLimit
	}
	p.Reset()
	return p
}

// Reset discards all definitions and seeds the predefined macros again.
func (p *Preprocessor) Reset() {
	p.macros = NewMacroTable()
	p.names = newNames()
	p.counter = 0
	p.seed()
	p.logf("%d predefined macros for %s/%s", p.macros.Len(), p.cfg.Target, p.cfg.Compiler)
}

func (p *Preprocessor) Macros() *MacroTable { return p.macros }

func (p *Preprocessor) SetResolver(r IncludeResolver) { p.resolver = r }

func (p *Preprocessor) SetWarningFunc(fn func(msg string, pos token.Position)) {
	p.cfg.WarningFunc = fn
}

// Diagnostics returns the warnings of the last run, followed by its error
// if it failed.
func (p *Preprocessor) Diagnostics() []Diagnostic { return p.diags }

// Define defines name as body, as if by "#define name body". name may
// carry a parameter list: Define("MAX(a,b)", "((a)>(b)?(a):(b))").
func (p *Preprocessor) Define(name, body string) error {
	m, err := p.parseDefinition("<command line>", name+" "+body)
	if err != nil {
		return err
	}
	return p.macros.Define(m)
}

func (p *Preprocessor) Undefine(name string) {
	p.macros.Undefine(name)
}

// Process preprocesses file content and writes expanded output. Nothing
// is written when an error occurs.
func (p *Preprocessor) Process(filename string, r io.Reader, w io.Writer) error {
	src, err := io.ReadAll(r)
	if err != nil {
		return &Error{Kind: IoError, Pos: token.Position{Filename: filename}, Msg: err.Error(), Err: err}
	}
	if filename == "" {
		filename = DefaultFileName
	}
	p.diags = nil
	p.files = nil
	p.once = map[string]bool{}
	p.now = time.Now()
	if p.cfg.Now != nil {
		p.now = p.cfg.Now()
	}

	var out bytes.Buffer
	if err := p.processFile(filename, string(src), &out); err != nil {
		var e *Error
		if errors.As(err, &e) {
			p.diags = append(p.diags, Diagnostic{Severity: Fatal, Pos: e.Pos, Msg: e.Msg})
		}
		return err
	}
	_, err = w.Write(out.Bytes())
	return err
}

// ProcessString is Process for in-memory text.
func (p *Preprocessor) ProcessString(filename, src string) (string, error) {
	var sb strings.Builder
	if err := p.Process(filename, strings.NewReader(src), &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// fileState is one file being processed. Each file has its own
// conditional stack; the macro table is shared.
type fileState struct {
	name string
	src  string
	tf   *token.File
	toks []Token
	i    int
	cond *condStack
	out  *output
}

func (p *Preprocessor) processFile(name, src string, buf *bytes.Buffer) (err error) {
	toks, tf, err := tokenize(name, src)
	f := &fileState{name: name, src: src, tf: tf, toks: toks, cond: newCondStack(), out: &output{buf: buf}}
	defer func() { annotate(err, f) }()
	if err != nil {
		return err
	}
	p.files = append(p.files, f)
	defer func() { p.files = p.files[:len(p.files)-1] }()

	for {
		line, ok := f.nextLine()
		if !ok {
			break
		}
		if isDirective(line) {
			if err := p.handleDirective(f, line); err != nil {
				return err
			}
			continue
		}
		if !f.cond.Active() {
			f.endLine(line)
			continue
		}
		e := p.newExpander(line)
		e.more = f.moreText
		e.pragma = p.pragmaOperator(f)
		expanded, err := e.expand()
		if err != nil {
			return err
		}
		f.out.write(expanded)
	}

	if open, ok := f.cond.Unclosed(); ok {
		return errorf(UnterminatedConditional, open, "unterminated #%s", open.Text)
	}
	return nil
}

// annotate attaches the offending source line to errors raised in f.
func annotate(err error, f *fileState) {
	var e *Error
	if !errors.As(err, &e) || e.Source != "" || !e.Pos.IsValid() {
		return
	}
	if f.tf == nil || e.Pos.Offset > len(f.src) || f.tf.Position(f.tf.Pos(e.Pos.Offset)) != e.Pos {
		return
	}
	start := strings.LastIndexByte(f.src[:e.Pos.Offset], '\n') + 1
	end := strings.IndexByte(f.src[start:], '\n')
	if end < 0 {
		end = len(f.src) - start
	}
	e.Source = f.src[start : start+end]
}

func (f *fileState) nextLine() ([]Token, bool) {
	if f.i >= len(f.toks) {
		return nil, false
	}
	j := f.i
	for j < len(f.toks) && f.toks[j].Kind != Newline {
		j++
	}
	if j < len(f.toks) {
		j++
	}
	line := f.toks[f.i:j]
	f.i = j
	return line, true
}

// moreText hands the next line to an argument list that continues past
// the end of a line. Directive lines end the search.
func (f *fileState) moreText() ([]Token, bool) {
	save := f.i
	line, ok := f.nextLine()
	if !ok || isDirective(line) {
		f.i = save
		return nil, false
	}
	return line, true
}

// endLine emits the newline of a line that produced no text.
func (f *fileState) endLine(line []Token) {
	if n := len(line); n > 0 && line[n-1].Kind == Newline {
		f.out.newline(line[n-1].rawLine())
	}
}

// ---------------- Output ----------------

// output writes one file's text. Output line N holds input line N as
// long as the file includes nothing: newlines are padded up to the
// physical line of every newline token.
type output struct {
	buf     *bytes.Buffer
	written int
}

func (o *output) text(s string) {
	o.buf.WriteString(s)
	o.written += strings.Count(s, "\n")
}

func (o *output) newline(line int) {
	n := line - o.written
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		o.buf.WriteByte('\n')
	}
	o.written += n
}

// skip marks the line of a directive whose replacement already ended
// with a newline.
func (o *output) skip(line []Token) {
	if n := len(line); n > 0 && line[n-1].Kind == Newline {
		if l := line[n-1].rawLine(); l > o.written {
			o.written = l
		}
	}
}

func (o *output) write(toks []Token) {
	for _, t := range toks {
		if t.Kind == Newline {
			o.newline(t.rawLine())
			continue
		}
		o.text(t.Text)
	}
}

func (p *Preprocessor) warn(at Token, msg string) {
	pos := at.Position()
	p.diags = append(p.diags, Diagnostic{Severity: Warning, Pos: pos, Msg: msg})
	if p.cfg.WarningFunc != nil {
		p.cfg.WarningFunc(msg, pos)
	}
}

func (p *Preprocessor) logf(format string, args ...any) {
	if p.cfg.Logger != nil {
		p.cfg.Logger.Printf(format, args...)
	}
}
