package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/fatih/color"
	"github.com/fwessels/includium"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK = iota
	exitFailure
	exitIO
	exitPreprocess
	exitUsage
)

const stdinName = "<stdin>"

type options struct {
	output         string
	target         string
	compiler       string
	includeDirs    []string
	systemDirs     []string
	defines        []string
	undefines      []string
	recursionLimit int
	json           bool
	plain          bool
	verbose        bool
	quiet          bool
	warnings       bool
	dryRun         bool
	noColor        bool
	forceColor     bool
	inputs         []string
}

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fl := pflag.NewFlagSet("includium", pflag.ContinueOnError)
	fl.SetOutput(stderr)
	fl.Usage = func() {
		fmt.Fprintln(stderr, "Usage: includium [flags] [file ...]")
		fmt.Fprintln(stderr, "Reads standard input when no file (or \"-\") is given.")
		fl.PrintDefaults()
	}
	fl.StringVarP(&o.output, "output", "o", "-", "write output to `file`")
	fl.StringVarP(&o.target, "target", "t", "linux", "target platform: linux, windows, mac-os")
	fl.StringVarP(&o.compiler, "compiler", "c", "gcc", "compiler to emulate: gcc, clang, msvc")
	fl.StringArrayVarP(&o.includeDirs, "include", "I", nil, "add `dir` to the search path of #include \"...\"")
	fl.StringArrayVar(&o.systemDirs, "isystem", nil, "add `dir` to the system search path, used by both include forms")
	fl.StringArrayVarP(&o.defines, "define", "D", nil, "define `NAME[=VALUE]`")
	fl.StringArrayVarP(&o.undefines, "undef", "U", nil, "undefine `NAME`")
	fl.IntVar(&o.recursionLimit, "recursion-limit", includium.DefaultRecursionLimit, "maximum macro expansion and include depth")
	fl.BoolVar(&o.json, "json", false, "report output and diagnostics as JSON")
	fl.BoolVar(&o.plain, "plain", false, "write only the preprocessed text (default)")
	fl.BoolVarP(&o.verbose, "verbose", "v", false, "log engine activity to stderr")
	fl.BoolVarP(&o.quiet, "quiet", "q", false, "suppress everything but errors")
	fl.BoolVarP(&o.warnings, "warnings", "W", false, "print warnings to stderr")
	fl.BoolVarP(&o.dryRun, "dry-run", "n", false, "preprocess but write no output")
	fl.BoolVar(&o.noColor, "no-color", false, "disable colored diagnostics")
	fl.BoolVar(&o.forceColor, "force-color", false, "color diagnostics even when stderr is not a terminal")

	if err := fl.Parse(args); err != nil {
		return nil, err
	}
	switch {
	case o.json && o.plain:
		return nil, errors.New("--json and --plain are mutually exclusive")
	case o.noColor && o.forceColor:
		return nil, errors.New("--no-color and --force-color are mutually exclusive")
	case o.verbose && o.quiet:
		return nil, errors.New("--verbose and --quiet are mutually exclusive")
	}
	o.inputs = fl.Args()
	if len(o.inputs) == 0 {
		o.inputs = []string{"-"}
	}
	return o, nil
}

func (o *options) config(stderr io.Writer) (includium.Config, error) {
	var cfg includium.Config
	var err error
	if cfg.Target, err = includium.ParseTarget(o.target); err != nil {
		return cfg, err
	}
	if cfg.Compiler, err = includium.ParseCompiler(o.compiler); err != nil {
		return cfg, err
	}
	if o.recursionLimit < 1 || o.recursionLimit > includium.MaxRecursionLimit {
		return cfg, fmt.Errorf("recursion limit %d out of range [1, %d]", o.recursionLimit, includium.MaxRecursionLimit)
	}
	cfg.RecursionLimit = o.recursionLimit
	cfg.IncludeDirs = o.includeDirs
	cfg.SystemIncludeDirs = o.systemDirs
	cfg.Defines = o.defines
	cfg.Undefines = o.undefines
	if o.verbose {
		cfg.Logger = log.New(stderr, "includium: ", 0)
	}
	return cfg, cfg.Validate()
}

type input struct {
	name string
	text string
}

func readInputs(names []string, stdin io.Reader) ([]input, error) {
	var in []input
	for _, name := range names {
		var bs []byte
		var err error
		if name == "-" {
			name = stdinName
			bs, err = io.ReadAll(stdin)
		} else {
			bs, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, err
		}
		in = append(in, input{name, string(bs)})
	}
	return in, nil
}

type result struct {
	Input    string       `json:"input"`
	Output   string       `json:"output"`
	Warnings []diagnostic `json:"warnings,omitempty"`
	Error    *diagnostic  `json:"error,omitempty"`
}

type diagnostic struct {
	Kind    string `json:"kind,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

func toDiagnostic(err error) *diagnostic {
	var e *includium.Error
	if !errors.As(err, &e) {
		return &diagnostic{Message: err.Error()}
	}
	return &diagnostic{Kind: e.Kind.String(), File: e.Pos.Filename, Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Msg}
}

// preprocess runs every input on its own driver. Results keep the input
// order; processing stops at the first failure.
func preprocess(ctx context.Context, cfg includium.Config, in []input) ([]result, error) {
	res := make([]result, len(in))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range in {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			c := cfg
			if c.Resolver == nil {
				c.Resolver = &includium.DirResolver{IncludeDirs: cfg.IncludeDirs, SystemDirs: cfg.SystemIncludeDirs}
			}
			d := includium.New(c)
			out, err := d.ProcessNamed(in[i].name, in[i].text)
			r := result{Input: in[i].name, Output: out}
			for _, diag := range d.Diagnostics() {
				if diag.Severity == includium.Warning {
					r.Warnings = append(r.Warnings, diagnostic{File: diag.Pos.Filename, Line: diag.Pos.Line, Column: diag.Pos.Column, Message: diag.Msg})
				}
			}
			if err != nil {
				r.Error = toDiagnostic(err)
			}
			res[i] = r
			return err
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return res, err
}

type printer struct {
	stderr io.Writer
	errc   *color.Color
	warnc  *color.Color
	locc   *color.Color
}

func newPrinter(stderr io.Writer, o *options) *printer {
	p := &printer{
		stderr: stderr,
		errc:   color.New(color.FgRed, color.Bold),
		warnc:  color.New(color.FgMagenta, color.Bold),
		locc:   color.New(color.Bold),
	}
	on := o.forceColor || (!o.noColor && !color.NoColor)
	for _, c := range []*color.Color{p.errc, p.warnc, p.locc} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *printer) warning(d diagnostic) {
	p.locc.Fprintf(p.stderr, "%s:%d:%d: ", d.File, d.Line, d.Column)
	p.warnc.Fprint(p.stderr, "warning: ")
	fmt.Fprintln(p.stderr, d.Message)
}

func (p *printer) fail(err error) {
	var e *includium.Error
	if !errors.As(err, &e) {
		p.errc.Fprint(p.stderr, "error: ")
		fmt.Fprintln(p.stderr, err)
		return
	}
	if e.Pos.IsValid() {
		p.locc.Fprintf(p.stderr, "%s: ", e.Pos)
	}
	p.errc.Fprintf(p.stderr, "%s: ", e.Kind)
	fmt.Fprintln(p.stderr, e.Msg)
	pretty := e.Pretty()
	if i := strings.IndexByte(pretty, '\n'); i >= 0 {
		fmt.Fprint(p.stderr, pretty[i+1:])
	}
}

func exitCode(err error) int {
	var pe *fs.PathError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, includium.ErrIO), errors.As(err, &pe):
		return exitIO
	}
	var e *includium.Error
	if errors.As(err, &e) {
		return exitPreprocess
	}
	return exitFailure
}

func writeOutput(path string, data []byte, stdout io.Writer) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, err := parseArgs(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "includium:", err)
		return exitUsage
	}
	pr := newPrinter(stderr, o)
	cfg, err := o.config(stderr)
	if err != nil {
		pr.fail(err)
		return exitUsage
	}

	in, err := readInputs(o.inputs, stdin)
	if err != nil {
		pr.fail(err)
		return exitIO
	}
	res, err := preprocess(ctx, cfg, in)

	if !o.quiet && (o.warnings || o.verbose) && !o.json {
		for _, r := range res {
			for _, w := range r.Warnings {
				pr.warning(w)
			}
		}
	}
	if cfg.Logger != nil {
		cfg.Logger.Printf("processed %d input(s)", len(in))
	}

	var data []byte
	if o.json {
		report := struct {
			Success bool     `json:"success"`
			Files   []result `json:"files"`
		}{err == nil, nil}
		for _, r := range res {
			if r.Input != "" {
				report.Files = append(report.Files, r)
			}
		}
		var jerr error
		if data, jerr = json.MarshalIndent(report, "", "  "); jerr != nil {
			pr.fail(jerr)
			return exitFailure
		}
		data = append(data, '\n')
	} else if err == nil {
		for _, r := range res {
			data = append(data, r.Output...)
		}
	}

	if err != nil {
		pr.fail(err)
	}
	if !o.dryRun && (err == nil || o.json) {
		if werr := writeOutput(o.output, data, stdout); werr != nil {
			pr.fail(werr)
			return exitIO
		}
	}
	return exitCode(err)
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
