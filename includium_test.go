/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package includium

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

const platformSrc = `#ifdef __linux__
A
#else
B
#endif
`

func TestProcessScenarios(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		input    string
		contains string
		absent   string
	}{
		{"object macro", ForLinux(), "#define PI 3.14\nfloat x = PI;\n", "float x = 3.14;", "PI"},
		{"function macro", ForLinux(), "#define ADD(a,b) ((a)+(b))\nint z=ADD(1,2);", "int z=((1)+(2));", "ADD"},
		{"linux", ForLinux(), platformSrc, "A", "B"},
		{"windows", ForWindows(), platformSrc, "B", "A"},
		{"mac clang", ForMacOS(), "#if defined(__APPLE__) && defined(__clang__)\nok\n#endif\n", "ok", ""},
		{"msvc on linux", ForLinux().WithCompiler(MSVC), "#ifdef _MSC_VER\nmsvc\n#endif\n", "msvc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Process(tt.input, tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(got, tt.contains) {
				t.Errorf("output %q does not contain %q", got, tt.contains)
			}
			if tt.absent != "" && strings.Contains(got, tt.absent) {
				t.Errorf("output %q contains %q", got, tt.absent)
			}
		})
	}
}

func TestSelfReference(t *testing.T) {
	for _, limit := range []int{1, 2, 16, DefaultRecursionLimit, MaxRecursionLimit} {
		got, err := Process("#define A A\nA\n", ForLinux().WithRecursionLimit(limit))
		if err != nil {
			t.Fatalf("limit %d: %v", limit, err)
		}
		if n := strings.Count(got, "A"); n != 1 {
			t.Errorf("limit %d: %d occurrences of A in %q", limit, n, got)
		}
	}
}

func TestUnterminated(t *testing.T) {
	_, err := Process("#ifdef X\nfoo\n", Config{FileName: "x.c"})
	if !errors.Is(err, ErrUnterminatedCond) {
		t.Fatalf("got %v, want an unterminated conditional", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Kind != UnterminatedConditional || e.Pos.Filename != "x.c" || e.Pos.Line != 1 {
		t.Errorf("got %#v", err)
	}
}

func TestDriverResolver(t *testing.T) {
	d := New(ForLinux()).WithIncludeResolver(MapResolver{"config.h": "#define CONFIG_ENABLED 1\n"})
	got, err := d.Process("#include \"config.h\"\n#ifdef CONFIG_ENABLED\nworks\n#endif")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("\n\nworks\n", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	_, err = d.Process("#include <missing.h>\n")
	if !errors.Is(err, ErrMissingInclude) {
		t.Errorf("got %v, want a missing include", err)
	}
}

func TestDriverWarnings(t *testing.T) {
	var got []string
	d := New(Config{}).WithWarningHandler(func(msg string, pos Position) {
		got = append(got, pos.String()+" "+msg)
	})
	if _, err := d.Process("#warning hi\n"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"<stdin>:1:2 #warning: hi"}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if n := len(d.Diagnostics()); n != 1 {
		t.Errorf("got %d diagnostics", n)
	}
}

func TestDriverFreshRuns(t *testing.T) {
	d := New(Config{Defines: []string{"FROM_CONFIG=1"}})
	if err := d.Define("FROM_API", "2"); err != nil {
		t.Fatal(err)
	}
	if err := d.Undef("__GNUC__"); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Process("#define FROM_SOURCE 3\n"); err != nil {
		t.Fatal(err)
	}

	// The second run sees the configured and API macros, not the source one.
	got, err := d.Process("FROM_CONFIG FROM_API FROM_SOURCE __GNUC__")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("1 2 FROM_SOURCE __GNUC__", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if d.IsDefined("FROM_SOURCE") {
		t.Error("FROM_SOURCE survived a fresh run")
	}
}

func TestDriverPersist(t *testing.T) {
	d := New(Config{}).Persist(true)
	if _, err := d.Process("#define KEEP 7\n"); err != nil {
		t.Fatal(err)
	}
	got, err := d.Process("KEEP")
	if err != nil {
		t.Fatal(err)
	}
	if got != "7" {
		t.Errorf("got %q, want 7", got)
	}
	names := d.Macros()
	if !strings.Contains(strings.Join(names, " "), "KEEP") {
		t.Errorf("KEEP missing from %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Fatalf("Macros() not sorted: %q before %q", names[i-1], names[i])
		}
	}

	// A conflicting definition in a later run is an error while persisting.
	if _, err := d.Process("#define KEEP 8\n"); !errors.Is(err, ErrRedefinition) {
		t.Errorf("got %v, want a redefinition", err)
	}
}

func TestConfigDefines(t *testing.T) {
	cfg := Config{
		Defines:   []string{"DEBUG", "LEVEL=3", "MAX(a,b)=((a)>(b)?(a):(b))"},
		Undefines: []string{"__linux__"},
	}
	got, err := Process("DEBUG LEVEL MAX(1,2) __linux__", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("1 3 ((1)>(2)?(1):(2)) __linux__", got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	_, err = Process("", Config{Defines: []string{"A=1", "A=2"}})
	if !errors.Is(err, ErrRedefinition) {
		t.Errorf("got %v, want a redefinition", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		cfg Config
		ok  bool
	}{
		{Config{}, true},
		{ForWindows().WithRecursionLimit(MaxRecursionLimit), true},
		{Config{Target: 3}, false},
		{Config{Compiler: -1}, false},
		{Config{RecursionLimit: -1}, false},
		{Config{RecursionLimit: MaxRecursionLimit + 1}, false},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%+v: got %v", tt.cfg, err)
		}
		if _, perr := Process("x", tt.cfg); (perr == nil) != tt.ok {
			t.Errorf("%+v: Process got %v", tt.cfg, perr)
		}
		d := New(tt.cfg)
		if uerr := d.Undef("X"); (uerr == nil) != tt.ok {
			t.Errorf("%+v: Undef got %v", tt.cfg, uerr)
		}
		if derr := d.Define("X", "1"); (derr == nil) != tt.ok {
			t.Errorf("%+v: Define got %v", tt.cfg, derr)
		}
	}
}

func TestParseNames(t *testing.T) {
	for _, s := range []string{"linux", "windows", "mac-os", "MacOS"} {
		if _, err := ParseTarget(s); err != nil {
			t.Error(err)
		}
	}
	if _, err := ParseTarget("plan9"); err == nil {
		t.Error("plan9 accepted")
	}
	c, err := ParseCompiler("clang")
	if err != nil || c != Clang {
		t.Errorf("ParseCompiler(clang) = %v, %v", c, err)
	}
}

var testFS = fstest.MapFS{
	"src/main.c":          {Data: []byte("#include \"local.h\"\n#include <sys.h>\nMAIN\n")},
	"src/local.h":         {Data: []byte("#define MAIN local\n")},
	"inc/sys.h":           {Data: []byte("int sys;\n")},
	"inc/local.h":         {Data: []byte("#define MAIN wrong\n")},
	"sysroot/usr/stdio.h": {Data: []byte("int printf;\n")},
	"sysroot/usr/dir.h/x": {Data: []byte("")},
}

func TestDirResolver(t *testing.T) {
	r := &DirResolver{IncludeDirs: []string{"inc"}, SystemDirs: []string{"sysroot/usr"}, FS: testFS}
	tests := []struct {
		req   IncludeRequest
		name  string
		found bool
	}{
		{IncludeRequest{Path: "local.h", Kind: IncludeQuote, From: "src/main.c"}, "src/local.h", true},
		{IncludeRequest{Path: "local.h", Kind: IncludeQuote, From: "other/main.c"}, "inc/local.h", true},
		{IncludeRequest{Path: "local.h", Kind: IncludeAngle, From: "src/main.c"}, "", false},
		{IncludeRequest{Path: "sys.h", Kind: IncludeQuote, From: "src/main.c"}, "inc/sys.h", true},
		{IncludeRequest{Path: "sys.h", Kind: IncludeAngle, From: "src/main.c"}, "", false},
		{IncludeRequest{Path: "stdio.h", Kind: IncludeAngle, From: "src/main.c"}, "sysroot/usr/stdio.h", true},
		{IncludeRequest{Path: "stdio.h", Kind: IncludeQuote, From: "src/main.c"}, "sysroot/usr/stdio.h", true},
		{IncludeRequest{Path: "/inc/sys.h", Kind: IncludeAngle}, "inc/sys.h", true},
		{IncludeRequest{Path: "../../src/local.h", Kind: IncludeAngle}, "src/local.h", true},
		{IncludeRequest{Path: "dir.h", Kind: IncludeAngle}, "", false},
		{IncludeRequest{Path: "nope.h", Kind: IncludeQuote, From: "<stdin>"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.req.Kind.String()+"/"+tt.req.Path, func(t *testing.T) {
			src, found, err := r.Resolve(tt.req)
			if err != nil {
				t.Fatal(err)
			}
			if found != tt.found || src.Name != tt.name {
				t.Errorf("got %q, %v; want %q, %v", src.Name, found, tt.name, tt.found)
			}
		})
	}
}

func TestProcessSources(t *testing.T) {
	cfg := Config{Resolver: &DirResolver{SystemDirs: []string{"inc"}, FS: testFS}}
	mainSrc, err := testFS.ReadFile("src/main.c")
	if err != nil {
		t.Fatal(err)
	}
	got, err := ProcessSources(context.Background(), cfg,
		Source{Name: "src/main.c", Text: string(mainSrc)},
		Source{Name: "other.c", Text: "#include <sys.h>\n"},
	)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"\nint sys;\nlocal\n", "int sys;\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(text), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}
	write("common.h", "#pragma once\n#define COMMON 42\n")
	var paths []string
	for _, name := range []string{"a.c", "b.c", "c.c"} {
		paths = append(paths, write(name, "#include \"common.h\"\n"+strings.TrimSuffix(name, ".c")+" = COMMON;\n"))
	}

	got, err := ProcessFiles(context.Background(), Config{}, paths...)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"\n\na = 42;\n", "\n\nb = 42;\n", "\n\nc = 42;\n"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	_, err = ProcessFiles(context.Background(), Config{}, paths[0], filepath.Join(dir, "missing.c"))
	if !errors.Is(err, ErrIO) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("got %v, want an i/o error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ProcessFiles(ctx, Config{}, paths...); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestProcessSourcesSharedHandler(t *testing.T) {
	var mu sync.Mutex
	var got []string
	cfg := Config{
		Resolver: MapResolver{"w.h": "#warning from header\n"},
		WarningHandler: func(msg string, pos Position) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, pos.Filename+": "+msg)
		},
	}
	var srcs []Source
	for i := 0; i < 16; i++ {
		srcs = append(srcs, Source{Name: fmt.Sprintf("s%02d.c", i), Text: "#include \"w.h\"\n"})
	}
	if _, err := ProcessSources(context.Background(), cfg, srcs...); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(srcs) {
		t.Fatalf("got %d warnings, want %d", len(got), len(srcs))
	}
	for _, w := range got {
		if w != "w.h: #warning: from header" {
			t.Errorf("warning %q", w)
		}
	}
}

func TestProcessFileErrorPosition(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.c")
	if err := os.WriteFile(p, []byte("int a;\n#if 1 +\n#endif\n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ProcessFile(p, Config{})
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("got %v", err)
	}
	if e.Pos.Filename != p || e.Pos.Line != 2 || e.Source != "#if 1 +" {
		t.Errorf("got %s (source %q)", err, e.Source)
	}
	if !strings.Contains(e.Pretty(), "   2 | #if 1 +\n") {
		t.Errorf("Pretty() = %q", e.Pretty())
	}
}
