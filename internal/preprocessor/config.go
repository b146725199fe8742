package preprocessor

import (
	"fmt"
	"log"
	"strings"
	"time"

	"modernc.org/token"
)

// Target is the operating system the input is preprocessed for.
type Target int

const (
	Linux Target = iota
	Windows
	MacOS
)

var targetNames = [...]string{Linux: "linux", Windows: "windows", MacOS: "mac-os"}

func (t Target) String() string {
	if t >= 0 && int(t) < len(targetNames) {
		return targetNames[t]
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// ParseTarget accepts the names printed by Target.String and a few
// common spellings.
func ParseTarget(s string) (Target, error) {
	switch strings.ToLower(s) {
	case "linux":
		return Linux, nil
	case "windows", "win32", "win":
		return Windows, nil
	case "mac-os", "macos", "darwin", "mac":
		return MacOS, nil
	}
	return 0, fmt.Errorf("unknown target %q (want linux, windows or mac-os)", s)
}

// Compiler selects the vendor macros that are predefined.
type Compiler int

const (
	GCC Compiler = iota
	Clang
	MSVC
)

var compilerNames = [...]string{GCC: "gcc", Clang: "clang", MSVC: "msvc"}

func (c Compiler) String() string {
	if c >= 0 && int(c) < len(compilerNames) {
		return compilerNames[c]
	}
	return fmt.Sprintf("Compiler(%d)", int(c))
}

func ParseCompiler(s string) (Compiler, error) {
	switch strings.ToLower(s) {
	case "gcc":
		return GCC, nil
	case "clang":
		return Clang, nil
	case "msvc", "cl":
		return MSVC, nil
	}
	return 0, fmt.Errorf("unknown compiler %q (want gcc, clang or msvc)", s)
}

const (
	DefaultRecursionLimit = 128
	DefaultFileName       = "<stdin>"
)

// Config holds everything that shapes one engine.
type Config struct {
	Target   Target
	Compiler Compiler

	// RecursionLimit bounds both macro expansion depth and include
	// nesting. Zero selects DefaultRecursionLimit.
	RecursionLimit int

	Resolver IncludeResolver

	// WarningFunc receives #warning messages and other warnings.
	WarningFunc func(msg string, pos token.Position)

	// Logger traces includes and definitions when set.
	Logger *log.Logger

	// Now is the clock behind __DATE__ and __TIME__.
	Now func() time.Time
}
