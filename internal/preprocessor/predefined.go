package preprocessor

import (
	"strconv"
	"strings"
)

// ---------------- Predefined macros ----------------

// These approximate what the real toolchains define; they are enough for
// the usual platform checks, not a byte-exact copy.

var targetMacros = map[Target][]string{
	Linux:   {"__linux__ 1", "__linux 1", "__unix__ 1", "__unix 1", "__ELF__ 1", "__LP64__ 1", "_LP64 1"},
	Windows: {"_WIN32 1", "_WIN64 1", "WIN32 1", "_WINDOWS 1"},
	MacOS:   {"__APPLE__ 1", "__MACH__ 1", "TARGET_OS_MAC 1", "__LP64__ 1", "_LP64 1"},
}

var compilerMacros = map[Compiler][]string{
	GCC: {
		"__GNUC__ 11", "__GNUC_MINOR__ 2", "__GNUC_PATCHLEVEL__ 0", "_GNU_SOURCE 1",
	},
	Clang: {
		"__clang__ 1", "__clang_major__ 14", "__clang_minor__ 0", "__clang_patchlevel__ 0",
		"__GNUC__ 4", "__GNUC_MINOR__ 2", "__GNUC_PATCHLEVEL__ 1",
	},
	MSVC: {
		"_MSC_VER 1920", "_MSC_FULL_VER 192027508", "WIN32_LEAN_AND_MEAN", "_CRT_SECURE_NO_WARNINGS",
	},
}

var commonMacros = []string{
	"__STDC__ 1",
	"__STDC_VERSION__ 201710L",
	"__STDC_HOSTED__ 1",
	"__SIZEOF_INT__ 4",
	"__SIZEOF_LONG_LONG__ 8",
	"__SIZEOF_POINTER__ 8",
	"__SIZEOF_SIZE_T__ 8",
	"__SIZEOF_PTRDIFF_T__ 8",
	"__builtin_expect(x, y) (x)",
	"__builtin_unreachable()",
	"__builtin_va_start(v, l)",
	"__builtin_va_arg(v, t)",
	"__builtin_va_end(v)",
}

// seed fills the macro table for cfg. Every seeded macro is marked
// Builtin so that source text may redefine it.
func (p *Preprocessor) seed() {
	defs := append([]string(nil), commonMacros...)
	if p.cfg.Target == Windows {
		defs = append(defs, "__SIZEOF_LONG__ 4") // LLP64
	} else {
		defs = append(defs, "__SIZEOF_LONG__ 8")
	}
	defs = append(defs, targetMacros[p.cfg.Target]...)
	defs = append(defs, compilerMacros[p.cfg.Compiler]...)
	for _, d := range defs {
		m, err := p.parseDefinition("<built-in>", d)
		if err != nil {
			panic("bad predefined macro " + d + ": " + err.Error())
		}
		m.Builtin = true
		p.macros.m[m.Name] = m
	}
	for name, fn := range dynamicMacros {
		p.macros.m[name] = &Macro{Name: name, Builtin: true, dynamic: fn}
	}
}

var dynamicMacros = map[string]func(p *Preprocessor, at Token) Token{
	"__LINE__": func(p *Preprocessor, at Token) Token {
		return Token{Kind: Number, Text: strconv.Itoa(at.Position().Line)}.at(at)
	},
	"__FILE__": func(p *Preprocessor, at Token) Token {
		return Token{Kind: String, Text: quote(at.Position().Filename)}.at(at)
	},
	"__BASE_FILE__": func(p *Preprocessor, at Token) Token {
		name := DefaultFileName
		if len(p.files) > 0 {
			name = p.files[0].name
		}
		return Token{Kind: String, Text: quote(name)}.at(at)
	},
	"__DATE__": func(p *Preprocessor, at Token) Token {
		return Token{Kind: String, Text: quote(p.now.Format("Jan _2 2006"))}.at(at)
	},
	"__TIME__": func(p *Preprocessor, at Token) Token {
		return Token{Kind: String, Text: quote(p.now.Format("15:04:05"))}.at(at)
	},
	"__COUNTER__": func(p *Preprocessor, at Token) Token {
		n := p.counter
		p.counter++
		return Token{Kind: Number, Text: strconv.Itoa(n)}.at(at)
	},
	"__INCLUDE_LEVEL__": func(p *Preprocessor, at Token) Token {
		level := len(p.files) - 1
		if level < 0 {
			level = 0
		}
		return Token{Kind: Number, Text: strconv.Itoa(level)}.at(at)
	},
}

// quote spells s as a C string literal.
func quote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	sb.WriteByte('"')
	return sb.String()
}
