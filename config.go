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
	"fmt"
	"log"

	"github.com/fwessels/includium/internal/preprocessor"
	"modernc.org/token"
)

type (
	Target   = preprocessor.Target
	Compiler = preprocessor.Compiler
	Position = token.Position
)

const (
	Linux   = preprocessor.Linux
	Windows = preprocessor.Windows
	MacOS   = preprocessor.MacOS

	GCC   = preprocessor.GCC
	Clang = preprocessor.Clang
	MSVC  = preprocessor.MSVC
)

const (
	DefaultRecursionLimit = preprocessor.DefaultRecursionLimit
	MaxRecursionLimit     = 10000
)

func ParseTarget(s string) (Target, error)     { return preprocessor.ParseTarget(s) }
func ParseCompiler(s string) (Compiler, error) { return preprocessor.ParseCompiler(s) }

// Config describes one preprocessing setup. The zero value preprocesses
// for Linux with GCC and resolves no includes.
type Config struct {
	Target   Target
	Compiler Compiler

	// RecursionLimit bounds macro expansion depth and include nesting;
	// zero means DefaultRecursionLimit.
	RecursionLimit int

	// IncludeDirs serve #include "..." only; SystemIncludeDirs serve
	// #include <...> and quoted includes not found otherwise. They are
	// only used when Resolver is nil.
	IncludeDirs       []string
	SystemIncludeDirs []string

	// Defines holds command line style definitions, "NAME" or
	// "NAME=VALUE", applied after the predefined macros. Undefines are
	// applied after Defines.
	Defines   []string
	Undefines []string

	// FileName names the input in positions and __FILE__.
	FileName string

	Resolver       IncludeResolver
	WarningHandler func(msg string, pos Position)
	Logger         *log.Logger
}

func ForLinux() Config   { return Config{Target: Linux, Compiler: GCC} }
func ForWindows() Config { return Config{Target: Windows, Compiler: MSVC} }
func ForMacOS() Config   { return Config{Target: MacOS, Compiler: Clang} }

// WithCompiler returns a copy of c using compiler.
func (c Config) WithCompiler(compiler Compiler) Config {
	c.Compiler = compiler
	return c
}

func (c Config) WithRecursionLimit(n int) Config {
	c.RecursionLimit = n
	return c
}

func (c Config) WithIncludeDirs(dirs ...string) Config {
	c.IncludeDirs = append(append([]string(nil), c.IncludeDirs...), dirs...)
	return c
}

// Validate reports settings no engine can be built from.
func (c Config) Validate() error {
	switch {
	case c.Target < Linux || c.Target > MacOS:
		return fmt.Errorf("invalid target %d", int(c.Target))
	case c.Compiler < GCC || c.Compiler > MSVC:
		return fmt.Errorf("invalid compiler %d", int(c.Compiler))
	case c.RecursionLimit < 0 || c.RecursionLimit > MaxRecursionLimit:
		return fmt.Errorf("recursion limit %d out of range [1, %d]", c.RecursionLimit, MaxRecursionLimit)
	}
	return nil
}

func (c Config) resolver() IncludeResolver {
	if c.Resolver != nil {
		return c.Resolver
	}
	if len(c.IncludeDirs) > 0 || len(c.SystemIncludeDirs) > 0 {
		return &DirResolver{IncludeDirs: c.IncludeDirs, SystemDirs: c.SystemIncludeDirs}
	}
	return nil
}

// engine builds a preprocessor for c with its command line definitions
// applied.
func (c Config) engine() (*preprocessor.Preprocessor, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pp := preprocessor.NewPreprocessor(preprocessor.Config{
		Target:         c.Target,
		Compiler:       c.Compiler,
		RecursionLimit: c.RecursionLimit,
		Resolver:       c.resolver(),
		WarningFunc:    c.WarningHandler,
		Logger:         c.Logger,
	})
	if err := c.apply(pp); err != nil {
		return nil, err
	}
	return pp, nil
}

func (c Config) apply(pp *preprocessor.Preprocessor) error {
	for _, d := range c.Defines {
		name, value := preprocessor.ParseDefine(d)
		if err := pp.Define(name, value); err != nil {
			return fmt.Errorf("-D%s: %w", d, err)
		}
	}
	for _, name := range c.Undefines {
		pp.Undefine(name)
	}
	return nil
}

func (c Config) fileName() string {
	if c.FileName == "" {
		return preprocessor.DefaultFileName
	}
	return c.FileName
}
