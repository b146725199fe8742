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

// Package includium is an embeddable C/C++ preprocessor. It expands
// macros, evaluates conditional compilation and splices in included files
// for a chosen target and compiler, without running any toolchain.
//
//	out, err := includium.Process("#define PI 3.14\nfloat x = PI;\n", includium.ForLinux())
package includium

import (
	"context"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Process preprocesses src once with a fresh engine.
func Process(src string, cfg Config) (string, error) {
	return New(cfg).Process(src)
}

// ProcessFile preprocesses the file at path. Unless cfg carries a
// Resolver, includes are searched next to the including file and in the
// configured directories.
func ProcessFile(path string, cfg Config) (string, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return "", ioError(path, err)
	}
	return fileDriver(cfg).ProcessNamed(path, string(bs))
}

func fileDriver(cfg Config) *Driver {
	if cfg.Resolver == nil {
		cfg.Resolver = &DirResolver{IncludeDirs: cfg.IncludeDirs, SystemDirs: cfg.SystemIncludeDirs}
	}
	return New(cfg)
}

// ProcessFiles preprocesses independent files concurrently, one engine
// per file. Results are in the order of paths; the first error cancels
// the files not yet started.
//
// cfg.Resolver and cfg.WarningHandler are shared by all engines and are
// called from several goroutines at once, so both must be safe for
// concurrent use. DirResolver and MapResolver are.
func ProcessFiles(ctx context.Context, cfg Config, paths ...string) ([]string, error) {
	return run(ctx, len(paths), func(i int) (string, error) {
		return ProcessFile(paths[i], cfg)
	})
}

// ProcessSources is ProcessFiles for text already in memory, with the
// same concurrency requirements on cfg.
func ProcessSources(ctx context.Context, cfg Config, srcs ...Source) ([]string, error) {
	return run(ctx, len(srcs), func(i int) (string, error) {
		return fileDriver(cfg).ProcessNamed(srcs[i].Name, srcs[i].Text)
	})
}

func run(ctx context.Context, n int, fn func(i int) (string, error)) ([]string, error) {
	out := make([]string, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < n; i++ {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s, err := fn(i)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
