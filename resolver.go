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
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fwessels/includium/internal/preprocessor"
)

type (
	IncludeResolver = preprocessor.IncludeResolver
	IncludeRequest  = preprocessor.IncludeRequest
	IncludeKind     = preprocessor.IncludeKind
	Source          = preprocessor.Source
	ResolverFunc    = preprocessor.ResolverFunc
	MapResolver     = preprocessor.MapResolver
)

const (
	IncludeQuote = preprocessor.IncludeQuote
	IncludeAngle = preprocessor.IncludeAngle
)

// ---------------- Include resolution ----------------

// DirResolver looks up includes in directories, on the host file system
// or in FS when it is set. A quoted include is looked up next to the
// including file, then in IncludeDirs, and when that fails it is searched
// like an angle include. An angle include searches SystemDirs only.
type DirResolver struct {
	IncludeDirs []string
	SystemDirs  []string
	FS          fs.FS
}

func (r *DirResolver) Resolve(req IncludeRequest) (Source, bool, error) {
	for _, cand := range r.candidates(req) {
		if !r.fileExists(cand) {
			continue
		}
		bs, err := r.readFile(cand)
		if err != nil {
			return Source{}, false, err
		}
		return Source{Name: cand, Text: string(bs)}, true, nil
	}
	return Source{}, false, nil
}

func (r *DirResolver) candidates(req IncludeRequest) []string {
	var cands []string
	add := func(p string) {
		if r.FS == nil {
			cands = append(cands, filepath.Clean(p))
			return
		}
		p = strings.TrimPrefix(path.Clean(filepath.ToSlash(p)), "/")
		if fs.ValidPath(p) {
			cands = append(cands, p)
		}
	}

	if r.isAbs(req.Path) {
		add(req.Path)
		return cands
	}

	// 1) relative to including file directory
	if req.Kind == IncludeQuote && isFileName(req.From) {
		add(r.join(r.dir(req.From), req.Path))
	}

	// 2) include dirs, quote form only
	if req.Kind == IncludeQuote {
		for _, dir := range r.IncludeDirs {
			add(r.join(dir, req.Path))
		}
	}

	// 3) system dirs
	for _, dir := range r.SystemDirs {
		add(r.join(dir, req.Path))
	}
	return cands
}

func (r *DirResolver) isAbs(p string) bool {
	if r.FS != nil {
		return path.IsAbs(filepath.ToSlash(p))
	}
	return filepath.IsAbs(p)
}

func (r *DirResolver) join(dir, p string) string {
	if r.FS != nil {
		return path.Join(filepath.ToSlash(dir), filepath.ToSlash(p))
	}
	return filepath.Join(dir, p)
}

func (r *DirResolver) dir(p string) string {
	if r.FS != nil {
		return path.Dir(filepath.ToSlash(p))
	}
	return filepath.Dir(p)
}

func (r *DirResolver) fileExists(p string) bool {
	var st fs.FileInfo
	var err error
	if r.FS != nil {
		st, err = fs.Stat(r.FS, p)
	} else {
		st, err = os.Stat(p)
	}
	return err == nil && !st.IsDir()
}

func (r *DirResolver) readFile(p string) ([]byte, error) {
	if r.FS != nil {
		return fs.ReadFile(r.FS, p)
	}
	return os.ReadFile(p)
}

// isFileName excludes pseudo names such as <stdin> and <command line>.
func isFileName(name string) bool {
	return name != "" && !(strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">"))
}

// ioError wraps a failure to read an input file.
func ioError(name string, err error) error {
	msg := err.Error()
	var pe *fs.PathError
	if errors.As(err, &pe) {
		msg = pe.Err.Error()
	}
	return &Error{Kind: IoError, Pos: Position{Filename: name}, Msg: msg, Err: err}
}
