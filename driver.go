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
	"github.com/fwessels/includium/internal/preprocessor"
)

// Driver runs the preprocessor repeatedly with one configuration. Every
// run starts from a fresh macro table holding the predefined macros,
// the Config definitions and those made through Define and Undef, unless
// Persist is on, in which case definitions made by one run are visible
// to the next.
//
// A Driver is not safe for concurrent use.
type Driver struct {
	cfg     Config
	pp      *preprocessor.Preprocessor
	err     error
	persist bool
	runs    int

	// edits replays Define and Undef calls on a fresh table.
	edits []func(pp *preprocessor.Preprocessor) error
}

func New(cfg Config) *Driver {
	d := &Driver{cfg: cfg}
	d.pp, d.err = cfg.engine()
	return d
}

// WithIncludeResolver replaces the resolver the Config selected.
func (d *Driver) WithIncludeResolver(r IncludeResolver) *Driver {
	d.cfg.Resolver = r
	if d.pp != nil {
		d.pp.SetResolver(r)
	}
	return d
}

func (d *Driver) WithWarningHandler(f func(msg string, pos Position)) *Driver {
	d.cfg.WarningHandler = f
	if d.pp != nil {
		d.pp.SetWarningFunc(f)
	}
	return d
}

func (d *Driver) Persist(on bool) *Driver {
	d.persist = on
	return d
}

// Define defines name, which may carry a parameter list, as body.
func (d *Driver) Define(name, body string) error {
	return d.edit(func(pp *preprocessor.Preprocessor) error { return pp.Define(name, body) })
}

// Undef removes name; it fails only when the Driver's Config is invalid.
func (d *Driver) Undef(name string) error {
	return d.edit(func(pp *preprocessor.Preprocessor) error {
		pp.Undefine(name)
		return nil
	})
}

func (d *Driver) edit(fn func(pp *preprocessor.Preprocessor) error) error {
	if d.err != nil {
		return d.err
	}
	if err := fn(d.pp); err != nil {
		return err
	}
	d.edits = append(d.edits, fn)
	return nil
}

// Process preprocesses src, named by Config.FileName.
func (d *Driver) Process(src string) (string, error) {
	return d.ProcessNamed(d.cfg.fileName(), src)
}

func (d *Driver) ProcessNamed(name, src string) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	if d.runs > 0 && !d.persist {
		if err := d.reset(); err != nil {
			return "", err
		}
	}
	d.runs++
	return d.pp.ProcessString(name, src)
}

func (d *Driver) reset() error {
	d.pp.Reset()
	if err := d.cfg.apply(d.pp); err != nil {
		return err
	}
	for _, fn := range d.edits {
		if err := fn(d.pp); err != nil {
			return err
		}
	}
	return nil
}

// Diagnostics returns the warnings of the last run, followed by its error
// if it failed.
func (d *Driver) Diagnostics() []Diagnostic {
	if d.pp == nil {
		return nil
	}
	return d.pp.Diagnostics()
}

// Macros returns the names currently defined, predefined ones included,
// in sorted order.
func (d *Driver) Macros() []string {
	if d.pp == nil {
		return nil
	}
	return d.pp.Macros().Names()
}

func (d *Driver) IsDefined(name string) bool {
	return d.pp != nil && d.pp.Macros().IsDefined(name)
}
