// Package capi holds the Go side of the C interface: configuration
// records, handles and their error slots. cmd/libincludium only converts
// between C and Go values and calls into this package.
package capi

import (
	"fmt"
	"sync"

	"github.com/fwessels/includium"
)

// Config is includium_config_t converted to Go types. Warn is nil when
// the record carried no warning handler.
type Config struct {
	Target         int32
	Compiler       int32
	RecursionLimit uint64
	Warn           func(msg string)
}

// Convert validates c and builds the library configuration.
func (c Config) Convert() (includium.Config, error) {
	if c.Target < 0 || c.Target > int32(includium.MacOS) {
		return includium.Config{}, fmt.Errorf("invalid target %d (want 0=linux, 1=windows, 2=mac-os)", c.Target)
	}
	if c.Compiler < 0 || c.Compiler > int32(includium.MSVC) {
		return includium.Config{}, fmt.Errorf("invalid compiler %d (want 0=gcc, 1=clang, 2=msvc)", c.Compiler)
	}
	if c.RecursionLimit < 1 || c.RecursionLimit > includium.MaxRecursionLimit {
		return includium.Config{}, fmt.Errorf("recursion limit %d out of range [1, %d]", c.RecursionLimit, includium.MaxRecursionLimit)
	}
	cfg := includium.Config{
		Target:         includium.Target(c.Target),
		Compiler:       includium.Compiler(c.Compiler),
		RecursionLimit: int(c.RecursionLimit),
	}
	if c.Warn != nil {
		warn := c.Warn
		cfg.WarningHandler = func(msg string, pos includium.Position) {
			warn(pos.String() + ": " + msg)
		}
	}
	return cfg, nil
}

// Handle is one engine behind the C interface with its own error slot.
type Handle struct {
	d       *includium.Driver
	lastErr string
}

func newHandle(c Config) (*Handle, error) {
	cfg, err := c.Convert()
	if err != nil {
		return nil, err
	}
	return &Handle{d: includium.New(cfg)}, nil
}

// Process runs one input. On failure it returns false and keeps the
// message for LastError.
func (h *Handle) Process(input string) (string, bool) {
	out, err := h.d.Process(input)
	if err != nil {
		h.lastErr = err.Error()
		return "", false
	}
	h.lastErr = ""
	return out, true
}

func (h *Handle) LastError() string { return h.lastErr }

// ---------------- Registry ----------------

// Registry hands out integer ids for handles so that no Go pointer
// crosses into C. Id 0 is never used.
type Registry struct {
	mu       sync.Mutex
	next     uintptr
	handles  map[uintptr]*Handle
	creation string
}

func NewRegistry() *Registry {
	return &Registry{handles: map[uintptr]*Handle{}}
}

// New creates a handle for c. It returns 0 and records the reason, for
// LastError(0), when c is invalid.
func (r *Registry) New(c Config) uintptr {
	h, err := newHandle(c)
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.creation = err.Error()
		return 0
	}
	r.creation = ""
	r.next++
	r.handles[r.next] = h
	return r.next
}

func (r *Registry) Get(id uintptr) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[id]
	return h, ok
}

func (r *Registry) Free(id uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// LastError returns the error slot of handle id, or the creation error
// for id 0.
func (r *Registry) LastError(id uintptr) string {
	if id == 0 {
		r.mu.Lock()
		defer r.mu.Unlock()
		return r.creation
	}
	h, ok := r.Get(id)
	if !ok {
		return "invalid handle"
	}
	return h.LastError()
}

// Process runs input on handle id. An unknown id fails; LastError
// reports it.
func (r *Registry) Process(id uintptr, input string) (string, bool) {
	h, ok := r.Get(id)
	if !ok {
		return "", false
	}
	return h.Process(input)
}

// Reject fails a call on handle id before it reaches the engine, leaving
// msg for LastError. Unknown ids are ignored.
func (r *Registry) Reject(id uintptr, msg string) {
	if h, ok := r.Get(id); ok {
		h.lastErr = msg
	}
}
