// Command libincludium builds the C shared library:
//
//	go build -buildmode=c-shared -o libincludium.so ./cmd/libincludium
//
// includium.h declares the exported functions.
package main

/*
#include <stdlib.h>
#include "includium.h"

static void call_warning(includium_warning_fn fn, const char *msg) {
	fn(msg);
}
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/fwessels/includium/internal/capi"
)

var registry = capi.NewRegistry()

// lastErrors keeps the C copy of each last error alive until it is replaced.
var lastErrors struct {
	sync.Mutex
	m map[C.includium_handle]*C.char
}

//export includium_new
func includium_new(config *C.includium_config_t) C.includium_handle {
	var cfg capi.Config
	if config != nil {
		cfg.Target = int32(config.target)
		cfg.Compiler = int32(config.compiler)
		cfg.RecursionLimit = uint64(config.recursion_limit)
		if fn := config.warning_handler; fn != nil {
			cfg.Warn = func(msg string) {
				cs := C.CString(msg)
				defer C.free(unsafe.Pointer(cs))
				C.call_warning(fn, cs)
			}
		}
	}
	return C.includium_handle(registry.New(cfg))
}

//export includium_free
func includium_free(h C.includium_handle) {
	registry.Free(uintptr(h))
	setError(h, nil)
}

//export includium_process
func includium_process(h C.includium_handle, input *C.char) *C.char {
	if input == nil {
		registry.Reject(uintptr(h), "input is NULL")
		return nil
	}
	out, ok := registry.Process(uintptr(h), C.GoString(input))
	if !ok {
		return nil
	}
	return C.CString(out)
}

//export includium_free_result
func includium_free_result(result *C.char) {
	C.free(unsafe.Pointer(result))
}

//export includium_last_error
func includium_last_error(h C.includium_handle) *C.char {
	msg := registry.LastError(uintptr(h))
	if msg == "" {
		setError(h, nil)
		return nil
	}
	cs := C.CString(msg)
	setError(h, cs)
	return cs
}

func setError(h C.includium_handle, cs *C.char) {
	lastErrors.Lock()
	defer lastErrors.Unlock()
	if lastErrors.m == nil {
		lastErrors.m = map[C.includium_handle]*C.char{}
	}
	if old, ok := lastErrors.m[h]; ok {
		C.free(unsafe.Pointer(old))
	}
	if cs == nil {
		delete(lastErrors.m, h)
		return
	}
	lastErrors.m[h] = cs
}

func main() {}
