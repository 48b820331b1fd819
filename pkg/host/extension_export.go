//go:build cgo && (linux || darwin)

package host

/*
#include <stdint.h>
*/
import "C"

import "runtime/cgo"

// luascopeHostEval is the callback handed to native extensions: it executes
// a null-terminated UTF-8 script through the host identified by the opaque
// handle and reports success (1) or failure (0).
//
//export luascopeHostEval
func luascopeHostEval(handle C.uintptr_t, script *C.char) C.int {
	h, ok := cgo.Handle(handle).Value().(*Host)
	if !ok || script == nil {
		return 0
	}
	if _, err := h.Execute(C.GoString(script)); err != nil {
		h.logger.Error("extension script failed", "err", err)
		return 0
	}
	return 1
}
