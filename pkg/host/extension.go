//go:build cgo && (linux || darwin)

package host

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

// The capability struct handed to an extension's entry point. The host
// field is opaque to the extension and only valid through the callback.
typedef struct {
	uintptr_t host;
	int (*eval)(uintptr_t host, const char* script);
} luascope_host_api;

// Implemented in Go (extension_export.go); the bridge binds it on the C
// side to sidestep cgo function-pointer typing.
extern int luascopeHostEval(uintptr_t host, char* script);

static int ls_eval_bridge(uintptr_t host, const char* script) {
	return luascopeHostEval(host, (char*)script);
}

typedef int (*ls_init_fn)(luascope_host_api);

static int ls_call_init(void* sym, uintptr_t host) {
	luascope_host_api api;
	api.host = host;
	api.eval = ls_eval_bridge;
	return ((ls_init_fn)sym)(api);
}

static void* ls_dlopen(const char* path) {
	return dlopen(path, RTLD_LAZY | RTLD_LOCAL);
}
static void* ls_dlsym(void* h, const char* name) {
	dlerror(); // clear any stale error
	return dlsym(h, name);
}
static const char* ls_dlerror(void) {
	return dlerror();
}
static int ls_dlclose(void* h) {
	return dlclose(h);
}
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

// extensionEntrySymbol is the fixed entry point every native extension
// library must export:
//
//	int luascope_extension_init(luascope_host_api api);
//
// returning nonzero on success.
const extensionEntrySymbol = "luascope_extension_init"

func dlerr() string {
	if msg := C.ls_dlerror(); msg != nil {
		return C.GoString(msg)
	}
	return "unknown dlerror"
}

// LoadExtension opens a native library, resolves the fixed entry point and
// invokes it with the host capability struct. The library handle is
// retained for the process lifetime; there is no unload.
func (h *Host) LoadExtension(path string) error {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.ls_dlopen(cpath)
	if handle == nil {
		return &ExtensionError{Path: path, Op: "open", Detail: dlerr()}
	}

	csym := C.CString(extensionEntrySymbol)
	defer C.free(unsafe.Pointer(csym))
	sym := C.ls_dlsym(handle, csym)
	if sym == nil {
		C.ls_dlclose(handle)
		return &ExtensionError{Path: path, Op: "resolve", Detail: dlerr()}
	}

	h.mu.Lock()
	if h.selfHandle == 0 {
		h.selfHandle = uintptr(cgo.NewHandle(h))
	}
	self := h.selfHandle
	h.mu.Unlock()

	// The entry point may call back into the host immediately, so the
	// host lock must not be held here.
	if rc := C.ls_call_init(sym, C.uintptr_t(self)); rc == 0 {
		C.ls_dlclose(handle)
		return &ExtensionError{Path: path, Op: "init", Detail: "entry point reported failure"}
	}

	h.mu.Lock()
	h.extensions = append(h.extensions, uintptr(handle))
	h.mu.Unlock()

	h.logger.Info("native extension loaded", "path", path)
	return nil
}
