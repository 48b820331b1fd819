//go:build !cgo || (!linux && !darwin)

package host

// Non-cgo / non-unix build: native extension loading is unavailable.
// Keeping the method present means callers compile everywhere and get a
// typed error at runtime.
func (h *Host) LoadExtension(path string) error {
	return &ExtensionError{
		Path:   path,
		Op:     "open",
		Detail: "native extensions require cgo on linux or darwin",
	}
}
