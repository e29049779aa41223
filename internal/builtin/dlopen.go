//go:build darwin || freebsd || linux

package builtin

import (
	"fmt"
	"log/slog"

	"github.com/ebitengine/purego"
)

// LoadLibrary opens a shared object and links every symbol in required
// from it. Symbols already defined are left alone; a symbol the library
// does not export is an error, since the embedding promised the full
// documented surface.
func (l *Linker) LoadLibrary(path string, required []string) error {
	lib, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return fmt.Errorf("builtin: open library %q: %w", path, err)
	}

	for _, sym := range required {
		if l.Linked(sym) {
			continue
		}
		addr, err := purego.Dlsym(lib, sym)
		if err != nil {
			return fmt.Errorf("builtin: library %q does not export %q: %w", path, sym, err)
		}
		if err := l.Define(sym, addr); err != nil {
			return err
		}
	}

	slog.Debug("linked external builtin library", "path", path, "symbols", len(required))
	return nil
}
