package builtin

import (
	"fmt"
	"log/slog"
	"sync"
)

// UnlinkedExternalSymbolError reports an External builtin invoked before
// the embedding application supplied it. This is a fatal configuration
// error, not a retryable condition.
type UnlinkedExternalSymbolError struct {
	Symbol string
}

func (e *UnlinkedExternalSymbolError) Error() string {
	return fmt.Sprintf("builtin: external symbol %q has not been linked", e.Symbol)
}

// Linker resolves External builtin symbols to native addresses. It is the
// one synchronization point of this core: addresses are unavailable until
// the embedding application links or loads its implementations, so Define
// and Resolve are guarded; everything else in the compile path is
// lock-free.
type Linker struct {
	mu    sync.RWMutex
	addrs map[string]uintptr
}

// NewLinker returns an empty linker; every Resolve fails until symbols are
// supplied via Define or LoadLibrary.
func NewLinker() *Linker {
	return &Linker{addrs: make(map[string]uintptr)}
}

// Define supplies the native address for one external symbol. Used by
// embeddings that link implementations into their own process image.
func (l *Linker) Define(symbol string, addr uintptr) error {
	if symbol == "" {
		return fmt.Errorf("builtin: empty symbol name")
	}
	if addr == 0 {
		return fmt.Errorf("builtin: nil address for symbol %q", symbol)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, exists := l.addrs[symbol]; exists && prev != addr {
		return fmt.Errorf("builtin: symbol %q already linked at %#x", symbol, prev)
	}
	l.addrs[symbol] = addr
	return nil
}

// Resolve returns the native address of an external symbol, or
// UnlinkedExternalSymbolError when the embedding has not supplied it yet.
func (l *Linker) Resolve(symbol string) (uintptr, error) {
	l.mu.RLock()
	addr, ok := l.addrs[symbol]
	l.mu.RUnlock()
	if !ok {
		return 0, &UnlinkedExternalSymbolError{Symbol: symbol}
	}
	return addr, nil
}

// Linked reports whether symbol has been supplied.
func (l *Linker) Linked(symbol string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.addrs[symbol]
	return ok
}

// Missing lists, of the given required symbols, those not yet linked.
func (l *Linker) Missing(required []string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var missing []string
	for _, sym := range required {
		if _, ok := l.addrs[sym]; !ok {
			missing = append(missing, sym)
		}
	}
	if len(missing) > 0 {
		slog.Debug("external symbols outstanding", "count", len(missing))
	}
	return missing
}
