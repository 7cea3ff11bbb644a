// Package engine owns the set of per-symbol order books. It generalizes the
// teacher's fixed-AssetType registry to the spec's free-form symbol names:
// one book is constructed per enabled trading pair, and each is owned
// exclusively by a single CommandProcessor for its lifetime.
package engine

import (
	"fmt"
	"sync"

	"matchbook/internal/book"
)

// Registry holds one OrderBook per symbol.
type Registry struct {
	mu    sync.RWMutex
	books map[string]*book.OrderBook
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{books: make(map[string]*book.OrderBook)}
}

// Register creates and stores a fresh, empty order book for symbol. It is
// an error to register the same symbol twice.
func (r *Registry) Register(symbol string) (*book.OrderBook, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.books[symbol]; exists {
		return nil, fmt.Errorf("engine: symbol %q already registered", symbol)
	}

	ob := book.New(symbol)
	r.books[symbol] = ob
	return ob, nil
}

// Book returns the order book for symbol, if one is registered.
func (r *Registry) Book(symbol string) (*book.OrderBook, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ob, ok := r.books[symbol]
	return ob, ok
}

// Symbols returns the registered symbols in no particular order.
func (r *Registry) Symbols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	symbols := make([]string, 0, len(r.books))
	for s := range r.books {
		symbols = append(symbols, s)
	}
	return symbols
}
