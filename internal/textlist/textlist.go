// Package textlist provides a numbered list of strings for interactive
// selection, e.g. "1: mbed-linux-os-8379".
package textlist

import (
	"fmt"
	"strings"
	"sync"
)

// IndexedList is an append-only list addressed by 1-based index.
// Append is safe to use as a discovery subscriber.
type IndexedList struct {
	mu    sync.Mutex
	items []string
}

// New creates an empty list
func New() *IndexedList {
	return &IndexedList{}
}

// Append adds an item at the end of the list
func (l *IndexedList) Append(item string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = append(l.items, item)
}

// Len returns the number of items
func (l *IndexedList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Get returns the item with the given 1-based index
func (l *IndexedList) Get(index int) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 1 || index > len(l.items) {
		return "", fmt.Errorf("index %d out of range (1-%d)", index, len(l.items))
	}
	return l.items[index-1], nil
}

// Items returns a copy of the items in order
func (l *IndexedList) Items() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out
}

// String renders one "index: item" line per item
func (l *IndexedList) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	lines := make([]string, len(l.items))
	for i, item := range l.items {
		lines[i] = fmt.Sprintf("%d: %s", i+1, item)
	}
	return strings.Join(lines, "\n")
}
