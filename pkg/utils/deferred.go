// Package utils holds small helpers shared by the commands.
package utils

import (
	"io"
	"sync"
)

// DeferredWriter buffers writes until Flush is called. Each Write is kept as
// its own entry so line oriented writers such as zerolog.ConsoleWriter see
// one log event per call.
type DeferredWriter struct {
	mu      sync.Mutex
	entries [][]byte
}

func (d *DeferredWriter) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.entries = append(d.entries, append([]byte(nil), p...))
	return len(p), nil
}

// Flush writes every buffered entry to w in order and clears the buffer.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	entries := d.entries
	d.entries = nil
	d.mu.Unlock()

	for _, e := range entries {
		if _, err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}
