// Package mail provides EmailSender implementations. Production
// deployments bring their own sender; the writer sender here backs local
// development and tests, printing codes instead of delivering them.
package mail

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// WriterSender writes one line per issued code to w. Never use it outside
// development: it puts codes in plain text wherever w points.
type WriterSender struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSender(w io.Writer) *WriterSender {
	return &WriterSender{w: w}
}

func (s *WriterSender) SendCode(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.w, "login code for %s: %s\n", email, code)
	return err
}
