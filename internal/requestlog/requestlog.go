// Package requestlog records every provider attempt as one JSON object per
// line in an append-only file. Consumers tail the file as a stream; records
// are never rewritten.
package requestlog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Record is one provider attempt, success or failure.
type Record struct {
	Timestamp time.Time `json:"ts"`
	Category  string    `json:"category"`
	Provider  string    `json:"provider"`
	Success   bool      `json:"success"`
	LatencyMs int64     `json:"latency_ms"`
	Usage     int64     `json:"usage,omitempty"`
	ErrorKind string    `json:"error_kind,omitempty"`
	Error     string    `json:"error,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// Sink receives attempt records in write order.
type Sink interface {
	Append(rec Record) error
}

// FileSink writes newline-delimited JSON to an append-only file. Safe for
// concurrent use; the lock also fixes record order.
type FileSink struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

func OpenFile(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("requestlog: open %s: %w", path, err)
	}
	return &FileSink{f: f, enc: json.NewEncoder(f)}, nil
}

func (s *FileSink) Append(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(rec)
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// Buffer is an in-memory sink for tests and health checks.
type Buffer struct {
	mu   sync.Mutex
	recs []Record
}

func (b *Buffer) Append(rec Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recs = append(b.recs, rec)
	return nil
}

// Records returns a copy of everything appended so far, in write order.
func (b *Buffer) Records() []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Record, len(b.recs))
	copy(out, b.recs)
	return out
}
