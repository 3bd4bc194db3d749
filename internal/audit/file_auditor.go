package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/guillermoBallester/sqlgate/internal/core/port"
)

// fileEntry is the NDJSON-serializable form of an audit record.
type fileEntry struct {
	Timestamp    string  `json:"ts"`
	RequestID    string  `json:"request_id"`
	Tool         string  `json:"tool"`
	SQL          string  `json:"sql"`
	RowsReturned int     `json:"rows_returned"`
	Truncated    bool    `json:"truncated"`
	DurationMS   int64   `json:"duration_ms"`
	Error        *string `json:"error"`
}

// FileAuditor writes audit entries as NDJSON (one JSON object per line).
type FileAuditor struct {
	mu     sync.Mutex
	w      io.WriteCloser
	enc    *json.Encoder
	now    func() time.Time
	closed bool
}

// NewFileAuditor opens (or creates) the file at path for append-only writing.
func NewFileAuditor(path string) (*FileAuditor, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return NewWriterAuditor(f), nil
}

// NewWriterAuditor writes entries to w and closes it on Close.
func NewWriterAuditor(w io.WriteCloser) *FileAuditor {
	return &FileAuditor{
		w:   w,
		enc: json.NewEncoder(w),
		now: time.Now,
	}
}

func (a *FileAuditor) Record(_ context.Context, entry port.AuditEntry) {
	fe := fileEntry{
		Timestamp:    a.now().UTC().Format(time.RFC3339Nano),
		RequestID:    entry.RequestID,
		Tool:         entry.Tool,
		SQL:          entry.SQL,
		RowsReturned: entry.RowsReturned,
		Truncated:    entry.Truncated,
		DurationMS:   entry.DurationMS,
	}
	if entry.Err != nil {
		s := entry.Err.Error()
		fe.Error = &s
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	_ = a.enc.Encode(fe) // best-effort; don't fail the request for audit I/O
}

// Close is idempotent. Entries recorded after Close are dropped.
func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	return a.w.Close()
}
