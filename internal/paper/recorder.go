package paper

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/sergvlet/AiTradeBot-sub002/internal/execution"
)

// JSONLRecorder appends each fill as one JSON line, so a paper session
// leaves a trade log that survives the process and diffs cleanly between
// tuning experiments.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewJSONLRecorder opens path for appending, creating parent directories as
// needed.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Record implements FillRecorder. Write errors are swallowed: a full disk
// must not take the trading loop down with it.
func (r *JSONLRecorder) Record(fill execution.Fill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.enc.Encode(fill)
}

// Close releases the file handle. Safe to call twice.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
