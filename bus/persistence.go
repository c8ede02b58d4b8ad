package bus

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Rotation thresholds for the file-backed log. When either is exceeded on
// Append, the current log is renamed to a single ".1" generation and a fresh
// log is started — see SPEC_FULL.md §D's Open Question decision: one rotation
// generation is kept, not an unbounded series, since load_persisted() exists
// for inspection/recovery rather than long-term audit.
const (
	MaxLogEntries = 10_000
	MaxLogBytes   = 10 * 1024 * 1024
)

// FilePersister is the default Persister: an append-only JSONL file under
// coordination/<bus-log>.jsonl per spec.md §6's persisted-state layout.
// Grounded on that section combined with redis_task_queue.go's
// encode-one-JSON-document-per-entry convention (the JSONL format maps
// directly onto Redis's one-list-entry-per-message shape).
type FilePersister struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	writer  *bufio.Writer
	entries int
	bytes   int64
}

// NewFilePersister opens (creating if needed) the JSONL log at path.
func NewFilePersister(path string) (*FilePersister, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("bus: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("bus: open log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bus: stat log: %w", err)
	}

	entries, err := countLines(path)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("bus: count existing entries: %w", err)
	}

	return &FilePersister{
		path:    path,
		file:    f,
		writer:  bufio.NewWriter(f),
		entries: entries,
		bytes:   info.Size(),
	}, nil
}

// Append writes env as one JSON line, rotating the log first if it has
// grown past MaxLogEntries or MaxLogBytes.
func (p *FilePersister) Append(_ context.Context, env Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.entries >= MaxLogEntries || p.bytes >= MaxLogBytes {
		if err := p.rotateLocked(); err != nil {
			return fmt.Errorf("bus: rotate log: %w", err)
		}
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("bus: marshal envelope: %w", err)
	}
	data = append(data, '\n')

	n, err := p.writer.Write(data)
	if err != nil {
		return fmt.Errorf("bus: write log entry: %w", err)
	}
	if err := p.writer.Flush(); err != nil {
		return fmt.Errorf("bus: flush log: %w", err)
	}

	p.entries++
	p.bytes += int64(n)
	return nil
}

// rotateLocked renames the current log to a single ".1" generation,
// discarding any prior ".1" file, and starts a fresh log. Caller must hold
// p.mu.
func (p *FilePersister) rotateLocked() error {
	if err := p.writer.Flush(); err != nil {
		return err
	}
	if err := p.file.Close(); err != nil {
		return err
	}

	rotated := p.path + ".1"
	_ = os.Remove(rotated)
	if err := os.Rename(p.path, rotated); err != nil {
		return err
	}

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	p.file = f
	p.writer = bufio.NewWriter(f)
	p.entries = 0
	p.bytes = 0
	return nil
}

// LoadAll returns the full log (prior generation then current, in insertion
// order) for recovery/inspection.
func (p *FilePersister) LoadAll(_ context.Context) ([]Envelope, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.writer.Flush(); err != nil {
		return nil, err
	}

	var envs []Envelope
	if rotated, err := readEnvelopes(p.path + ".1"); err == nil {
		envs = append(envs, rotated...)
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	current, err := readEnvelopes(p.path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	envs = append(envs, current...)

	return envs, nil
}

// Close flushes and closes the underlying file.
func (p *FilePersister) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.writer.Flush(); err != nil {
		return err
	}
	return p.file.Close()
}

func readEnvelopes(path string) ([]Envelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var envs []Envelope
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(line, &env); err != nil {
			return nil, fmt.Errorf("bus: parse log line: %w", err)
		}
		envs = append(envs, env)
	}
	return envs, scanner.Err()
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}

var _ Persister = (*FilePersister)(nil)
