package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/popsched/internal/model"
)

// SchemaVersion is the current journal schema version.
const SchemaVersion = 1

// Persistence defines the interface for event journal storage.
type Persistence interface {
	// Load reads all events from storage.
	Load() ([]model.Event, error)

	// Append adds an event to storage.
	Append(ev model.Event) error

	// AppendBatch adds multiple events efficiently.
	AppendBatch(evs []model.Event) error

	// Rewrite replaces the entire storage file (used after prune).
	Rewrite(evs []model.Event) error

	// Close releases file handles and resources.
	Close() error
}

// schemaHeader is the first line of the JSONL file.
type schemaHeader struct {
	PopschedSchemaVersion int   `json:"popsched_schema_version"`
	CreatedAt             int64 `json:"created_at"`
}

// ErrJournalClosed is returned when operations are attempted on a closed journal.
var ErrJournalClosed = errors.New("journal is closed")

// JSONLPersistence implements Persistence using a JSONL file.
type JSONLPersistence struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	closed bool
}

// NewJSONLPersistence opens the journal at path, creating it if needed.
func NewJSONLPersistence(path string) (*JSONLPersistence, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	p := &JSONLPersistence{
		path: path,
		file: file,
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}

	if info.Size() == 0 {
		if err := p.writeHeader(); err != nil {
			file.Close()
			return nil, err
		}
	}

	return p, nil
}

// Path returns the journal file path.
func (p *JSONLPersistence) Path() string {
	return p.path
}

func (p *JSONLPersistence) writeHeader() error {
	header := schemaHeader{
		PopschedSchemaVersion: SchemaVersion,
		CreatedAt:             time.Now().Unix(),
	}

	data, err := json.Marshal(header)
	if err != nil {
		return err
	}

	_, err = p.file.Write(append(data, '\n'))
	return err
}

// Load reads all events from the journal. Malformed lines are skipped.
func (p *JSONLPersistence) Load() ([]model.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return nil, ErrJournalClosed
	}

	if _, err := p.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek %s: %w", p.path, err)
	}

	events, err := readEvents(p.file)
	if err != nil {
		return events, fmt.Errorf("read %s: %w", p.path, err)
	}

	if _, err := p.file.Seek(0, io.SeekEnd); err != nil {
		return events, err
	}
	return events, nil
}

// readEvents decodes a journal stream.
func readEvents(r io.Reader) ([]model.Event, error) {
	var events []model.Event
	scanner := bufio.NewScanner(r)

	const maxLineSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		if lineNum == 1 {
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err == nil && header.PopschedSchemaVersion > 0 {
				if header.PopschedSchemaVersion > SchemaVersion {
					return nil, fmt.Errorf("unsupported schema version %d (max: %d)",
						header.PopschedSchemaVersion, SchemaVersion)
				}
				continue
			}
		}

		var ev model.Event
		if err := json.Unmarshal(line, &ev); err != nil || ev.Kind == "" {
			continue
		}
		events = append(events, ev)
	}

	return events, scanner.Err()
}

// Append adds an event to the journal.
func (p *JSONLPersistence) Append(ev model.Event) error {
	return p.AppendBatch([]model.Event{ev})
}

// AppendBatch adds multiple events with a single sync.
func (p *JSONLPersistence) AppendBatch(evs []model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.file == nil {
		return ErrJournalClosed
	}

	for _, ev := range evs {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := p.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return p.file.Sync()
}

// Rewrite replaces the journal contents (used after prune).
func (p *JSONLPersistence) Rewrite(evs []model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrJournalClosed
	}

	if p.file != nil {
		if err := p.file.Close(); err != nil {
			return err
		}
		p.file = nil
	}

	backupPath := p.path + ".bak"
	if err := os.Rename(p.path, backupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	file, err := os.OpenFile(p.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0600)
	if err != nil {
		os.Rename(backupPath, p.path)
		return fmt.Errorf("failed to create new file: %w", err)
	}
	p.file = file

	if err := p.writeHeader(); err != nil {
		return err
	}
	for _, ev := range evs {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := p.file.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	if err := p.file.Sync(); err != nil {
		return err
	}

	os.Remove(backupPath)
	return nil
}

// Close releases the file handle.
func (p *JSONLPersistence) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.file != nil {
		err := p.file.Close()
		p.file = nil
		return err
	}
	return nil
}

// ReadJournal reads the journal at path without opening it for writing.
// A missing file yields no events.
func ReadJournal(path string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	return readEvents(f)
}

// ErrReadOnly is returned when writing through a read-only journal.
var ErrReadOnly = errors.New("journal is read-only")

// ReadOnlyPersistence loads a journal written by another process.
type ReadOnlyPersistence struct {
	path string
}

// NewReadOnlyPersistence returns a Persistence that only loads path.
func NewReadOnlyPersistence(path string) *ReadOnlyPersistence {
	return &ReadOnlyPersistence{path: path}
}

func (r *ReadOnlyPersistence) Load() ([]model.Event, error)    { return ReadJournal(r.path) }
func (r *ReadOnlyPersistence) Append(model.Event) error        { return ErrReadOnly }
func (r *ReadOnlyPersistence) AppendBatch([]model.Event) error { return ErrReadOnly }
func (r *ReadOnlyPersistence) Rewrite([]model.Event) error     { return ErrReadOnly }
func (r *ReadOnlyPersistence) Close() error                    { return nil }
