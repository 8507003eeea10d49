package input

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// maxInput bounds how much is read from the reader.
const maxInput = 10 * 1024 * 1024

// StdinAdapter reads popup requests from standard input.
type StdinAdapter struct {
	reader io.Reader
}

// NewStdinAdapter creates a new StdinAdapter reading from os.Stdin.
func NewStdinAdapter() *StdinAdapter {
	return &StdinAdapter{reader: os.Stdin}
}

// NewStdinAdapterWithReader creates a new StdinAdapter with a custom reader.
func NewStdinAdapterWithReader(r io.Reader) *StdinAdapter {
	return &StdinAdapter{reader: r}
}

// Name returns the adapter identifier.
func (a *StdinAdapter) Name() string {
	return "stdin"
}

// Import reads requests from the reader. Three formats are accepted:
// dunstctl history output, a JSON array of requests, or one JSON
// request per line.
func (a *StdinAdapter) Import(ctx context.Context) ([]Request, error) {
	data, err := io.ReadAll(io.LimitReader(a.reader, maxInput))
	if err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read input", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		return parseJSONArray(data)
	}
	if reqs, err := ParseDunstHistory(data); err == nil {
		return reqs, nil
	}
	return parseJSONLines(data)
}

func parseJSONArray(data []byte) ([]Request, error) {
	var entries []Request
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to parse JSON array", Err: err}
	}
	return clean(entries), nil
}

func parseJSONLines(data []byte) ([]Request, error) {
	var entries []Request
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), maxInput)
	line := 0
	for scanner.Scan() {
		line++
		text := bytes.TrimSpace(scanner.Bytes())
		if len(text) == 0 {
			continue
		}
		var r Request
		if err := json.Unmarshal(text, &r); err != nil {
			return nil, &AdapterError{
				Source:  "stdin",
				Message: fmt.Sprintf("failed to parse JSON on line %d", line),
				Err:     err,
			}
		}
		entries = append(entries, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, &AdapterError{Source: "stdin", Message: "failed to read input", Err: err}
	}
	return clean(entries), nil
}

// clean sanitizes text fields and drops requests with nothing to show.
func clean(entries []Request) []Request {
	out := entries[:0]
	for _, r := range entries {
		r.Title = sanitizeString(r.Title)
		r.Body = sanitizeString(r.Body)
		if r.Title == "" && r.Body == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
