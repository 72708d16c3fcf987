package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/charmbracelet/log"
)

// FileJournal stores one JSON object per line in an append-only file.
type FileJournal struct {
	mu     sync.Mutex
	path   string
	f      *os.File
	logger *log.Logger
}

// OpenFile opens (creating if needed) the journal file for appending. A torn
// final line left by a crash is closed off with a newline so later entries
// start on a fresh line.
func OpenFile(path string, logger *log.Logger) (*FileJournal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	j := &FileJournal{path: path, f: f, logger: logger}
	if err := j.repairTail(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return j, nil
}

func (j *FileJournal) repairTail() error {
	r, err := os.Open(j.path)
	if err != nil {
		return fmt.Errorf("open journal for repair: %w", err)
	}
	defer r.Close()

	st, err := r.Stat()
	if err != nil {
		return fmt.Errorf("stat journal: %w", err)
	}
	if st.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := r.ReadAt(last, st.Size()-1); err != nil {
		return fmt.Errorf("read journal tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	j.logger.Warn("journal ends with a partial line; terminating it", "path", j.path)
	if _, err := j.f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("repair journal tail: %w", err)
	}
	return j.f.Sync()
}

// Append writes e as one line and syncs the file before returning.
func (j *FileJournal) Append(_ context.Context, e Entry) error {
	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal journal entry: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return errors.New("journal is closed")
	}
	if _, err := j.f.Write(line); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}
	if err := j.f.Sync(); err != nil {
		return fmt.Errorf("sync journal: %w", err)
	}
	return nil
}

// Replay reads every decodable line in file order.
func (j *FileJournal) Replay(ctx context.Context) (Replay, error) {
	var out Replay
	f, err := os.Open(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("open journal for replay: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	lineNo := 0
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			j.decodeLine(&out, lineNo, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, fmt.Errorf("read journal: %w", err)
		}
	}
}

func (j *FileJournal) decodeLine(out *Replay, lineNo int, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}
	var e Entry
	err := json.Unmarshal(line, &e)
	if err == nil && e.ID != "" {
		out.Entries = append(out.Entries, e)
		return
	}
	if id, ok := damagedID(line); ok {
		j.logger.Warn("journal line no longer decodes; keeping its id as damaged", "path", j.path, "line", lineNo, "id", id, "error", err)
		out.Entries = append(out.Entries, Entry{ID: id, Damaged: true})
		return
	}
	out.Skipped++
	j.logger.Warn("skipping undecodable journal line", "path", j.path, "line", lineNo, "error", err)
}

var leadingID = regexp.MustCompile(`^\{\s*"id"\s*:\s*("(?:[^"\\]|\\.)*")`)

// damagedID recovers the id of a complete line that fails to decode. Append
// always writes the id first. A line without a closing brace is a torn write
// from a crash, and its entry was never acknowledged, so it yields nothing.
func damagedID(line []byte) (string, bool) {
	if len(line) == 0 || line[len(line)-1] != '}' {
		return "", false
	}
	m := leadingID.FindSubmatch(line)
	if m == nil {
		return "", false
	}
	var id string
	if err := json.Unmarshal(m[1], &id); err != nil || id == "" {
		return "", false
	}
	return id, true
}

func (j *FileJournal) Path() string {
	return j.path
}

func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.f == nil {
		return nil
	}
	err := j.f.Close()
	j.f = nil
	return err
}
