package runlog

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
)

// maxLine bounds a single stored run. Runs carry full traces, so lines are
// much longer than bufio's default token size.
const maxLine = 64 << 20

// JSONLStore stores runs in a JSONL file, one run per line.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONLStore creates the file at path if needed.
func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) Append(ctx context.Context, rec RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(rec)
}

// Get returns the last record stored for runID.
func (s *JSONLStore) Get(ctx context.Context, runID string) (RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		found RunRecord
		ok    bool
	)
	err := s.scan(func(r RunRecord) {
		if r.RunID == runID {
			found, ok = r, true
		}
	})
	if err != nil {
		return RunRecord{}, err
	}
	if !ok {
		return RunRecord{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return found, nil
}

func (s *JSONLStore) Query(ctx context.Context, q RunQuery) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []RunRecord
	err := s.scan(func(r RunRecord) {
		if q.match(r) {
			res = append(res, r)
		}
	})
	if err != nil {
		return nil, err
	}
	return limit(res, q.Limit), nil
}

func (s *JSONLStore) scan(fn func(RunRecord)) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return scanRecords(f, fn)
}

func (s *JSONLStore) Close() error { return nil }

// scanRecords decodes one record per line, skipping malformed lines.
func scanRecords(r io.Reader, fn func(RunRecord)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		var rec RunRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		fn(rec)
	}
	return scanner.Err()
}

// limit sorts by start time and keeps the n most recent records.
func limit(res []RunRecord, n int) []RunRecord {
	sort.SliceStable(res, func(i, j int) bool { return res[i].StartedAt.Before(res[j].StartedAt) })
	if n > 0 && len(res) > n {
		res = res[len(res)-n:]
	}
	return res
}
