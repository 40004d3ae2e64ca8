// Package filestore is a durable store.RawStore backed by the local
// filesystem: one snappy-compressed JSONL file per aggregate stream, plus a
// single zstd-compressed JSONL file holding the global operation log. It is
// adapted from the teacher's internal/replay package, which persisted
// gameplay events the same way — a snappy.Writer for the high-frequency
// event stream, a zstd.Encoder for the lower-frequency frame log — except
// here both sinks hold the same kind of record (an encoded event), just at
// two different granularities (per stream vs. global).
//
// Each write fsyncs before returning so a crash never loses an
// acknowledged append; reads decompress the whole file, matching the
// teacher's own Loader (internal/replay/loader.go), which favors a simple,
// fully-buffered read over incremental streaming since replay artefacts are
// read rarely compared to how often they're written.
package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"flowsource/core/coreerr"
	"flowsource/core/ids"
	"flowsource/core/store"
)

var sanitizeComponent = regexp.MustCompile(`[^A-Za-z0-9_.\-]+`)

// streamRecord is one line of a per-stream file.
type streamRecord struct {
	Version int    `json:"version"`
	Raw     string `json:"raw"`
}

// logRecord is one line of the global operation-log file.
type logRecord struct {
	OpNr        int64  `json:"op_nr"`
	Tag         string `json:"tag"`
	AggregateId string `json:"aggregate_id"`
	Version     int    `json:"version"`
	Raw         string `json:"raw"`
}

// Store is a directory-backed store.RawStore. Construct with Open.
type Store struct {
	mu      sync.Mutex
	dir     string
	nextOp  int64
	logFile string
}

// Open prepares dir (creating it if necessary) as a filestore root and
// returns a Store ready to serve reads and accept writes. It replays the
// existing operation log, if any, to recover nextOp across restarts.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("filestore: directory must be provided")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create directory: %w", err)
	}

	s := &Store{dir: dir, logFile: filepath.Join(dir, "operation_log.jsonl.zst")}

	entries, err := s.readLogFile()
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		s.nextOp = entries[len(entries)-1].OpNr + 1
	} else {
		s.nextOp = 1
	}
	return s, nil
}

func streamPath(dir string, tag ids.Tag, id ids.AggregateId) string {
	name := fmt.Sprintf("%s__%s.jsonl.sz", sanitizeComponent.ReplaceAllString(tag.String(), "_"), sanitizeComponent.ReplaceAllString(id.String(), "_"))
	return filepath.Join(dir, "streams", name)
}

func (s *Store) readStreamFile(path string) ([]streamRecord, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: open stream file: %w", err)
	}
	defer file.Close()

	reader := snappy.NewReader(file)
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []streamRecord
	for scanner.Scan() {
		var rec streamRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("filestore: decode stream record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filestore: scan stream file: %w", err)
	}
	return records, nil
}

func (s *Store) appendStreamFile(path string, records []streamRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("filestore: create stream directory: %w", err)
	}

	existing, err := s.readStreamFile(path)
	if err != nil {
		return err
	}
	existing = append(existing, records...)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("filestore: create stream file: %w", err)
	}
	defer file.Close()

	writer := snappy.NewBufferedWriter(file)
	for _, rec := range existing {
		line, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if _, err := writer.Write(append(line, '\n')); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return file.Sync()
}

func (s *Store) readLogFile() ([]logRecord, error) {
	file, err := os.Open(s.logFile)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: open operation log: %w", err)
	}
	defer file.Close()

	reader, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("filestore: open operation log decoder: %w", err)
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var records []logRecord
	for scanner.Scan() {
		var rec logRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("filestore: decode operation log record: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filestore: scan operation log: %w", err)
	}
	return records, nil
}

func (s *Store) appendLogFile(records []logRecord) error {
	existing, err := s.readLogFile()
	if err != nil {
		return err
	}
	existing = append(existing, records...)

	file, err := os.Create(s.logFile)
	if err != nil {
		return fmt.Errorf("filestore: create operation log: %w", err)
	}
	defer file.Close()

	encoder, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("filestore: open operation log encoder: %w", err)
	}
	for _, rec := range existing {
		line, err := json.Marshal(rec)
		if err != nil {
			encoder.Close()
			return err
		}
		if _, err := encoder.Write(append(line, '\n')); err != nil {
			encoder.Close()
			return err
		}
	}
	if err := encoder.Close(); err != nil {
		return err
	}
	return file.Sync()
}

// ReadRaw implements store.RawStore.
func (s *Store) ReadRaw(_ context.Context, tag ids.Tag, id ids.AggregateId, fromVersion int) (store.ReadResponse[string], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readStreamFile(streamPath(s.dir, tag, id))
	if err != nil {
		return store.ReadResponse[string]{}, err
	}
	lastVersion := 0
	if len(records) > 0 {
		lastVersion = records[len(records)-1].Version
	}

	var events []string
	for _, rec := range records {
		if rec.Version > fromVersion {
			events = append(events, rec.Raw)
		}
	}
	return store.ReadResponse[string]{Version: lastVersion, Events: events}, nil
}

// AppendRaw implements store.RawStore.
func (s *Store) AppendRaw(_ context.Context, tag ids.Tag, id ids.AggregateId, expectedVersion int, events []string) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := streamPath(s.dir, tag, id)
	existing, err := s.readStreamFile(path)
	if err != nil {
		return err
	}
	currentVersion := 0
	if len(existing) > 0 {
		currentVersion = existing[len(existing)-1].Version
	}
	if currentVersion != expectedVersion {
		return coreerr.NewUnexpectedVersionError(id.String(), expectedVersion, currentVersion)
	}

	streamRecords := make([]streamRecord, 0, len(events))
	logRecords := make([]logRecord, 0, len(events))
	for i, raw := range events {
		version := expectedVersion + i + 1
		streamRecords = append(streamRecords, streamRecord{Version: version, Raw: raw})
		logRecords = append(logRecords, logRecord{
			OpNr:        s.nextOp,
			Tag:         tag.String(),
			AggregateId: id.String(),
			Version:     version,
			Raw:         raw,
		})
		s.nextOp++
	}

	if err := s.appendStreamFile(path, streamRecords); err != nil {
		return err
	}
	return s.appendLogFile(logRecords)
}

// ReadLog implements store.RawStore.
func (s *Store) ReadLog(_ context.Context, fromOpNr int64, limit int) ([]store.OperationLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readLogFile()
	if err != nil {
		return nil, err
	}

	var out []store.OperationLogEntry
	for _, rec := range records {
		if rec.OpNr < fromOpNr {
			continue
		}
		out = append(out, store.OperationLogEntry{
			OpNr:        rec.OpNr,
			Tag:         ids.Tag(rec.Tag),
			AggregateId: ids.AggregateId(rec.AggregateId),
			Version:     rec.Version,
			Raw:         rec.Raw,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
