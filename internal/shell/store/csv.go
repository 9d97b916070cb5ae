package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/manideepv28/delopment-netlify/internal/core/domain"
)

// =============================================================================
// CSV Codec
// =============================================================================

// ReportColumns are the columns of the exported report. The first five are
// the resume schema; readers that only know those ignore the rest.
var ReportColumns = []string{"repo_url", "hosted_url", "platform", "status", "notes", "attempt_count"}

// storeColumns extend ReportColumns with the fields needed to reload a run.
var storeColumns = append(append([]string{}, ReportColumns...), "run_id", "recorded_at")

// WriteCSV writes records with the given columns, header first.
func WriteCSV(w io.Writer, columns []string, records []domain.DeploymentRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = recordField(rec, col)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func recordField(rec domain.DeploymentRecord, col string) string {
	switch col {
	case "repo_url":
		return rec.RepoURL
	case "hosted_url":
		return rec.HostedURL
	case "platform":
		return string(rec.Platform)
	case "status":
		return string(rec.Status)
	case "notes":
		return rec.Notes
	case "attempt_count":
		return strconv.Itoa(rec.AttemptCount)
	case "run_id":
		return rec.RunID
	case "recorded_at":
		if rec.RecordedAt.IsZero() {
			return ""
		}
		return rec.RecordedAt.Format(time.RFC3339Nano)
	}
	return ""
}

// ReadCSV reads records by header name. Columns beyond the resume schema are
// optional, and status values other than "success" (any case) are read as
// failures, so reports written by older tools load too. Rows without a
// platform belong to no unit and are skipped.
func ReadCSV(r io.Reader) ([]domain.DeploymentRecord, error) {
	records, _, err := readCSV(r)
	return records, err
}

// readCSV is ReadCSV that also returns the number of rows skipped for
// having no platform.
func readCSV(r io.Reader) ([]domain.DeploymentRecord, int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"repo_url", "platform", "status"} {
		if _, ok := index[required]; !ok {
			return nil, 0, fmt.Errorf("%w: missing column %q", ErrInvalidData, required)
		}
	}

	get := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		records []domain.DeploymentRecord
		skipped int
	)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", ErrInvalidData, line, err)
		}

		if get(row, "platform") == "" {
			skipped++
			continue
		}
		platform, err := domain.ParsePlatformKind(get(row, "platform"))
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", ErrInvalidData, line, err)
		}
		rec := domain.DeploymentRecord{
			RepoURL:   get(row, "repo_url"),
			Platform:  platform,
			Status:    domain.RecordFailure,
			HostedURL: get(row, "hosted_url"),
			Notes:     get(row, "notes"),
			RunID:     get(row, "run_id"),
		}
		if strings.EqualFold(get(row, "status"), string(domain.RecordSuccess)) {
			rec.Status = domain.RecordSuccess
		} else {
			rec.HostedURL = ""
		}
		if v := get(row, "attempt_count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: line %d: attempt_count %q", ErrInvalidData, line, v)
			}
			rec.AttemptCount = n
		}
		if v := get(row, "recorded_at"); v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return nil, 0, fmt.Errorf("%w: line %d: recorded_at %q", ErrInvalidData, line, v)
			}
			rec.RecordedAt = t
		}
		if err := rec.Validate(); err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", ErrInvalidData, line, err)
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}

// WriteFileAtomic writes data produced by fn to path through a temporary file
// in the same directory, fsyncs it and renames it into place.
func WriteFileAtomic(path string, fn func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := fn(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// ExportCSV writes the latest record of every unit in s to path.
func ExportCSV(ctx context.Context, s Store, path string) error {
	records, err := s.List(ctx)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, ReportColumns, records)
	}); err != nil {
		return NewStoreError("ExportCSV", "report", path, err.Error(), ErrWriteFailed)
	}
	return nil
}

// =============================================================================
// CSVStore
// =============================================================================

// CSVStore implements Store on a single CSV file. The whole history is kept in
// memory and every Record rewrites the file atomically.
type CSVStore struct {
	path string

	mu      sync.Mutex
	records []domain.DeploymentRecord
	skipped int
	closed  bool
}

// NewCSVStore opens path, loading any records already in it.
func NewCSVStore(path string) (*CSVStore, error) {
	s := &CSVStore{path: path}

	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, NewStoreError("NewCSVStore", "", path, err.Error(), ErrConnectionFailed)
	}
	defer f.Close()

	records, skipped, err := readCSV(f)
	if err != nil {
		return nil, NewStoreError("NewCSVStore", "", path, err.Error(), err)
	}
	if skipped > 0 {
		slog.Warn("skipped rows without a platform", "path", path, "rows", skipped)
	}
	s.records = records
	s.skipped = skipped
	return s, nil
}

// SkippedRows returns how many rows of the loaded file had no platform.
func (s *CSVStore) SkippedRows() int {
	return s.skipped
}

func (s *CSVStore) HasTerminal(ctx context.Context, unit domain.DeploymentUnit) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.historyLocked(unit.Key())) > 0, nil
}

func (s *CSVStore) Latest(ctx context.Context, unit domain.DeploymentUnit) (*domain.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.historyLocked(unit.Key())
	if len(history) == 0 {
		return nil, NewStoreError("Latest", "deployment_record", unit.Key(), "not found", ErrNotFound)
	}
	rec := history[len(history)-1]
	return &rec, nil
}

func (s *CSVStore) History(ctx context.Context, unit domain.DeploymentUnit) ([]domain.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked(unit.Key()), nil
}

func (s *CSVStore) List(ctx context.Context) ([]domain.DeploymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var order []string
	latest := make(map[string]domain.DeploymentRecord)
	for _, rec := range s.records {
		key := rec.Key()
		if _, ok := latest[key]; !ok {
			order = append(order, key)
		}
		latest[key] = rec
	}
	out := make([]domain.DeploymentRecord, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out, nil
}

func (s *CSVStore) Record(ctx context.Context, rec domain.DeploymentRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return NewStoreError("Record", "deployment_record", rec.Key(), "store is closed", ErrWriteFailed)
	}
	if err := checkAppend(rec, s.historyLocked(rec.Key())); err != nil {
		return err
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}

	next := append(append([]domain.DeploymentRecord{}, s.records...), rec)
	if err := WriteFileAtomic(s.path, func(w io.Writer) error {
		return WriteCSV(w, storeColumns, next)
	}); err != nil {
		return NewStoreError("Record", "deployment_record", rec.Key(), err.Error(), ErrWriteFailed)
	}
	s.records = next
	return nil
}

func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *CSVStore) historyLocked(key string) []domain.DeploymentRecord {
	var out []domain.DeploymentRecord
	for _, rec := range s.records {
		if rec.Key() == key {
			out = append(out, rec)
		}
	}
	return out
}
