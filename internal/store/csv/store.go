// Package csvstore implements the institution record store on top of a
// single append-only CSV file.
package csvstore

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"github.com/obscurecore/eduscan/internal/institution"
)

// header is the fixed 6-column schema of the catalog file.
var header = []string{"ID", "Тип учреждения", "Номер", "Количество учащихся", "Район", "Ссылка"}

// Store reads and appends institution records in a CSV file. Appends
// are serialized with a mutex; cross-process writers are out of scope.
type Store struct {
	mu   sync.Mutex
	path string
}

// New creates a Store backed by the file at path. The file is created
// lazily by EnsureInitialized.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	return &Store{path: path}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// EnsureInitialized creates the backing file with a header row if it
// does not exist. Idempotent.
func (s *Store) EnsureInitialized() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat store file: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush header: %w", err)
	}
	return nil
}

// Exists reports whether a record with the given id was previously
// appended. The full file is scanned; the store is small and
// append-heavy, read-light.
func (s *Store) Exists(id string) (bool, error) {
	rows, err := s.readRows()
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if len(row) > 0 && row[0] == id {
			return true, nil
		}
	}
	return false, nil
}

// ReadAll parses every row after the header. Rows whose field count is
// not 6 are skipped rather than failing the read.
func (s *Store) ReadAll() ([]institution.Record, error) {
	rows, err := s.readRows()
	if err != nil {
		return nil, err
	}
	records := make([]institution.Record, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(header) {
			continue
		}
		records = append(records, institution.Record{
			ID:            row[0],
			Type:          institution.Type(row[1]),
			Number:        row[2],
			StudentsCount: row[3],
			District:      row[4],
			URL:           row[5],
		})
	}
	return records, nil
}

// Append writes one new row. The caller must have checked Exists; the
// store itself does not enforce uniqueness.
func (s *Store) Append(rec institution.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open store file for append: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{rec.ID, string(rec.Type), rec.Number, rec.StudentsCount, rec.District, rec.URL}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush record: %w", err)
	}
	return nil
}

// readRows returns all data rows after the header, tolerating uneven
// field counts.
func (s *Store) readRows() ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open store file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(all) <= 1 {
		return nil, nil
	}
	return all[1:], nil
}
