// Package store persists quiz and feedback data as flat files under a data
// directory. All operations are whole-file: writers go through a temp file
// and rename so a concurrently running report never observes a truncated
// record.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/classroom-ai/quizgen/internal/model"
)

// QuizRecordFile is the fixed name of the persisted quiz record, overwritten
// on each successful generation.
const QuizRecordFile = "quiz_response.json"

// studentFilePattern matches per-student result files. They are written by
// the quiz submit flow and only ever read by the report aggregator.
const studentFilePattern = "student_response_*.json"

// textColumnCount is the number of leading free-text columns in the class
// feedback file; every later column holds numeric ratings.
const textColumnCount = 5

// FileStore reads and writes flat files under a single data directory.
type FileStore struct {
	dir string
}

// New creates the data directory if needed and returns a store rooted there.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the data directory path.
func (s *FileStore) Dir() string { return s.dir }

// SaveQuizRecord writes the quiz record, replacing any previous one.
func (s *FileStore) SaveQuizRecord(rec model.QuizRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quiz record: %w", err)
	}
	if err := s.writeAtomic(QuizRecordFile, data); err != nil {
		return fmt.Errorf("write quiz record: %w", err)
	}
	return nil
}

// LoadQuizRecord reads the persisted quiz record. A missing file surfaces
// as an error wrapping fs.ErrNotExist so callers can distinguish "not
// generated yet" from a corrupt record.
func (s *FileStore) LoadQuizRecord() (*model.QuizRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, QuizRecordFile))
	if err != nil {
		return nil, fmt.Errorf("read quiz record: %w", err)
	}
	var rec model.QuizRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse quiz record: %w", err)
	}
	return &rec, nil
}

// SaveStudentRecord writes one student's scored results under a unique name
// matching the pattern the aggregator globs for.
func (s *FileStore) SaveStudentRecord(rec model.StudentRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("student record has no ID")
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal student record: %w", err)
	}
	name := "student_response_" + rec.ID + ".json"
	if err := s.writeAtomic(name, data); err != nil {
		return fmt.Errorf("write student record: %w", err)
	}
	return nil
}

// LoadStudentRecords reads every per-student result file in the data
// directory, in name order. Individual unreadable files are logged and
// skipped; they never abort the report.
func (s *FileStore) LoadStudentRecords() ([]model.StudentRecord, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, studentFilePattern))
	if err != nil {
		return nil, fmt.Errorf("glob student records: %w", err)
	}
	sort.Strings(matches)

	var records []model.StudentRecord
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable student record", "path", path, "error", err)
			continue
		}
		var rec model.StudentRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			slog.Warn("skipping malformed student record", "path", path, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadFeedback parses a class feedback CSV: a header row, five leading
// free-text columns, and numeric rating columns after that. Cells in numeric
// columns that do not parse as numbers are dropped, not zeroed.
func LoadFeedback(path string) (*model.FeedbackTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open feedback file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse feedback file %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("feedback file %s has no data rows", path)
	}
	header := rows[0]
	if len(header) < textColumnCount {
		return nil, fmt.Errorf("feedback file %s has %d columns, need at least %d", path, len(header), textColumnCount)
	}

	table := &model.FeedbackTable{}
	for col, name := range header {
		name = strings.TrimSpace(name)
		if col < textColumnCount {
			fc := model.FeedbackColumn{Name: name}
			for _, row := range rows[1:] {
				if col < len(row) && strings.TrimSpace(row[col]) != "" {
					fc.Values = append(fc.Values, row[col])
				}
			}
			table.TextColumns = append(table.TextColumns, fc)
			continue
		}

		nc := model.NumericColumn{Name: name}
		for _, row := range rows[1:] {
			if col >= len(row) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				continue
			}
			nc.Values = append(nc.Values, v)
		}
		table.NumericColumns = append(table.NumericColumns, nc)
	}
	return table, nil
}

// writeAtomic writes data to name via a temp file in the same directory
// followed by a rename, so readers see either the old or the new content.
func (s *FileStore) writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
