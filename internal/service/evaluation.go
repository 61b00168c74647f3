package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/interfaces"
	"ragchat/client/internal/model"
)

// normalizeCell strips every double quote and surrounding whitespace.
func normalizeCell(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, `"`, ""))
}

// ParseEvalCSV reads question/answer pairs from a CSV with a header row. The
// "answer" column maps to the expected answer ("expected_answer" is accepted
// too). Malformed rows are logged and skipped; only an unreadable header fails.
func ParseEvalCSV(r io.Reader) ([]model.EvalRecord, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: csv file is empty", app_errors.ErrParse)
		}
		return nil, fmt.Errorf("%w: could not read csv header: %v", app_errors.ErrParse, err)
	}

	questionCol, answerCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(normalizeCell(strings.TrimPrefix(name, "\ufeff"))) {
		case "question":
			questionCol = i
		case "answer":
			answerCol = i
		case "expected_answer":
			if answerCol < 0 {
				answerCol = i
			}
		}
	}
	if questionCol < 0 || answerCol < 0 {
		return nil, fmt.Errorf("%w: csv header must contain question and answer columns", app_errors.ErrParse)
	}

	var records []model.EvalRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			slog.Warn("Skipping malformed csv row", "line", line, "error", err)
			continue
		}
		if isBlankRow(row) {
			continue
		}
		rec := model.EvalRecord{
			Question:       cell(row, questionCol),
			ExpectedAnswer: cell(row, answerCol),
		}
		if rec.Question == "" {
			slog.Warn("Skipping csv row without a question", "line", line)
			continue
		}
		if rec.ExpectedAnswer == "" {
			slog.Warn("Skipping csv row without an answer", "line", line)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return normalizeCell(row[i])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// EvalSelection is the bulk-mode selection over parsed rows. Rows are keyed by
// question+expected answer, so duplicates under that key are one entity.
type EvalSelection struct {
	mu       sync.Mutex
	rows     []model.EvalRecord
	selected []model.EvalRecord
}

func NewEvalSelection(rows []model.EvalRecord) *EvalSelection {
	return &EvalSelection{rows: append([]model.EvalRecord(nil), rows...)}
}

// Rows returns all parsed rows.
func (s *EvalSelection) Rows() []model.EvalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.EvalRecord(nil), s.rows...)
}

// Toggle adds rec to the batch or removes it, returning whether it is now
// selected.
func (s *EvalSelection) Toggle(rec model.EvalRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rec.Key()
	for i, sel := range s.selected {
		if sel.Key() == key {
			s.selected = append(s.selected[:i], s.selected[i+1:]...)
			return false
		}
	}
	s.selected = append(s.selected, rec)
	return true
}

// ToggleIndex toggles the row at position i of Rows.
func (s *EvalSelection) ToggleIndex(i int) (bool, error) {
	s.mu.Lock()
	if i < 0 || i >= len(s.rows) {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: row %d out of range", app_errors.ErrValidation, i+1)
	}
	rec := s.rows[i]
	s.mu.Unlock()
	return s.Toggle(rec), nil
}

// SelectAll selects every distinct row.
func (s *EvalSelection) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.rows))
	s.selected = s.selected[:0]
	for _, r := range s.rows {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		s.selected = append(s.selected, r)
	}
}

// Clear empties the batch.
func (s *EvalSelection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// IsSelected reports whether rec's key is in the batch.
func (s *EvalSelection) IsSelected(rec model.EvalRecord) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sel := range s.selected {
		if sel.Key() == rec.Key() {
			return true
		}
	}
	return false
}

// Selected returns the batch in selection order.
func (s *EvalSelection) Selected() []model.EvalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.EvalRecord(nil), s.selected...)
}

func (s *EvalSelection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.selected)
}

// EvaluationHarness submits question/expected-answer batches for scoring and
// keeps the last results for drill-down.
type EvaluationHarness struct {
	backend  interfaces.EvaluationBackend
	notifier interfaces.Notifier

	mu      sync.Mutex
	results []model.ScoredRecord
}

func NewEvaluationHarness(b interfaces.EvaluationBackend, notifier interfaces.Notifier) *EvaluationHarness {
	return &EvaluationHarness{backend: b, notifier: notifier}
}

// EvaluateManual scores one manually entered pair; both fields are required.
func (h *EvaluationHarness) EvaluateManual(ctx context.Context, question, expectedAnswer string) ([]model.ScoredRecord, error) {
	rec := model.EvalRecord{Question: strings.TrimSpace(question), ExpectedAnswer: strings.TrimSpace(expectedAnswer)}
	if rec.Question == "" || rec.ExpectedAnswer == "" {
		return nil, fmt.Errorf("%w: question and expected answer are required", app_errors.ErrValidation)
	}
	return h.Evaluate(ctx, []model.EvalRecord{rec})
}

// EvaluateSelection scores the selected rows in one call.
func (h *EvaluationHarness) EvaluateSelection(ctx context.Context, sel *EvalSelection) ([]model.ScoredRecord, error) {
	records := sel.Selected()
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: select at least one question", app_errors.ErrValidation)
	}
	return h.Evaluate(ctx, records)
}

// Evaluate submits records as one batch. On failure the results are emptied.
func (h *EvaluationHarness) Evaluate(ctx context.Context, records []model.EvalRecord) ([]model.ScoredRecord, error) {
	scored, err := h.backend.Evaluate(ctx, records)
	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.results = nil
		slog.Warn("Evaluation failed", "records", len(records), "error", err)
		h.notifier.Error("Evaluation failed: " + backend.ErrorMessage(err))
		return nil, fmt.Errorf("could not evaluate %d records: %w", len(records), err)
	}
	h.results = append([]model.ScoredRecord(nil), scored...)
	return append([]model.ScoredRecord(nil), scored...), nil
}

// Results returns the last evaluation results.
func (h *EvaluationHarness) Results() []model.ScoredRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.ScoredRecord(nil), h.results...)
}

// Detail returns result row i for drill-down.
func (h *EvaluationHarness) Detail(i int) (model.ScoredRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i < 0 || i >= len(h.results) {
		return model.ScoredRecord{}, false
	}
	return h.results[i], true
}
