package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/interfaces/mocks"
	"ragchat/client/internal/model"
	"ragchat/client/internal/service"
)

func TestParseEvalCSV(t *testing.T) {
	t.Run("Quotes are stripped and whitespace trimmed", func(t *testing.T) {
		input := "question,answer\na\"b, c \n\"\"\"quoted\"\"\",plain\n"

		records, err := service.ParseEvalCSV(strings.NewReader(input))

		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, model.EvalRecord{Question: "ab", ExpectedAnswer: "c"}, records[0])
		assert.Equal(t, model.EvalRecord{Question: "quoted", ExpectedAnswer: "plain"}, records[1])
	})

	t.Run("Extra columns and column order", func(t *testing.T) {
		input := "id,answer,question\n1,yes,is it\n"

		records, err := service.ParseEvalCSV(strings.NewReader(input))

		require.NoError(t, err)
		assert.Equal(t, []model.EvalRecord{{Question: "is it", ExpectedAnswer: "yes"}}, records)
	})

	t.Run("Rows without a question are skipped", func(t *testing.T) {
		input := "question,answer\n,orphan\n\nreal,one\n"

		records, err := service.ParseEvalCSV(strings.NewReader(input))

		require.NoError(t, err)
		assert.Equal(t, []model.EvalRecord{{Question: "real", ExpectedAnswer: "one"}}, records)
	})

	t.Run("Rows without an answer are skipped", func(t *testing.T) {
		input := "question,answer\nq1,\nq2,  \nq3,a3\n"

		records, err := service.ParseEvalCSV(strings.NewReader(input))

		require.NoError(t, err)
		assert.Equal(t, []model.EvalRecord{{Question: "q3", ExpectedAnswer: "a3"}}, records)
	})

	t.Run("Missing columns", func(t *testing.T) {
		_, err := service.ParseEvalCSV(strings.NewReader("q,a\nx,y\n"))
		assert.ErrorIs(t, err, app_errors.ErrParse)
	})

	t.Run("Empty input", func(t *testing.T) {
		_, err := service.ParseEvalCSV(strings.NewReader(""))
		assert.ErrorIs(t, err, app_errors.ErrParse)
	})
}

func TestEvalSelection(t *testing.T) {
	a := model.EvalRecord{Question: "q1", ExpectedAnswer: "a1"}
	b := model.EvalRecord{Question: "q2", ExpectedAnswer: "a2"}

	t.Run("Toggle twice is a no-op", func(t *testing.T) {
		sel := service.NewEvalSelection([]model.EvalRecord{a, b})

		assert.True(t, sel.Toggle(a))
		assert.False(t, sel.Toggle(a))
		assert.Zero(t, sel.Len())
		assert.False(t, sel.IsSelected(a))
	})

	t.Run("Duplicate rows collapse under one key", func(t *testing.T) {
		dup := a
		sel := service.NewEvalSelection([]model.EvalRecord{a, dup, b})

		sel.SelectAll()
		assert.Equal(t, 2, sel.Len())

		sel.Toggle(dup)
		assert.False(t, sel.IsSelected(a))
		assert.Equal(t, []model.EvalRecord{b}, sel.Selected())
	})

	t.Run("Toggle by index", func(t *testing.T) {
		sel := service.NewEvalSelection([]model.EvalRecord{a, b})

		on, err := sel.ToggleIndex(1)
		require.NoError(t, err)
		assert.True(t, on)
		assert.True(t, sel.IsSelected(b))

		_, err = sel.ToggleIndex(5)
		assert.ErrorIs(t, err, app_errors.ErrValidation)

		sel.Clear()
		assert.Zero(t, sel.Len())
	})
}

func TestEvaluationHarness(t *testing.T) {
	ctx := context.Background()
	scored := []model.ScoredRecord{{
		Question: "q1", ExpectedAnswer: "a1", Answer: "a1!",
		Score: model.Scores{AnswerCorrectness: 0.9, ContextRecall: 0.8, Faithfulness: 1, SemanticSimilarity: 0.95},
	}}

	t.Run("Manual pair", func(t *testing.T) {
		b := mocks.NewMockEvaluationBackend(t)
		b.On("Evaluate", mock.Anything, []model.EvalRecord{{Question: "q1", ExpectedAnswer: "a1"}}).Return(scored, nil).Once()

		h := service.NewEvaluationHarness(b, &service.RecordingNotifier{})
		results, err := h.EvaluateManual(ctx, " q1 ", "a1")

		require.NoError(t, err)
		assert.Equal(t, scored, results)
		detail, ok := h.Detail(0)
		require.True(t, ok)
		assert.Equal(t, "a1!", detail.Answer)
		_, ok = h.Detail(1)
		assert.False(t, ok)
	})

	t.Run("Manual pair requires both fields", func(t *testing.T) {
		h := service.NewEvaluationHarness(mocks.NewMockEvaluationBackend(t), &service.RecordingNotifier{})

		_, err := h.EvaluateManual(ctx, "q", "  ")
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Empty selection is rejected", func(t *testing.T) {
		h := service.NewEvaluationHarness(mocks.NewMockEvaluationBackend(t), &service.RecordingNotifier{})

		_, err := h.EvaluateSelection(ctx, service.NewEvalSelection(nil))
		assert.ErrorIs(t, err, app_errors.ErrValidation)
	})

	t.Run("Selected rows are submitted in one batch", func(t *testing.T) {
		rows := []model.EvalRecord{{Question: "q1", ExpectedAnswer: "a1"}, {Question: "q2", ExpectedAnswer: "a2"}}
		b := mocks.NewMockEvaluationBackend(t)
		b.On("Evaluate", mock.Anything, rows).Return(scored, nil).Once()

		sel := service.NewEvalSelection(rows)
		sel.SelectAll()
		h := service.NewEvaluationHarness(b, &service.RecordingNotifier{})

		_, err := h.EvaluateSelection(ctx, sel)
		require.NoError(t, err)
	})

	t.Run("Failure clears previous results", func(t *testing.T) {
		b := mocks.NewMockEvaluationBackend(t)
		notifier := &service.RecordingNotifier{}
		b.On("Evaluate", mock.Anything, mock.Anything).Return(scored, nil).Once()
		b.On("Evaluate", mock.Anything, mock.Anything).Return(nil, app_errors.ErrServer).Once()

		h := service.NewEvaluationHarness(b, notifier)
		_, err := h.EvaluateManual(ctx, "q1", "a1")
		require.NoError(t, err)
		_, err = h.EvaluateManual(ctx, "q1", "a1")

		assert.ErrorIs(t, err, app_errors.ErrServer)
		assert.Empty(t, h.Results())
		assert.Len(t, notifier.Errors(), 1)
	})
}
