package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/model"
	"ragchat/client/internal/service"
)

func evalCMD(rt *runtime) *cobra.Command {
	eval := &cobra.Command{
		Use:   "eval",
		Short: "Score the assistant's answers against expected answers",
	}

	var (
		question string
		expected string
		detail   int
	)
	manual := &cobra.Command{
		Use:   "manual",
		Short: "Evaluate one question",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			results, err := ws.Eval.EvaluateManual(cmd.Context(), question, expected)
			if err != nil {
				return err
			}
			return showResults(cmd, ws.Eval, results, 1)
		},
	}
	manual.Flags().StringVarP(&question, "question", "q", "", "question to ask")
	manual.Flags().StringVarP(&expected, "expected", "e", "", "answer the assistant should give")

	var (
		rows []int
		all  bool
	)
	bulk := &cobra.Command{
		Use:   "csv <file>",
		Short: "Evaluate rows of a CSV file with question and answer columns",
		Long: "Evaluate rows of a CSV file with question and answer columns.\n\n" +
			"Without --rows or --all the parsed rows are listed and nothing is submitted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("%w: could not open %s: %v", app_errors.ErrValidation, args[0], err)
			}
			records, err := service.ParseEvalCSV(f)
			_ = f.Close()
			if err != nil {
				return err
			}

			sel := service.NewEvalSelection(records)
			if all {
				sel.SelectAll()
			}
			for _, n := range rows {
				if _, err := sel.ToggleIndex(n - 1); err != nil {
					return err
				}
			}
			if sel.Len() == 0 {
				renderEvalRows(cmd.OutOrStdout(), sel)
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d rows; choose some with --rows or --all.\n", len(records))
				return nil
			}

			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			results, err := ws.Eval.EvaluateSelection(cmd.Context(), sel)
			if err != nil {
				return err
			}
			return showResults(cmd, ws.Eval, results, detail)
		},
	}
	bulk.Flags().IntSliceVar(&rows, "rows", nil, "toggle rows by number, e.g. --rows 1,3,4")
	bulk.Flags().BoolVar(&all, "all", false, "select every row")
	bulk.Flags().IntVar(&detail, "detail", 0, "print the full result of row n")

	eval.AddCommand(manual, bulk)
	return eval
}

func showResults(cmd *cobra.Command, h *service.EvaluationHarness, results []model.ScoredRecord, detail int) error {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "The evaluator returned no results.")
		return nil
	}
	renderScores(out, results)
	if detail == 0 {
		return nil
	}
	r, ok := h.Detail(detail - 1)
	if !ok {
		return fmt.Errorf("%w: no result %d", app_errors.ErrValidation, detail)
	}
	_, _ = fmt.Fprintln(out)
	renderScoreDetail(out, r)
	return nil
}
