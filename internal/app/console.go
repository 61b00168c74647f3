package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"ragchat/client/internal/model"
	"ragchat/client/internal/service"
)

// consoleNotifier prints notifications as colored lines. Notifications may
// arrive from background reloads, so writes are serialized.
type consoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func newConsoleNotifier(out io.Writer) *consoleNotifier {
	return &consoleNotifier{out: out}
}

func (n *consoleNotifier) Info(msg string)    { n.print(color.New(color.FgCyan), msg) }
func (n *consoleNotifier) Success(msg string) { n.print(color.New(color.FgGreen), msg) }
func (n *consoleNotifier) Error(msg string)   { n.print(color.New(color.FgRed), msg) }

func (n *consoleNotifier) print(c *color.Color, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = c.Fprintln(n.out, msg)
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func bandColor(band service.ScoreBand) *color.Color {
	switch band {
	case service.BandHigh:
		return color.New(color.FgGreen)
	case service.BandMedium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func formatScore(score float64) string {
	return bandColor(service.BandFor(score)).Sprintf("%.3f", score)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func formatSize(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func renderDialogs(out io.Writer, dialogs []model.Dialog) {
	if len(dialogs) == 0 {
		_, _ = fmt.Fprintln(out, "No dialogs yet. Create one with 'ragchat dialogs create <name>'.")
		return
	}
	table := newTable(out, "ID", "Name", "Messages", "Last message")
	for _, d := range dialogs {
		table.Append([]string{formatID(d.ID), d.Name, strconv.Itoa(d.MessageCount), d.LastMessageAt})
	}
	table.Render()
}

// renderMessage prints one history entry. index is the number the user passes
// to /rag.
func renderMessage(out io.Writer, index int, msg service.DecoratedMessage) {
	label := color.New(color.FgBlue, color.Bold).Sprint("you")
	if msg.Role == model.RoleAssistant {
		label = color.New(color.FgMagenta, color.Bold).Sprint("assistant")
	}
	content := msg.Content
	if msg.IsPending() {
		content = color.New(color.Faint).Sprint("...")
	}
	_, _ = fmt.Fprintf(out, "[%d] %s: %s\n", index, label, content)
	if summary := msg.Summary(); summary != "" {
		_, _ = fmt.Fprintf(out, "    %s\n", color.New(color.Faint).Sprintf("%s (/rag %d for details)", summary, index))
	}
}

func renderEvidence(out io.Writer, detail service.EvidenceDetail) {
	_, _ = fmt.Fprintf(out, "Query: %s\n", detail.Query)
	_, _ = fmt.Fprintf(out, "Status: %s\n", detail.Status())
	if !detail.NoMatches() {
		table := newTable(out, "#", "Score", "File", "Row", "Content")
		for _, ev := range detail.Evidence {
			table.Append([]string{
				strconv.Itoa(ev.Rank),
				bandColor(ev.Band).Sprintf("%.3f %s", ev.Score, ev.Band),
				formatID(ev.Metadata.KBID),
				strconv.Itoa(ev.Metadata.RowIndex),
				shorten(ev.Content, 80),
			})
		}
		table.Render()
	}
	if detail.HasContext {
		_, _ = fmt.Fprintf(out, "Context used:\n%s\n", detail.Context)
	}
}

func renderFiles(out io.Writer, files []model.KnowledgeBaseFile) {
	if len(files) == 0 {
		_, _ = fmt.Fprintln(out, "The knowledge base is empty.")
		return
	}
	table := newTable(out, "ID", "File", "Chunks", "Size", "Uploaded")
	for _, f := range files {
		table.Append([]string{formatID(f.ID), f.Filename, strconv.Itoa(f.NumChunks), formatSize(f.FileSize), f.UploadedAt})
	}
	table.Render()
}

func renderChunks(out io.Writer, page *model.ChunkPage) {
	if len(page.Chunks) == 0 {
		_, _ = fmt.Fprintln(out, "No chunks on this page.")
	} else {
		table := newTable(out, "ID", "Row", "Text")
		for _, c := range page.Chunks {
			table.Append([]string{formatID(c.ID), strconv.Itoa(c.RowIndex), shorten(c.Text, 100)})
		}
		table.Render()
	}
	p := page.Pagination
	footer := fmt.Sprintf("Page %d", p.Page)
	if p.TotalPages > 0 {
		footer += fmt.Sprintf(" of %d", p.TotalPages)
	}
	if p.EndIdx > 0 {
		footer += fmt.Sprintf(" (chunks %d-%d of %d)", p.StartIdx, p.EndIdx, page.TotalChunks)
	} else {
		footer += fmt.Sprintf(" (%d chunks total)", page.TotalChunks)
	}
	_, _ = fmt.Fprintln(out, footer)
}

func renderVector(out io.Writer, v *model.ChunkVector, dims int) {
	_, _ = fmt.Fprintf(out, "Chunk %d of file %d, %d dimensions\n", v.ChunkID, v.KBID, v.VectorSize)
	shown := v.Vector
	if len(shown) > dims {
		shown = shown[:dims]
	}
	parts := make([]string, len(shown))
	for i, x := range shown {
		parts[i] = strconv.FormatFloat(x, 'f', 4, 64)
	}
	suffix := ""
	if len(v.Vector) > len(shown) {
		suffix = fmt.Sprintf(", ... %d more", len(v.Vector)-len(shown))
	}
	_, _ = fmt.Fprintf(out, "[%s%s]\n", strings.Join(parts, ", "), suffix)
	for key, value := range v.Metadata {
		_, _ = fmt.Fprintf(out, "%s: %v\n", key, value)
	}
}

func renderEvalRows(out io.Writer, sel *service.EvalSelection) {
	table := newTable(out, "#", "Selected", "Question", "Expected answer")
	for i, rec := range sel.Rows() {
		mark := ""
		if sel.IsSelected(rec) {
			mark = "x"
		}
		table.Append([]string{strconv.Itoa(i + 1), mark, shorten(rec.Question, 60), shorten(rec.ExpectedAnswer, 60)})
	}
	table.Render()
}

func renderScores(out io.Writer, results []model.ScoredRecord) {
	table := newTable(out, "#", "Question", "Correctness", "Recall", "Faithfulness", "Similarity")
	for i, r := range results {
		table.Append([]string{
			strconv.Itoa(i + 1),
			shorten(r.Question, 50),
			formatScore(r.Score.AnswerCorrectness),
			formatScore(r.Score.ContextRecall),
			formatScore(r.Score.Faithfulness),
			formatScore(r.Score.SemanticSimilarity),
		})
	}
	table.Render()
}

func renderScoreDetail(out io.Writer, r model.ScoredRecord) {
	_, _ = fmt.Fprintf(out, "Question: %s\n", r.Question)
	_, _ = fmt.Fprintf(out, "Expected answer: %s\n", r.ExpectedAnswer)
	_, _ = fmt.Fprintf(out, "Answer: %s\n", r.Answer)
	_, _ = fmt.Fprintf(out, "Answer correctness: %s\n", formatScore(r.Score.AnswerCorrectness))
	_, _ = fmt.Fprintf(out, "Context recall: %s\n", formatScore(r.Score.ContextRecall))
	_, _ = fmt.Fprintf(out, "Faithfulness: %s\n", formatScore(r.Score.Faithfulness))
	_, _ = fmt.Fprintf(out, "Semantic similarity: %s\n", formatScore(r.Score.SemanticSimilarity))
}
