package devserver

import (
	"encoding/csv"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"sort"
	"strings"
	"unicode"

	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/model"
)

const (
	vectorSize             = 64
	defaultMaxChunks       = 8
	defaultCosineThreshold = 0.5
)

type indexedChunk struct {
	kbID  int64
	chunk model.Chunk
}

func tokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// embed is a hashed bag-of-words vector, L2 normalized. It is deterministic
// and good enough to rank rows by word overlap.
func embed(text string) []float64 {
	vec := make([]float64, vectorSize)
	for _, tok := range tokens(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%vectorSize]++
	}
	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func cosine(a, b []float64) float64 {
	var dot float64
	for i := range a {
		dot += a[i] * b[i]
	}
	return dot
}

// retrieve ranks chunks by similarity to query and keeps at most maxChunks
// scoring at or above threshold.
func retrieve(query string, chunks []indexedChunk, maxChunks int, threshold float64) []model.Evidence {
	q := embed(query)
	out := []model.Evidence{}
	for _, ic := range chunks {
		score := cosine(q, embed(ic.chunk.Text))
		if score <= 0 || score < threshold {
			continue
		}
		out = append(out, model.Evidence{
			Content: ic.chunk.Text,
			Score:   math.Round(score*1000) / 1000,
			Metadata: model.EvidenceMetadata{
				ChunkID:  ic.chunk.ID,
				KBID:     ic.kbID,
				RowIndex: ic.chunk.RowIndex,
			},
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > maxChunks {
		out = out[:maxChunks]
	}
	return out
}

// score approximates the evaluation metrics with embedding similarity.
func score(answer, expected string, contexts []string) model.Scores {
	a, e := embed(answer), embed(expected)
	similarity := clamp01(cosine(a, e))

	recall := 0.0
	for _, c := range contexts {
		if s := cosine(embed(c), e); s > recall {
			recall = s
		}
	}
	faithfulness := 0.0
	if answer != "" && len(contexts) > 0 {
		faithfulness = clamp01(cosine(a, embed(strings.Join(contexts, " "))))
	}
	return model.Scores{
		AnswerCorrectness:  round3(similarity),
		ContextRecall:      round3(clamp01(recall)),
		Faithfulness:       round3(faithfulness),
		SemanticSimilarity: round3(similarity),
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// chunkCSV turns every data row into one chunk of "header: value" pairs.
func chunkCSV(r io.Reader) ([]model.Chunk, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: file is empty", app_errors.ErrValidation)
		}
		return nil, fmt.Errorf("%w: failed to process file: %v", app_errors.ErrValidation, err)
	}

	chunks := []model.Chunk{}
	for row := 0; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to process file: %v", app_errors.ErrValidation, err)
		}
		parts := make([]string, len(headers))
		for i, h := range headers {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			parts[i] = strings.TrimSpace(h) + ": " + value
		}
		chunks = append(chunks, model.Chunk{ID: int64(row), RowIndex: row, Text: strings.Join(parts, " | ")})
	}
	return chunks, nil
}
