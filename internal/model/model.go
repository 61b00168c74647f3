package model

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TimestampLayout is the ISO-8601 layout used for client-generated timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Now returns the current time formatted the way the backend formats it.
func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

// Message stores a single message of the active dialog.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Timestamp  string     `json:"timestamp"`
	Loading    bool       `json:"loading,omitempty"`
	RagDetails *RagDetail `json:"ragDetails,omitempty"`
}

// IsPending reports whether the message is an unresolved assistant placeholder.
func (m Message) IsPending() bool {
	return m.Role == RoleAssistant && m.Loading
}

// Dialog is a persistent conversation thread with its own generation settings.
// Pointer fields distinguish "absent" from an explicit zero value.
type Dialog struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	CreatedAt       string         `json:"created_at,omitempty"`
	LastMessageAt   string         `json:"last_message_at,omitempty"`
	MessageCount    int            `json:"message_count"`
	SystemPrompt    string         `json:"system_prompt,omitempty"`
	ModelConfig     RawModelConfig `json:"model_config"`
	MaxChunks       *int           `json:"max_chunks,omitempty"`
	CosineThreshold *float64       `json:"cosine_threshold,omitempty"`
}

// ModelConfig holds the generation parameters of a dialog.
type ModelConfig struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// RagDetail is the retrieval metadata the backend attaches to an answer.
// A nil ContextUsed means the answer was produced without retrieval support.
type RagDetail struct {
	Query       string     `json:"query"`
	ChunksUsed  []Evidence `json:"chunks_used"`
	ContextUsed *string    `json:"context_used"`
}

// Evidence is one retrieved chunk together with its similarity score.
type Evidence struct {
	Content  string           `json:"content"`
	Score    float64          `json:"score"`
	Metadata EvidenceMetadata `json:"metadata"`
}

type EvidenceMetadata struct {
	ChunkID  int64 `json:"chunk_id"`
	KBID     int64 `json:"kb_id"`
	RowIndex int   `json:"row_index"`
}

// KnowledgeBaseFile is an uploaded source table.
type KnowledgeBaseFile struct {
	ID         int64  `json:"id"`
	Filename   string `json:"filename"`
	NumChunks  int    `json:"num_chunks"`
	FileSize   int64  `json:"file_size"`
	UploadedAt string `json:"uploaded_at"`
}

// Chunk is one source-table row of a knowledge base file.
type Chunk struct {
	ID       int64  `json:"id"`
	RowIndex int    `json:"row_index"`
	Text     string `json:"text"`
}

// Pagination describes one server-side page of chunks. Only Page and PageSize
// are guaranteed; the remaining fields are filled when the backend sends them.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	TotalPages int  `json:"total_pages,omitempty"`
	HasNext    bool `json:"has_next,omitempty"`
	HasPrev    bool `json:"has_prev,omitempty"`
	StartIdx   int  `json:"start_idx,omitempty"`
	EndIdx     int  `json:"end_idx,omitempty"`
}

// ChunkPage is the response of a paged chunk listing.
type ChunkPage struct {
	Filename    string     `json:"filename,omitempty"`
	Chunks      []Chunk    `json:"chunks"`
	Pagination  Pagination `json:"pagination"`
	TotalChunks int        `json:"total_chunks"`
}

// ChunkVector is the embedding of a single chunk.
type ChunkVector struct {
	ChunkID    int64          `json:"chunk_id"`
	KBID       int64          `json:"kb_id"`
	VectorSize int            `json:"vector_size"`
	Vector     []float64      `json:"vector"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EvalRecord is a question with the answer the evaluator expects.
type EvalRecord struct {
	Question       string `json:"question" validate:"required"`
	ExpectedAnswer string `json:"expected_answer" validate:"required"`
}

// Key is the composite identity used for bulk selection. Records sharing
// question and expected answer text collapse to one selectable entity.
func (r EvalRecord) Key() string {
	return r.Question + r.ExpectedAnswer
}

// Scores holds the per-metric results, each in [0,1].
type Scores struct {
	AnswerCorrectness  float64 `json:"answer_correctness"`
	ContextRecall      float64 `json:"context_recall"`
	Faithfulness       float64 `json:"faithfulness"`
	SemanticSimilarity float64 `json:"semantic_similarity"`
}

// ScoredRecord is an evaluated record.
type ScoredRecord struct {
	Question       string `json:"question"`
	ExpectedAnswer string `json:"expected_answer"`
	Answer         string `json:"answer"`
	Score          Scores `json:"score"`
}
