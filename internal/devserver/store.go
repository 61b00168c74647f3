package devserver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/model"
)

type dialogRecord struct {
	dialog   model.Dialog
	owner    string
	messages []model.Message
}

type kbRecord struct {
	file   model.KnowledgeBaseFile
	owner  string
	chunks []model.Chunk
}

// Store is the in-memory state of the development backend.
type Store struct {
	mu       sync.RWMutex
	hashCost int
	users    map[string][]byte
	sessions map[string]string
	dialogs  map[int64]*dialogRecord
	files    map[int64]*kbRecord
	nextID   int64
}

// NewStore creates an empty store. hashCost is the bcrypt cost for passwords;
// values below bcrypt.MinCost use bcrypt.DefaultCost.
func NewStore(hashCost int) *Store {
	if hashCost < bcrypt.MinCost {
		hashCost = bcrypt.DefaultCost
	}
	return &Store{
		hashCost: hashCost,
		users:    make(map[string][]byte),
		sessions: make(map[string]string),
		dialogs:  make(map[int64]*dialogRecord),
		files:    make(map[int64]*kbRecord),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) Register(username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[username]; exists {
		return fmt.Errorf("%w: user already exists", app_errors.ErrConflict)
	}
	s.users[username] = hash
	return nil
}

// Login checks the credentials and opens a session, returning its token.
func (s *Store) Login(username, password string) (string, error) {
	s.mu.RLock()
	hash, ok := s.users[username]
	s.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return "", fmt.Errorf("%w: invalid username or password", app_errors.ErrUnauthorized)
	}
	token := uuid.NewString()
	s.mu.Lock()
	s.sessions[token] = username
	s.mu.Unlock()
	return token, nil
}

func (s *Store) Logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// UserForToken resolves a session token.
func (s *Store) UserForToken(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.sessions[token]
	return user, ok
}

// --- Dialogs ---

// ListDialogs returns the user's dialogs, newest first.
func (s *Store) ListDialogs(user string) []model.Dialog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.Dialog{}
	for _, rec := range s.dialogs {
		if rec.owner == user {
			out = append(out, s.summary(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (s *Store) summary(rec *dialogRecord) model.Dialog {
	d := rec.dialog
	d.MessageCount = len(rec.messages)
	if n := len(rec.messages); n > 0 {
		d.LastMessageAt = rec.messages[n-1].Timestamp
	}
	return d
}

func (s *Store) CreateDialog(user, name string) model.Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &dialogRecord{
		owner: user,
		dialog: model.Dialog{
			ID:        s.id(),
			Name:      name,
			CreatedAt: model.Now(),
		},
	}
	s.dialogs[rec.dialog.ID] = rec
	return rec.dialog
}

func (s *Store) DeleteDialog(user string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.dialogLocked(user, id); err != nil {
		return err
	}
	delete(s.dialogs, id)
	return nil
}

func (s *Store) GetDialog(user string, id int64) (model.Dialog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.dialogLocked(user, id)
	if err != nil {
		return model.Dialog{}, err
	}
	return s.summary(rec), nil
}

// UpdateConfig stores the configuration. model_config is kept in its
// serialized string form, the way the production backend stores it.
func (s *Store) UpdateConfig(user string, id int64, req backend.UpdateDialogConfigRequest) error {
	serialized, err := json.Marshal(req.ModelConfig)
	if err != nil {
		return fmt.Errorf("could not encode model_config: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.dialogLocked(user, id)
	if err != nil {
		return err
	}
	maxChunks, threshold := req.MaxChunks, req.CosineThreshold
	rec.dialog.SystemPrompt = req.SystemPrompt
	rec.dialog.ModelConfig = model.ModelConfigString(string(serialized))
	rec.dialog.MaxChunks = &maxChunks
	rec.dialog.CosineThreshold = &threshold
	return nil
}

func (s *Store) Messages(user string, id int64) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.dialogLocked(user, id)
	if err != nil {
		return nil, err
	}
	return append([]model.Message{}, rec.messages...), nil
}

// Chat answers message in dialog id using the user's knowledge base.
func (s *Store) Chat(user string, id int64, message string) (*backend.SendMessageResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.dialogLocked(user, id)
	if err != nil {
		return nil, err
	}

	maxChunks, threshold := defaultMaxChunks, defaultCosineThreshold
	if rec.dialog.MaxChunks != nil {
		maxChunks = *rec.dialog.MaxChunks
	}
	if rec.dialog.CosineThreshold != nil {
		threshold = *rec.dialog.CosineThreshold
	}
	evidence := retrieve(message, s.userChunksLocked(user), maxChunks, threshold)

	rd := &model.RagDetail{Query: message, ChunksUsed: evidence}
	answer := "I could not find anything relevant in the knowledge base."
	if len(evidence) > 0 {
		texts := make([]string, len(evidence))
		for i, ev := range evidence {
			texts[i] = ev.Content
		}
		joined := strings.Join(texts, "\n")
		rd.ContextUsed = &joined
		answer = "Based on the knowledge base: " + evidence[0].Content
	}

	now := model.Now()
	bot := backend.BotResponse{Content: answer, Timestamp: now}
	rec.messages = append(rec.messages,
		model.Message{Role: model.RoleUser, Content: message, Timestamp: now},
		model.Message{Role: model.RoleAssistant, Content: answer, Timestamp: now, RagDetails: rd},
	)
	return &backend.SendMessageResponse{BotResponse: bot, RagDetails: rd}, nil
}

func (s *Store) dialogLocked(user string, id int64) (*dialogRecord, error) {
	rec, ok := s.dialogs[id]
	if !ok || rec.owner != user {
		return nil, fmt.Errorf("%w: dialog %d", app_errors.ErrNotFound, id)
	}
	return rec, nil
}

// --- Knowledge base ---

func (s *Store) ListFiles(user string) []model.KnowledgeBaseFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []model.KnowledgeBaseFile{}
	for _, rec := range s.files {
		if rec.owner == user {
			out = append(out, rec.file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

// AddFile stores an already chunked file.
func (s *Store) AddFile(user, filename string, size int64, chunks []model.Chunk) model.KnowledgeBaseFile {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := &kbRecord{
		owner:  user,
		chunks: chunks,
		file: model.KnowledgeBaseFile{
			ID:         s.id(),
			Filename:   filename,
			NumChunks:  len(chunks),
			FileSize:   size,
			UploadedAt: time.Now().UTC().Format(model.TimestampLayout),
		},
	}
	s.files[rec.file.ID] = rec
	return rec.file
}

func (s *Store) DeleteFile(user string, id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.fileLocked(user, id)
	if err != nil {
		return "", err
	}
	delete(s.files, id)
	return rec.file.Filename, nil
}

// Chunks returns one page of a file's chunks. Paging values are normalized
// first; a page past the end is empty.
func (s *Store) Chunks(user string, id int64, page, pageSize int) (*model.ChunkPage, error) {
	page, pageSize = backend.NormalizePaging(page, pageSize)
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.fileLocked(user, id)
	if err != nil {
		return nil, err
	}

	total := len(rec.chunks)
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > total {
		end = total
	}
	chunks := []model.Chunk{}
	if start < total {
		chunks = append(chunks, rec.chunks[start:end]...)
	}
	totalPages := (total + pageSize - 1) / pageSize
	return &model.ChunkPage{
		Filename:    rec.file.Filename,
		Chunks:      chunks,
		TotalChunks: total,
		Pagination: model.Pagination{
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
			StartIdx:   start + 1,
			EndIdx:     end,
		},
	}, nil
}

func (s *Store) Vector(user string, fileID, chunkID int64) (*model.ChunkVector, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.fileLocked(user, fileID)
	if err != nil {
		return nil, err
	}
	for _, c := range rec.chunks {
		if c.ID != chunkID {
			continue
		}
		vec := embed(c.Text)
		return &model.ChunkVector{
			ChunkID:    chunkID,
			KBID:       fileID,
			VectorSize: len(vec),
			Vector:     vec,
			Metadata: map[string]any{
				"filename":  rec.file.Filename,
				"row_index": c.RowIndex,
				"text":      c.Text,
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: chunk %d of file %d", app_errors.ErrNotFound, chunkID, fileID)
}

func (s *Store) fileLocked(user string, id int64) (*kbRecord, error) {
	rec, ok := s.files[id]
	if !ok || rec.owner != user {
		return nil, fmt.Errorf("%w: knowledge base %d", app_errors.ErrNotFound, id)
	}
	return rec, nil
}

func (s *Store) userChunksLocked(user string) []indexedChunk {
	var out []indexedChunk
	ids := make([]int64, 0, len(s.files))
	for id, rec := range s.files {
		if rec.owner == user {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		for _, c := range s.files[id].chunks {
			out = append(out, indexedChunk{kbID: id, chunk: c})
		}
	}
	return out
}

// Evaluate answers every record against the user's knowledge base and scores
// the answer against the expected one.
func (s *Store) Evaluate(user string, records []model.EvalRecord) []model.ScoredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := s.userChunksLocked(user)
	out := make([]model.ScoredRecord, 0, len(records))
	for _, rec := range records {
		evidence := retrieve(rec.Question, chunks, defaultMaxChunks, 0)
		answer := ""
		contexts := make([]string, 0, len(evidence))
		for _, ev := range evidence {
			contexts = append(contexts, ev.Content)
		}
		if len(contexts) > 0 {
			answer = contexts[0]
		}
		out = append(out, model.ScoredRecord{
			Question:       rec.Question,
			ExpectedAnswer: rec.ExpectedAnswer,
			Answer:         answer,
			Score:          score(answer, rec.ExpectedAnswer, contexts),
		})
	}
	return out
}
