package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"ragchat/client/internal/backend"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/interfaces"
	"ragchat/client/internal/model"
)

// MaxUploadSize is the exclusive upper bound of an upload, 10MB.
const MaxUploadSize = 10 << 20

var (
	excelMIMEs = []string{
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel",
	}
	allowedExtensions = map[string]bool{".xlsx": true, ".xls": true, ".csv": true}
)

// UploadStage is a presentation-level approximation of server-side progress,
// derived from transfer percentage.
type UploadStage int

const (
	StageUploading UploadStage = iota
	StageProcessing
	StageChunking
	StageVectorizing
	StageDone
)

func (s UploadStage) String() string {
	switch s {
	case StageUploading:
		return "uploading file"
	case StageProcessing:
		return "processing file"
	case StageChunking:
		return "creating chunks"
	case StageVectorizing:
		return "saving to vector database"
	case StageDone:
		return "done"
	default:
		return fmt.Sprintf("UploadStage(%d)", int(s))
	}
}

// StageForPercent maps transfer progress onto a stage.
func StageForPercent(percent int) UploadStage {
	switch {
	case percent < 50:
		return StageUploading
	case percent < 80:
		return StageProcessing
	case percent < 95:
		return StageChunking
	default:
		return StageVectorizing
	}
}

// UploadProgress is reported while an upload runs. Percent and Stage never
// decrease within one upload.
type UploadProgress struct {
	Percent int
	Stage   UploadStage
}

// ValidateUpload checks extension, content type and size before anything is
// transmitted. content is sniffed and rewound.
func ValidateUpload(filename string, content io.ReadSeeker, size int64) error {
	if size >= MaxUploadSize {
		return fmt.Errorf("%w: file must be smaller than 10MB", app_errors.ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: only Excel (.xlsx, .xls) or CSV (.csv) files are supported", app_errors.ErrValidation)
	}

	mtype, err := mimetype.DetectReader(content)
	if _, seekErr := content.Seek(0, io.SeekStart); seekErr != nil {
		return fmt.Errorf("could not rewind %s: %w", filename, seekErr)
	}
	if err != nil {
		return fmt.Errorf("could not detect content type of %s: %w", filename, err)
	}

	isExcel := isAnyMIME(mtype, excelMIMEs)
	isCSV := mtype.Is("text/csv") || ext == ".csv"
	if !isExcel && !isCSV {
		return fmt.Errorf("%w: %s looks like %s, not a spreadsheet", app_errors.ErrValidation, filename, mtype.String())
	}
	return nil
}

func isAnyMIME(mtype *mimetype.MIME, candidates []string) bool {
	for _, c := range candidates {
		if mtype.Is(c) {
			return true
		}
	}
	return false
}

// ChunkView is the state of an open chunk listing.
type ChunkView struct {
	FileID   int64
	Page     int
	PageSize int
	Loading  bool
	Result   model.ChunkPage
}

// VectorView is the state of the vector inspector.
type VectorView struct {
	ChunkID int64
	Loading bool
	Vector  *model.ChunkVector
}

// KnowledgeBaseBrowser lists knowledge base files, pages through their chunks
// and fetches chunk vectors on demand. Responses for a file, page or chunk
// that is no longer selected are discarded.
type KnowledgeBaseBrowser struct {
	backend  interfaces.KnowledgeBaseBackend
	notifier interfaces.Notifier
	pageSize int

	mu          sync.Mutex
	files       []model.KnowledgeBaseFile
	view        *ChunkView
	viewEpoch   uint64
	vector      *VectorView
	vectorEpoch uint64
}

func NewKnowledgeBaseBrowser(b interfaces.KnowledgeBaseBackend, notifier interfaces.Notifier, pageSize int) *KnowledgeBaseBrowser {
	_, pageSize = backend.NormalizePaging(1, pageSize)
	return &KnowledgeBaseBrowser{backend: b, notifier: notifier, pageSize: pageSize}
}

// Files returns a snapshot of the file list.
func (b *KnowledgeBaseBrowser) Files() []model.KnowledgeBaseFile {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.KnowledgeBaseFile, len(b.files))
	copy(out, b.files)
	return out
}

// ListFiles refreshes the file list. On failure the list becomes empty.
func (b *KnowledgeBaseBrowser) ListFiles(ctx context.Context) ([]model.KnowledgeBaseFile, error) {
	files, err := b.backend.ListKBFiles(ctx)
	b.mu.Lock()
	if err != nil {
		b.files = []model.KnowledgeBaseFile{}
		b.mu.Unlock()
		slog.Warn("Failed to list knowledge base files", "error", err)
		b.notifier.Error("Failed to load the file list")
		return []model.KnowledgeBaseFile{}, fmt.Errorf("could not list knowledge base files: %w", err)
	}
	b.files = append([]model.KnowledgeBaseFile{}, files...)
	out := make([]model.KnowledgeBaseFile, len(b.files))
	copy(out, b.files)
	b.mu.Unlock()
	return out, nil
}

// UploadFile validates and uploads the file at path.
func (b *KnowledgeBaseBrowser) UploadFile(ctx context.Context, path string, onProgress func(UploadProgress)) (*backend.UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open %s: %v", app_errors.ErrValidation, path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("could not stat %s: %w", path, err)
	}
	return b.Upload(ctx, filepath.Base(path), f, info.Size(), onProgress)
}

// Upload validates content client-side, streams it to the backend while
// reporting staged progress, and refreshes the file list on success.
func (b *KnowledgeBaseBrowser) Upload(ctx context.Context, filename string, content io.ReadSeeker, size int64, onProgress func(UploadProgress)) (*backend.UploadResponse, error) {
	if err := ValidateUpload(filename, content, size); err != nil {
		b.notifier.Error(err.Error())
		return nil, err
	}

	tracker := &progressTracker{report: onProgress}
	tracker.update(0)

	resp, err := b.backend.UploadKBFile(ctx, filename, content, size, func(sent, total int64) {
		if total <= 0 {
			return
		}
		tracker.update(int(sent * 100 / total))
	})
	if err != nil {
		tracker.reset()
		slog.Warn("Upload failed", "filename", filename, "error", err)
		b.notifier.Error("Upload failed: " + backend.ErrorMessage(err))
		return nil, fmt.Errorf("could not upload %s: %w", filename, err)
	}

	tracker.finish()
	b.notifier.Success("Upload and processing succeeded!")
	_, _ = b.ListFiles(ctx)
	return resp, nil
}

// DeleteFile removes a file and refreshes the list. An open chunk view of the
// same file keeps its (now stale) content until it is closed.
func (b *KnowledgeBaseBrowser) DeleteFile(ctx context.Context, fileID int64) error {
	if err := b.backend.DeleteKBFile(ctx, fileID); err != nil {
		b.notifier.Error("Delete failed: " + backend.ErrorMessage(err))
		return fmt.Errorf("could not delete knowledge base file %d: %w", fileID, err)
	}
	b.notifier.Success("File deleted successfully!")
	_, _ = b.ListFiles(ctx)
	return nil
}

// ViewChunks opens (or moves) the chunk view to one server-side page. A
// pageSize of 0 keeps the current page size. On failure the view shows an
// empty page.
func (b *KnowledgeBaseBrowser) ViewChunks(ctx context.Context, fileID int64, page, pageSize int) (*model.ChunkPage, error) {
	if pageSize == 0 {
		pageSize = b.currentPageSize()
	}
	page, pageSize = backend.NormalizePaging(page, pageSize)

	b.mu.Lock()
	b.viewEpoch++
	epoch := b.viewEpoch
	if b.view == nil || b.view.FileID != fileID {
		b.clearVectorLocked()
	}
	b.view = &ChunkView{FileID: fileID, Page: page, PageSize: pageSize, Loading: true}
	b.mu.Unlock()

	result, err := b.backend.GetChunks(ctx, fileID, page, pageSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.viewEpoch != epoch {
		return nil, fmt.Errorf("%w: chunks of file %d page %d", app_errors.ErrStale, fileID, page)
	}
	b.view.Loading = false
	if err != nil {
		b.view.Result = model.ChunkPage{Chunks: []model.Chunk{}}
		slog.Warn("Failed to fetch chunks", "file_id", fileID, "page", page, "error", err)
		b.notifier.Error("Failed to load chunks")
		return nil, fmt.Errorf("could not fetch chunks of file %d: %w", fileID, err)
	}
	if result.Chunks == nil {
		result.Chunks = []model.Chunk{}
	}
	b.pageSize = pageSize
	b.view.Result = *result
	out := *result
	return &out, nil
}

// NextPage moves the open view forward one page.
func (b *KnowledgeBaseBrowser) NextPage(ctx context.Context) (*model.ChunkPage, error) {
	v, ok := b.ChunkView()
	if !ok {
		return nil, fmt.Errorf("%w: no chunk view is open", app_errors.ErrValidation)
	}
	if total := totalPages(v); total > 0 && v.Page >= total {
		return nil, fmt.Errorf("%w: already on the last page", app_errors.ErrValidation)
	}
	return b.ViewChunks(ctx, v.FileID, v.Page+1, v.PageSize)
}

// PrevPage moves the open view back one page.
func (b *KnowledgeBaseBrowser) PrevPage(ctx context.Context) (*model.ChunkPage, error) {
	v, ok := b.ChunkView()
	if !ok {
		return nil, fmt.Errorf("%w: no chunk view is open", app_errors.ErrValidation)
	}
	if v.Page <= 1 {
		return nil, fmt.Errorf("%w: already on the first page", app_errors.ErrValidation)
	}
	return b.ViewChunks(ctx, v.FileID, v.Page-1, v.PageSize)
}

// ChunkView returns a snapshot of the open chunk view.
func (b *KnowledgeBaseBrowser) ChunkView() (ChunkView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.view == nil {
		return ChunkView{}, false
	}
	v := *b.view
	v.Result.Chunks = append([]model.Chunk(nil), b.view.Result.Chunks...)
	return v, true
}

// CloseChunks closes the chunk view and the vector inspector.
func (b *KnowledgeBaseBrowser) CloseChunks() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewEpoch++
	b.view = nil
	b.clearVectorLocked()
}

// SelectChunk changes the inspected chunk, clearing any vector shown for the
// previous one.
func (b *KnowledgeBaseBrowser) SelectChunk(chunkID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.vector != nil && b.vector.ChunkID == chunkID {
		return
	}
	b.clearVectorLocked()
	b.vector = &VectorView{ChunkID: chunkID}
}

// ViewVector fetches the vector of one chunk. It is never prefetched or
// reused: every call selects the chunk and fetches anew.
func (b *KnowledgeBaseBrowser) ViewVector(ctx context.Context, fileID, chunkID int64) (*model.ChunkVector, error) {
	b.mu.Lock()
	b.clearVectorLocked()
	epoch := b.vectorEpoch
	b.vector = &VectorView{ChunkID: chunkID, Loading: true}
	b.mu.Unlock()

	vec, err := b.backend.GetChunkVector(ctx, fileID, chunkID)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.vectorEpoch != epoch || b.vector == nil || b.vector.ChunkID != chunkID {
		return nil, fmt.Errorf("%w: vector of chunk %d", app_errors.ErrStale, chunkID)
	}
	b.vector.Loading = false
	if err != nil {
		slog.Warn("Failed to fetch vector", "file_id", fileID, "chunk_id", chunkID, "error", err)
		b.notifier.Error("Failed to load vector")
		return nil, fmt.Errorf("could not fetch vector of chunk %d: %w", chunkID, err)
	}
	b.vector.Vector = vec
	out := *vec
	return &out, nil
}

// VectorView returns a snapshot of the vector inspector.
func (b *KnowledgeBaseBrowser) VectorView() (VectorView, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.vector == nil {
		return VectorView{}, false
	}
	return *b.vector, true
}

func (b *KnowledgeBaseBrowser) clearVectorLocked() {
	b.vectorEpoch++
	b.vector = nil
}

func (b *KnowledgeBaseBrowser) currentPageSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pageSize
}

func totalPages(v ChunkView) int {
	if v.Result.Pagination.TotalPages > 0 {
		return v.Result.Pagination.TotalPages
	}
	if v.PageSize <= 0 {
		return 0
	}
	return (v.Result.TotalChunks + v.PageSize - 1) / v.PageSize
}

// progressTracker keeps reported progress monotonic.
type progressTracker struct {
	report  func(UploadProgress)
	mu      sync.Mutex
	percent int
	stage   UploadStage
	started bool
}

func (t *progressTracker) update(percent int) {
	if percent > 100 {
		percent = 100
	}
	t.mu.Lock()
	if t.started && percent <= t.percent {
		t.mu.Unlock()
		return
	}
	t.started = true
	t.percent = percent
	if st := StageForPercent(percent); st > t.stage {
		t.stage = st
	}
	p := UploadProgress{Percent: t.percent, Stage: t.stage}
	t.mu.Unlock()
	if t.report != nil {
		t.report(p)
	}
}

func (t *progressTracker) finish() {
	t.mu.Lock()
	t.percent = 100
	t.stage = StageDone
	t.mu.Unlock()
	if t.report != nil {
		t.report(UploadProgress{Percent: 100, Stage: StageDone})
	}
}

func (t *progressTracker) reset() {
	t.mu.Lock()
	t.percent, t.stage, t.started = 0, StageUploading, false
	t.mu.Unlock()
	if t.report != nil {
		t.report(UploadProgress{Percent: 0, Stage: StageUploading})
	}
}
