package devserver_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ragchat/client/internal/backend"
	"ragchat/client/internal/devserver"
	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/model"
)

// newClient starts a devserver and returns a client signed in as alice.
func newClient(t *testing.T) (*backend.Client, *devserver.Store) {
	t.Helper()
	store := devserver.NewStore(bcrypt.MinCost)
	srv := httptest.NewServer(devserver.NewRouter(devserver.NewHandler(store), []string{"*"}))
	t.Cleanup(srv.Close)

	client, err := backend.NewClient(backend.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()
	creds := backend.Credentials{Username: "alice", Password: "secret"}
	require.NoError(t, client.Register(ctx, creds))
	resp, err := client.Login(ctx, creds)
	require.NoError(t, err)
	require.Equal(t, "alice", resp.Username)
	return client, store
}

func addChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for key, value := range params {
		chiCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

func csvRows(n int) string {
	var sb strings.Builder
	sb.WriteString("herb,use\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "herb %d,tonic number %d\n", i, i)
	}
	return sb.String()
}

func TestAuth(t *testing.T) {
	ctx := context.Background()
	store := devserver.NewStore(bcrypt.MinCost)
	srv := httptest.NewServer(devserver.NewRouter(devserver.NewHandler(store), nil))
	defer srv.Close()

	client, err := backend.NewClient(backend.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	t.Run("Unauthenticated requests are rejected", func(t *testing.T) {
		_, err := client.ListDialogs(ctx)
		assert.ErrorIs(t, err, app_errors.ErrUnauthorized)
	})

	t.Run("Duplicate registration conflicts", func(t *testing.T) {
		creds := backend.Credentials{Username: "bob", Password: "pw"}
		require.NoError(t, client.Register(ctx, creds))
		err := client.Register(ctx, creds)
		assert.ErrorIs(t, err, app_errors.ErrServer)
		assert.Equal(t, "user already exists", backend.ErrorMessage(err))
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := client.Login(ctx, backend.Credentials{Username: "bob", Password: "nope"})
		assert.ErrorIs(t, err, app_errors.ErrUnauthorized)
	})

	t.Run("Logout ends the session", func(t *testing.T) {
		_, err := client.Login(ctx, backend.Credentials{Username: "bob", Password: "pw"})
		require.NoError(t, err)
		_, err = client.ListDialogs(ctx)
		require.NoError(t, err)

		require.NoError(t, client.Logout(ctx))
		_, err = client.ListDialogs(ctx)
		assert.ErrorIs(t, err, app_errors.ErrUnauthorized)
	})
}

func TestDialogs(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	first, err := client.CreateDialog(ctx, "first")
	require.NoError(t, err)
	second, err := client.CreateDialog(ctx, "second")
	require.NoError(t, err)

	dialogs, err := client.ListDialogs(ctx)
	require.NoError(t, err)
	require.Len(t, dialogs, 2)
	assert.Equal(t, second.ID, dialogs[0].ID, "newest first")

	require.NoError(t, client.DeleteDialog(ctx, first.ID))
	_, err = client.GetDialog(ctx, first.ID)
	assert.ErrorIs(t, err, app_errors.ErrNotFound)
}

func TestDialogConfig_RoundTripsThroughStringForm(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	d, err := client.CreateDialog(ctx, "cfg")
	require.NoError(t, err)

	req := backend.UpdateDialogConfigRequest{
		SystemPrompt:    "short answers",
		ModelConfig:     backend.ModelConfigRequest{Model: "gemini-2.5-flash", Temperature: 0, MaxTokens: 256},
		MaxChunks:       3,
		CosineThreshold: 0,
	}
	require.NoError(t, client.UpdateDialogConfig(ctx, d.ID, req))

	got, err := client.GetDialog(ctx, d.ID)
	require.NoError(t, err)
	assert.True(t, got.ModelConfig.IsString())
	fields, err := got.ModelConfig.Resolve()
	require.NoError(t, err)
	require.NotNil(t, fields.Temperature)
	assert.Equal(t, 0.0, *fields.Temperature)
	assert.Equal(t, "gemini-2.5-flash", *fields.Model)
	require.NotNil(t, got.CosineThreshold)
	assert.Equal(t, 0.0, *got.CosineThreshold)
	assert.Equal(t, "short answers", got.SystemPrompt)
}

func TestChat_UsesKnowledgeBase(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	content := "herb,use\nginseng,restores vital energy\nlicorice,harmonizes formulas\n"
	_, err := client.UploadKBFile(ctx, "herbs.csv", strings.NewReader(content), int64(len(content)), nil)
	require.NoError(t, err)

	d, err := client.CreateDialog(ctx, "chat")
	require.NoError(t, err)
	require.NoError(t, client.UpdateDialogConfig(ctx, d.ID, backend.UpdateDialogConfigRequest{
		ModelConfig:     backend.ModelConfigRequest{Model: "gemini-2.0-flash", Temperature: 0.1, MaxTokens: 100},
		MaxChunks:       5,
		CosineThreshold: 0.1,
	}))

	resp, err := client.SendMessage(ctx, d.ID, "what restores vital energy")
	require.NoError(t, err)
	require.NotNil(t, resp.RagDetails)
	require.NotEmpty(t, resp.RagDetails.ChunksUsed)
	assert.Contains(t, resp.RagDetails.ChunksUsed[0].Content, "ginseng")
	assert.NotNil(t, resp.RagDetails.ContextUsed)

	msgs, err := client.GetMessages(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.NotNil(t, msgs[1].RagDetails)
}

func TestChunks_Pagination(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	content := csvRows(150)
	up, err := client.UploadKBFile(ctx, "rows.csv", strings.NewReader(content), int64(len(content)), nil)
	require.NoError(t, err)
	assert.Equal(t, 150, up.NumChunks)

	page, err := client.GetChunks(ctx, up.ID, 2, 100)
	require.NoError(t, err)
	assert.Len(t, page.Chunks, 50)
	assert.Equal(t, 150, page.TotalChunks)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasNext)
	assert.True(t, page.Pagination.HasPrev)
	assert.Equal(t, 101, page.Pagination.StartIdx)
	assert.Equal(t, 150, page.Pagination.EndIdx)

	page, err = client.GetChunks(ctx, up.ID, 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Page)
	assert.Equal(t, 100, page.Pagination.PageSize)

	vec, err := client.GetChunkVector(ctx, up.ID, page.Chunks[3].ID)
	require.NoError(t, err)
	assert.Equal(t, len(vec.Vector), vec.VectorSize)
	assert.Equal(t, up.ID, vec.KBID)
}

func TestUpload_Rejections(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)

	_, err := client.UploadKBFile(ctx, "notes.txt", strings.NewReader("x"), 1, nil)
	assert.ErrorIs(t, err, app_errors.ErrServer)
	assert.Contains(t, backend.ErrorMessage(err), "only Excel")
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()
	client, _ := newClient(t)
	content := "question,answer\nwhat is qi,qi is vital energy\n"
	_, err := client.UploadKBFile(ctx, "qa.csv", strings.NewReader(content), int64(len(content)), nil)
	require.NoError(t, err)

	scored, err := client.Evaluate(ctx, []model.EvalRecord{{Question: "what is qi", ExpectedAnswer: "qi is vital energy"}})
	require.NoError(t, err)
	require.Len(t, scored, 1)
	s := scored[0].Score
	for _, v := range []float64{s.AnswerCorrectness, s.ContextRecall, s.Faithfulness, s.SemanticSimilarity} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.NotEmpty(t, scored[0].Answer)
}

func TestHandler_GetDialog_InvalidID(t *testing.T) {
	h := devserver.NewHandler(devserver.NewStore(bcrypt.MinCost))
	req := httptest.NewRequest(http.MethodGet, "/api/dialog/abc", nil)
	req = addChiURLParams(req, map[string]string{"dialogID": "abc"})
	rr := httptest.NewRecorder()

	h.GetDialog(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"invalid dialogID"}`, rr.Body.String())
}

func TestHandler_Chat_EmptyMessage(t *testing.T) {
	store := devserver.NewStore(bcrypt.MinCost)
	d := store.CreateDialog("", "anon")
	h := devserver.NewHandler(store)

	req := httptest.NewRequest(http.MethodPost, "/api/dialog/1/chat", strings.NewReader(`{"message":""}`))
	req = addChiURLParams(req, map[string]string{"dialogID": fmt.Sprint(d.ID)})
	rr := httptest.NewRecorder()

	h.Chat(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "message is required")
}
