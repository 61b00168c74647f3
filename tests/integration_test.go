package tests

import (
	"bytes"
	"context"
	"database/sql"
	"log"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ragchat/client/internal/backend"
	"ragchat/client/internal/database"
	"ragchat/client/internal/devserver"
	"ragchat/client/internal/repository"
	"ragchat/client/internal/service"
)

const (
	testUser     = "integration"
	testPassword = "s3cret-pass"
)

var baseAPIURL string

func TestMain(m *testing.M) {
	log.Println("--- Setting up test environment ---")

	srv := httptest.NewServer(devserver.NewRouter(devserver.NewHandler(devserver.NewStore(bcrypt.MinCost)), []string{"*"}))
	baseAPIURL = srv.URL
	log.Printf("Development backend listening on %s", baseAPIURL)

	exitCode := m.Run()

	log.Println("--- Tearing down test environment ---")
	srv.Close()

	os.Exit(exitCode)
}

// session is one client process: its own backend client and workspace over
// a local database that outlives it.
type session struct {
	db       *sql.DB
	ws       *service.Workspace
	notifier *service.RecordingNotifier
}

func openSession(t *testing.T, dbPath string) *session {
	t.Helper()
	db, err := database.InitDB(dbPath)
	require.NoError(t, err)

	client, err := backend.NewClient(backend.Options{
		BaseURL:       baseAPIURL,
		Timeout:       10 * time.Second,
		UploadTimeout: 30 * time.Second,
	})
	require.NoError(t, err)

	notifier := &service.RecordingNotifier{}
	ws := service.NewWorkspace(client, repository.NewSQLiteRepository(db), notifier, backend.DefaultPageSize)
	return &session{db: db, ws: ws, notifier: notifier}
}

func (s *session) close(t *testing.T) {
	t.Helper()
	s.ws.Close()
	require.NoError(t, s.db.Close())
}

func knowledgeBaseCSV(rows int) string {
	var sb strings.Builder
	sb.WriteString("topic,fact\n")
	facts := []string{
		"chamomile,chamomile tea is calming before sleep",
		"ginger,ginger root settles an upset stomach",
		"peppermint,peppermint oil freshens breath",
	}
	for i := 0; i < rows; i++ {
		sb.WriteString(facts[i%len(facts)])
		sb.WriteString("\n")
	}
	return sb.String()
}

func TestClientEndToEnd(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "local.db")

	s := openSession(t, dbPath)
	var (
		dialogID int64
		fileID   int64
	)

	t.Run("RegisterAndLogin", func(t *testing.T) {
		user, err := s.ws.Bootstrap(ctx)
		require.NoError(t, err)
		require.Empty(t, user)

		require.NoError(t, s.ws.Identity.Register(ctx, testUser, testPassword))
		assert.Empty(t, s.ws.Identity.CurrentUser())

		user, err = s.ws.Identity.Login(ctx, "  "+testUser+" ", testPassword)
		require.NoError(t, err)
		assert.Equal(t, testUser, user)
	})

	t.Run("CreateDialog", func(t *testing.T) {
		_, err := s.ws.Registry.Reload(ctx)
		require.NoError(t, err)

		dialog, err := s.ws.Registry.Create(ctx, "Herbal remedies")
		require.NoError(t, err)
		dialogID = dialog.ID
		require.NoError(t, s.ws.Registry.Select(ctx, dialogID))
		assert.Empty(t, s.ws.Store.Messages())
	})

	t.Run("UploadKnowledgeBase", func(t *testing.T) {
		content := knowledgeBaseCSV(150)
		var last service.UploadProgress
		_, err := s.ws.KB.Upload(ctx, "remedies.csv", bytes.NewReader([]byte(content)), int64(len(content)), func(p service.UploadProgress) {
			assert.GreaterOrEqual(t, p.Percent, last.Percent)
			last = p
		})
		require.NoError(t, err)
		assert.Equal(t, service.StageDone, last.Stage)

		files := s.ws.KB.Files()
		require.Len(t, files, 1)
		fileID = files[0].ID
		assert.Equal(t, 150, files[0].NumChunks)
	})

	t.Run("BrowseChunks", func(t *testing.T) {
		page, err := s.ws.KB.ViewChunks(ctx, fileID, 2, 100)
		require.NoError(t, err)
		assert.Len(t, page.Chunks, 50)
		assert.Equal(t, 150, page.TotalChunks)

		_, err = s.ws.KB.NextPage(ctx)
		assert.Error(t, err, "page 2 of 2 is the last page")

		page, err = s.ws.KB.PrevPage(ctx)
		require.NoError(t, err)
		assert.Len(t, page.Chunks, 100)

		vec, err := s.ws.KB.ViewVector(ctx, fileID, page.Chunks[0].ID)
		require.NoError(t, err)
		assert.Equal(t, len(vec.Vector), vec.VectorSize)
	})

	t.Run("ConfigureDialog", func(t *testing.T) {
		form, err := s.ws.Config.Open(ctx, dialogID)
		require.NoError(t, err)
		assert.Equal(t, service.DefaultConfigForm(), form)

		form.MaxChunks = 2
		form.CosineThreshold = 0.3
		require.NoError(t, s.ws.Config.Save(ctx, dialogID, form))
		s.ws.Config.Close()

		reopened, err := s.ws.Config.Open(ctx, dialogID)
		require.NoError(t, err)
		assert.Equal(t, form, reopened)
		s.ws.Config.Close()
	})

	t.Run("Chat", func(t *testing.T) {
		require.NoError(t, s.ws.Dispatcher.Send(ctx, dialogID, "which tea is calming before sleep"))

		msgs := s.ws.Store.Messages()
		require.Len(t, msgs, 2)
		reply := service.Decorate(msgs[1])
		require.True(t, reply.HasEvidence())
		assert.Equal(t, "RAG: 2 chunks", reply.Summary())

		detail, ok := reply.Detail()
		require.True(t, ok)
		assert.False(t, detail.NoMatches())
		assert.Contains(t, detail.Evidence[0].Content, "chamomile")
		assert.True(t, detail.HasContext)

		require.NoError(t, s.ws.Dispatcher.Send(ctx, dialogID, "quantum chromodynamics"))
		msgs = s.ws.Store.Messages()
		require.Len(t, msgs, 4)
		detail, ok = service.Decorate(msgs[3]).Detail()
		require.True(t, ok)
		assert.True(t, detail.NoMatches())
		assert.False(t, detail.HasContext)

		s.ws.Registry.Wait()
		d, ok := s.ws.Registry.Lookup(dialogID)
		require.True(t, ok)
		assert.Equal(t, 4, d.MessageCount)
	})

	t.Run("Evaluate", func(t *testing.T) {
		records, err := service.ParseEvalCSV(strings.NewReader("question,answer\nwhich tea is calming?,chamomile tea\nwhat settles the stomach?,ginger root\n"))
		require.NoError(t, err)

		sel := service.NewEvalSelection(records)
		sel.SelectAll()
		results, err := s.ws.Eval.EvaluateSelection(ctx, sel)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.NotEmpty(t, r.Answer)
			assert.InDelta(t, 0.5, r.Score.AnswerCorrectness, 0.5)
		}
	})

	t.Run("RestoreAfterRestart", func(t *testing.T) {
		s.close(t)
		s = openSession(t, dbPath)

		user, err := s.ws.Bootstrap(ctx)
		require.NoError(t, err)
		assert.Equal(t, testUser, user)
		require.Len(t, s.ws.Registry.Dialogs(), 1)
		require.Len(t, s.ws.KB.Files(), 1)

		require.NoError(t, s.ws.Registry.Select(ctx, dialogID))
		assert.Len(t, s.ws.Store.Messages(), 4)
	})

	t.Run("DeleteAndLogout", func(t *testing.T) {
		require.NoError(t, s.ws.KB.DeleteFile(ctx, fileID))
		assert.Empty(t, s.ws.KB.Files())

		require.NoError(t, s.ws.Registry.Delete(ctx, dialogID))
		assert.Empty(t, s.ws.Registry.Dialogs())
		assert.Equal(t, service.NoDialog, s.ws.Registry.Selected())

		require.NoError(t, s.ws.Identity.Logout(ctx))
		assert.Empty(t, s.ws.Identity.CurrentUser())

		_, err := s.ws.Registry.Reload(ctx)
		assert.Error(t, err, "the backend session is gone")
		assert.Contains(t, s.notifier.Errors(), "Failed to load dialogs: authentication required")
	})

	s.close(t)
}
