package app

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"ragchat/client/internal/config"
	"ragchat/client/internal/devserver"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// cli runs ragchat commands against a fresh devserver, sharing one local
// database across runs like separate invocations on the same machine.
type cli struct {
	t *testing.T
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	srv := httptest.NewServer(devserver.NewRouter(devserver.NewHandler(devserver.NewStore(bcrypt.MinCost)), []string{"*"}))
	t.Cleanup(srv.Close)

	{
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(t.TempDir()); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("STORAGE_PATH", filepath.Join(t.TempDir(), "local.db"))
	t.Setenv("LOG_LEVEL", "ERROR")
	return &cli{t: t}
}

func (c *cli) run(stdin string, args ...string) (string, int) {
	c.t.Helper()
	viper.Reset()
	var out bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &out)
	return out.String(), code
}

func (c *cli) ok(args ...string) string {
	c.t.Helper()
	out, code := c.run("", args...)
	require.Equal(c.t, 0, code, out)
	return out
}

func (c *cli) signIn() {
	c.t.Helper()
	c.ok("register", "alice", "-p", "secret")
	c.ok("login", "alice", "-p", "secret")
}

var dialogLine = regexp.MustCompile(`Dialog (\d+): `)

func (c *cli) createDialog(name string) string {
	c.t.Helper()
	out := c.ok("dialogs", "create", name)
	m := dialogLine.FindStringSubmatch(out)
	require.Len(c.t, m, 2, out)
	return m[1]
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestAuthCommands(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.ok("whoami"), "Not signed in")

	out := c.ok("register", "alice", "-p", "secret")
	assert.Contains(t, out, "Registration successful")
	assert.Contains(t, c.ok("whoami"), "Not signed in", "register must not sign in")

	out, code := c.run("", "login", "alice", "-p", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Error:")

	out, code = c.run("secret\n", "login", "alice")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Password: ")
	assert.Contains(t, out, "Signed in as alice")

	// The identity and session cookie survive into the next invocation.
	assert.Equal(t, "alice\n", c.ok("whoami"))
	assert.Contains(t, c.ok("dialogs"), "No dialogs yet")

	assert.Contains(t, c.ok("logout"), "Signed out")
	assert.Contains(t, c.ok("whoami"), "Not signed in")

	out, code = c.run("", "dialogs")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "ragchat login")
}

func TestDialogCommands(t *testing.T) {
	c := newCLI(t)
	c.signIn()

	first := c.createDialog("Herbs")
	c.createDialog("Spices")

	out := c.ok("dialogs")
	assert.Contains(t, out, "Herbs")
	assert.Contains(t, out, "Spices")
	assert.Less(t, strings.Index(out, "Spices"), strings.Index(out, "Herbs"), "newest dialog first")

	out, code := c.run("", "dialogs", "create", "   ")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Please enter a dialog name")

	out = c.ok("dialogs", "delete", first)
	assert.Contains(t, out, "Dialog deleted successfully!")
	out = c.ok("dialogs")
	assert.NotContains(t, out, "Herbs")
	assert.Contains(t, out, "Spices")

	_, code = c.run("", "dialogs", "delete", "abc")
	assert.Equal(t, 1, code)
}

func TestConfigCommands(t *testing.T) {
	c := newCLI(t)
	c.signIn()
	id := c.createDialog("Herbs")

	out := c.ok("config", "show", id)
	assert.Contains(t, out, "Model: gemini-2.0-flash")
	assert.Contains(t, out, "Temperature: 0.1")
	assert.Contains(t, out, "Max chunks: 8")

	out = c.ok("config", "set", id, "--temperature", "0.7", "--max-chunks", "3", "--system-prompt", "Be brief.")
	assert.Contains(t, out, "Dialog configuration updated successfully!")

	out = c.ok("config", "show", id)
	assert.Contains(t, out, "System prompt: Be brief.")
	assert.Contains(t, out, "Temperature: 0.7")
	assert.Contains(t, out, "Max chunks: 3")
	assert.Contains(t, out, "Max tokens: 1000", "unchanged fields keep their value")

	out, code := c.run("", "config", "set", id, "--temperature", "1.5")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "temperature must be at most 1")

	out, code = c.run("", "config", "set", id, "--max-tokens", "0", "--cosine-threshold", "2")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Check --max-tokens, --cosine-threshold")
	assert.Contains(t, c.ok("config", "show", id), "Temperature: 0.7", "rejected values are not sent")
}

func TestKnowledgeBaseAndChatCommands(t *testing.T) {
	c := newCLI(t)
	c.signIn()
	id := c.createDialog("Herbs")

	assert.Contains(t, c.ok("kb", "list"), "The knowledge base is empty.")

	csvPath := writeFile(t, "herbs.csv", "herb,use\nchamomile,calming tea\nginger,settles the stomach\nmint,fresh breath\n")
	out := c.ok("kb", "upload", csvPath)
	assert.Contains(t, out, "uploading file")
	assert.Contains(t, out, "100% done")
	assert.Contains(t, out, "Upload and processing succeeded!")
	assert.Contains(t, out, "herbs.csv")

	_, code := c.run("", "kb", "upload", writeFile(t, "notes.txt", "plain text"))
	assert.Equal(t, 1, code)

	fileID := regexp.MustCompile(`\|\s*(\d+)\s*\|\s*herbs\.csv`).FindStringSubmatch(c.ok("kb", "list"))
	require.Len(t, fileID, 2)

	out = c.ok("kb", "chunks", fileID[1], "--page-size", "2")
	assert.Contains(t, out, "chamomile")
	assert.Contains(t, out, "Page 1 of 2")
	out = c.ok("kb", "chunks", fileID[1], "--page", "2", "--page-size", "2")
	assert.Contains(t, out, "mint")
	assert.Contains(t, out, "Page 2 of 2")

	out = c.ok("kb", "vector", fileID[1], "0", "--dims", "4")
	assert.Contains(t, out, "Chunk 0 of file "+fileID[1])
	assert.Contains(t, out, "more]")

	out = c.ok("chat", id, "-m", "chamomile calming tea")
	assert.Contains(t, out, "[2] assistant: Based on the knowledge base")
	assert.Contains(t, out, "RAG: ")

	out, code = c.run("hello there\n/rag 2\n/rag 9\n/history\n/quit\n", "chat", id)
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Dialog "+id+": Herbs")
	assert.Contains(t, out, "[1] you: chamomile calming tea")
	assert.Contains(t, out, "[4] assistant:")
	assert.Contains(t, out, "Query: chamomile calming tea")
	assert.Contains(t, out, "Usage: /rag <n>")

	// End of input leaves the chat like /quit.
	_, code = c.run("", "chat", id)
	assert.Equal(t, 0, code)

	assert.Contains(t, c.ok("kb", "delete", fileID[1]), "File deleted successfully!")
	assert.Contains(t, c.ok("kb", "list"), "The knowledge base is empty.")
}

func TestEvalCommands(t *testing.T) {
	c := newCLI(t)
	c.signIn()

	out, code := c.run("", "eval", "manual", "-q", "What calms?")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "Error:")

	out = c.ok("eval", "manual", "-q", "What calms?", "-e", "Chamomile tea")
	assert.Contains(t, out, "Answer correctness:")
	assert.Contains(t, out, "Expected answer: Chamomile tea")

	csvPath := writeFile(t, "eval.csv", "question,answer\nWhat calms?,Chamomile\n\"Why \"\"mint\"\"?\", fresh breath \n")

	out = c.ok("eval", "csv", csvPath)
	assert.Contains(t, out, "2 rows; choose some with --rows or --all.")
	assert.Contains(t, out, "Why mint?")

	out = c.ok("eval", "csv", csvPath, "--all", "--detail", "2")
	assert.Contains(t, out, "What calms?")
	assert.Contains(t, out, "Question: Why mint?")
	assert.Contains(t, out, "Expected answer: fresh breath")

	out = c.ok("eval", "csv", csvPath, "--rows", "1")
	assert.Contains(t, out, "What calms?")
	assert.NotContains(t, out, "Why mint?")

	_, code = c.run("", "eval", "csv", csvPath, "--rows", "7")
	assert.Equal(t, 1, code)
}

func TestSetupLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragchat.log")
	closer := setupLogger(&config.Config{LogLevel: "debug", LogFile: path, LogMaxSizeMB: 1})
	require.NotNil(t, closer)
	t.Cleanup(func() { setupLogger(&config.Config{LogLevel: "ERROR"}) })

	logConfigSource()
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"DEBUG"`)
}
