package app

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"ragchat/client/internal/backend"
	"ragchat/client/internal/config"
	"ragchat/client/internal/database"
	"ragchat/client/internal/repository"
	"ragchat/client/internal/service"
)

// Run executes the ragchat command line and returns the process exit code.
func Run(args []string) int {
	return execute(context.Background(), args, os.Stdin, os.Stdout)
}

func execute(ctx context.Context, args []string, in io.Reader, out io.Writer) int {
	rt := newRuntime(in, out)
	defer rt.close()

	root := rootCMD(rt)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(out)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(out, color.RedString("Error: %s", backend.ErrorMessage(err)))
		return 1
	}
	return 0
}

// runtime holds what the commands share: configuration, the local store and
// the workspace. Everything past the configuration is opened lazily so that
// commands like devserver never touch local storage.
type runtime struct {
	in       *bufio.Reader
	out      io.Writer
	notifier *consoleNotifier

	cfg       *config.Config
	logCloser io.Closer
	db        *sql.DB
	ws        *service.Workspace
	user      string
}

func newRuntime(in io.Reader, out io.Writer) *runtime {
	return &runtime{
		in:       bufio.NewReader(in),
		out:      out,
		notifier: newConsoleNotifier(out),
	}
}

func (rt *runtime) init(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(cmd.Root().PersistentFlags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	rt.cfg = cfg
	rt.logCloser = setupLogger(cfg)
	logConfigSource()
	return nil
}

// workspace opens local storage, connects the backend client and restores
// the persisted identity.
func (rt *runtime) workspace(ctx context.Context) (*service.Workspace, error) {
	if rt.ws != nil {
		return rt.ws, nil
	}

	db, err := database.InitDB(rt.cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize local storage: %w", err)
	}
	rt.db = db

	client, err := backend.NewClient(backend.Options{
		BaseURL:       rt.cfg.APIBaseURL,
		Timeout:       rt.cfg.RequestTimeout,
		UploadTimeout: rt.cfg.UploadTimeout,
	})
	if err != nil {
		return nil, err
	}

	ws := service.NewWorkspace(client, repository.NewSQLiteRepository(db), rt.notifier, rt.cfg.ChunkPageSize)
	user, err := ws.Bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	slog.Debug("Workspace ready", "api", rt.cfg.APIBaseURL, "user", user)

	rt.ws = ws
	rt.user = user
	return ws, nil
}

// signedIn is workspace for commands that need an authenticated user.
func (rt *runtime) signedIn(ctx context.Context) (*service.Workspace, error) {
	ws, err := rt.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := ws.Identity.RequireUser(); err != nil {
		return nil, fmt.Errorf("%w (run 'ragchat login' first)", err)
	}
	return ws, nil
}

func (rt *runtime) close() {
	if rt.ws != nil {
		rt.ws.Close()
	}
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			slog.Error("Failed to close local storage", "error", err)
		}
	}
	if rt.logCloser != nil {
		_ = rt.logCloser.Close()
	}
}

// readLine reads one line of input without its line terminator. io.EOF is
// returned only when nothing was read.
func (rt *runtime) readLine(prompt string) (string, error) {
	if prompt != "" {
		_, _ = fmt.Fprint(rt.out, prompt)
	}
	line, err := rt.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func logConfigSource() {
	configFileUsed := viper.ConfigFileUsed()
	if configFileUsed != "" {
		slog.Debug("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Debug("Configuration file not found. Using environment variables and defaults.")
	}
}

// setupLogger installs the default JSON logger. Logs go to a rotating file
// when LOG_FILE is set so they do not interleave with chat output.
func setupLogger(cfg *config.Config) io.Closer {
	var level slog.Level
	switch strings.ToUpper(cfg.LogLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer
	)
	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSizeMB,
			MaxBackups: cfg.LogMaxBackups,
			MaxAge:     cfg.LogMaxAgeDays,
			Compress:   true,
		}
		w = rotating
		closer = rotating
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return closer
}
