package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	app_errors "ragchat/client/internal/errors"
	"ragchat/client/internal/service"
)

func rootCMD(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "ragchat",
		Short:         "Chat with a retrieval-augmented backend and manage its knowledge base",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
	}
	root.PersistentFlags().String("api", "", "backend base url (overrides API_BASE_URL)")
	root.PersistentFlags().String("log-level", "", "log level: DEBUG, INFO, WARN or ERROR")

	root.AddCommand(
		registerCMD(rt),
		loginCMD(rt),
		logoutCMD(rt),
		whoamiCMD(rt),
		dialogsCMD(rt),
		chatCMD(rt),
		configCMD(rt),
		kbCMD(rt),
		evalCMD(rt),
		devserverCMD(rt),
	)
	return root
}

// password returns the flag value or prompts for it on the input stream.
func (rt *runtime) password(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return rt.readLine("Password: ")
}

func registerCMD(rt *runtime) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a backend account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.workspace(cmd.Context())
			if err != nil {
				return err
			}
			pw, err := rt.password(password)
			if err != nil {
				return err
			}
			if err := ws.Identity.Register(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			rt.notifier.Success("Registration successful! Please log in.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func loginCMD(rt *runtime) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.workspace(cmd.Context())
			if err != nil {
				return err
			}
			pw, err := rt.password(password)
			if err != nil {
				return err
			}
			user, err := ws.Identity.Login(cmd.Context(), args[0], pw)
			if err != nil {
				return err
			}
			rt.notifier.Success(fmt.Sprintf("Signed in as %s", user))
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	return cmd
}

func logoutCMD(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.workspace(cmd.Context())
			if err != nil {
				return err
			}
			if err := ws.Identity.Logout(cmd.Context()); err != nil {
				return err
			}
			rt.notifier.Info("Signed out")
			return nil
		},
	}
}

func whoamiCMD(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.workspace(cmd.Context())
			if err != nil {
				return err
			}
			user := ws.Identity.CurrentUser()
			if user == "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), user)
			return nil
		},
	}
}

func dialogsCMD(rt *runtime) *cobra.Command {
	dialogs := &cobra.Command{
		Use:     "dialogs",
		Aliases: []string{"dialog"},
		Short:   "List and manage dialogs",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			renderDialogs(cmd.OutOrStdout(), ws.Registry.Dialogs())
			return nil
		},
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a dialog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			dialog, err := ws.Registry.Create(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dialog %d: %s\n", dialog.ID, dialog.Name)
			return nil
		},
	}

	del := &cobra.Command{
		Use:     "delete <dialog-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a dialog and its messages",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialogID, err := parseID("dialog", args[0])
			if err != nil {
				return err
			}
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			return ws.Registry.Delete(cmd.Context(), dialogID)
		},
	}

	dialogs.AddCommand(create, del)
	return dialogs
}

func configCMD(rt *runtime) *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Show or change the generation settings of a dialog",
	}

	show := &cobra.Command{
		Use:   "show <dialog-id>",
		Short: "Show the settings of a dialog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialogID, err := parseID("dialog", args[0])
			if err != nil {
				return err
			}
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			form, err := ws.Config.Open(cmd.Context(), dialogID)
			defer ws.Config.Close()
			if err != nil {
				return err
			}
			renderConfig(cmd, form)
			return nil
		},
	}

	var (
		systemPrompt    string
		modelName       string
		temperature     float64
		maxTokens       int
		maxChunks       int
		cosineThreshold float64
	)
	set := &cobra.Command{
		Use:   "set <dialog-id>",
		Short: "Change the settings of a dialog; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialogID, err := parseID("dialog", args[0])
			if err != nil {
				return err
			}
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			form, err := ws.Config.Open(cmd.Context(), dialogID)
			defer ws.Config.Close()
			// A failed fetch still yields an editable form with defaults.
			if err != nil && (errors.Is(err, app_errors.ErrValidation) || errors.Is(err, app_errors.ErrStale)) {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("system-prompt") {
				form.SystemPrompt = systemPrompt
			}
			if flags.Changed("model") {
				form.Model = modelName
			}
			if flags.Changed("temperature") {
				form.Temperature = temperature
			}
			if flags.Changed("max-tokens") {
				form.MaxTokens = maxTokens
			}
			if flags.Changed("max-chunks") {
				form.MaxChunks = maxChunks
			}
			if flags.Changed("cosine-threshold") {
				form.CosineThreshold = cosineThreshold
			}

			if err := ws.Config.Save(cmd.Context(), dialogID, form); err != nil {
				if fields := form.InvalidFields(); len(fields) > 0 {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Check %s\n", strings.Join(flagNames(fields), ", "))
				}
				return err
			}
			renderConfig(cmd, form)
			return nil
		},
	}
	set.Flags().StringVar(&systemPrompt, "system-prompt", "", "instructions prepended to every request")
	set.Flags().StringVar(&modelName, "model", service.DefaultModel, "generation model")
	set.Flags().Float64Var(&temperature, "temperature", service.DefaultTemperature, "sampling temperature, 0 to 1")
	set.Flags().IntVar(&maxTokens, "max-tokens", service.DefaultMaxTokens, "response token limit, 1 to 8192")
	set.Flags().IntVar(&maxChunks, "max-chunks", service.DefaultMaxChunks, "chunks retrieved per question, 1 to 30")
	set.Flags().Float64Var(&cosineThreshold, "cosine-threshold", service.DefaultCosineThreshold, "minimum chunk similarity, 0 to 1")

	cfg.AddCommand(show, set)
	return cfg
}

func renderConfig(cmd *cobra.Command, form service.ConfigForm) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "System prompt: %s\n", form.SystemPrompt)
	_, _ = fmt.Fprintf(out, "Model: %s\n", form.Model)
	_, _ = fmt.Fprintf(out, "Temperature: %g\n", form.Temperature)
	_, _ = fmt.Fprintf(out, "Max tokens: %d\n", form.MaxTokens)
	_, _ = fmt.Fprintf(out, "Max chunks: %d\n", form.MaxChunks)
	_, _ = fmt.Fprintf(out, "Cosine threshold: %g\n", form.CosineThreshold)
}

// flagNames maps json field names of the config form to their flags.
func flagNames(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = "--" + strings.ReplaceAll(f, "_", "-")
	}
	return out
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s id %q", app_errors.ErrValidation, kind, s)
	}
	return id, nil
}

// parseChunkID accepts 0: chunk ids are row indexes.
func parseChunkID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid chunk id %q", app_errors.ErrValidation, s)
	}
	return id, nil
}
