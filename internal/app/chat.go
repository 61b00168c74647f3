package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ragchat/client/internal/service"
)

const chatHelp = `Type a message and press enter to send it.
  /history   show the dialog again
  /rag <n>   show the retrieval evidence behind answer n
  /quit      leave the chat`

func chatCMD(rt *runtime) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "chat <dialog-id>",
		Short: "Open a dialog and chat with the knowledge base",
		Long:  "Open a dialog and chat with the knowledge base.\n\n" + chatHelp,
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
			if err := ws.Registry.Select(cmd.Context(), dialogID); err != nil {
				return err
			}

			s := &chatSession{rt: rt, ws: ws, dialogID: dialogID, out: cmd.OutOrStdout()}
			if cmd.Flags().Changed("message") {
				return s.send(cmd.Context(), message)
			}
			return s.loop(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "send one message, print the answer and exit")
	return cmd
}

type chatSession struct {
	rt       *runtime
	ws       *service.Workspace
	dialogID int64
	out      io.Writer
}

func (s *chatSession) loop(ctx context.Context) error {
	if d, ok := s.ws.Registry.Lookup(s.dialogID); ok {
		_, _ = fmt.Fprintf(s.out, "Dialog %d: %s\n", d.ID, d.Name)
	}
	s.history()
	_, _ = fmt.Fprintln(s.out, chatHelp)

	for {
		line, err := s.rt.readLine("> ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/history":
			s.history()
		case strings.HasPrefix(line, "/rag"):
			s.evidence(strings.TrimSpace(strings.TrimPrefix(line, "/rag")))
		default:
			// Failures are already reported by the dispatcher; the chat goes on.
			_ = s.send(ctx, line)
		}
	}
}

// send delivers content and prints the answer that resolved the placeholder.
func (s *chatSession) send(ctx context.Context, content string) error {
	if err := s.ws.Dispatcher.Send(ctx, s.dialogID, content); err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			return nil
		}
		return err
	}
	msgs := service.DecorateAll(s.ws.Store.Messages())
	if n := len(msgs); n > 0 {
		renderMessage(s.out, n, msgs[n-1])
	}
	return nil
}

func (s *chatSession) history() {
	msgs := service.DecorateAll(s.ws.Store.Messages())
	if len(msgs) == 0 {
		_, _ = fmt.Fprintln(s.out, "No messages yet.")
		return
	}
	for i, msg := range msgs {
		renderMessage(s.out, i+1, msg)
	}
}

func (s *chatSession) evidence(arg string) {
	msgs := service.DecorateAll(s.ws.Store.Messages())
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(msgs) {
		s.rt.notifier.Error(fmt.Sprintf("Usage: /rag <n> with n between 1 and %d", len(msgs)))
		return
	}
	detail, ok := msgs[n-1].Detail()
	if !ok {
		s.rt.notifier.Info("This message has no retrieval details")
		return
	}
	renderEvidence(s.out, detail)
}
