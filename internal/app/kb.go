package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"ragchat/client/internal/service"
)

func kbCMD(rt *runtime) *cobra.Command {
	kb := &cobra.Command{
		Use:   "kb",
		Short: "Manage the knowledge base",
	}

	list := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List uploaded files",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			// Bootstrap already listed the files; refresh to report failures.
			files, err := ws.KB.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			renderFiles(cmd.OutOrStdout(), files)
			return nil
		},
	}

	upload := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV or Excel file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			last := -1
			_, err = ws.KB.UploadFile(cmd.Context(), args[0], func(p service.UploadProgress) {
				// Only stage changes and completion are worth a line.
				if int(p.Stage) == last && p.Stage != service.StageDone {
					return
				}
				last = int(p.Stage)
				_, _ = fmt.Fprintf(out, "%3d%% %s\n", p.Percent, p.Stage)
			})
			if err != nil {
				return err
			}
			renderFiles(out, ws.KB.Files())
			return nil
		},
	}

	del := &cobra.Command{
		Use:     "delete <file-id>",
		Aliases: []string{"rm"},
		Short:   "Delete a file and its chunks",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			return ws.KB.DeleteFile(cmd.Context(), fileID)
		},
	}

	var page, pageSize int
	chunks := &cobra.Command{
		Use:   "chunks <file-id>",
		Short: "Browse the chunks of a file page by page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			result, err := ws.KB.ViewChunks(cmd.Context(), fileID, page, pageSize)
			if err != nil {
				return err
			}
			if result.Filename != "" {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), result.Filename)
			}
			renderChunks(cmd.OutOrStdout(), result)
			return nil
		},
	}
	chunks.Flags().IntVar(&page, "page", 1, "page number")
	chunks.Flags().IntVar(&pageSize, "page-size", 0, "chunks per page (default CHUNK_PAGE_SIZE)")

	var dims int
	vector := &cobra.Command{
		Use:   "vector <file-id> <chunk-id>",
		Short: "Show the embedding of a chunk",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fileID, err := parseID("file", args[0])
			if err != nil {
				return err
			}
			chunkID, err := parseChunkID(args[1])
			if err != nil {
				return err
			}
			ws, err := rt.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			v, err := ws.KB.ViewVector(cmd.Context(), fileID, chunkID)
			if err != nil {
				return err
			}
			renderVector(cmd.OutOrStdout(), v, dims)
			return nil
		},
	}
	vector.Flags().IntVar(&dims, "dims", 8, "number of leading dimensions to print")

	kb.AddCommand(list, upload, del, chunks, vector)
	return kb
}
