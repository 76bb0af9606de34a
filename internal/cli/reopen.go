package cli

import (
	"github.com/spf13/cobra"

	closinggrpc "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/in/grpc"
)

type ReopenOptions struct {
	*RootOptions
	Closing bool
	Opening bool
}

func NewReopenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReopenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reopen <exercise-code>",
		Short: "Delete closing and/or opening entries of an exercise",
		Long: `Delete the regularization and closing entries (--closing) and/or the
opening entry in the next exercise (--opening). Without flags both are removed.

Example:
  closingctl reopen 2024 --opening`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReopen(cmd, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.Closing, "closing", false, "delete regularization and closing entries")
	cmd.Flags().BoolVar(&opts.Opening, "opening", false, "delete the opening entry")

	return cmd
}

func runReopen(cmd *cobra.Command, opts *ReopenOptions, code string) error {
	undoClosing, undoOpening := opts.Closing, opts.Opening
	if !undoClosing && !undoOpening {
		undoClosing, undoOpening = true, true
	}

	client, ctx, cancel, err := opts.client(cmd.Context())
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := client.DeleteClosing(ctx, &closinggrpc.DeleteClosingRequest{
		ExerciseCode: code,
		UndoClosing:  undoClosing,
		UndoOpening:  undoOpening,
	})
	if err != nil {
		return rpcError("reopen "+code, err)
	}
	return printClosing(opts.formatter(cmd), "reopen", code, resp)
}
