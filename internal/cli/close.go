package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	closinggrpc "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/in/grpc"
)

type CloseOptions struct {
	*RootOptions
	JournalClosing int64
	JournalOpening int64
}

func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CloseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "close <exercise-code>",
		Short: "Run year-end closing for an exercise",
		Long: `Run regularization, closing and opening for an exercise in one transaction.

Example:
  closingctl close 2024 --journal-closing 9 --journal-opening 1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClose(cmd, opts, args[0])
		},
	}

	cmd.Flags().Int64Var(&opts.JournalClosing, "journal-closing", 0, "journal for regularization and closing entries (0 = none)")
	cmd.Flags().Int64Var(&opts.JournalOpening, "journal-opening", 0, "journal for the opening entry (0 = none)")

	return cmd
}

func runClose(cmd *cobra.Command, opts *CloseOptions, code string) error {
	client, ctx, cancel, err := opts.client(cmd.Context())
	if err != nil {
		return err
	}
	defer cancel()

	resp, err := client.ExecuteClosing(ctx, &closinggrpc.ExecuteClosingRequest{
		ExerciseCode:   code,
		JournalClosing: opts.JournalClosing,
		JournalOpening: opts.JournalOpening,
	})
	if err != nil {
		return rpcError("close "+code, err)
	}
	return printClosing(opts.formatter(cmd), "close", code, resp)
}

// printClosing 流程沒有提交時回傳 ExitFailure
func printClosing(f *OutputFormatter, action, code string, resp *closinggrpc.ClosingResponse) error {
	if resp.Success {
		return f.Print(true, resp, fmt.Sprintf("%s %s: committed (operation %s)", action, code, resp.OperationID))
	}
	text := fmt.Sprintf("%s %s: failed", action, code)
	if resp.FailedPhase != "" {
		text += " at " + resp.FailedPhase
	}
	if resp.Message != "" {
		text += ": " + resp.Message
	}
	if err := f.Print(false, resp, text); err != nil {
		return err
	}
	return NewExitError(ExitFailure, fmt.Sprintf("%s %s was rolled back", action, code))
}
