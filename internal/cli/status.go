package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	closinggrpc "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/in/grpc"
)

func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <exercise-code>",
		Short: "Show an exercise and whether it is closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, ctx, cancel, err := rootOpts.client(cmd.Context())
			if err != nil {
				return err
			}
			defer cancel()

			ex, err := client.GetExercise(ctx, &closinggrpc.GetExerciseRequest{Code: args[0]})
			if err != nil {
				return rpcError("status "+args[0], err)
			}
			text := fmt.Sprintf("%s %s (%s .. %s): %s", ex.Code, ex.Name, ex.StartDate, ex.EndDate, ex.Status)
			return rootOpts.formatter(cmd).Print(true, ex, text)
		},
	}
}
