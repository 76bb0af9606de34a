// Package cli 提供 closingctl 指令列工具
package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	closinggrpc "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/in/grpc"
	grpcpool "github.com/JoeShih716/go-ledger-closing/pkg/grpc"
)

// ValidFormats 支援的輸出格式
var ValidFormats = []string{"text", "json"}

// RootOptions 所有子指令共用的參數
type RootOptions struct {
	Addr    string
	Timeout time.Duration
	Format  string

	pool *grpcpool.Pool
}

// NewRootCommand 建立 closingctl 根指令，連線由 pool 管理
func NewRootCommand(pool *grpcpool.Pool) *cobra.Command {
	opts := &RootOptions{pool: pool}

	cmd := &cobra.Command{
		Use:   "closingctl",
		Short: "Close and reopen accounting exercises",
		Long:  "closingctl talks to the closing service to run year-end closing, reopen an exercise or show its status.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Timeout <= 0 {
				return NewExitError(ExitCommandError, "timeout must be positive")
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", "localhost:50051", "closing service address")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewCloseCommand(opts))
	cmd.AddCommand(NewReopenCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// client 取得服務的呼叫端與帶 timeout 的 context
func (o *RootOptions) client(parent context.Context) (*closinggrpc.Client, context.Context, context.CancelFunc, error) {
	conn, err := o.pool.GetConnection(o.Addr)
	if err != nil {
		return nil, nil, nil, WrapExitError(ExitCommandError, "connect "+o.Addr, err)
	}
	ctx, cancel := context.WithTimeout(parent, o.Timeout)
	return closinggrpc.NewClient(conn), ctx, cancel, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
