package main

import (
	"fmt"
	"os"

	"github.com/JoeShih716/go-ledger-closing/internal/cli"
	grpcpool "github.com/JoeShih716/go-ledger-closing/pkg/grpc"
)

func main() {
	pool := grpcpool.NewPool()
	err := cli.NewRootCommand(pool).Execute()
	_ = pool.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
