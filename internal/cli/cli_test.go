package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/accounting"
	closinggrpc "github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/in/grpc"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/adapter/out/memory"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
	grpcpool "github.com/JoeShih716/go-ledger-closing/pkg/grpc"
)

const testAddr = "passthrough:///bufnet"

func startServer(t *testing.T) *grpcpool.Pool {
	t.Helper()
	store, err := memory.NewStore(nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.SaveExercise(ctx, &domain.Exercise{
		Code:      "2024",
		Name:      "FY2024",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    domain.ExerciseStatusOpen,
	}))
	v := decimal.NewFromInt(250)
	require.NoError(t, sess.SaveEntry(ctx, &domain.JournalEntry{
		ID:           uuid.New(),
		ExerciseCode: "2024",
		Phase:        domain.PhaseNormal,
		Date:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Lines: []domain.EntryLine{
			{Account: "570", Debit: v},
			{Account: "700", Credit: v},
		},
	}))
	require.NoError(t, sess.Commit())

	orchestrator := usecase.NewClosingOrchestrator(store,
		accounting.NewRegularizationStep(""),
		accounting.NewClosingStep(),
		accounting.NewOpeningStep(),
		nil,
	)
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	closinggrpc.RegisterClosingServiceServer(srv, closinggrpc.NewGrpcServer(usecase.NewClosingUseCase(store, orchestrator, nil)))
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	pool := grpcpool.NewPool(grpcpool.WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})))
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func execute(pool *grpcpool.Pool, args ...string) (string, error) {
	cmd := NewRootCommand(pool)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--addr", testAddr}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand(grpcpool.NewPool())
	assert.Equal(t, "closingctl", cmd.Use)

	for _, name := range []string{"close", "reopen", "status"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("addr"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("timeout"))
}

func TestInvalidFlags(t *testing.T) {
	pool := grpcpool.NewPool()

	_, err := execute(pool, "--format", "xml", "status", "2024")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(pool, "--timeout", "0s", "status", "2024")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(pool, "close")
	require.Error(t, err)
}

func TestCloseStatusReopen(t *testing.T) {
	pool := startServer(t)

	out, err := execute(pool, "close", "2024", "--journal-closing", "9", "--journal-opening", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "close 2024: committed")

	out, err = execute(pool, "status", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "2024 FY2024 (2024-01-01 .. 2024-12-31): closed")

	out, err = execute(pool, "--format", "json", "status", "2025")
	require.NoError(t, err)
	var resp struct {
		Status string                       `json:"status"`
		Data   closinggrpc.ExerciseResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "open", resp.Data.Status)

	out, err = execute(pool, "reopen", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, "reopen 2024: committed")

	out, err = execute(pool, "status", "2024")
	require.NoError(t, err)
	assert.Contains(t, out, ": open")
}

func TestCloseTwiceFails(t *testing.T) {
	pool := startServer(t)

	_, err := execute(pool, "close", "2024")
	require.NoError(t, err)

	out, err := execute(pool, "--format", "json", "close", "2024")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string                      `json:"status"`
		Data   closinggrpc.ClosingResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, "regularization", resp.Data.FailedPhase)
}

func TestStatusNotFound(t *testing.T) {
	pool := startServer(t)

	_, err := execute(pool, "status", "1999")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "NotFound")
}
