package mysql

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/accounting"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
	"github.com/JoeShih716/go-ledger-closing/pkg/mysql"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	client, err := mysql.NewClientWithDialector(sqlite.Open(path), mysql.Config{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		LogLevel:     "silent",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := NewStore(client, nil)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func exercise2024() *domain.Exercise {
	return &domain.Exercise{
		Code:      "2024",
		Name:      "Fiscal 2024",
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		Status:    domain.ExerciseStatusOpen,
	}
}

func normalEntry(debitAccount, creditAccount, amount string) *domain.JournalEntry {
	v := decimal.RequireFromString(amount)
	return &domain.JournalEntry{
		ID:           uuid.New(),
		ExerciseCode: "2024",
		Phase:        domain.PhaseNormal,
		JournalID:    1,
		Date:         time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Concept:      "operation",
		Lines: []domain.EntryLine{
			{Account: debitAccount, Debit: v},
			{Account: creditAccount, Credit: v},
		},
	}
}

func seedLedger(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.SaveExercise(ctx, exercise2024()))
	for _, e := range []*domain.JournalEntry{
		normalEntry("570", "100", "1000"),
		normalEntry("570", "700", "500"),
		normalEntry("600", "570", "200"),
	} {
		require.NoError(t, sess.SaveEntry(ctx, e))
	}
	require.NoError(t, sess.Commit())
}

func TestExerciseRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.FindExercise(ctx, "2024")
	assert.ErrorIs(t, err, domain.ErrExerciseNotFound)

	seedLedger(t, store)

	ex, err := store.FindExercise(ctx, "2024")
	require.NoError(t, err)
	assert.Equal(t, "Fiscal 2024", ex.Name)
	assert.True(t, ex.EndDate.Equal(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, domain.ExerciseStatusOpen, ex.Status)

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	ex.Status = domain.ExerciseStatusClosed
	require.NoError(t, sess.SaveExercise(ctx, ex))
	require.NoError(t, sess.Commit())

	ex, err = store.FindExercise(ctx, "2024")
	require.NoError(t, err)
	assert.True(t, ex.IsClosed())
}

func TestEntriesAndBalances(t *testing.T) {
	store := newTestStore(t)
	seedLedger(t, store)
	ctx := context.Background()

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	entries, err := sess.FindEntries(ctx, "2024", domain.PhaseNormal)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Len(t, entries[0].Lines, 2)
	assert.Equal(t, "570", entries[0].Lines[0].Account)
	assert.True(t, entries[0].Lines[0].Debit.Equal(decimal.RequireFromString("1000")))
	assert.NotEqual(t, uuid.Nil, entries[0].ID)

	balances, err := sess.Balances(ctx, "2024", domain.PhaseNormal)
	require.NoError(t, err)
	require.Len(t, balances, 4)
	got := make(map[string]string)
	for _, b := range balances {
		got[b.Account] = b.Balance().String()
	}
	assert.Equal(t, map[string]string{"100": "-1000", "570": "1300", "600": "200", "700": "-500"}, got)

	none, err := sess.Balances(ctx, "2024", domain.PhaseClosing, domain.PhaseOpening)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBalancesKeepDecimalPrecision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, sess.SaveExercise(ctx, exercise2024()))
	for _, amount := range []string{"0.1", "0.2"} {
		require.NoError(t, sess.SaveEntry(ctx, normalEntry("570", "700", amount)))
	}
	require.NoError(t, sess.Commit())

	orchestrator := usecase.NewClosingOrchestrator(store,
		accounting.NewRegularizationStep(""),
		accounting.NewClosingStep(),
		accounting.NewOpeningStep(),
		nil,
	)
	res, err := usecase.NewClosingUseCase(store, orchestrator, nil).CloseExercise(ctx, "2024", 0, 0)
	require.NoError(t, err)
	require.True(t, res.OK(), "failure: %v", res.Failure)

	sess, err = store.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	balances, err := sess.Balances(ctx, "2024", domain.PhaseNormal)
	require.NoError(t, err)
	got := make(map[string]string)
	for _, b := range balances {
		got[b.Account] = b.Balance().String()
	}
	assert.Equal(t, map[string]string{"570": "0.3", "700": "-0.3"}, got)

	regs, err := sess.FindEntries(ctx, "2024", domain.PhaseRegularization)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	for _, line := range regs[0].Lines {
		assert.Equal(t, "0.3", line.Balance().Abs().String(), line.Account)
	}
}

func TestDeleteEntriesAndRollback(t *testing.T) {
	store := newTestStore(t)
	seedLedger(t, store)
	ctx := context.Background()

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	n, err := sess.DeleteEntries(ctx, "2024", domain.PhaseNormal)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	require.NoError(t, sess.Rollback())
	assert.False(t, sess.InTransaction())
	assert.NoError(t, sess.Rollback())
	assert.ErrorIs(t, sess.Commit(), domain.ErrNoTransaction)

	sess, err = store.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()
	entries, err := sess.FindEntries(ctx, "2024", domain.PhaseNormal)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	n, err = sess.DeleteEntries(ctx, "2024", domain.PhaseOpening)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveEntryValidates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()

	entry := normalEntry("570", "700", "10")
	entry.Lines = entry.Lines[:1]
	assert.ErrorIs(t, sess.SaveEntry(ctx, entry), domain.ErrEntryTooFewLines)
}

func TestClosingFlowOnSQL(t *testing.T) {
	store := newTestStore(t)
	seedLedger(t, store)
	ctx := context.Background()

	orchestrator := usecase.NewClosingOrchestrator(store,
		accounting.NewRegularizationStep(""),
		accounting.NewClosingStep(),
		accounting.NewOpeningStep(),
		nil,
	)
	uc := usecase.NewClosingUseCase(store, orchestrator, nil)

	res, err := uc.CloseExercise(ctx, "2024", 5, 6)
	require.NoError(t, err)
	require.True(t, res.OK(), "failure: %v", res.Failure)

	ex, err := store.FindExercise(ctx, "2024")
	require.NoError(t, err)
	assert.True(t, ex.IsClosed())
	next, err := store.FindExercise(ctx, "2025")
	require.NoError(t, err)
	assert.True(t, next.StartDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	openings, err := sess.FindEntries(ctx, "2025", domain.PhaseOpening)
	require.NoError(t, err)
	require.Len(t, openings, 1)
	assert.Equal(t, int64(6), openings[0].JournalID)
	balances, err := sess.Balances(ctx, "2025", domain.PhaseOpening)
	require.NoError(t, err)
	got := make(map[string]string)
	for _, b := range balances {
		got[b.Account] = b.Balance().String()
	}
	assert.Equal(t, map[string]string{"100": "-1000", "129": "-300", "570": "1300"}, got)
	require.NoError(t, sess.Rollback())

	// 再執行一次：年度已結帳，整個交易 Rollback
	res, err = uc.CloseExercise(ctx, "2024", 5, 6)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, domain.PhaseRegularization, res.Failure.Phase)

	res, err = uc.ReopenExercise(ctx, "2024", true, true)
	require.NoError(t, err)
	require.True(t, res.OK(), "failure: %v", res.Failure)

	ex, err = store.FindExercise(ctx, "2024")
	require.NoError(t, err)
	assert.False(t, ex.IsClosed())

	sess, err = store.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()
	for _, phase := range []domain.Phase{domain.PhaseRegularization, domain.PhaseClosing} {
		entries, err := sess.FindEntries(ctx, "2024", phase)
		require.NoError(t, err)
		assert.Empty(t, entries, phase.String())
	}
	openings, err = sess.FindEntries(ctx, "2025", domain.PhaseOpening)
	require.NoError(t, err)
	assert.Empty(t, openings)
}

func TestClosingFlowRollsBackOnSQL(t *testing.T) {
	store := newTestStore(t)
	seedLedger(t, store)
	ctx := context.Background()

	sess, err := store.Begin(ctx)
	require.NoError(t, err)
	next := exercise2024().NewNextExercise()
	next.Status = domain.ExerciseStatusClosed
	require.NoError(t, sess.SaveExercise(ctx, next))
	require.NoError(t, sess.Commit())

	orchestrator := usecase.NewClosingOrchestrator(store,
		accounting.NewRegularizationStep(""),
		accounting.NewClosingStep(),
		accounting.NewOpeningStep(),
		nil,
	)
	res, err := orchestrator.Execute(ctx, exercise2024(), 5, 6)
	require.NoError(t, err)
	assert.False(t, res.OK())
	assert.Equal(t, domain.PhaseOpening, res.Failure.Phase)

	ex, err := store.FindExercise(ctx, "2024")
	require.NoError(t, err)
	assert.False(t, ex.IsClosed())

	sess, err = store.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback()
	regs, err := sess.FindEntries(ctx, "2024", domain.PhaseRegularization)
	require.NoError(t, err)
	assert.Empty(t, regs)
}
