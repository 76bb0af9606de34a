package usecase

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
)

// yearStore 每個年度一筆資料，交易本身不做任何事，可並行使用
type yearStore struct {
	exercises map[string]*domain.Exercise
}

func newYearStore(years ...int) *yearStore {
	s := &yearStore{exercises: make(map[string]*domain.Exercise)}
	for _, year := range years {
		code := strconv.Itoa(year)
		s.exercises[code] = &domain.Exercise{
			Code:      code,
			StartDate: time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(year, 12, 31, 0, 0, 0, 0, time.UTC),
			Status:    domain.ExerciseStatusOpen,
		}
	}
	return s
}

func (s *yearStore) Begin(ctx context.Context) (LedgerSession, error) {
	return &yearSession{}, nil
}

func (s *yearStore) FindExercise(ctx context.Context, code string) (*domain.Exercise, error) {
	ex, ok := s.exercises[code]
	if !ok {
		return nil, domain.ErrExerciseNotFound
	}
	return ex, nil
}

type yearSession struct {
	LedgerSession
	mu   sync.Mutex
	done bool
}

func (s *yearSession) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	return nil
}

func (s *yearSession) Rollback() error {
	return s.Commit()
}

func (s *yearSession) InTransaction() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.done
}

// gateStep 執行到指定年度時通知 entered 並等待 release
type gateStep struct {
	phase    domain.Phase
	gateCode string
	entered  chan struct{}
	release  chan struct{}
	reached  chan string
}

func (s *gateStep) Phase() domain.Phase { return s.phase }

func (s *gateStep) Exec(ctx context.Context, session LedgerSession, ex *domain.Exercise, journalID int64) error {
	if ex.Code == s.gateCode {
		close(s.entered)
		<-s.release
	}
	return nil
}

func (s *gateStep) Delete(ctx context.Context, session LedgerSession, ex *domain.Exercise) error {
	s.reached <- ex.Code
	return nil
}

func newGatedUseCase(gateCode string, years ...int) (*ClosingUseCase, *gateStep) {
	gate := &gateStep{
		phase:    domain.PhaseRegularization,
		gateCode: gateCode,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
		reached:  make(chan string, 4),
	}
	noop := &gateStep{phase: domain.PhaseClosing, reached: make(chan string, 4)}
	opening := &gateStep{phase: domain.PhaseOpening, reached: make(chan string, 4)}
	store := newYearStore(years...)
	orchestrator := NewClosingOrchestrator(store, gate, noop, opening, nil)
	return NewClosingUseCase(store, orchestrator, nil), gate
}

func TestClosingUseCase_AdjacentYearsAreSerialised(t *testing.T) {
	uc, gate := newGatedUseCase("2025", 2024, 2025)
	ctx := context.Background()

	closeDone := make(chan error, 1)
	go func() {
		_, err := uc.CloseExercise(ctx, "2025", 0, 0)
		closeDone <- err
	}()
	<-gate.entered

	// 反結帳 2024 會檢查 2025，必須等 2025 的結帳完成
	reopenDone := make(chan error, 1)
	go func() {
		_, err := uc.ReopenExercise(ctx, "2024", true, false)
		reopenDone <- err
	}()

	select {
	case code := <-gate.reached:
		t.Fatalf("reopen of %s ran while 2025 was being closed", code)
	case <-time.After(100 * time.Millisecond):
	}

	close(gate.release)
	require.NoError(t, <-closeDone)
	require.NoError(t, <-reopenDone)
	assert.Equal(t, "2024", <-gate.reached)
}

func TestClosingUseCase_UnrelatedYearsRunConcurrently(t *testing.T) {
	uc, gate := newGatedUseCase("2025", 2023, 2025)
	ctx := context.Background()

	closeDone := make(chan error, 1)
	go func() {
		_, err := uc.CloseExercise(ctx, "2025", 0, 0)
		closeDone <- err
	}()
	<-gate.entered

	// 2023 只鎖 2023 與 2024，不受 2025 影響
	res, err := uc.ReopenExercise(ctx, "2023", true, false)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "2023", <-gate.reached)

	close(gate.release)
	require.NoError(t, <-closeDone)
}

func TestClosingUseCase_LockOrder(t *testing.T) {
	uc := NewClosingUseCase(newYearStore(), nil, nil)

	unlock := uc.lock("2025", "2024", "2025")
	acquired := make(chan struct{})
	go func() {
		defer close(acquired)
		uc.lock("2024")()
	}()

	select {
	case <-acquired:
		t.Fatal("2024 acquired while held")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-acquired

	// 重複的代碼只鎖一次，不會自我死結
	uc.lock("2026", "2026")()
}
