package usecase

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
)

// ClosingUseCase 是結帳的應用層
// 結帳與反結帳會讀寫下一個年度，呼叫時同時鎖住本年度與下一年度，
// 相鄰年度的呼叫因此會被序列化，其他年度可以並行
type ClosingUseCase struct {
	store        Store
	orchestrator *ClosingOrchestrator
	logger       *zap.Logger
	// locks: map[string]*sync.Mutex
	locks sync.Map
}

func NewClosingUseCase(store Store, orchestrator *ClosingOrchestrator, logger *zap.Logger) *ClosingUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosingUseCase{
		store:        store,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// lock 依代碼排序後加鎖，固定順序避免死結
func (c *ClosingUseCase) lock(codes ...string) func() {
	codes = slices.Clone(codes)
	slices.Sort(codes)
	codes = slices.Compact(codes)
	mutexes := make([]*sync.Mutex, 0, len(codes))
	for _, code := range codes {
		v, _ := c.locks.LoadOrStore(code, &sync.Mutex{})
		mu := v.(*sync.Mutex)
		mu.Lock()
		mutexes = append(mutexes, mu)
	}
	return func() {
		for i := len(mutexes) - 1; i >= 0; i-- {
			mutexes[i].Unlock()
		}
	}
}

// lockExercise 鎖住本年度與下一年度，取得鎖之後重新讀取年度
func (c *ClosingUseCase) lockExercise(ctx context.Context, code string) (*domain.Exercise, func(), error) {
	ex, err := c.store.FindExercise(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	unlock := c.lock(code, ex.NextCode())
	ex, err = c.store.FindExercise(ctx, code)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return ex, unlock, nil
}

// CloseExercise 結帳並開下一年度的帳
func (c *ClosingUseCase) CloseExercise(ctx context.Context, code string, journalClosing, journalOpening int64) (*Result, error) {
	ex, unlock, err := c.lockExercise(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := c.orchestrator.Execute(ctx, ex, journalClosing, journalOpening)
	c.logResult("close exercise", code, res, err)
	return res, err
}

// ReopenExercise 反結帳
func (c *ClosingUseCase) ReopenExercise(ctx context.Context, code string, undoClosing, undoOpening bool) (*Result, error) {
	ex, unlock, err := c.lockExercise(ctx, code)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res, err := c.orchestrator.Delete(ctx, ex, undoClosing, undoOpening)
	c.logResult("reopen exercise", code, res, err)
	return res, err
}

// GetExercise 取得會計年度
func (c *ClosingUseCase) GetExercise(ctx context.Context, code string) (*domain.Exercise, error) {
	return c.store.FindExercise(ctx, code)
}

func (c *ClosingUseCase) logResult(msg, code string, res *Result, err error) {
	fields := []zap.Field{zap.String("exercise", code)}
	if res != nil {
		fields = append(fields,
			zap.String("operation_id", res.OperationID.String()),
			zap.Bool("committed", res.Committed),
		)
		if res.Failure != nil {
			fields = append(fields, zap.Stringer("failed_phase", res.Failure.Phase))
		}
	}
	if err != nil {
		c.logger.Error(msg, append(fields, zap.Error(err))...)
		return
	}
	c.logger.Info(msg, fields...)
}
