package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
)

// Result 單次結帳 / 反結帳的結果
type Result struct {
	// OperationID: 每次呼叫產生一個，方便追蹤 log
	OperationID uuid.UUID
	// Committed: Commit 成功且交易已結束
	Committed bool
	// Failure: 失敗的階段，成功時為 nil
	Failure *domain.PhaseError
}

// OK 整個流程是否已提交
func (r *Result) OK() bool {
	return r != nil && r.Committed
}

// ClosingOrchestrator 在同一個交易中依序執行損益結轉、結帳、開帳
type ClosingOrchestrator struct {
	store          Store
	regularization Step
	closing        Step
	opening        Step
	logger         *zap.Logger
}

// NewClosingOrchestrator 建立結帳協調器
//
// 參數:
//
//	store: 提供交易的資料庫
//	regularization, closing, opening: 三個階段
//	logger: 可為 nil
func NewClosingOrchestrator(store Store, regularization, closing, opening Step, logger *zap.Logger) *ClosingOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClosingOrchestrator{
		store:          store,
		regularization: regularization,
		closing:        closing,
		opening:        opening,
		logger:         logger,
	}
}

type phaseCall struct {
	step    Step
	journal int64
}

// Execute 執行 損益結轉 -> 結帳 -> 開帳
//
// 參數:
//
//	ex: 會計年度
//	journalClosing: 損益結轉與結帳分錄使用的日記帳，0 表示未指定
//	journalOpening: 開帳分錄使用的日記帳，0 表示未指定
//
// 回傳:
//
//	*Result: 任何階段失敗都只反映在 Result.Failure，不會回傳 error
//	error: 只有交易本身 (Begin / Commit / Rollback) 失敗才回傳
func (o *ClosingOrchestrator) Execute(ctx context.Context, ex *domain.Exercise, journalClosing, journalOpening int64) (*Result, error) {
	// 損益結轉分錄視為結帳日記帳的一部分
	calls := []phaseCall{
		{step: o.regularization, journal: journalClosing},
		{step: o.closing, journal: journalClosing},
		{step: o.opening, journal: journalOpening},
	}
	return o.run(ctx, "execute", ex, func(session LedgerSession) *domain.PhaseError {
		for _, call := range calls {
			if err := call.step.Exec(ctx, session, ex, call.journal); err != nil {
				return domain.NewPhaseError(call.step.Phase(), domain.StepOpExec, err)
			}
		}
		return nil
	})
}

// Delete 反結帳
//
// 參數:
//
//	ex: 會計年度
//	undoClosing: 刪除損益結轉與結帳分錄
//	undoOpening: 刪除開帳分錄
//
// 結帳分錄刪除失敗時不會刪除開帳分錄
func (o *ClosingOrchestrator) Delete(ctx context.Context, ex *domain.Exercise, undoClosing, undoOpening bool) (*Result, error) {
	steps := make([]Step, 0, 3)
	if undoClosing {
		steps = append(steps, o.regularization, o.closing)
	}
	if undoOpening {
		steps = append(steps, o.opening)
	}
	return o.run(ctx, "delete", ex, func(session LedgerSession) *domain.PhaseError {
		for _, step := range steps {
			if err := step.Delete(ctx, session, ex); err != nil {
				return domain.NewPhaseError(step.Phase(), domain.StepOpDelete, err)
			}
		}
		return nil
	})
}

// run 開啟交易、執行 body，全部成功才 Commit
// 離開時交易若仍在進行中一律 Rollback
func (o *ClosingOrchestrator) run(ctx context.Context, action string, ex *domain.Exercise, body func(LedgerSession) *domain.PhaseError) (res *Result, err error) {
	if ex == nil {
		return nil, domain.ErrExerciseRequired
	}
	res = &Result{OperationID: uuid.New()}
	logger := o.logger.With(
		zap.String("action", action),
		zap.String("exercise", ex.Code),
		zap.String("operation_id", res.OperationID.String()),
	)

	session, err := o.store.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if !session.InTransaction() {
			return
		}
		res.Committed = false
		if rbErr := session.Rollback(); rbErr != nil {
			logger.Error("rollback failed", zap.Error(rbErr))
			err = errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
			return
		}
		logger.Info("transaction rolled back")
	}()

	if failure := body(session); failure != nil {
		res.Failure = failure
		logger.Warn("closing step failed",
			zap.Stringer("phase", failure.Phase),
			zap.Stringer("op", failure.Op),
			zap.Error(failure.Err),
		)
		return res, nil
	}

	if err := session.Commit(); err != nil {
		logger.Error("commit failed", zap.Error(err))
		return res, fmt.Errorf("commit transaction: %w", err)
	}
	// 需要 Commit 明確成功，且交易已經結束
	res.Committed = !session.InTransaction()
	if res.Committed {
		logger.Info("transaction committed")
	}
	return res, nil
}
