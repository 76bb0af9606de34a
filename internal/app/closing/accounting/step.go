// Package accounting 實作結帳流程的三個階段
package accounting

import (
	"context"
	"errors"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
)

// ensureOpen 以交易中的最新狀態檢查年度是否已結帳
func ensureOpen(ctx context.Context, session usecase.LedgerSession, code string) error {
	current, err := session.FindExercise(ctx, code)
	if err != nil {
		return err
	}
	if current.IsClosed() {
		return domain.ErrExerciseClosed
	}
	return nil
}

// saveEntry entry 為 nil 表示沒有需要寫入的分錄
func saveEntry(ctx context.Context, session usecase.LedgerSession, entry *domain.JournalEntry) error {
	if entry == nil {
		return nil
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return session.SaveEntry(ctx, entry)
}

// findNext 查詢下一個會計年度，不存在時回傳 nil
func findNext(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise) (*domain.Exercise, error) {
	next, err := session.FindExercise(ctx, ex.NextCode())
	if errors.Is(err, domain.ErrExerciseNotFound) {
		return nil, nil
	}
	return next, err
}

// ensureNextOpen 下一年度已結帳時，本年度的結帳 / 開帳分錄不可再異動
func ensureNextOpen(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise) error {
	next, err := findNext(ctx, session, ex)
	if err != nil {
		return err
	}
	if next != nil && next.IsClosed() {
		return domain.ErrDependentRecords
	}
	return nil
}

// setStatus 在交易中更新年度狀態，不修改呼叫端傳入的物件
func setStatus(ctx context.Context, session usecase.LedgerSession, code string, status domain.ExerciseStatus) error {
	current, err := session.FindExercise(ctx, code)
	if err != nil {
		return err
	}
	updated := *current
	updated.Status = status
	return session.SaveExercise(ctx, &updated)
}
