package accounting

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
)

// OpeningStep 開帳：把結帳分錄反向寫入下一個會計年度
type OpeningStep struct{}

func NewOpeningStep() *OpeningStep {
	return &OpeningStep{}
}

func (s *OpeningStep) Phase() domain.Phase {
	return domain.PhaseOpening
}

// Exec 下一年度不存在時會自動建立
func (s *OpeningStep) Exec(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise, journalID int64) error {
	next, err := findNext(ctx, session, ex)
	if err != nil {
		return err
	}
	if next == nil {
		next = ex.NewNextExercise()
		if err := session.SaveExercise(ctx, next); err != nil {
			return fmt.Errorf("create next exercise: %w", err)
		}
	}
	if next.IsClosed() {
		return domain.ErrExerciseClosed
	}
	if _, err := session.DeleteEntries(ctx, next.Code, domain.PhaseOpening); err != nil {
		return fmt.Errorf("delete previous opening: %w", err)
	}

	closings, err := session.FindEntries(ctx, ex.Code, domain.PhaseClosing)
	if err != nil {
		return fmt.Errorf("load closing entries: %w", err)
	}
	for _, closing := range closings {
		if err := saveEntry(ctx, session, domain.NewOpeningEntry(closing, next, journalID)); err != nil {
			return err
		}
	}
	return nil
}

// Delete 刪除下一年度的開帳分錄，下一年度不存在時直接成功
func (s *OpeningStep) Delete(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise) error {
	next, err := findNext(ctx, session, ex)
	if err != nil || next == nil {
		return err
	}
	if next.IsClosed() {
		return domain.ErrDependentRecords
	}
	_, err = session.DeleteEntries(ctx, next.Code, domain.PhaseOpening)
	return err
}

var _ usecase.Step = (*OpeningStep)(nil)
