package accounting

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
)

// ClosingStep 結帳：把資產負債類科目歸零並將年度標記為已結帳
type ClosingStep struct{}

func NewClosingStep() *ClosingStep {
	return &ClosingStep{}
}

func (s *ClosingStep) Phase() domain.Phase {
	return domain.PhaseClosing
}

func (s *ClosingStep) Exec(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise, journalID int64) error {
	if err := ensureOpen(ctx, session, ex.Code); err != nil {
		return err
	}
	if _, err := session.DeleteEntries(ctx, ex.Code, domain.PhaseClosing); err != nil {
		return fmt.Errorf("delete previous closing: %w", err)
	}
	// 必須包含上一年度帶入的開帳分錄，以及同一個交易中剛寫入的損益結轉分錄
	balances, err := session.Balances(ctx, ex.Code, domain.PhaseOpening, domain.PhaseNormal, domain.PhaseRegularization)
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}
	if err := saveEntry(ctx, session, domain.NewClosingEntry(ex, journalID, balances)); err != nil {
		return err
	}
	return setStatus(ctx, session, ex.Code, domain.ExerciseStatusClosed)
}

// Delete 刪除結帳分錄並重新開啟年度
func (s *ClosingStep) Delete(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise) error {
	if err := ensureNextOpen(ctx, session, ex); err != nil {
		return err
	}
	if _, err := session.DeleteEntries(ctx, ex.Code, domain.PhaseClosing); err != nil {
		return err
	}
	return setStatus(ctx, session, ex.Code, domain.ExerciseStatusOpen)
}

var _ usecase.Step = (*ClosingStep)(nil)
