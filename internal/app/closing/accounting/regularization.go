package accounting

import (
	"context"
	"fmt"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
)

// RegularizationStep 損益結轉：把第 6、7 類科目餘額結轉到本期損益科目
type RegularizationStep struct {
	resultAccount string
}

// NewRegularizationStep resultAccount 為空時使用 domain.DefaultResultAccount
func NewRegularizationStep(resultAccount string) *RegularizationStep {
	if resultAccount == "" {
		resultAccount = domain.DefaultResultAccount
	}
	return &RegularizationStep{resultAccount: resultAccount}
}

func (s *RegularizationStep) Phase() domain.Phase {
	return domain.PhaseRegularization
}

// Exec 重新計算損益結轉分錄，已結帳的年度不可執行
func (s *RegularizationStep) Exec(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise, journalID int64) error {
	if err := ensureOpen(ctx, session, ex.Code); err != nil {
		return err
	}
	if _, err := session.DeleteEntries(ctx, ex.Code, domain.PhaseRegularization); err != nil {
		return fmt.Errorf("delete previous regularization: %w", err)
	}
	balances, err := session.Balances(ctx, ex.Code, domain.PhaseNormal)
	if err != nil {
		return fmt.Errorf("load balances: %w", err)
	}
	return saveEntry(ctx, session, domain.NewRegularizationEntry(ex, journalID, s.resultAccount, balances))
}

// Delete 刪除損益結轉分錄
func (s *RegularizationStep) Delete(ctx context.Context, session usecase.LedgerSession, ex *domain.Exercise) error {
	_, err := session.DeleteEntries(ctx, ex.Code, domain.PhaseRegularization)
	return err
}

var _ usecase.Step = (*RegularizationStep)(nil)
