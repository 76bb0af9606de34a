package usecase

import (
	"context"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
)

// Session 是單次呼叫專屬的資料庫交易
// 同一個 Session 不可被多個 goroutine 同時使用
type Session interface {
	// Commit 提交交易，交易已結束時回傳 domain.ErrNoTransaction
	Commit() error
	// Rollback 取消交易，交易已結束時不做任何事
	Rollback() error
	// InTransaction 交易是否仍在進行中
	InTransaction() bool
}

// LedgerSession 在交易中讀寫帳務資料
type LedgerSession interface {
	Session

	// FindExercise 查詢會計年度，找不到時回傳 domain.ErrExerciseNotFound
	FindExercise(ctx context.Context, code string) (*domain.Exercise, error)
	// SaveExercise 新增或更新會計年度
	SaveExercise(ctx context.Context, ex *domain.Exercise) error
	// Balances 依科目加總指定階段的分錄
	Balances(ctx context.Context, exerciseCode string, phases ...domain.Phase) ([]domain.AccountBalance, error)
	// FindEntries 查詢某年度某階段的分錄
	FindEntries(ctx context.Context, exerciseCode string, phase domain.Phase) ([]*domain.JournalEntry, error)
	// SaveEntry 寫入一筆分錄
	SaveEntry(ctx context.Context, entry *domain.JournalEntry) error
	// DeleteEntries 刪除某年度某階段的分錄，回傳刪除筆數
	DeleteEntries(ctx context.Context, exerciseCode string, phase domain.Phase) (int64, error)
}

// Store 是帳務資料庫的介面
type Store interface {
	// Begin 開啟一個新的交易，每次呼叫都會拿到獨立的 Session
	Begin(ctx context.Context) (LedgerSession, error)
	// FindExercise 在交易外查詢會計年度
	FindExercise(ctx context.Context, code string) (*domain.Exercise, error)
}

// Step 是結帳流程中的一個階段 (損益結轉 / 結帳 / 開帳)
// 回傳 nil 代表成功；失敗時不可留下部分結果以外的副作用，交易會被 Rollback
type Step interface {
	Phase() domain.Phase
	// Exec 計算並寫入本階段的分錄，重複執行會取代之前的分錄
	Exec(ctx context.Context, session LedgerSession, ex *domain.Exercise, journalID int64) error
	// Delete 刪除本階段的分錄，沒有分錄時直接成功
	Delete(ctx context.Context, session LedgerSession, ex *domain.Exercise) error
}
