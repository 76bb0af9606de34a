package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Phase 分錄所屬的結帳階段
// 為了節省欄位空間，使用 uint8
type Phase uint8

const (
	// 一般分錄
	PhaseNormal Phase = iota
	// 損益結轉 (regularization)
	PhaseRegularization
	// 結帳分錄
	PhaseClosing
	// 開帳分錄
	PhaseOpening
)

func (p Phase) String() string {
	switch p {
	case PhaseNormal:
		return "normal"
	case PhaseRegularization:
		return "regularization"
	case PhaseClosing:
		return "closing"
	case PhaseOpening:
		return "opening"
	default:
		return "unknown"
	}
}

// EntryLine 分錄明細，每一行只能有借方或貸方其中一邊
type EntryLine struct {
	Account string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Balance 借方減貸方
func (l EntryLine) Balance() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// JournalEntry 日記帳分錄
type JournalEntry struct {
	// ID: 外部追蹤號 (UUID)
	ID           uuid.UUID
	ExerciseCode string
	Phase        Phase
	// JournalID: 分錄歸屬的日記帳，0 表示未指定
	JournalID int64
	Date      time.Time
	Concept   string
	Lines     []EntryLine
}

// Totals 回傳借貸合計
func (e *JournalEntry) Totals() (debit decimal.Decimal, credit decimal.Decimal) {
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// Validate 檢查分錄是否可以入帳
//
// 回傳:
//
//	error: ErrEntryTooFewLines / ErrNegativeAmount / ErrInvalidEntryLine / ErrUnbalancedEntry
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return ErrEntryTooFewLines
	}
	for _, line := range e.Lines {
		if line.Account == "" {
			return ErrInvalidEntryLine
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return ErrNegativeAmount
		}
		// 同一行不可同時有借貸，也不可都是零
		if line.Debit.IsZero() == line.Credit.IsZero() {
			return ErrInvalidEntryLine
		}
	}
	debit, credit := e.Totals()
	if !debit.Equal(credit) {
		return ErrUnbalancedEntry
	}
	return nil
}

// Clone 深拷貝，避免呼叫端與儲存層共用 Lines
func (e *JournalEntry) Clone() *JournalEntry {
	c := *e
	c.Lines = append([]EntryLine(nil), e.Lines...)
	return &c
}

// AccountBalance 單一科目在某期間的借貸累計
type AccountBalance struct {
	Account string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}

// Balance 借方減貸方，正數為借餘，負數為貸餘
func (b AccountBalance) Balance() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}
