package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultResultAccount 本期損益科目
const DefaultResultAccount = "129"

// IsIncomeStatementAccount 損益類科目 (第 6、7 類) 才需要做損益結轉
func IsIncomeStatementAccount(account string) bool {
	return strings.HasPrefix(account, "6") || strings.HasPrefix(account, "7")
}

// reverseLine 產生把餘額歸零的明細，借餘轉貸方，貸餘轉借方
func reverseLine(account string, balance decimal.Decimal) EntryLine {
	if balance.IsPositive() {
		return EntryLine{Account: account, Credit: balance}
	}
	return EntryLine{Account: account, Debit: balance.Neg()}
}

func sortedBalances(balances []AccountBalance) []AccountBalance {
	sorted := append([]AccountBalance(nil), balances...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Account < sorted[j].Account
	})
	return sorted
}

// NewRegularizationEntry 把損益類科目的餘額結轉到本期損益科目
// 沒有任何損益餘額時回傳 nil
//
// 參數:
//
//	ex: 會計年度
//	journalID: 日記帳
//	resultAccount: 本期損益科目
//	balances: 一般分錄的科目餘額
func NewRegularizationEntry(ex *Exercise, journalID int64, resultAccount string, balances []AccountBalance) *JournalEntry {
	lines := make([]EntryLine, 0, len(balances)+1)
	net := decimal.Zero
	for _, b := range sortedBalances(balances) {
		if !IsIncomeStatementAccount(b.Account) {
			continue
		}
		balance := b.Balance()
		if balance.IsZero() {
			continue
		}
		lines = append(lines, reverseLine(b.Account, balance))
		net = net.Add(balance)
	}
	if len(lines) == 0 {
		return nil
	}
	// 費用大於收入 (借餘) 時為損失，記在損益科目借方
	switch {
	case net.IsPositive():
		lines = append(lines, EntryLine{Account: resultAccount, Debit: net})
	case net.IsNegative():
		lines = append(lines, EntryLine{Account: resultAccount, Credit: net.Neg()})
	}
	return &JournalEntry{
		ID:           uuid.New(),
		ExerciseCode: ex.Code,
		Phase:        PhaseRegularization,
		JournalID:    journalID,
		Date:         ex.EndDate,
		Concept:      fmt.Sprintf("Regularization of exercise %s", ex.Code),
		Lines:        lines,
	}
}

// NewClosingEntry 把所有資產負債類科目歸零
// balances 必須包含一般分錄與損益結轉分錄
func NewClosingEntry(ex *Exercise, journalID int64, balances []AccountBalance) *JournalEntry {
	lines := make([]EntryLine, 0, len(balances))
	for _, b := range sortedBalances(balances) {
		if IsIncomeStatementAccount(b.Account) {
			continue
		}
		balance := b.Balance()
		if balance.IsZero() {
			continue
		}
		lines = append(lines, reverseLine(b.Account, balance))
	}
	if len(lines) == 0 {
		return nil
	}
	return &JournalEntry{
		ID:           uuid.New(),
		ExerciseCode: ex.Code,
		Phase:        PhaseClosing,
		JournalID:    journalID,
		Date:         ex.EndDate,
		Concept:      fmt.Sprintf("Closing of exercise %s", ex.Code),
		Lines:        lines,
	}
}

// NewOpeningEntry 把結帳分錄反向帶入下一個會計年度
func NewOpeningEntry(closing *JournalEntry, next *Exercise, journalID int64) *JournalEntry {
	if closing == nil || len(closing.Lines) == 0 {
		return nil
	}
	lines := make([]EntryLine, 0, len(closing.Lines))
	for _, line := range closing.Lines {
		lines = append(lines, EntryLine{
			Account: line.Account,
			Debit:   line.Credit,
			Credit:  line.Debit,
		})
	}
	return &JournalEntry{
		ID:           uuid.New(),
		ExerciseCode: next.Code,
		Phase:        PhaseOpening,
		JournalID:    journalID,
		Date:         next.StartDate,
		Concept:      fmt.Sprintf("Opening of exercise %s", next.Code),
		Lines:        lines,
	}
}
