package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrExerciseRequired 未指定會計年度
	ErrExerciseRequired = errors.New("exercise is required")

	// ErrExerciseNotFound 找不到會計年度
	ErrExerciseNotFound = errors.New("exercise not found")

	// ErrExerciseClosed 會計年度已結帳
	ErrExerciseClosed = errors.New("exercise is closed")

	// ErrDependentRecords 有相依的紀錄，無法刪除
	ErrDependentRecords = errors.New("dependent records exist")

	// ErrEntryTooFewLines 分錄至少需要兩行
	ErrEntryTooFewLines = errors.New("entry needs at least two lines")

	// ErrInvalidEntryLine 分錄明細不合法
	ErrInvalidEntryLine = errors.New("invalid entry line")

	// ErrNegativeAmount 金額不可為負數
	ErrNegativeAmount = errors.New("amount must not be negative")

	// ErrUnbalancedEntry 借貸不平衡
	ErrUnbalancedEntry = errors.New("entry is not balanced")

	// ErrNoTransaction 沒有進行中的交易
	ErrNoTransaction = errors.New("no transaction in progress")
)

// StepOp 結帳步驟的動作
type StepOp uint8

const (
	StepOpExec StepOp = iota + 1
	StepOpDelete
)

func (op StepOp) String() string {
	switch op {
	case StepOpExec:
		return "exec"
	case StepOpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// PhaseError 標記是哪一個階段、哪一個動作失敗
type PhaseError struct {
	Phase Phase
	Op    StepOp
	Err   error
}

// NewPhaseError 建立 PhaseError
func NewPhaseError(phase Phase, op StepOp, err error) *PhaseError {
	return &PhaseError{Phase: phase, Op: op, Err: err}
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Phase, e.Op, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
