package domain

import (
	"strconv"
	"time"
)

// ExerciseStatus 會計年度狀態
type ExerciseStatus uint8

const (
	// 開啟中，可以記帳
	ExerciseStatusOpen ExerciseStatus = 1
	// 已結帳
	ExerciseStatusClosed ExerciseStatus = 2
)

func (s ExerciseStatus) String() string {
	switch s {
	case ExerciseStatusOpen:
		return "open"
	case ExerciseStatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Exercise 會計年度 (會計期間)
//
// 結帳流程只會以 Code 作為分錄的關聯鍵，不會修改 Code / 日期區間
type Exercise struct {
	// Code: 年度代碼，例如 "2024"
	Code      string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Status    ExerciseStatus
}

// IsClosed 是否已結帳
func (e *Exercise) IsClosed() bool {
	return e.Status == ExerciseStatusClosed
}

// NextPeriod 回傳下一個會計年度的起訖日
// 下一期從本期結束日的隔天開始，長度為一年
func (e *Exercise) NextPeriod() (start time.Time, end time.Time) {
	start = e.EndDate.AddDate(0, 0, 1)
	end = start.AddDate(1, 0, -1)
	return start, end
}

// NextCode 下一個會計年度的代碼，以下一期起始年份表示
func (e *Exercise) NextCode() string {
	start, _ := e.NextPeriod()
	return strconv.Itoa(start.Year())
}

// NewNextExercise 依本期建立下一個會計年度 (狀態為開啟)
func (e *Exercise) NewNextExercise() *Exercise {
	start, end := e.NextPeriod()
	code := e.NextCode()
	return &Exercise{
		Code:      code,
		Name:      code,
		StartDate: start,
		EndDate:   end,
		Status:    ExerciseStatusOpen,
	}
}

// Contains 日期是否落在本期
func (e *Exercise) Contains(date time.Time) bool {
	return !date.Before(e.StartDate) && !date.After(e.EndDate)
}
