package mysql

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
)

// sqlExercise 對應資料庫的 exercises 表
type sqlExercise struct {
	Code      string `gorm:"primaryKey;size:16"`
	Name      string `gorm:"size:100"`
	StartDate time.Time
	EndDate   time.Time
	Status    uint8
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlExercise) TableName() string {
	return "exercises"
}

func toSQLExercise(ex *domain.Exercise) *sqlExercise {
	return &sqlExercise{
		Code:      ex.Code,
		Name:      ex.Name,
		StartDate: ex.StartDate,
		EndDate:   ex.EndDate,
		Status:    uint8(ex.Status),
	}
}

func (e *sqlExercise) toDomain() *domain.Exercise {
	return &domain.Exercise{
		Code:      e.Code,
		Name:      e.Name,
		StartDate: e.StartDate.UTC(),
		EndDate:   e.EndDate.UTC(),
		Status:    domain.ExerciseStatus(e.Status),
	}
}

// sqlEntry 對應資料庫的 journal_entries 表
type sqlEntry struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	RefID        []byte `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.JournalEntry.ID
	ExerciseCode string `gorm:"size:16;index:idx_exercise_phase"`
	Phase        uint8  `gorm:"index:idx_exercise_phase"`
	JournalID    int64
	Date         time.Time
	Concept      string         `gorm:"size:255"`
	Lines        []sqlEntryLine `gorm:"foreignKey:EntryID"`
	CreatedAt    int64          `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlEntry) TableName() string {
	return "journal_entries"
}

// amountScale 金額欄位 decimal(20,4) 的小數位數
const amountScale = 4

// sqlEntryLine 對應資料庫的 journal_entry_lines 表
type sqlEntryLine struct {
	ID      int64           `gorm:"primaryKey;autoIncrement"`
	EntryID int64           `gorm:"index"`
	Account string          `gorm:"size:20;index"`
	Debit   decimal.Decimal `gorm:"type:decimal(20,4)"`
	Credit  decimal.Decimal `gorm:"type:decimal(20,4)"`
}

func (*sqlEntryLine) TableName() string {
	return "journal_entry_lines"
}

func toSQLEntry(entry *domain.JournalEntry) *sqlEntry {
	row := &sqlEntry{
		RefID:        entry.ID[:],
		ExerciseCode: entry.ExerciseCode,
		Phase:        uint8(entry.Phase),
		JournalID:    entry.JournalID,
		Date:         entry.Date,
		Concept:      entry.Concept,
		Lines:        make([]sqlEntryLine, 0, len(entry.Lines)),
	}
	for _, line := range entry.Lines {
		row.Lines = append(row.Lines, sqlEntryLine{
			Account: line.Account,
			Debit:   line.Debit,
			Credit:  line.Credit,
		})
	}
	return row
}

func (e *sqlEntry) toDomain() (*domain.JournalEntry, error) {
	id, err := uuid.FromBytes(e.RefID)
	if err != nil {
		return nil, err
	}
	entry := &domain.JournalEntry{
		ID:           id,
		ExerciseCode: e.ExerciseCode,
		Phase:        domain.Phase(e.Phase),
		JournalID:    e.JournalID,
		Date:         e.Date.UTC(),
		Concept:      e.Concept,
		Lines:        make([]domain.EntryLine, 0, len(e.Lines)),
	}
	for _, line := range e.Lines {
		entry.Lines = append(entry.Lines, domain.EntryLine{
			Account: line.Account,
			Debit:   line.Debit,
			Credit:  line.Credit,
		})
	}
	return entry, nil
}

// balanceRow 科目加總的查詢結果
type balanceRow struct {
	Account string
	Debit   decimal.Decimal
	Credit  decimal.Decimal
}
