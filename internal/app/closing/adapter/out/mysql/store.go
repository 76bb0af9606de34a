package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
	"github.com/JoeShih716/go-ledger-closing/pkg/mysql"
)

// Store 以 GORM 存取帳務資料，每次 Begin 從連線池取出一條連線開交易
type Store struct {
	client *mysql.Client
	logger *zap.Logger
}

func NewStore(client *mysql.Client, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		logger: logger,
	}
}

// Migrate 建立 / 更新資料表
func (s *Store) Migrate(ctx context.Context) error {
	err := s.client.DB().WithContext(ctx).AutoMigrate(&sqlExercise{}, &sqlEntry{}, &sqlEntryLine{})
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) Begin(ctx context.Context) (usecase.LedgerSession, error) {
	tx := s.client.DB().WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &session{tx: tx, logger: s.logger}, nil
}

func (s *Store) FindExercise(ctx context.Context, code string) (*domain.Exercise, error) {
	return findExercise(s.client.DB().WithContext(ctx), code)
}

// findExercise 用 Find 而不是 First，避免 GORM 把 record not found 記成錯誤 log
func findExercise(db *gorm.DB, code string) (*domain.Exercise, error) {
	var rows []sqlExercise
	if err := db.Where("code = ?", code).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrExerciseNotFound
	}
	return rows[0].toDomain(), nil
}

var _ usecase.Store = (*Store)(nil)

// session 包裝單一 *gorm.DB 交易
type session struct {
	tx     *gorm.DB
	done   bool
	logger *zap.Logger
}

func (t *session) Commit() error {
	if t.done {
		return domain.ErrNoTransaction
	}
	if err := t.tx.Commit().Error; err != nil {
		return err
	}
	t.done = true
	return nil
}

// Rollback Commit 失敗後 database/sql 已經結束交易，此時回傳的 ErrTxDone 可忽略
func (t *session) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func (t *session) InTransaction() bool {
	return !t.done
}

func (t *session) FindExercise(ctx context.Context, code string) (*domain.Exercise, error) {
	if t.done {
		return nil, domain.ErrNoTransaction
	}
	// 鎖住年度這一列，避免相鄰年度的結帳在檢查後改變狀態
	return findExercise(t.tx.Clauses(clause.Locking{Strength: "UPDATE"}), code)
}

func (t *session) SaveExercise(ctx context.Context, ex *domain.Exercise) error {
	if t.done {
		return domain.ErrNoTransaction
	}
	return t.tx.Save(toSQLExercise(ex)).Error
}

func (t *session) Balances(ctx context.Context, exerciseCode string, phases ...domain.Phase) ([]domain.AccountBalance, error) {
	if t.done {
		return nil, domain.ErrNoTransaction
	}
	if len(phases) == 0 {
		return nil, nil
	}
	// 不能用 []uint8，GORM 會把它當成 []byte 而不是 IN 清單
	phaseValues := make([]int, 0, len(phases))
	for _, p := range phases {
		phaseValues = append(phaseValues, int(p))
	}

	var rows []balanceRow
	err := t.tx.Table("journal_entry_lines AS l").
		Select("l.account AS account, SUM(l.debit) AS debit, SUM(l.credit) AS credit").
		Joins("JOIN journal_entries AS e ON e.id = l.entry_id").
		Where("e.exercise_code = ? AND e.phase IN ?", exerciseCode, phaseValues).
		Group("l.account").
		Order("l.account").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	// SQLite 的 SUM 以浮點數計算，依欄位精度捨入
	balances := make([]domain.AccountBalance, 0, len(rows))
	for _, row := range rows {
		balances = append(balances, domain.AccountBalance{
			Account: row.Account,
			Debit:   row.Debit.Round(amountScale),
			Credit:  row.Credit.Round(amountScale),
		})
	}
	return balances, nil
}

func (t *session) FindEntries(ctx context.Context, exerciseCode string, phase domain.Phase) ([]*domain.JournalEntry, error) {
	if t.done {
		return nil, domain.ErrNoTransaction
	}
	var rows []sqlEntry
	err := t.tx.
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("id")
		}).
		Where("exercise_code = ? AND phase = ?", exerciseCode, int(phase)).
		Order("date").Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]*domain.JournalEntry, 0, len(rows))
	for i := range rows {
		entry, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", rows[i].ID, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SaveEntry 分錄與明細在同一個交易中寫入
func (t *session) SaveEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if t.done {
		return domain.ErrNoTransaction
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	return t.tx.Create(toSQLEntry(entry)).Error
}

func (t *session) DeleteEntries(ctx context.Context, exerciseCode string, phase domain.Phase) (int64, error) {
	if t.done {
		return 0, domain.ErrNoTransaction
	}
	var ids []int64
	err := t.tx.Model(&sqlEntry{}).
		Where("exercise_code = ? AND phase = ?", exerciseCode, int(phase)).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := t.tx.Where("entry_id IN ?", ids).Delete(&sqlEntryLine{}).Error; err != nil {
		return 0, err
	}
	result := t.tx.Where("id IN ?", ids).Delete(&sqlEntry{})
	if result.Error != nil {
		return 0, result.Error
	}
	t.logger.Debug("journal entries deleted",
		zap.String("exercise", exerciseCode),
		zap.Stringer("phase", phase),
		zap.Int64("count", result.RowsAffected),
	)
	return result.RowsAffected, nil
}

var _ usecase.LedgerSession = (*session)(nil)
