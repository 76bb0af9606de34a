package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
	"github.com/JoeShih716/go-ledger-closing/pkg/wal"
)

// state 帳本快照，Commit 時整份替換
type state struct {
	exercises map[string]domain.Exercise
	entries   map[uuid.UUID]*domain.JournalEntry
}

func newState() *state {
	return &state{
		exercises: make(map[string]domain.Exercise),
		entries:   make(map[uuid.UUID]*domain.JournalEntry),
	}
}

// clone 分錄存進來後不會再被修改，所以只需要複製 map
func (s *state) clone() *state {
	c := &state{
		exercises: make(map[string]domain.Exercise, len(s.exercises)),
		entries:   make(map[uuid.UUID]*domain.JournalEntry, len(s.entries)),
	}
	for k, v := range s.exercises {
		c.exercises[k] = v
	}
	for k, v := range s.entries {
		c.entries[k] = v
	}
	return c
}

// walRecord 一次 Commit 的所有異動
type walRecord struct {
	Sequence    uint64                 `json:"sequence"`
	CommittedAt int64                  `json:"committed_at"`
	Exercises   []domain.Exercise      `json:"exercises,omitempty"`
	Deleted     []uuid.UUID            `json:"deleted,omitempty"`
	Entries     []*domain.JournalEntry `json:"entries,omitempty"`
}

func (r *walRecord) apply(s *state) {
	for _, ex := range r.Exercises {
		s.exercises[ex.Code] = ex
	}
	for _, id := range r.Deleted {
		delete(s.entries, id)
	}
	for _, entry := range r.Entries {
		s.entries[entry.ID] = entry
	}
}

// Store 是一個使用 Mutex 實現的帳本
//
// 結構:
//
//	current: 已提交的資料
//	mu: 保護 current
//	writer: 同一時間只允許一個交易，容量為 1 的 channel 當作可被 ctx 取消的鎖
//	wal: Write-Ahead Log 實例，可為 nil (純記憶體)
type Store struct {
	current  *state
	mu       sync.RWMutex
	writer   chan struct{}
	wal      *wal.WAL
	sequence uint64
	logger   *zap.Logger
}

// NewStore 建立一個新的 Store 實例，並從 WAL 恢復資料
//
// 參數:
//
//	w: Write-Ahead Log 實例，可為 nil
//	logger: 可為 nil
//
// 回傳:
//
//	*Store: Store 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewStore(w *wal.WAL, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &Store{
		current: newState(),
		writer:  make(chan struct{}, 1),
		wal:     w,
		logger:  logger,
	}
	if err := store.recoverFromWAL(); err != nil {
		return nil, err
	}
	return store, nil
}

// recoverFromWAL 只有 NewStore 呼叫，無需 Lock (單執行緒)
func (s *Store) recoverFromWAL() error {
	if s.wal == nil {
		return nil
	}
	count := 0
	err := s.wal.Replay(func(raw json.RawMessage) error {
		var rec walRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		rec.apply(s.current)
		s.sequence = rec.Sequence
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("recover from wal: %w", err)
	}
	s.logger.Info("memory store recovered",
		zap.Int("records", count),
		zap.Int("exercises", len(s.current.exercises)),
		zap.Int("entries", len(s.current.entries)),
	)
	return nil
}

// Begin 取得寫入權後複製一份快照，交易中的異動只寫入快照
func (s *Store) Begin(ctx context.Context) (usecase.LedgerSession, error) {
	select {
	case s.writer <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.RLock()
	snapshot := s.current.clone()
	s.mu.RUnlock()
	return &session{
		store:   s,
		state:   snapshot,
		changed: make(map[string]struct{}),
		saved:   make(map[uuid.UUID]struct{}),
		deleted: make(map[uuid.UUID]struct{}),
	}, nil
}

// FindExercise 讀取已提交的資料
func (s *Store) FindExercise(ctx context.Context, code string) (*domain.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findExercise(s.current, code)
}

func findExercise(st *state, code string) (*domain.Exercise, error) {
	ex, ok := st.exercises[code]
	if !ok {
		return nil, domain.ErrExerciseNotFound
	}
	return &ex, nil
}

// commit 寫入 WAL 成功後才替換快照
func (s *Store) commit(sess *session) error {
	rec := &walRecord{
		Sequence:    s.sequence + 1,
		CommittedAt: time.Now().UnixMilli(),
	}
	for code := range sess.changed {
		rec.Exercises = append(rec.Exercises, sess.state.exercises[code])
	}
	for id := range sess.deleted {
		rec.Deleted = append(rec.Deleted, id)
	}
	for id := range sess.saved {
		if entry, ok := sess.state.entries[id]; ok {
			rec.Entries = append(rec.Entries, entry)
		}
	}

	if s.wal != nil {
		if err := s.wal.Append(rec); err != nil {
			return fmt.Errorf("write wal: %w", err)
		}
	}

	s.mu.Lock()
	s.current = sess.state
	s.sequence = rec.Sequence
	s.mu.Unlock()
	return nil
}

func (s *Store) release() {
	<-s.writer
}

var _ usecase.Store = (*Store)(nil)

// session 單一交易
type session struct {
	store   *Store
	state   *state
	changed map[string]struct{}
	saved   map[uuid.UUID]struct{}
	deleted map[uuid.UUID]struct{}
	done    bool
}

func (t *session) Commit() error {
	if t.done {
		return domain.ErrNoTransaction
	}
	if err := t.store.commit(t); err != nil {
		return err
	}
	t.done = true
	t.store.release()
	return nil
}

func (t *session) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.state = nil
	t.store.release()
	return nil
}

func (t *session) InTransaction() bool {
	return !t.done
}

func (t *session) FindExercise(ctx context.Context, code string) (*domain.Exercise, error) {
	if t.done {
		return nil, domain.ErrNoTransaction
	}
	return findExercise(t.state, code)
}

func (t *session) SaveExercise(ctx context.Context, ex *domain.Exercise) error {
	if t.done {
		return domain.ErrNoTransaction
	}
	t.state.exercises[ex.Code] = *ex
	t.changed[ex.Code] = struct{}{}
	return nil
}

func (t *session) Balances(ctx context.Context, exerciseCode string, phases ...domain.Phase) ([]domain.AccountBalance, error) {
	if t.done {
		return nil, domain.ErrNoTransaction
	}
	byAccount := make(map[string]*domain.AccountBalance)
	for _, entry := range t.state.entries {
		if entry.ExerciseCode != exerciseCode || !containsPhase(phases, entry.Phase) {
			continue
		}
		for _, line := range entry.Lines {
			b, ok := byAccount[line.Account]
			if !ok {
				b = &domain.AccountBalance{Account: line.Account}
				byAccount[line.Account] = b
			}
			b.Debit = b.Debit.Add(line.Debit)
			b.Credit = b.Credit.Add(line.Credit)
		}
	}
	balances := make([]domain.AccountBalance, 0, len(byAccount))
	for _, b := range byAccount {
		balances = append(balances, *b)
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Account < balances[j].Account
	})
	return balances, nil
}

func (t *session) FindEntries(ctx context.Context, exerciseCode string, phase domain.Phase) ([]*domain.JournalEntry, error) {
	if t.done {
		return nil, domain.ErrNoTransaction
	}
	var entries []*domain.JournalEntry
	for _, entry := range t.state.entries {
		if entry.ExerciseCode == exerciseCode && entry.Phase == phase {
			entries = append(entries, entry.Clone())
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
	return entries, nil
}

func (t *session) SaveEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if t.done {
		return domain.ErrNoTransaction
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	t.state.entries[entry.ID] = entry.Clone()
	t.saved[entry.ID] = struct{}{}
	delete(t.deleted, entry.ID)
	return nil
}

func (t *session) DeleteEntries(ctx context.Context, exerciseCode string, phase domain.Phase) (int64, error) {
	if t.done {
		return 0, domain.ErrNoTransaction
	}
	var count int64
	for id, entry := range t.state.entries {
		if entry.ExerciseCode != exerciseCode || entry.Phase != phase {
			continue
		}
		delete(t.state.entries, id)
		delete(t.saved, id)
		t.deleted[id] = struct{}{}
		count++
	}
	return count, nil
}

func containsPhase(phases []domain.Phase, phase domain.Phase) bool {
	for _, p := range phases {
		if p == phase {
			return true
		}
	}
	return false
}

var _ usecase.LedgerSession = (*session)(nil)
