// Package memory — хранилище в памяти процесса для STORAGE_DRIVER=memory и тестов.
// Повторяет семантику SQL-версии: условные обновления, инкременты,
// транзакция с откатом.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"serotonyl.ru/lingvo-api/internal/common"
	"serotonyl.ru/lingvo-api/internal/features/questions"
	"serotonyl.ru/lingvo-api/internal/features/reminders"
	"serotonyl.ru/lingvo-api/internal/features/streak"
	"serotonyl.ru/lingvo-api/internal/features/xp"
)

// User — строка пользователя.
type User struct {
	ID             string
	Email          string
	DisplayName    string
	TotalXP        int64
	DailyXP        int64
	WeeklyXP       int64
	CurrentStreak  int
	LongestStreak  int
	LastStreakDate *time.Time
	LastActivityAt *time.Time
}

type activityKey struct {
	userID string
	day    time.Time
}

type awardKey struct {
	userID     string
	questionID string
}

type reminderKey struct {
	userID string
	kind   string
	day    time.Time
}

// Store реализует хранилища всех фич.
type Store struct {
	mu         sync.Mutex
	users      map[string]*User
	questions  map[string]questions.GameMetadata
	activities map[activityKey]*xp.Activity
	awards     map[awardKey]xp.Award
	reminders  map[reminderKey]struct{}

	ledgerEnabled bool
	// LedgerErr, если задан, возвращается реестром начислений (таблица «недоступна»).
	LedgerErr error
}

// NewStore создаёт пустое хранилище.
func NewStore(ledgerEnabled bool) *Store {
	return &Store{
		users:         make(map[string]*User),
		questions:     make(map[string]questions.GameMetadata),
		activities:    make(map[activityKey]*xp.Activity),
		awards:        make(map[awardKey]xp.Award),
		reminders:     make(map[reminderKey]struct{}),
		ledgerEnabled: ledgerEnabled,
	}
}

// AddUser добавляет пользователя. Пустой ID генерируется.
func (s *Store) AddUser(u User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = &u
	return u.ID
}

// User возвращает копию пользователя.
func (s *Store) User(id string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// AddQuestion добавляет вопрос в справочник.
func (s *Store) AddQuestion(id string, meta questions.GameMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[id] = meta
}

// AwardCount — число записей реестра начислений.
func (s *Store) AwardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.awards)
}

// --- questions.Loader ---

func (s *Store) LoadMetadata(_ context.Context, questionID string) (questions.GameMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.questions[questionID]
	if !ok {
		return questions.GameMetadata{}, common.ErrQuestionNotFound
	}
	return m, nil
}

// --- streak.Store ---

func (s *Store) GetState(_ context.Context, userID string) (*streak.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return &streak.State{
		UserID:         u.ID,
		CurrentStreak:  u.CurrentStreak,
		LongestStreak:  u.LongestStreak,
		LastStreakDate: copyTime(u.LastStreakDate),
		LastActivityAt: copyTime(u.LastActivityAt),
	}, nil
}

func (s *Store) AdvanceStreak(_ context.Context, userID string, today time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	if u.LastStreakDate != nil && !u.LastStreakDate.Before(today) {
		return false, nil
	}
	u.CurrentStreak++
	u.LongestStreak = max(u.LongestStreak, u.CurrentStreak)
	u.LastStreakDate = &today
	return true, nil
}

func (s *Store) ResetStreak(_ context.Context, userID string, today time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return common.ErrUserNotFound
	}
	u.CurrentStreak = 1
	u.LongestStreak = max(u.LongestStreak, 1)
	u.LastStreakDate = &today
	return nil
}

func (s *Store) BreakStreak(_ context.Context, userID string, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok || u.CurrentStreak == 0 {
		return false, nil
	}
	if u.LastStreakDate != nil && !u.LastStreakDate.Before(cutoff) {
		return false, nil
	}
	u.CurrentStreak = 0
	return true, nil
}

// --- xp.Store ---

// WithinTx держит блокировку всё время fn и откатывает изменения при ошибке.
func (s *Store) WithinTx(_ context.Context, fn func(tx xp.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	var ledger xp.AwardLedger = xp.NullLedger{}
	if s.ledgerEnabled {
		ledger = &memLedger{s: s}
	}
	if err := fn(&memTx{s: s, ledger: ledger}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) TouchActivity(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return common.ErrUserNotFound
	}
	u.LastActivityAt = &at
	return nil
}

func (s *Store) GetTotals(_ context.Context, userID string) (*xp.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totals(userID)
}

func (s *Store) ListActivity(_ context.Context, userID string, since time.Time) ([]xp.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []xp.Activity
	for k, a := range s.activities {
		if k.userID == userID && !k.day.Before(since) {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (s *Store) totals(userID string) (*xp.Totals, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return &xp.Totals{
		TotalXP:       u.TotalXP,
		DailyXP:       u.DailyXP,
		WeeklyXP:      u.WeeklyXP,
		CurrentStreak: u.CurrentStreak,
		LongestStreak: u.LongestStreak,
	}, nil
}

// memTx работает под уже взятой блокировкой Store.
type memTx struct {
	s      *Store
	ledger xp.AwardLedger
}

func (t *memTx) LockUser(_ context.Context, userID string) (*xp.Totals, error) {
	return t.s.totals(userID)
}

func (t *memTx) AddXP(_ context.Context, userID string, amount int64, at time.Time) (int64, error) {
	u, ok := t.s.users[userID]
	if !ok {
		return 0, common.ErrUserNotFound
	}
	u.TotalXP += amount
	u.DailyXP += amount
	u.WeeklyXP += amount
	u.LastActivityAt = &at
	return u.TotalXP, nil
}

func (t *memTx) UpsertActivity(_ context.Context, userID string, day time.Time, amount int64) error {
	key := activityKey{userID: userID, day: day}
	a, ok := t.s.activities[key]
	if !ok {
		a = &xp.Activity{Date: day}
		t.s.activities[key] = a
	}
	a.XPEarned += amount
	a.QuestionsCompleted++
	return nil
}

func (t *memTx) Ledger() xp.AwardLedger {
	return t.ledger
}

type memLedger struct {
	s *Store
}

func (l *memLedger) Has(_ context.Context, userID, questionID string) (bool, error) {
	if l.s.LedgerErr != nil {
		return false, l.s.LedgerErr
	}
	_, ok := l.s.awards[awardKey{userID: userID, questionID: questionID}]
	return ok, nil
}

func (l *memLedger) Record(_ context.Context, award xp.Award) error {
	if l.s.LedgerErr != nil {
		return l.s.LedgerErr
	}
	key := awardKey{userID: award.UserID, questionID: award.QuestionID}
	if _, ok := l.s.awards[key]; !ok {
		l.s.awards[key] = award
	}
	return nil
}

// --- maintenance.Store ---

func (s *Store) ListUserIDs(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) ResetDailyXP(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.DailyXP != 0 {
			u.DailyXP = 0
			n++
		}
	}
	return n, nil
}

func (s *Store) ResetWeeklyXP(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, u := range s.users {
		if u.WeeklyXP != 0 {
			u.WeeklyXP = 0
			n++
		}
	}
	return n, nil
}

// --- reminders.Store ---

func (s *Store) ListCandidates(_ context.Context, c reminders.Criteria) ([]reminders.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []reminders.Candidate
	for _, u := range s.users {
		if u.CurrentStreak < c.MinStreak || u.Email == "" {
			continue
		}
		if u.LastStreakDate == nil || !u.LastStreakDate.Equal(c.Yesterday) {
			continue
		}
		if u.LastActivityAt != nil && !u.LastActivityAt.Before(c.InactiveSince) {
			continue
		}
		result = append(result, reminders.Candidate{
			UserID:         u.ID,
			Email:          u.Email,
			DisplayName:    u.DisplayName,
			CurrentStreak:  u.CurrentStreak,
			TotalXP:        u.TotalXP,
			LastActivityAt: copyTime(u.LastActivityAt),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CurrentStreak > result[j].CurrentStreak })
	return result, nil
}

func (s *Store) Claim(_ context.Context, userID, kind string, day time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := reminderKey{userID: userID, kind: kind, day: day}
	if _, ok := s.reminders[key]; ok {
		return false, nil
	}
	s.reminders[key] = struct{}{}
	return true, nil
}

func (s *Store) Release(_ context.Context, userID, kind string, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reminders, reminderKey{userID: userID, kind: kind, day: day})
	return nil
}

// --- транзакции ---

type snapshot struct {
	users      map[string]User
	activities map[activityKey]xp.Activity
	awards     map[awardKey]xp.Award
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		users:      make(map[string]User, len(s.users)),
		activities: make(map[activityKey]xp.Activity, len(s.activities)),
		awards:     make(map[awardKey]xp.Award, len(s.awards)),
	}
	for id, u := range s.users {
		snap.users[id] = *u
	}
	for k, a := range s.activities {
		snap.activities[k] = *a
	}
	for k, a := range s.awards {
		snap.awards[k] = a
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.users = make(map[string]*User, len(snap.users))
	for id, u := range snap.users {
		u := u
		s.users[id] = &u
	}
	s.activities = make(map[activityKey]*xp.Activity, len(snap.activities))
	for k, a := range snap.activities {
		a := a
		s.activities[k] = &a
	}
	s.awards = snap.awards
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
