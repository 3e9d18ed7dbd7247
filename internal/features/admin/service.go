package admin

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/lingvo-api/internal/common"
)

const (
	maxFailedAttempts = 3
	attemptsWindow    = time.Hour
)

// Service проверяет пароль оператора.
// Защита от перебора: 3 неудачные попытки с одного адреса = блокировка на час.
type Service struct {
	hash string
	now  func() time.Time

	mu       sync.Mutex
	failures map[string][]time.Time
}

// NewService создаёт сервис. Пустой hash — админ-доступ выключен.
func NewService(hash string) *Service {
	return &Service{
		hash:     hash,
		now:      time.Now,
		failures: make(map[string][]time.Time),
	}
}

// Enabled сообщает, задан ли пароль администратора.
func (s *Service) Enabled() bool {
	return s.hash != ""
}

// Authorize проверяет пароль, пришедший с адреса client.
// Попытка резервируется под мьютексом до проверки хеша, поэтому
// параллельные запросы с одного адреса не превысят лимит.
func (s *Service) Authorize(client, password string) error {
	if !s.Enabled() {
		return common.ErrAdminDisabled
	}

	if !s.reserveAttempt(client, s.now()) {
		return common.ErrTooManyAttempts
	}

	if !VerifyPassword(password, s.hash) {
		log.WithField("client", client).Warn("Неверный пароль администратора")
		return common.ErrWrongPassword
	}

	s.mu.Lock()
	delete(s.failures, client)
	s.mu.Unlock()
	return nil
}

// reserveAttempt записывает попытку заранее. Неудачная попытка так и остаётся
// в окне, удачная снимает все записи клиента.
func (s *Service) reserveAttempt(client string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-attemptsWindow)
	recent := s.failures[client][:0]
	for _, t := range s.failures[client] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= maxFailedAttempts {
		s.failures[client] = recent
		return false
	}
	s.failures[client] = append(recent, now)
	return true
}
