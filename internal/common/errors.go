// Package common — errors.go определяет доменные ошибки,
// которые используются во всех модулях сервиса.
// Обработчики HTTP различают их через errors.Is и отдают клиенту
// стабильные понятные сообщения.
package common

import "errors"

// Ошибки поиска
var (
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrQuestionNotFound — вопрос не найден
	ErrQuestionNotFound = errors.New("вопрос не найден")
)

// Ошибки админки
var (
	// ErrWrongPassword — неверный пароль администратора
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrAdminDisabled — хеш пароля администратора не задан
	ErrAdminDisabled = errors.New("админ-доступ не настроен")
	// ErrTooManyAttempts — исчерпан лимит попыток ввода пароля
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
)
