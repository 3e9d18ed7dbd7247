package xp

import "context"

// AwardLedger — реестр «уже начислено за этот вопрос».
// Привязан к единице работы: Has и Record выполняются в той же транзакции,
// что и само начисление. Реестр необязателен: его отсутствие не мешает начислять.
type AwardLedger interface {
	Has(ctx context.Context, userID, questionID string) (bool, error)
	Record(ctx context.Context, award Award) error
}

// NullLedger — реестр выключен: записей нет, запись ничего не делает.
type NullLedger struct{}

func (NullLedger) Has(context.Context, string, string) (bool, error) { return false, nil }

func (NullLedger) Record(context.Context, Award) error { return nil }
