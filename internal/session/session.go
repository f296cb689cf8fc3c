// Package session хранит состояние незавершённых диалогов бота.
//
// Каждый диалог адресуется стабильным ключом пользователя и содержит набор собранных полей
// и маркер текущего шага. Отсутствующий ключ читается как пустой диалог, а не как ошибка.
package session

import "context"

// Bag содержит собранные, но ещё не сохранённые значения полей диалога.
type Bag map[string]string

// Clone возвращает независимую копию набора полей.
func (b Bag) Clone() Bag {
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Store описывает хранилище состояния диалогов.
type Store interface {
	// Get возвращает накопленные поля диалога, пустой набор для нового ключа.
	Get(ctx context.Context, key string) (Bag, error)
	// Update сливает поля с уже сохранёнными; для совпадающих полей побеждает последняя запись.
	Update(ctx context.Context, key string, fields Bag) error
	// SetStep запоминает текущий шаг диалога.
	SetStep(ctx context.Context, key, step string) error
	// GetStep возвращает текущий шаг диалога или пустую строку.
	GetStep(ctx context.Context, key string) (string, error)
	// Clear удаляет поля и шаг диалога.
	Clear(ctx context.Context, key string) error
}

// References связывает ссылку, вложенную в счёт на оплату, с ключом диалога.
// Подтверждение оплаты приходит по другому пути, чем сообщения пользователя,
// поэтому сопоставляется только по ссылке.
type References interface {
	PutReference(ctx context.Context, ref, key string) error
	LookupReference(ctx context.Context, ref string) (string, bool, error)
	DeleteReference(ctx context.Context, ref string) error
}

// Backend объединяет хранилище диалогов и ссылок на платежи.
type Backend interface {
	Store
	References
	Close() error
}
