package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	bag       Bag
	step      string
	expiresAt time.Time
}

type memoryRef struct {
	key       string
	expiresAt time.Time
}

// MemoryStore хранит диалоги в памяти процесса.
// Подходит для одного экземпляра бота; просроченные записи удаляет StartSweeper.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memoryEntry
	refs     map[string]memoryRef
}

// NewMemoryStore создаёт хранилище с указанным временем жизни диалога. Ноль отключает истечение.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*memoryEntry),
		refs:     make(map[string]memoryRef),
	}
}

func (m *MemoryStore) deadline() time.Time {
	if m.ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(m.ttl)
}

func (m *MemoryStore) expired(t time.Time) bool {
	return !t.IsZero() && !m.now().Before(t)
}

// entry возвращает живую запись или nil. Вызывается под блокировкой.
func (m *MemoryStore) entry(key string) *memoryEntry {
	e, ok := m.sessions[key]
	if !ok {
		return nil
	}
	if m.expired(e.expiresAt) {
		delete(m.sessions, key)
		return nil
	}
	return e
}

// Get возвращает копию накопленных полей диалога.
func (m *MemoryStore) Get(_ context.Context, key string) (Bag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(key)
	if e == nil {
		return Bag{}, nil
	}
	return e.bag.Clone(), nil
}

// Update сливает поля диалога и продлевает его жизнь.
func (m *MemoryStore) Update(_ context.Context, key string, fields Bag) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(key)
	if e == nil {
		e = &memoryEntry{bag: Bag{}}
		m.sessions[key] = e
	}
	for k, v := range fields {
		e.bag[k] = v
	}
	e.expiresAt = m.deadline()
	return nil
}

// SetStep запоминает шаг диалога и продлевает его жизнь.
func (m *MemoryStore) SetStep(_ context.Context, key, step string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(key)
	if e == nil {
		e = &memoryEntry{bag: Bag{}}
		m.sessions[key] = e
	}
	e.step = step
	e.expiresAt = m.deadline()
	return nil
}

// GetStep возвращает шаг диалога.
func (m *MemoryStore) GetStep(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entry(key)
	if e == nil {
		return "", nil
	}
	return e.step, nil
}

// Clear удаляет диалог.
func (m *MemoryStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, key)
	return nil
}

// PutReference связывает ссылку платежа с диалогом.
func (m *MemoryStore) PutReference(_ context.Context, ref, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.refs[ref] = memoryRef{key: key, expiresAt: m.deadline()}
	return nil
}

// LookupReference возвращает ключ диалога по ссылке платежа.
func (m *MemoryStore) LookupReference(_ context.Context, ref string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.refs[ref]
	if !ok {
		return "", false, nil
	}
	if m.expired(r.expiresAt) {
		delete(m.refs, ref)
		return "", false, nil
	}
	return r.key, true, nil
}

// DeleteReference удаляет ссылку платежа.
func (m *MemoryStore) DeleteReference(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.refs, ref)
	return nil
}

// Sweep удаляет просроченные диалоги и ссылки и возвращает число удалённых записей.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.sessions {
		if m.expired(e.expiresAt) {
			delete(m.sessions, key)
			removed++
		}
	}
	for ref, r := range m.refs {
		if m.expired(r.expiresAt) {
			delete(m.refs, ref)
			removed++
		}
	}
	return removed
}

// StartSweeper периодически удаляет просроченные записи до отмены контекста.
func (m *MemoryStore) StartSweeper(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Sweep()
			}
		}
	}()
}

// Close ничего не делает и нужен для соответствия Backend.
func (m *MemoryStore) Close() error {
	return nil
}
