package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type badgerRecord struct {
	Bag  Bag    `json:"bag"`
	Step string `json:"step"`
}

// BadgerStore хранит диалоги во встроенной базе badger в виде JSON.
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenBadger открывает базу badger по пути. Пустой путь открывает базу в памяти.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return db, nil
}

// NewBadgerStore создаёт хранилище поверх открытой базы.
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl}
}

func sessionKey(key string) []byte { return []byte("s/" + key) }
func refKey(ref string) []byte     { return []byte("r/" + ref) }

func (s *BadgerStore) entry(k, v []byte) *badger.Entry {
	e := badger.NewEntry(k, v)
	if s.ttl > 0 {
		e = e.WithTTL(s.ttl)
	}
	return e
}

func readRecord(txn *badger.Txn, key string) (badgerRecord, error) {
	rec := badgerRecord{Bag: Bag{}}

	item, err := txn.Get(sessionKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return rec, nil
	}
	if err != nil {
		return rec, err
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if rec.Bag == nil {
		rec.Bag = Bag{}
	}
	return rec, err
}

func (s *BadgerStore) modify(key string, fn func(rec *badgerRecord)) error {
	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := readRecord(txn, key)
		if err != nil {
			return err
		}
		fn(&rec)

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.SetEntry(s.entry(sessionKey(key), data))
	})
}

// Get возвращает накопленные поля диалога.
func (s *BadgerStore) Get(_ context.Context, key string) (Bag, error) {
	var rec badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readRecord(txn, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return rec.Bag, nil
}

// Update сливает поля диалога.
func (s *BadgerStore) Update(_ context.Context, key string, fields Bag) error {
	err := s.modify(key, func(rec *badgerRecord) {
		for k, v := range fields {
			rec.Bag[k] = v
		}
	})
	if err != nil {
		return fmt.Errorf("badger update %s: %w", key, err)
	}
	return nil
}

// SetStep запоминает шаг диалога.
func (s *BadgerStore) SetStep(_ context.Context, key, step string) error {
	err := s.modify(key, func(rec *badgerRecord) {
		rec.Step = step
	})
	if err != nil {
		return fmt.Errorf("badger set step %s: %w", key, err)
	}
	return nil
}

// GetStep возвращает шаг диалога.
func (s *BadgerStore) GetStep(_ context.Context, key string) (string, error) {
	var rec badgerRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = readRecord(txn, key)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("badger get step %s: %w", key, err)
	}
	return rec.Step, nil
}

// Clear удаляет диалог.
func (s *BadgerStore) Clear(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(sessionKey(key))
	})
	if err != nil {
		return fmt.Errorf("badger clear %s: %w", key, err)
	}
	return nil
}

// PutReference связывает ссылку платежа с диалогом.
func (s *BadgerStore) PutReference(_ context.Context, ref, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(s.entry(refKey(ref), []byte(key)))
	})
	if err != nil {
		return fmt.Errorf("badger put reference: %w", err)
	}
	return nil
}

// LookupReference возвращает ключ диалога по ссылке платежа.
func (s *BadgerStore) LookupReference(_ context.Context, ref string) (string, bool, error) {
	var key string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(refKey(ref))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		key = string(val)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger lookup reference: %w", err)
	}
	return key, true, nil
}

// DeleteReference удаляет ссылку платежа.
func (s *BadgerStore) DeleteReference(_ context.Context, ref string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(refKey(ref))
	})
	if err != nil {
		return fmt.Errorf("badger delete reference: %w", err)
	}
	return nil
}

// StartGC периодически запускает сборку мусора журнала значений до отмены контекста.
func (s *BadgerStore) StartGC(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for {
					if err := s.db.RunValueLogGC(0.5); err != nil {
						break
					}
				}
			}
		}
	}()
}

// Close закрывает базу badger.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
