// Package lock сериализует операции над одним и тем же элементом.
package lock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Keyed - набор мьютексов по ключу. Записи удаляются, когда их никто не держит.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Lock захватывает мьютекс ключа и возвращает функцию освобождения
func (k *Keyed) Lock(key string) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()

			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}

// Len - число ключей, по которым сейчас есть владельцы или ожидающие
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
