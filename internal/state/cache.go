// Copyright (c) 2026 Keymaster Team
// Clusterkey - cluster shared-secret bootstrap
// This source code is licensed under the MIT license found in the LICENSE file.

// Package state holds transient process state that has to be shared between
// commands, such as private key passphrases read from the terminal.
package state

import "sync"

// Passphrases caches private key passphrases for the lifetime of the process.
var Passphrases = NewMailbox()

// Mailbox is a concurrency-safe store of secrets keyed by name. Values are
// byte slices so they can be zeroed on Clear.
type Mailbox struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMailbox returns an empty Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{values: map[string][]byte{}}
}

// Set stores a copy of value under key. A nil value removes the key.
func (m *Mailbox) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.values[key]; ok {
		wipe(old)
		delete(m.values, key)
	}
	if value == nil {
		return
	}
	m.values[key] = append([]byte(nil), value...)
}

// Get returns a copy of the value stored under key, or nil. The caller owns
// the copy and may wipe it.
func (m *Mailbox) Get(key string) []byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil
	}
	return append([]byte(nil), v...)
}

// Clear wipes and removes every stored value.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range m.values {
		wipe(v)
		delete(m.values, k)
	}
}

// Remember wraps prompt so that each key is asked for at most once. Failed
// prompts are not cached.
func (m *Mailbox) Remember(prompt func(key string) ([]byte, error)) func(key string) ([]byte, error) {
	var mu sync.Mutex
	return func(key string) ([]byte, error) {
		mu.Lock()
		defer mu.Unlock()
		if v := m.Get(key); v != nil {
			return v, nil
		}
		v, err := prompt(key)
		if err != nil {
			return nil, err
		}
		m.Set(key, v)
		return v, nil
	}
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
