package prefs

import (
	"errors"
	"maps"
	"sync"
)

// Backend is the host key-value store the preferences are layered on. It
// natively holds bool, int64, float64, string and (legacy) StringSet values.
type Backend interface {
	// All returns every entry in the host store, including entries outside
	// the preferences namespace.
	All() (map[string]any, error)
	// Edit starts a batch of changes.
	Edit() Editor
}

// Editor buffers changes and applies them atomically on Commit.
type Editor interface {
	PutBool(key string, v bool) Editor
	PutInt(key string, v int64) Editor
	PutDouble(key string, v float64) Editor
	PutString(key, v string) Editor
	PutStringSet(key string, v StringSet) Editor
	Remove(key string) Editor
	Commit() error
}

// MemoryBackend is an in-process Backend. The server persists through
// SQLite; this one backs tests here and in the packages layered on prefs,
// which is why SetFailCommits, Commits and Raw are exported. They are test
// support and play no part in the Backend contract.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string]any

	failCommits bool
	commits     int
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]any)}
}

var errCommitRejected = errors.New("memory backend: commit rejected")

// All returns a snapshot of every entry.
func (b *MemoryBackend) All() (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return maps.Clone(b.data), nil
}

func (b *MemoryBackend) Edit() Editor {
	return &memoryEditor{b: b}
}

// SetFailCommits makes every subsequent Commit fail without applying the
// batch. Test support.
func (b *MemoryBackend) SetFailCommits(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failCommits = fail
}

// Commits reports how many batches have been applied. Test support.
func (b *MemoryBackend) Commits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.commits
}

// Raw returns the host-native value stored at key, bypassing decoding.
// Test support.
func (b *MemoryBackend) Raw(key string) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	return v, ok
}

type memoryOp struct {
	key    string
	value  any
	remove bool
}

type memoryEditor struct {
	b   *MemoryBackend
	ops []memoryOp
}

func (e *memoryEditor) put(key string, v any) Editor {
	e.ops = append(e.ops, memoryOp{key: key, value: v})
	return e
}

func (e *memoryEditor) PutBool(key string, v bool) Editor      { return e.put(key, v) }
func (e *memoryEditor) PutInt(key string, v int64) Editor      { return e.put(key, v) }
func (e *memoryEditor) PutDouble(key string, v float64) Editor { return e.put(key, v) }
func (e *memoryEditor) PutString(key, v string) Editor         { return e.put(key, v) }
func (e *memoryEditor) PutStringSet(key string, v StringSet) Editor {
	return e.put(key, maps.Clone(v))
}

func (e *memoryEditor) Remove(key string) Editor {
	e.ops = append(e.ops, memoryOp{key: key, remove: true})
	return e
}

func (e *memoryEditor) Commit() error {
	e.b.mu.Lock()
	defer e.b.mu.Unlock()
	if e.b.failCommits {
		return errCommitRejected
	}
	for _, op := range e.ops {
		if op.remove {
			delete(e.b.data, op.key)
			continue
		}
		e.b.data[op.key] = op.value
	}
	e.b.commits++
	e.ops = nil
	return nil
}
