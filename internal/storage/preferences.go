package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/yapily/ipisp/internal/prefs"
)

// Row kinds in the preferences table.
const (
	kindBool      = "bool"
	kindLong      = "long"
	kindDouble    = "double"
	kindString    = "string"
	kindStringSet = "string_set"
)

var _ prefs.Backend = (*Store)(nil)

// All returns every preference row decoded to its native Go type.
func (s *Store) All() (map[string]any, error) {
	rows, err := s.db.Query("SELECT key, kind, value FROM preferences")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]any)
	for rows.Next() {
		var key, kind, raw string
		if err := rows.Scan(&key, &kind, &raw); err != nil {
			return nil, err
		}
		v, err := parseNative(kind, raw)
		if err != nil {
			return nil, fmt.Errorf("preference %q: %w", key, err)
		}
		result[key] = v
	}
	return result, rows.Err()
}

func parseNative(kind, raw string) (any, error) {
	switch kind {
	case kindBool:
		return strconv.ParseBool(raw)
	case kindLong:
		return strconv.ParseInt(raw, 10, 64)
	case kindDouble:
		return strconv.ParseFloat(raw, 64)
	case kindString:
		return raw, nil
	case kindStringSet:
		var members []string
		if err := json.Unmarshal([]byte(raw), &members); err != nil {
			return nil, fmt.Errorf("parsing string set: %w", err)
		}
		return prefs.NewStringSet(members...), nil
	default:
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
}

// Edit starts a batch that is applied in a single transaction on Commit.
func (s *Store) Edit() prefs.Editor {
	return &editor{s: s}
}

type editOp struct {
	key    string
	kind   string
	value  string
	remove bool
	err    error
}

type editor struct {
	s   *Store
	ops []editOp
}

func (e *editor) put(key, kind, value string) prefs.Editor {
	e.ops = append(e.ops, editOp{key: key, kind: kind, value: value})
	return e
}

func (e *editor) PutBool(key string, v bool) prefs.Editor {
	return e.put(key, kindBool, strconv.FormatBool(v))
}

func (e *editor) PutInt(key string, v int64) prefs.Editor {
	return e.put(key, kindLong, strconv.FormatInt(v, 10))
}

func (e *editor) PutDouble(key string, v float64) prefs.Editor {
	return e.put(key, kindDouble, strconv.FormatFloat(v, 'g', -1, 64))
}

func (e *editor) PutString(key, v string) prefs.Editor {
	return e.put(key, kindString, v)
}

func (e *editor) PutStringSet(key string, v prefs.StringSet) prefs.Editor {
	data, err := json.Marshal(v.Sorted())
	if err != nil {
		e.ops = append(e.ops, editOp{key: key, err: err})
		return e
	}
	return e.put(key, kindStringSet, string(data))
}

func (e *editor) Remove(key string) prefs.Editor {
	e.ops = append(e.ops, editOp{key: key, remove: true})
	return e
}

// Commit applies the buffered operations in order. Either all of them are
// persisted or none are.
func (e *editor) Commit() error {
	ops := e.ops
	e.ops = nil
	for _, op := range ops {
		if op.err != nil {
			return fmt.Errorf("encoding %q: %w", op.key, op.err)
		}
	}

	tx, err := e.s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning preferences transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, op := range ops {
		if op.remove {
			if _, err := tx.Exec("DELETE FROM preferences WHERE key = ?", op.key); err != nil {
				return fmt.Errorf("removing %q: %w", op.key, err)
			}
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO preferences (key, kind, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET kind = excluded.kind, value = excluded.value, updated_at = excluded.updated_at`,
			op.key, op.kind, op.value, now,
		); err != nil {
			return fmt.Errorf("writing %q: %w", op.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing preferences: %w", err)
	}
	return nil
}
