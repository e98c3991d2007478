package prefs

import (
	"fmt"
	"log/slog"
	"maps"
	"math"
	"math/big"
	"slices"
	"strings"
)

// DefaultNamespace scopes the entries owned by the application inside a
// shared host store.
const DefaultNamespace = "flutter."

// Store layers typed values over a host Backend. Every mutator commits
// synchronously; the store itself holds no state besides its configuration.
type Store struct {
	backend   Backend
	namespace string
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace overrides DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(s *Store) { s.namespace = ns }
}

// WithLogger sets the logger used for migration reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore opens the typed view over backend.
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		namespace: DefaultNamespace,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Namespace returns the key prefix this store is scoped to.
func (s *Store) Namespace() string {
	return s.namespace
}

// qualify places key inside the namespace unless it already is.
func (s *Store) qualify(key string) (string, error) {
	if key == "" || key == s.namespace {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.HasPrefix(key, s.namespace) {
		return key, nil
	}
	return s.namespace + key, nil
}

func (s *Store) commit(e Editor) error {
	if err := e.Commit(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	return nil
}

func (s *Store) SetBool(key string, v bool) error {
	k, err := s.qualify(key)
	if err != nil {
		return err
	}
	return s.commit(s.backend.Edit().PutBool(k, v))
}

func (s *Store) SetInt(key string, v int64) error {
	k, err := s.qualify(key)
	if err != nil {
		return err
	}
	return s.commit(s.backend.Edit().PutInt(k, v))
}

// SetBigInt stores v natively when it fits in int64 and as a tagged string
// otherwise.
func (s *Store) SetBigInt(key string, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: nil integer for %q", ErrIO, key)
	}
	if v.IsInt64() {
		return s.SetInt(key, v.Int64())
	}
	k, err := s.qualify(key)
	if err != nil {
		return err
	}
	return s.commit(s.backend.Edit().PutString(k, encodeBigInt(v)))
}

func (s *Store) SetDouble(key string, v float64) error {
	k, err := s.qualify(key)
	if err != nil {
		return err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	return s.commit(s.backend.Edit().PutDouble(k, v))
}

// SetString rejects values that begin with a magic prefix, since they would
// read back as a different type.
func (s *Store) SetString(key, v string) error {
	if HasReservedPrefix(v) {
		return ErrReservedPrefix
	}
	k, err := s.qualify(key)
	if err != nil {
		return err
	}
	return s.commit(s.backend.Edit().PutString(k, v))
}

func (s *Store) SetStringList(key string, v []string) error {
	k, err := s.qualify(key)
	if err != nil {
		return err
	}
	encoded, err := encodeList(v)
	if err != nil {
		return err
	}
	return s.commit(s.backend.Edit().PutString(k, encoded))
}

// Set stores v using the setter for its variant.
func (s *Store) Set(key string, v Value) error {
	switch val := v.(type) {
	case Bool:
		return s.SetBool(key, bool(val))
	case Int:
		return s.SetInt(key, int64(val))
	case BigInt:
		return s.SetBigInt(key, val.Int)
	case Double:
		return s.SetDouble(key, float64(val))
	case String:
		return s.SetString(key, string(val))
	case StringList:
		return s.SetStringList(key, val)
	default:
		return fmt.Errorf("%w: unsupported value %T", ErrIO, v)
	}
}

// GetAll returns every entry in the namespace, decoded. Entries still held
// in the legacy set representation are rewritten as lists in a single batch
// before anything is returned; if that batch fails, GetAll fails.
func (s *Store) GetAll() (map[string]Value, error) {
	all, err := s.backend.All()
	if err != nil {
		return nil, fmt.Errorf("%w: reading host store: %w", ErrIO, err)
	}

	result := make(map[string]Value)
	var legacy []string
	for key, native := range all {
		if !strings.HasPrefix(key, s.namespace) {
			continue
		}
		v, migrate, err := decodeNative(native)
		if err != nil {
			return nil, fmt.Errorf("decoding %q: %w", key, err)
		}
		if migrate {
			legacy = append(legacy, key)
		}
		result[key] = v
	}

	if len(legacy) > 0 {
		if err := s.migrate(legacy, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// migrate rewrites legacy set entries as encoded lists.
func (s *Store) migrate(keys []string, decoded map[string]Value) error {
	slices.Sort(keys)
	e := s.backend.Edit()
	for _, key := range keys {
		encoded, err := encodeList(decoded[key].(StringList))
		if err != nil {
			return err
		}
		e.Remove(key).PutString(key, encoded)
	}
	if err := e.Commit(); err != nil {
		return fmt.Errorf("%w: could not migrate set to list: %w", ErrIO, err)
	}
	s.logger.Info("migrated legacy set preferences to lists", "count", len(keys), "keys", keys)
	return nil
}

func (s *Store) Remove(key string) error {
	k, err := s.qualify(key)
	if err != nil {
		return err
	}
	return s.commit(s.backend.Edit().Remove(k))
}

// Clear removes every entry in the namespace. The key set comes from GetAll,
// so pending legacy migrations run (and can fail) first.
func (s *Store) Clear() error {
	all, err := s.GetAll()
	if err != nil {
		return err
	}
	e := s.backend.Edit()
	for _, key := range slices.Sorted(maps.Keys(all)) {
		e.Remove(key)
	}
	return s.commit(e)
}

// Commit exists for callers that batch on their side. Mutators already
// commit, so there is nothing to do.
func (s *Store) Commit() error {
	return nil
}
