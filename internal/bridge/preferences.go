package bridge

import (
	"context"
	"errors"
	"log/slog"

	"github.com/yapily/ipisp/internal/prefs"
)

// PreferencesChannel is the channel name the application uses for preferences.
const PreferencesChannel = "plugins.flutter.io/shared_preferences"

// Error codes reported to the application layer.
const (
	CodeStorageError = "StorageError"
	CodeIOException  = "IOException encountered"
)

const reservedPrefixMessage = "This string cannot be stored as it clashes with special identifier prefixes."

// PreferencesHandler maps preference method calls onto a prefs.Store.
type PreferencesHandler struct {
	store  *prefs.Store
	logger *slog.Logger
}

func NewPreferencesHandler(store *prefs.Store, logger *slog.Logger) *PreferencesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PreferencesHandler{store: store, logger: logger}
}

func (h *PreferencesHandler) HandleMethodCall(ctx context.Context, call MethodCall) (any, error) {
	switch call.Method {
	case "getAll":
		all, err := h.store.GetAll()
		if err != nil {
			return nil, h.translate(call, err)
		}
		return all, nil
	case "commit":
		return true, h.store.Commit()
	case "clear":
		return h.status(call, h.store.Clear())
	}

	if !isMutator(call.Method) {
		return nil, ErrNotImplemented
	}
	key, err := call.String("key")
	if err != nil {
		return nil, err
	}

	switch call.Method {
	case "setBool":
		v, err := call.Bool("value")
		if err != nil {
			return nil, err
		}
		return h.status(call, h.store.SetBool(key, v))
	case "setInt":
		v, err := call.Integer("value")
		if err != nil {
			return nil, err
		}
		return h.status(call, h.store.SetBigInt(key, v))
	case "setDouble":
		v, err := call.Float("value")
		if err != nil {
			return nil, err
		}
		return h.status(call, h.store.SetDouble(key, v))
	case "setString":
		v, err := call.String("value")
		if err != nil {
			return nil, err
		}
		return h.status(call, h.store.SetString(key, v))
	case "setStringList":
		v, err := call.StringList("value")
		if err != nil {
			return nil, err
		}
		return h.status(call, h.store.SetStringList(key, v))
	case "remove":
		return h.status(call, h.store.Remove(key))
	default:
		return nil, ErrNotImplemented
	}
}

func isMutator(method string) bool {
	switch method {
	case "setBool", "setInt", "setDouble", "setString", "setStringList", "remove":
		return true
	}
	return false
}

// status turns a mutator result into the success flag. A batch the host did
// not persist is reported as false rather than as an error.
func (h *PreferencesHandler) status(call MethodCall, err error) (any, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, prefs.ErrCommitFailed) {
		h.logger.Warn("preferences commit failed", "method", call.Method, "error", err)
		return false, nil
	}
	return nil, h.translate(call, err)
}

func (h *PreferencesHandler) translate(call MethodCall, err error) error {
	switch {
	case errors.Is(err, prefs.ErrReservedPrefix):
		return &Error{Code: CodeStorageError, Message: reservedPrefixMessage}
	case errors.Is(err, prefs.ErrIO):
		h.logger.Error("preferences i/o failure", "method", call.Method, "error", err)
		return &Error{Code: CodeIOException, Message: call.Method, Details: err.Error()}
	case errors.Is(err, prefs.ErrInvalidKey), errors.Is(err, prefs.ErrNonFinite):
		return errors.Join(ErrBadArgument, err)
	default:
		return err
	}
}
