package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yapily/ipisp/internal/bridge"
	"github.com/yapily/ipisp/internal/deeplink"
)

const maxCallBodySize = 1 << 20 // 1MB

// AppDeps holds dependencies for the HTTP handler.
type AppDeps struct {
	Channels *bridge.Channels
	DeepLink *deeplink.Holder
	Token    string
	Logger   *slog.Logger // optional; slog.Default() when nil
}

type intentRequest struct {
	Data string `json:"data"`
}

// NewAppHandler builds the router: an unauthenticated health check, the
// method-call endpoint and the navigation intent endpoint.
func NewAppHandler(deps AppDeps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Get("/channels", handleListChannels(deps))
		r.Post("/channels/*", handleMethodCall(deps))
		r.Post("/intents", handleIntent(deps))
	})

	return r
}

func handleHealth(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleListChannels(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{"channels": deps.Channels.Names()})
	}
}

func handleMethodCall(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Channel names contain slashes; the method is the last segment.
		channel, method, ok := splitChannelPath(chi.URLParam(r, "*"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "expected /channels/{channel}/{method}")
			return
		}

		args, err := decodeArgs(w, r)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid arguments: %v", err)
			return
		}

		result, err := deps.Channels.Invoke(r.Context(), channel, bridge.MethodCall{Method: method, Args: args})
		if err != nil {
			writeCallError(w, deps.Logger, channel, method, err)
			return
		}
		writeJSON(w, deps.Logger, http.StatusOK, map[string]any{"result": result})
	}
}

func splitChannelPath(p string) (channel, method string, ok bool) {
	i := strings.LastIndex(p, "/")
	if i <= 0 || i == len(p)-1 {
		return "", "", false
	}
	return p[:i], p[i+1:], true
}

// decodeArgs reads the optional JSON argument object. Numbers stay
// json.Number so integers beyond 2^53 keep their precision.
func decodeArgs(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCallBodySize)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return args, nil
}

func writeCallError(w http.ResponseWriter, logger *slog.Logger, channel, method string, err error) {
	var callErr *bridge.Error
	switch {
	case errors.As(err, &callErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    callErr.Code,
				"message": callErr.Message,
				"details": callErr.Details,
			},
		})
	case errors.Is(err, bridge.ErrUnknownChannel):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, bridge.ErrNotImplemented):
		httpError(w, http.StatusNotImplemented, "not_implemented", "%s on %s is not implemented", method, channel)
	case errors.Is(err, bridge.ErrBadArgument):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		logger.Error("method call failed", "channel", channel, "method", method, "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func handleIntent(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxCallBodySize)
		defer r.Body.Close()

		var req intentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		found := deps.DeepLink.Deliver(req.Data)
		writeJSON(w, deps.Logger, http.StatusOK, map[string]bool{"token_found": found})
	}
}

// writeJSON encodes v before touching the response, so a value that cannot
// be marshalled becomes a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Error("encoding response", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "encoding response: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(data, '\n'))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
