// Package deeplink pulls the payment token out of inbound navigation URIs and
// keeps it until the application asks for it.
package deeplink

import (
	"log/slog"
	"strings"
	"sync"
)

// DefaultParam is the query parameter carrying the payment token.
const DefaultParam = "payment"

// ExtractToken returns the token carried by uri. The query is whatever sits
// between the first '?' and the next one. When an '&'-separated field is
// "param=value", value is the token; otherwise the whole query with every
// "param=" removed is, so bare tokens ("app://pay?eyJ...") still work.
// Tokens are opaque: they are returned exactly as they appear in the URI,
// without percent-decoding.
func ExtractToken(uri, param string) (string, bool) {
	_, query, found := strings.Cut(uri, "?")
	if !found {
		return "", false
	}
	query, _, _ = strings.Cut(query, "?")
	if query == "" {
		return "", false
	}

	for field := range strings.SplitSeq(query, "&") {
		if token, ok := strings.CutPrefix(field, param+"="); ok && token != "" {
			return token, true
		}
	}

	token := strings.ReplaceAll(query, param+"=", "")
	if token == "" {
		return "", false
	}
	return token, true
}

// Holder keeps the most recent token until it is taken.
type Holder struct {
	param  string
	logger *slog.Logger

	mu      sync.Mutex
	token   string
	pending bool
}

// NewHolder returns a Holder reading tokens from the given query parameter.
func NewHolder(param string, logger *slog.Logger) *Holder {
	if param == "" {
		param = DefaultParam
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Holder{param: param, logger: logger}
}

// Deliver records the token carried by a navigation event. A URI without a
// token leaves any pending token in place.
func (h *Holder) Deliver(uri string) bool {
	if uri == "" {
		h.logger.Debug("deeplink: no data submitted")
		return false
	}
	token, ok := ExtractToken(uri, h.param)
	if !ok {
		h.logger.Debug("deeplink: no token in uri", "uri", uri)
		return false
	}

	h.mu.Lock()
	h.token = token
	h.pending = true
	h.mu.Unlock()

	h.logger.Info("deeplink: payment token received", "length", len(token))
	return true
}

// Take returns the pending token and clears it, so each token is handed out
// once.
func (h *Holder) Take() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.pending {
		return "", false
	}
	token := h.token
	h.token, h.pending = "", false
	return token, true
}
