// Package bridge dispatches named method calls from the application layer to
// platform handlers, one handler per channel.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"sort"
	"strconv"
	"sync"
)

var (
	// ErrNotImplemented is returned for methods a handler does not know.
	ErrNotImplemented = errors.New("method not implemented")
	// ErrUnknownChannel is returned when no handler is registered for a channel.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrBadArgument is returned when an argument is missing or has the wrong type.
	ErrBadArgument = errors.New("bad argument")
)

// Error is a failed method result as seen by the caller.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// MethodCall is a single invocation: a method name and its named arguments.
type MethodCall struct {
	Method string
	Args   map[string]any
}

// Handler serves the methods of one channel.
type Handler interface {
	HandleMethodCall(ctx context.Context, call MethodCall) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, call MethodCall) (any, error)

func (f HandlerFunc) HandleMethodCall(ctx context.Context, call MethodCall) (any, error) {
	return f(ctx, call)
}

// Channels routes calls to the handler registered under a channel name.
type Channels struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewChannels() *Channels {
	return &Channels{handlers: make(map[string]Handler)}
}

// Register installs h for name, replacing any previous handler.
func (c *Channels) Register(name string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
}

// Names returns the registered channel names in sorted order.
func (c *Channels) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.handlers))
	for n := range c.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Invoke runs call on the named channel.
func (c *Channels) Invoke(ctx context.Context, channel string, call MethodCall) (any, error) {
	c.mu.RLock()
	h, ok := c.handlers[channel]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
	return h.HandleMethodCall(ctx, call)
}

// Arg returns the raw argument value.
func (c MethodCall) Arg(name string) (any, bool) {
	v, ok := c.Args[name]
	return v, ok && v != nil
}

func (c MethodCall) missing(name string) error {
	return fmt.Errorf("%w: %s: missing %q", ErrBadArgument, c.Method, name)
}

func (c MethodCall) wrongType(name string, v any) error {
	return fmt.Errorf("%w: %s: %q has unexpected type %T", ErrBadArgument, c.Method, name, v)
}

// String returns a string argument.
func (c MethodCall) String(name string) (string, error) {
	v, ok := c.Arg(name)
	if !ok {
		return "", c.missing(name)
	}
	s, ok := v.(string)
	if !ok {
		return "", c.wrongType(name, v)
	}
	return s, nil
}

// Bool returns a boolean argument.
func (c MethodCall) Bool(name string) (bool, error) {
	v, ok := c.Arg(name)
	if !ok {
		return false, c.missing(name)
	}
	b, ok := v.(bool)
	if !ok {
		return false, c.wrongType(name, v)
	}
	return b, nil
}

// Integer returns an integer argument of any precision. JSON numbers must be
// decoded with UseNumber for values beyond 2^53 to survive.
func (c MethodCall) Integer(name string) (*big.Int, error) {
	v, ok := c.Arg(name)
	if !ok {
		return nil, c.missing(name)
	}
	switch n := v.(type) {
	case int:
		return big.NewInt(int64(n)), nil
	case int32:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case *big.Int:
		return new(big.Int).Set(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return nil, c.wrongType(name, v)
		}
		i, _ := big.NewFloat(n).Int(nil)
		return i, nil
	case json.Number:
		i, ok := new(big.Int).SetString(n.String(), 10)
		if !ok {
			return nil, fmt.Errorf("%w: %s: %q is not an integer: %s", ErrBadArgument, c.Method, name, n)
		}
		return i, nil
	default:
		return nil, c.wrongType(name, v)
	}
}

// Float returns a numeric argument as float64.
func (c MethodCall) Float(name string) (float64, error) {
	v, ok := c.Arg(name)
	if !ok {
		return 0, c.missing(name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := strconv.ParseFloat(n.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %q: %w", ErrBadArgument, c.Method, name, err)
		}
		return f, nil
	default:
		return 0, c.wrongType(name, v)
	}
}

// StringList returns a list-of-strings argument.
func (c MethodCall) StringList(name string) ([]string, error) {
	v, ok := c.Arg(name)
	if !ok {
		return nil, c.missing(name)
	}
	switch l := v.(type) {
	case []string:
		return l, nil
	case []any:
		out := make([]string, len(l))
		for i, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s: %q[%d] has unexpected type %T", ErrBadArgument, c.Method, name, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, c.wrongType(name, v)
	}
}
