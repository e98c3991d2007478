package bridge

import (
	"context"

	"github.com/yapily/ipisp/internal/deeplink"
)

// PaymentChannel carries the deep-link payment token to the application.
const PaymentChannel = "app.channel.yapily.data"

// NewPaymentHandler serves getPaymentJWT from h. The token is cleared once
// returned; with nothing pending the result is nil.
func NewPaymentHandler(h *deeplink.Holder) Handler {
	return HandlerFunc(func(_ context.Context, call MethodCall) (any, error) {
		if call.Method != "getPaymentJWT" {
			return nil, ErrNotImplemented
		}
		token, ok := h.Take()
		if !ok {
			return nil, nil
		}
		return token, nil
	})
}
