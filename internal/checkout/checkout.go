// Package checkout implements the controller that mediates between the host
// application and the embedded widget bridge. It owns visibility state, the
// single active checkout request and its callback set, and guarantees that a
// terminal callback (OnSuccess or OnFailure) is delivered at most once per
// opened session, with OnClose never firing after a terminal callback.
package checkout

import (
	"github.com/yourorg/checkout-widget/internal/options"
	"github.com/yourorg/checkout-widget/internal/session"
	"github.com/yourorg/checkout-widget/internal/surface"
)

// State is the controller's lifecycle state.
type State int

const (
	// StateIdle means no request is stored and the surface is unmounted.
	StateIdle State = iota
	// StateActive means a request is stored and the surface is mounted.
	StateActive
)

// SuccessPayload carries the widget's success response. The fields are opaque
// to this module: they are forwarded to the host verbatim and must be
// verified server-side before the payment is trusted.
type SuccessPayload struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
}

// FailurePayload carries the widget's error object, forwarded verbatim.
type FailurePayload struct {
	Code        string `json:"code"`
	Source      string `json:"source"`
	Reason      string `json:"reason"`
	Step        string `json:"step"`
	Description string `json:"description"`
}

// Callbacks is the host's callback set for one checkout. OnSuccess and
// OnFailure are required; OnClose is optional and fires on user dismissal or
// a host-initiated close, never after a terminal callback.
type Callbacks struct {
	OnSuccess func(SuccessPayload)
	OnFailure func(FailurePayload)
	OnClose   func()
}

// Request is one active checkout: host options, host callbacks, and the
// session identifiers. Created per Open call, owned exclusively by the
// controller, cleared on cleanup.
type Request struct {
	Options   options.CheckoutOptions
	Callbacks Callbacks
	Session   session.Session
}

// WidgetBridge is the controller's view of the embedded widget bridge.
type WidgetBridge interface {
	// Mount serializes and validates the request's init payload and renders
	// the widget into the surface. Contract violations surface here.
	Mount(req *Request) error
	// Unmount tears down the surface.
	Unmount()
	// Rendered returns the mounted surface page, or nil.
	Rendered() *surface.Page
}
