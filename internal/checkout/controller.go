package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/checkout-widget/internal/metrics"
	"github.com/yourorg/checkout-widget/internal/options"
	"github.com/yourorg/checkout-widget/internal/reporting"
	"github.com/yourorg/checkout-widget/internal/session"
	"github.com/yourorg/checkout-widget/internal/surface"
)

// DefaultClearDelay is how long the controller keeps the resolved request
// around after unmounting, so an in-flight unmount animation never observes a
// nil request mid-transition.
const DefaultClearDelay = 100 * time.Millisecond

// Controller is the checkout state machine. All transitions are serialized
// behind one mutex; host callbacks are always invoked outside it.
type Controller struct {
	bridge  WidgetBridge
	metrics *metrics.SessionMetrics
	journal *reporting.Journal
	log     zerolog.Logger

	clearDelay time.Duration

	mu       sync.Mutex
	state    State
	req      *Request
	visible  bool
	resolved bool   // latched once a session has delivered its outcome
	epoch    uint64 // bumped per Open; guards stale clear timers
}

// NewController creates a Controller. metrics and journal may be nil.
func NewController(bridge WidgetBridge, m *metrics.SessionMetrics, journal *reporting.Journal, log zerolog.Logger) *Controller {
	if bridge == nil {
		panic("widget bridge cannot be nil")
	}
	return &Controller{
		bridge:     bridge,
		metrics:    m,
		journal:    journal,
		log:        log,
		clearDelay: DefaultClearDelay,
	}
}

// SetClearDelay overrides the deferred-clear delay. Must be called before the
// first Open.
func (c *Controller) SetClearDelay(d time.Duration) {
	c.clearDelay = d
}

// Open transitions IDLE to ACTIVE: it stores the request, flips visibility
// and mounts the widget. A call while a session is active is a deliberate
// no-op (a throttle for rapid repeated taps, not an error). The returned
// error is non-nil only when the bridge rejects the request, which is the
// fail-fast point for caller contract violations.
func (c *Controller) Open(ctx context.Context, opts options.CheckoutOptions, cb Callbacks) error {
	_, span := otel.Tracer("checkout").Start(ctx, "Controller.Open")
	defer span.End()

	c.mu.Lock()
	if c.state == StateActive {
		c.mu.Unlock()
		c.metrics.OpenThrottled()
		c.log.Debug().Str("key", opts.Key).Msg("open ignored: session already active")
		return nil
	}
	sess := session.New()
	req := &Request{Options: opts, Callbacks: cb, Session: sess}
	c.state = StateActive
	c.req = req
	c.visible = true
	c.resolved = false
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	span.SetAttributes(attribute.String("checkout.session_id", sess.ID))

	if err := c.bridge.Mount(req); err != nil {
		c.mu.Lock()
		if c.epoch == epoch {
			c.state = StateIdle
			c.req = nil
			c.visible = false
		}
		c.mu.Unlock()
		c.log.Error().Err(err).Str("session_id", sess.ID).Msg("widget mount failed")
		return fmt.Errorf("checkout: open session %s: %w", sess.ID, err)
	}

	c.metrics.SessionOpened()
	c.log.Info().
		Str("session_id", sess.ID).
		Int64("amount", opts.Amount).
		Str("currency", opts.Currency).
		Msg("checkout session opened")
	return nil
}

// Close forces ACTIVE to IDLE regardless of widget state: it unmounts the
// surface immediately, invokes OnClose synchronously if present, and
// schedules the deferred request clear. Closing when idle has no observable
// effect. Close cannot cancel an in-flight remote transaction; it only tears
// down the local presentation and callback wiring.
func (c *Controller) Close(ctx context.Context) {
	_, span := otel.Tracer("checkout").Start(ctx, "Controller.Close")
	defer span.End()

	req, epoch, ok := c.resolve()
	if !ok {
		return
	}
	c.bridge.Unmount()
	if req.Callbacks.OnClose != nil {
		req.Callbacks.OnClose()
	}
	c.finish(req, epoch, reporting.OutcomeClosed, "", "")
	c.log.Info().Str("session_id", req.Session.ID).Msg("checkout closed by host")
}

// CompleteSuccess delivers the widget's success result: the host OnSuccess
// fires first, then the surface is unmounted and the request clear is
// scheduled. At most one terminal callback fires per session.
func (c *Controller) CompleteSuccess(p SuccessPayload) {
	req, epoch, ok := c.resolve()
	if !ok {
		c.log.Debug().Msg("success message dropped: no active session")
		return
	}
	if req.Callbacks.OnSuccess != nil {
		req.Callbacks.OnSuccess(p)
	}
	c.bridge.Unmount()
	c.finish(req, epoch, reporting.OutcomeSuccess, "", "")
	c.log.Info().
		Str("session_id", req.Session.ID).
		Str("payment_id", p.PaymentID).
		Msg("payment succeeded")
}

// CompleteFailure delivers the widget's failure result via OnFailure, then
// runs the same cleanup as CompleteSuccess. OnClose does not fire.
func (c *Controller) CompleteFailure(p FailurePayload) {
	req, epoch, ok := c.resolve()
	if !ok {
		c.log.Debug().Msg("failure message dropped: no active session")
		return
	}
	if req.Callbacks.OnFailure != nil {
		req.Callbacks.OnFailure(p)
	}
	c.bridge.Unmount()
	c.finish(req, epoch, reporting.OutcomeFailed, p.Code, p.Description)
	c.log.Warn().
		Str("session_id", req.Session.ID).
		Str("code", p.Code).
		Str("step", p.Step).
		Msg("payment failed")
}

// Dismiss handles the user closing the widget: the close-then-cleanup
// sequence of Close, not a second cleanup path. OnClose fires; OnFailure
// never does.
func (c *Controller) Dismiss() {
	req, epoch, ok := c.resolve()
	if !ok {
		c.log.Debug().Msg("dismiss message dropped: no active session")
		return
	}
	c.bridge.Unmount()
	if req.Callbacks.OnClose != nil {
		req.Callbacks.OnClose()
	}
	c.finish(req, epoch, reporting.OutcomeDismissed, "", "")
	c.log.Info().Str("session_id", req.Session.ID).Msg("checkout dismissed by user")
}

// Ready handles the widget's informational READY message. No state
// transition.
func (c *Controller) Ready() {
	c.log.Debug().Msg("widget reported ready")
}

// IsVisible reports whether the widget surface is currently mounted.
func (c *Controller) IsVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// Surface returns the renderable widget surface for the host to place in its
// UI tree, or nil whenever the checkout is not visible.
func (c *Controller) Surface() *surface.Page {
	c.mu.Lock()
	visible := c.visible
	c.mu.Unlock()
	if !visible {
		return nil
	}
	return c.bridge.Rendered()
}

// resolve flips the controller back to idle and latches the session so no
// further callback can fire for it. ok is false when there was nothing to
// resolve.
func (c *Controller) resolve() (req *Request, epoch uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive || c.resolved {
		return nil, 0, false
	}
	c.resolved = true
	c.state = StateIdle
	c.visible = false
	return c.req, c.epoch, true
}

// finish records the outcome and schedules the deferred request clear.
func (c *Controller) finish(req *Request, epoch uint64, outcome reporting.Outcome, errCode, errDesc string) {
	c.metrics.SessionResolved(string(outcome), time.Since(req.Session.StartedAt))
	if c.journal != nil {
		c.journal.Append(reporting.Entry{
			Timestamp:        time.Now(),
			SessionID:        req.Session.ID,
			Outcome:          outcome,
			Amount:           req.Options.Amount,
			Currency:         req.Options.Currency,
			ErrorCode:        errCode,
			ErrorDescription: errDesc,
		})
	}
	c.scheduleClear(epoch)
}

// scheduleClear drops the stored request after the clear delay. The epoch
// guard means a timer from an old session never clears a newer one.
func (c *Controller) scheduleClear(epoch uint64) {
	time.AfterFunc(c.clearDelay, func() {
		c.mu.Lock()
		if c.epoch == epoch {
			c.req = nil
		}
		c.mu.Unlock()
	})
}
