// Package bridge owns the embedded widget surface: it serializes and
// validates the init payload, mounts the bootstrap page, decodes inbound
// widget messages into controller calls, and intercepts surface navigation so
// non-web URLs reach the OS link opener instead of the embedded view.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yourorg/checkout-widget/internal/checkout"
	"github.com/yourorg/checkout-widget/internal/metrics"
	"github.com/yourorg/checkout-widget/internal/monitor"
	"github.com/yourorg/checkout-widget/internal/navigation"
	"github.com/yourorg/checkout-widget/internal/options"
	"github.com/yourorg/checkout-widget/internal/surface"
)

// ErrContractViolation reports a caller-supplied request that violates the
// widget's initialization contract. It is the only error class Mount returns
// for bad input, so callers can distinguish their own mistakes from surface
// failures.
var ErrContractViolation = errors.New("widget contract violation")

// handlerToken is the placeholder written into the serialized payload's
// handler slot. The bootstrap page replaces it with the real success handler
// before opening the widget; a host-supplied handler value is discarded.
const handlerToken = "bridge"

// ResultSink receives decoded widget outcomes. The checkout controller
// implements it.
type ResultSink interface {
	CompleteSuccess(checkout.SuccessPayload)
	CompleteFailure(checkout.FailurePayload)
	Dismiss()
	Ready()
}

// EmbeddedWidgetBridge renders the widget into a Surface and routes its
// messages and navigation requests.
type EmbeddedWidgetBridge struct {
	surface    surface.Surface
	builder    *options.Builder
	monitor    *monitor.ContractMonitor
	policy     *navigation.Policy
	dispatcher *navigation.Dispatcher
	metrics    *metrics.SessionMetrics
	log        zerolog.Logger

	mu   sync.Mutex
	sink ResultSink
}

// New creates an EmbeddedWidgetBridge. metrics may be nil; everything else is
// required.
func New(sfc surface.Surface, builder *options.Builder, mon *monitor.ContractMonitor, policy *navigation.Policy, dispatcher *navigation.Dispatcher, m *metrics.SessionMetrics, log zerolog.Logger) *EmbeddedWidgetBridge {
	if sfc == nil {
		panic("surface cannot be nil")
	}
	if builder == nil {
		panic("options builder cannot be nil")
	}
	if mon == nil {
		panic("contract monitor cannot be nil")
	}
	if policy == nil {
		panic("navigation policy cannot be nil")
	}
	if dispatcher == nil {
		panic("link dispatcher cannot be nil")
	}
	return &EmbeddedWidgetBridge{
		surface:    sfc,
		builder:    builder,
		monitor:    mon,
		policy:     policy,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log,
	}
}

// Bind attaches the result sink. Called once at wiring time; the sink is the
// controller, which in turn holds the bridge, so neither constructor can take
// the other.
func (b *EmbeddedWidgetBridge) Bind(sink ResultSink) {
	b.mu.Lock()
	b.sink = sink
	b.mu.Unlock()
}

// Mount validates the request and renders the widget bootstrap page. All
// contract violations surface here, wrapped in ErrContractViolation: missing
// terminal callbacks, schema violations in the init payload, and the
// order/subscription exclusivity rule.
func (b *EmbeddedWidgetBridge) Mount(req *checkout.Request) error {
	if req.Callbacks.OnSuccess == nil || req.Callbacks.OnFailure == nil {
		return fmt.Errorf("%w: OnSuccess and OnFailure callbacks are required", ErrContractViolation)
	}

	doc := b.builder.Build(req.Options)
	doc["handler"] = handlerToken

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("bridge: serialize init payload: %w", err)
	}

	valid, violations, err := b.monitor.Validate(payload)
	if err != nil {
		return fmt.Errorf("bridge: validate init payload: %w", err)
	}
	if !valid {
		return fmt.Errorf("%w: %s", ErrContractViolation, monitor.FormatErrors(violations))
	}

	if _, err := b.surface.Mount(payload); err != nil {
		return fmt.Errorf("bridge: mount surface: %w", err)
	}
	b.log.Debug().Str("session_id", req.Session.ID).Msg("widget mounted")
	return nil
}

// Unmount tears down the surface.
func (b *EmbeddedWidgetBridge) Unmount() {
	b.surface.Unmount()
}

// Rendered returns the mounted bootstrap page, or nil.
func (b *EmbeddedWidgetBridge) Rendered() *surface.Page {
	return b.surface.Page()
}

// HandleMessage decodes one raw widget message and routes it to the sink.
// Unknown message types are counted and dropped; only malformed messages
// return an error.
func (b *EmbeddedWidgetBridge) HandleMessage(raw []byte) error {
	env, err := DecodeEnvelope(raw)
	if err != nil {
		b.metrics.WidgetMessage("malformed")
		return err
	}
	b.metrics.WidgetMessage(env.Type)

	b.mu.Lock()
	sink := b.sink
	b.mu.Unlock()
	if sink == nil {
		return fmt.Errorf("bridge: no result sink bound")
	}

	switch env.Type {
	case MessageSuccess:
		var p checkout.SuccessPayload
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				return fmt.Errorf("bridge: decode success payload: %w", err)
			}
		}
		sink.CompleteSuccess(p)
	case MessageFailed:
		var fe failureEnvelope
		if len(env.Payload) > 0 {
			if err := json.Unmarshal(env.Payload, &fe); err != nil {
				return fmt.Errorf("bridge: decode failure payload: %w", err)
			}
		}
		sink.CompleteFailure(checkout.FailurePayload{
			Code:        fe.Error.Code,
			Source:      fe.Error.Source,
			Reason:      fe.Error.Reason,
			Step:        fe.Error.Step,
			Description: fe.Error.Description,
		})
	case MessageDismissed:
		sink.Dismiss()
	case MessageReady:
		sink.Ready()
	default:
		b.log.Warn().Str("type", env.Type).Msg("unknown widget message dropped")
	}
	return nil
}

// ShouldLoad reports whether the surface may load rawURL. URLs the navigation
// policy does not permit are cancelled and handed to the external link
// dispatcher; dispatch failures never propagate back into the surface.
func (b *EmbeddedWidgetBridge) ShouldLoad(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		b.metrics.NavDecision("invalid")
		b.log.Warn().Err(err).Str("url", rawURL).Msg("unparseable navigation target cancelled")
		return false
	}

	decision, rule := b.policy.Decide(u)
	if decision == navigation.Load {
		b.metrics.NavDecision("load")
		b.log.Debug().Str("url", rawURL).Str("rule", rule).Msg("navigation permitted")
		return true
	}

	b.metrics.NavDecision("dispatch")
	b.dispatcher.Dispatch(rawURL)
	return false
}
