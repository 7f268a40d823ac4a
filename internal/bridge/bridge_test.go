package bridge

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-widget/internal/checkout"
	"github.com/yourorg/checkout-widget/internal/monitor"
	"github.com/yourorg/checkout-widget/internal/navigation"
	"github.com/yourorg/checkout-widget/internal/navigation/circuitbreaker"
	"github.com/yourorg/checkout-widget/internal/options"
	"github.com/yourorg/checkout-widget/internal/session"
	"github.com/yourorg/checkout-widget/internal/surface"
)

// recordingSink captures routed outcomes.
type recordingSink struct {
	successes []checkout.SuccessPayload
	failures  []checkout.FailurePayload
	dismissed int
	ready     int
}

func (s *recordingSink) CompleteSuccess(p checkout.SuccessPayload) { s.successes = append(s.successes, p) }
func (s *recordingSink) CompleteFailure(p checkout.FailurePayload) { s.failures = append(s.failures, p) }
func (s *recordingSink) Dismiss()                                  { s.dismissed++ }
func (s *recordingSink) Ready()                                    { s.ready++ }

// recordingOpener captures dispatched URLs, optionally failing.
type recordingOpener struct {
	mu     sync.Mutex
	urls   []string
	openFn func(rawURL string) error
}

func (o *recordingOpener) OpenURL(rawURL string) error {
	o.mu.Lock()
	o.urls = append(o.urls, rawURL)
	fn := o.openFn
	o.mu.Unlock()
	if fn != nil {
		return fn(rawURL)
	}
	return nil
}

func (o *recordingOpener) dispatched() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.urls))
	copy(out, o.urls)
	return out
}

func newTestBridge(t *testing.T) (*EmbeddedWidgetBridge, *recordingSink, *recordingOpener) {
	t.Helper()
	mon, err := monitor.NewContractMonitor()
	require.NoError(t, err)
	policy, err := navigation.NewPolicy(nil)
	require.NoError(t, err)

	opener := &recordingOpener{}
	dispatcher := navigation.NewDispatcher(opener, circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{}), zerolog.Nop())
	sfc := surface.NewHTMLSurface("https://widget.example/checkout.js", "/checkout/events", "Razorpay")

	b := New(sfc, options.NewBuilder(nil), mon, policy, dispatcher, nil, zerolog.Nop())
	sink := &recordingSink{}
	b.Bind(sink)
	return b, sink, opener
}

func validRequest() *checkout.Request {
	return &checkout.Request{
		Options: options.CheckoutOptions{
			Key:      "rzp_test_key",
			Amount:   50000,
			Currency: "INR",
			OrderID:  "order_123",
		},
		Callbacks: checkout.Callbacks{
			OnSuccess: func(checkout.SuccessPayload) {},
			OnFailure: func(checkout.FailurePayload) {},
		},
		Session: session.New(),
	}
}

func TestMountRendersBootstrapPage(t *testing.T) {
	b, _, _ := newTestBridge(t)

	require.NoError(t, b.Mount(validRequest()))

	page := b.Rendered()
	require.NotNil(t, page)
	html := string(page.HTML)
	assert.Contains(t, html, "https://widget.example/checkout.js")
	assert.Contains(t, html, `"key":"rzp_test_key"`)
	assert.Contains(t, html, `"amount":50000`)

	b.Unmount()
	assert.Nil(t, b.Rendered())
}

func TestMountOverwritesHostHandler(t *testing.T) {
	b, _, _ := newTestBridge(t)

	req := validRequest()
	req.Options.Extra = map[string]any{"handler": "host-supplied"}
	require.NoError(t, b.Mount(req))

	html := string(b.Rendered().HTML)
	assert.NotContains(t, html, "host-supplied")
	assert.Contains(t, html, `"handler":"bridge"`)
}

func TestMountRejectsMissingCallbacks(t *testing.T) {
	b, _, _ := newTestBridge(t)

	req := validRequest()
	req.Callbacks.OnSuccess = nil
	err := b.Mount(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContractViolation)

	req = validRequest()
	req.Callbacks.OnFailure = nil
	err = b.Mount(req)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestMountRejectsContractViolations(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*checkout.Request)
	}{
		{"missing key", func(r *checkout.Request) { r.Options.Key = "" }},
		{"zero amount", func(r *checkout.Request) { r.Options.Amount = 0 }},
		{"negative amount", func(r *checkout.Request) { r.Options.Amount = -100 }},
		{"lowercase currency", func(r *checkout.Request) { r.Options.Currency = "inr" }},
		{"neither order nor subscription", func(r *checkout.Request) { r.Options.OrderID = "" }},
		{"both order and subscription", func(r *checkout.Request) { r.Options.SubscriptionID = "sub_123" }},
		{"too many notes", func(r *checkout.Request) {
			r.Options.Notes = make(map[string]string)
			for i := 0; i < 16; i++ {
				r.Options.Notes[string(rune('a'+i))] = "v"
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, _, _ := newTestBridge(t)
			req := validRequest()
			tc.mutate(req)

			err := b.Mount(req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrContractViolation)
			assert.Nil(t, b.Rendered(), "surface must not mount on a contract violation")
		})
	}
}

func TestHandleMessageRoutesSuccess(t *testing.T) {
	b, sink, _ := newTestBridge(t)

	raw := []byte(`{"type":"SUCCESS","payload":{"razorpay_payment_id":"pay_abc","razorpay_order_id":"order_123","razorpay_signature":"sig"}}`)
	require.NoError(t, b.HandleMessage(raw))

	require.Len(t, sink.successes, 1)
	assert.Equal(t, "pay_abc", sink.successes[0].PaymentID)
	assert.Equal(t, "order_123", sink.successes[0].OrderID)
	assert.Equal(t, "sig", sink.successes[0].Signature)
}

func TestHandleMessageRoutesFailure(t *testing.T) {
	b, sink, _ := newTestBridge(t)

	raw := []byte(`{"type":"FAILED","payload":{"error":{"code":"BAD_REQUEST_ERROR","description":"Payment failed","source":"gateway","step":"payment_authorization","reason":"payment_failed"}}}`)
	require.NoError(t, b.HandleMessage(raw))

	require.Len(t, sink.failures, 1)
	assert.Equal(t, "BAD_REQUEST_ERROR", sink.failures[0].Code)
	assert.Equal(t, "payment_authorization", sink.failures[0].Step)
	assert.Equal(t, "Payment failed", sink.failures[0].Description)
}

func TestHandleMessageRoutesDismissAndReady(t *testing.T) {
	b, sink, _ := newTestBridge(t)

	require.NoError(t, b.HandleMessage([]byte(`{"type":"DISMISSED"}`)))
	require.NoError(t, b.HandleMessage([]byte(`{"type":"READY"}`)))

	assert.Equal(t, 1, sink.dismissed)
	assert.Equal(t, 1, sink.ready)
}

func TestHandleMessageDropsUnknownType(t *testing.T) {
	b, sink, _ := newTestBridge(t)

	require.NoError(t, b.HandleMessage([]byte(`{"type":"TELEMETRY","payload":{}}`)))

	assert.Empty(t, sink.successes)
	assert.Empty(t, sink.failures)
	assert.Zero(t, sink.dismissed)
}

func TestHandleMessageRejectsMalformed(t *testing.T) {
	b, _, _ := newTestBridge(t)

	assert.Error(t, b.HandleMessage([]byte(`not json`)))
	assert.Error(t, b.HandleMessage([]byte(`{"payload":{}}`)))
}

func TestShouldLoadPermitsWebURLs(t *testing.T) {
	b, _, opener := newTestBridge(t)

	assert.True(t, b.ShouldLoad("https://api.widget.example/v1/payments"))
	assert.True(t, b.ShouldLoad("http://bank.example/3ds-redirect"))
	assert.True(t, b.ShouldLoad("about:blank"))
	assert.Empty(t, opener.dispatched())
}

func TestShouldLoadDispatchesAppSchemes(t *testing.T) {
	b, _, opener := newTestBridge(t)

	assert.False(t, b.ShouldLoad("upi://pay?pa=merchant@bank&am=500"))
	assert.False(t, b.ShouldLoad("tez://upi/pay?pa=merchant@bank"))
	assert.False(t, b.ShouldLoad("intent://pay#Intent;scheme=upi;end"))

	urls := opener.dispatched()
	require.Len(t, urls, 3)
	assert.Equal(t, "upi://pay?pa=merchant@bank&am=500", urls[0])
}

func TestShouldLoadSwallowsDispatchFailure(t *testing.T) {
	b, _, opener := newTestBridge(t)
	opener.openFn = func(string) error { return errors.New("no handler installed") }

	// Must not panic or propagate: the load is simply cancelled.
	assert.False(t, b.ShouldLoad("upi://pay?pa=merchant@bank"))
	assert.Len(t, opener.dispatched(), 1)
}

func TestInitPayloadRoundTrip(t *testing.T) {
	b, _, _ := newTestBridge(t)

	req := validRequest()
	req.Options.Name = "Acme Store"
	req.Options.Notes = map[string]string{"order_ref": "A-42"}
	require.NoError(t, b.Mount(req))

	html := string(b.Rendered().HTML)
	assert.Contains(t, html, `"name":"Acme Store"`)

	var doc map[string]any
	const marker = "var options = "
	idx := strings.Index(html, marker)
	require.GreaterOrEqual(t, idx, 0)
	rest := html[idx+len(marker):]
	end := strings.Index(rest, ";")
	require.GreaterOrEqual(t, end, 0)
	require.NoError(t, json.Unmarshal([]byte(rest[:end]), &doc))
	assert.Equal(t, "order_123", doc["order_id"])
	assert.Equal(t, map[string]any{"order_ref": "A-42"}, doc["notes"])
}
