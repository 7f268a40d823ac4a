package navigation

import (
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yourorg/checkout-widget/internal/navigation/circuitbreaker"
)

// LinkOpener hands a URL to the operating system's external URL handler.
type LinkOpener interface {
	OpenURL(rawURL string) error
}

// ExecOpener shells out to the platform opener command. The launch is
// fire-and-forget: the handler process is not waited on.
type ExecOpener struct{}

// OpenURL starts the platform URL handler for rawURL.
func (ExecOpener) OpenURL(rawURL string) error {
	argv := openCommand(runtime.GOOS, rawURL)
	return exec.Command(argv[0], argv[1:]...).Start()
}

// NopOpener accepts every URL without launching anything, for headless hosts
// that have no OS URL handler.
type NopOpener struct{}

// OpenURL discards rawURL.
func (NopOpener) OpenURL(string) error { return nil }

func openCommand(goos, rawURL string) []string {
	switch goos {
	case "darwin":
		return []string{"open", rawURL}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", rawURL}
	default:
		return []string{"xdg-open", rawURL}
	}
}

// Dispatcher routes non-web URLs to the link opener. Failures are logged and
// swallowed: a failed app launch must never surface as a payment failure,
// since the user may still complete payment through another path in the same
// widget session.
type Dispatcher struct {
	opener  LinkOpener
	breaker *circuitbreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opener LinkOpener, breaker *circuitbreaker.CircuitBreaker, log zerolog.Logger) *Dispatcher {
	if opener == nil {
		panic("link opener cannot be nil")
	}
	if breaker == nil {
		panic("circuit breaker cannot be nil")
	}
	return &Dispatcher{
		opener:  opener,
		breaker: breaker,
		log:     log,
	}
}

// Dispatch hands rawURL to the opener, keyed by scheme in the circuit breaker
// so a handler that keeps failing stops being retried for a while.
func (d *Dispatcher) Dispatch(rawURL string) {
	scheme := ""
	if u, err := url.Parse(rawURL); err == nil {
		scheme = strings.ToLower(u.Scheme)
	}

	if !d.breaker.AllowRequest(scheme) {
		d.log.Warn().Str("url", rawURL).Str("scheme", scheme).Msg("external link skipped: circuit open")
		return
	}

	if err := d.opener.OpenURL(rawURL); err != nil {
		d.breaker.RecordFailure(scheme)
		d.log.Warn().Err(err).Str("url", rawURL).Msg("external link dispatch failed")
		return
	}
	d.breaker.RecordSuccess(scheme)
	d.log.Info().Str("url", rawURL).Str("scheme", scheme).Msg("external link dispatched")
}
