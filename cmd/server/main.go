// The server binary hosts the checkout controller behind an HTTP surface: the
// host-facing open/close/status endpoints, the widget-facing event and
// navigation endpoints, and the operational metrics and report endpoints.
package main

import (
	"context"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/yourorg/checkout-widget/internal/bridge"
	"github.com/yourorg/checkout-widget/internal/checkout"
	"github.com/yourorg/checkout-widget/internal/metrics"
	"github.com/yourorg/checkout-widget/internal/monitor"
	"github.com/yourorg/checkout-widget/internal/navigation"
	"github.com/yourorg/checkout-widget/internal/navigation/circuitbreaker"
	"github.com/yourorg/checkout-widget/internal/obs"
	"github.com/yourorg/checkout-widget/internal/options"
	"github.com/yourorg/checkout-widget/internal/reporting"
	"github.com/yourorg/checkout-widget/internal/session"
	"github.com/yourorg/checkout-widget/internal/surface"
)

const eventPath = "/checkout/events"

type serverConfig struct {
	Addr        string
	WidgetURL   string
	Key         string
	DisplayName string
	ThemeColor  string

	// Injection points for tests.
	Registry prometheus.Registerer
	Opener   navigation.LinkOpener
}

func configFromEnv() serverConfig {
	return serverConfig{
		Addr:        envDefault("CHECKOUT_ADDR", ":8080"),
		WidgetURL:   envDefault("CHECKOUT_WIDGET_URL", "https://checkout.razorpay.com/v1/checkout.js"),
		Key:         envDefault("CHECKOUT_KEY", "rzp_test_key"),
		DisplayName: envDefault("CHECKOUT_DISPLAY_NAME", "Acme Store"),
		ThemeColor:  envDefault("CHECKOUT_THEME_COLOR", "#3399cc"),
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// lastResult keeps the most recent terminal outcome for the polling host.
type lastResult struct {
	mu      sync.Mutex
	outcome string
	success *checkout.SuccessPayload
	failure *checkout.FailurePayload
}

func (r *lastResult) setSuccess(p checkout.SuccessPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcome = string(reporting.OutcomeSuccess)
	r.success = &p
	r.failure = nil
}

func (r *lastResult) setFailure(p checkout.FailurePayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcome = string(reporting.OutcomeFailed)
	r.failure = &p
	r.success = nil
}

func (r *lastResult) setClosed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcome == "" {
		r.outcome = string(reporting.OutcomeClosed)
	}
}

func (r *lastResult) snapshot() gin.H {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := gin.H{"outcome": r.outcome}
	if r.success != nil {
		out["payment"] = r.success
	}
	if r.failure != nil {
		out["error"] = r.failure
	}
	return out
}

type application struct {
	ctrl     *checkout.Controller
	bridge   *bridge.EmbeddedWidgetBridge
	journal  *reporting.Journal
	reporter *reporting.RetrospectiveReporter
	result   *lastResult
	gatherer prometheus.Gatherer
	cfg      serverConfig
	log      zerolog.Logger
}

func buildApplication(cfg serverConfig, log zerolog.Logger) (*application, error) {
	hosts := session.NewInMemoryHostConfigRepository()
	hosts.AddConfig(session.HostConfig{
		Key:             cfg.Key,
		DisplayName:     cfg.DisplayName,
		ThemeColor:      cfg.ThemeColor,
		DefaultCurrency: "INR",
	})

	mon, err := monitor.NewContractMonitor()
	if err != nil {
		return nil, err
	}
	policy, err := navigation.NewPolicy(nil)
	if err != nil {
		return nil, err
	}

	opener := cfg.Opener
	if opener == nil {
		opener = navigation.ExecOpener{}
	}
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{})
	dispatcher := navigation.NewDispatcher(opener, breaker, log)

	m := metrics.New(cfg.Registry)
	journal := reporting.NewJournal()
	sfc := surface.NewHTMLSurface(cfg.WidgetURL, eventPath, "Razorpay")

	wb := bridge.New(sfc, options.NewBuilder(hosts), mon, policy, dispatcher, m, log)
	ctrl := checkout.NewController(wb, m, journal, log)
	wb.Bind(ctrl)

	gatherer := prometheus.Gatherer(prometheus.DefaultGatherer)
	if g, ok := cfg.Registry.(prometheus.Gatherer); ok {
		gatherer = g
	}

	return &application{
		ctrl:     ctrl,
		bridge:   wb,
		journal:  journal,
		reporter: reporting.NewRetrospectiveReporter(),
		result:   &lastResult{},
		gatherer: gatherer,
		cfg:      cfg,
		log:      log,
	}, nil
}

type openRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	OrderID        string            `json:"order_id"`
	SubscriptionID string            `json:"subscription_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Notes          map[string]string `json:"notes"`
	PrefillName    string            `json:"prefill_name"`
	PrefillEmail   string            `json:"prefill_email"`
	PrefillContact string            `json:"prefill_contact"`
}

func (a *application) openHandler(c *gin.Context) {
	var req openRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	opts := options.CheckoutOptions{
		Key:            a.cfg.Key,
		Amount:         req.Amount,
		Currency:       req.Currency,
		OrderID:        req.OrderID,
		SubscriptionID: req.SubscriptionID,
		Name:           req.Name,
		Description:    req.Description,
		Notes:          req.Notes,
		Prefill: options.Prefill{
			Name:    req.PrefillName,
			Email:   req.PrefillEmail,
			Contact: req.PrefillContact,
		},
	}

	result := a.result
	result.mu.Lock()
	result.outcome = ""
	result.success = nil
	result.failure = nil
	result.mu.Unlock()

	cb := checkout.Callbacks{
		OnSuccess: result.setSuccess,
		OnFailure: result.setFailure,
		OnClose:   result.setClosed,
	}

	if err := a.ctrl.Open(c.Request.Context(), opts, cb); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"visible": a.ctrl.IsVisible()})
}

func (a *application) closeHandler(c *gin.Context) {
	a.ctrl.Close(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"visible": a.ctrl.IsVisible()})
}

func (a *application) surfaceHandler(c *gin.Context) {
	page := a.ctrl.Surface()
	if page == nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page.HTML)
}

func (a *application) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"visible": a.ctrl.IsVisible()})
}

func (a *application) eventsHandler(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read body: " + err.Error()})
		return
	}
	if err := a.bridge.HandleMessage(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *application) navigateHandler(c *gin.Context) {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"load": a.bridge.ShouldLoad(req.URL)})
}

func (a *application) resultHandler(c *gin.Context) {
	c.JSON(http.StatusOK, a.result.snapshot())
}

func (a *application) reportHandler(c *gin.Context) {
	report, err := a.reporter.GenerateRetrospective(a.journal.Entries())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func setupRouter(a *application) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("checkout-widget"))

	router.POST("/checkout/open", a.openHandler)
	router.POST("/checkout/close", a.closeHandler)
	router.GET("/checkout", a.surfaceHandler)
	router.GET("/checkout/status", a.statusHandler)
	router.GET("/checkout/result", a.resultHandler)
	router.POST(eventPath, a.eventsHandler)
	router.POST("/checkout/navigate", a.navigateHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{})))
	router.GET("/report", a.reportHandler)
	return router
}

func setupTracing(log zerolog.Logger) func(context.Context) error {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled: exporter init failed")
		return func(context.Context) error { return nil }
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

func main() {
	log := obs.NewLogger(envDefault("CHECKOUT_LOG_FORMAT", "json"), envDefault("CHECKOUT_LOG_LEVEL", "info"))

	shutdown := setupTracing(log)
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()

	cfg := configFromEnv()
	app, err := buildApplication(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("application init failed")
	}

	router := setupRouter(app)
	log.Info().Str("addr", cfg.Addr).Msg("starting server")
	if err := router.Run(cfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
