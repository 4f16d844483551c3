package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/compute"
	"github.com/sells-group/radreport/internal/config"
	"github.com/sells-group/radreport/internal/formula"
	"github.com/sells-group/radreport/internal/fragments"
	"github.com/sells-group/radreport/internal/pipeline"
	"github.com/sells-group/radreport/internal/resilience"
	"github.com/sells-group/radreport/internal/store"
	anthropicpkg "github.com/sells-group/radreport/pkg/anthropic"
	"github.com/sells-group/radreport/pkg/calculator"
)

// pipelineEnv holds the store, the compute client and the pipeline needed
// by the run/batch/serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when store.driver is none
	Compute  *compute.Client
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens and migrates the configured run store. It returns a nil
// store for the "none" driver.
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "none":
		return nil, nil
	case "sqlite", "":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "radreport.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// requireStore opens the store for commands that only read run history.
func requireStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("store.driver is none; run history is not persisted")
	}
	return st, nil
}

// pricingFromConfig overlays configured token prices on the defaults.
func pricingFromConfig(pc config.PricingConfig) anthropicpkg.Pricing {
	overrides := make(anthropicpkg.Pricing, len(pc.Anthropic))
	for modelID, p := range pc.Anthropic {
		overrides[modelID] = [2]float64{p.Input, p.Output}
	}
	return anthropicpkg.DefaultPricing().Merge(overrides)
}

// newCalculator builds the calculator service client from config.
func newCalculator(c config.CalculatorConfig) calculator.Client {
	opts := []calculator.Option{
		calculator.WithBaseURL(c.BaseURL),
		calculator.WithRateLimit(c.RatePerSec),
	}
	if c.TimeoutSecs > 0 {
		opts = append(opts, calculator.WithHTTPClient(&http.Client{
			Timeout: time.Duration(c.TimeoutSecs) * time.Second,
		}))
	}
	if c.MaxRetries > 0 {
		opts = append(opts, calculator.WithRetry(resilience.DefaultRetryConfig().WithAttempts(c.MaxRetries)))
	}
	return calculator.NewClient(opts...)
}

// initPipeline validates config for the mode, opens the store, builds all
// clients and returns the pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	reg := formula.Default()
	pricing := pricingFromConfig(cfg.Pricing)
	client := anthropicpkg.NewClient(cfg.Anthropic.Key)

	comp := compute.New(reg, newCalculator(cfg.Calculator))

	gen := fragments.NewLLMGenerator(client, cfg.Anthropic, reg, fragments.WithPricing(pricing))
	renderer := fragments.NewRenderer(cfg.Pipeline.Renderer, client, cfg.Anthropic, pricing)

	p := pipeline.New(cfg, gen, renderer, comp, st)

	zap.L().Info("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("renderer", cfg.Pipeline.Renderer),
		zap.String("formula_registry", reg.Version()),
		zap.Int("formulas", len(reg.Formulas())),
	)

	return &pipelineEnv{
		Store:    st,
		Compute:  comp,
		Pipeline: p,
	}, nil
}
