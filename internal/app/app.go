// Package app собирает компоненты Preflight из конфигурации.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Preflight/internal/browser"
	"github.com/shaiso/Preflight/internal/config"
	"github.com/shaiso/Preflight/internal/executor"
	"github.com/shaiso/Preflight/internal/planner"
	"github.com/shaiso/Preflight/internal/preview"
	"github.com/shaiso/Preflight/internal/reviewhost"
	"github.com/shaiso/Preflight/internal/telemetry"
	"github.com/shaiso/Preflight/internal/tracker"
	"github.com/shaiso/Preflight/internal/validation"
)

// Components — собранные клиенты внешних сервисов.
type Components struct {
	ReviewHost *reviewhost.Client
	Tracker    *tracker.Client
	Browser    *browser.Client
	Planner    planner.Generator
	Waiter     *preview.Waiter
	Executor   *executor.Executor
}

// Build создаёт клиентов и компоненты pipeline.
// metrics может быть nil.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*Components, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Components{}

	c.ReviewHost = reviewhost.New(reviewhost.Config{
		BaseURL: cfg.ReviewHost.BaseURL,
		Token:   cfg.ReviewHost.Token,
		Timeout: cfg.ReviewHost.Timeout,
		Logger:  logger,
	})

	var issues planner.IssueSource
	if cfg.Tracker.Enabled() {
		c.Tracker = tracker.New(tracker.Config{
			BaseURL: cfg.Tracker.BaseURL,
			Token:   cfg.Tracker.Token,
			Logger:  logger,
		})
		issues = c.Tracker
	}

	chatModel, err := planner.NewOpenAIModel(ctx, planner.OpenAIConfig{
		BaseURL:     cfg.Planner.BaseURL,
		APIKey:      cfg.Planner.APIKey,
		Model:       cfg.Planner.Model,
		Temperature: cfg.Planner.Temperature,
		Timeout:     cfg.Planner.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("planner model: %w", err)
	}

	c.Planner, err = planner.NewLLMGenerator(planner.LLMConfig{
		Model:        chatModel,
		PullRequests: c.ReviewHost,
		Issues:       issues,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	detector, err := preview.NewDetector(preview.DetectorConfig{
		Authors:        cfg.Preview.Authors,
		LabeledPattern: cfg.Preview.LabeledPattern,
		BarePattern:    cfg.Preview.BarePattern,
	})
	if err != nil {
		return nil, fmt.Errorf("preview detector: %w", err)
	}

	waiterCfg := preview.WaiterConfig{
		Source:         c.ReviewHost,
		Detector:       detector,
		Interval:       cfg.Preview.Interval,
		MaxWait:        cfg.Preview.MaxWait,
		RecentComments: cfg.Preview.RecentComments,
		Logger:         logger,
	}
	if metrics != nil {
		waiterCfg.Observer = metrics
	}
	c.Waiter, err = preview.NewWaiter(waiterCfg)
	if err != nil {
		return nil, fmt.Errorf("preview waiter: %w", err)
	}

	c.Browser = browser.New(browser.Config{
		BaseURL: cfg.Browser.BaseURL,
		APIKey:  cfg.Browser.APIKey,
		Logger:  logger,
	})

	execCfg := executor.Config{
		Service:        c.Browser,
		PollInterval:   cfg.Tasks.PollInterval,
		TaskTimeout:    cfg.Tasks.MaxWait,
		MaxConcurrency: cfg.Tasks.MaxConcurrency,
		Instructions:   cfg.Tasks.Instructions,
		Logger:         logger,
	}
	if metrics != nil {
		execCfg.Metrics = metrics
		execCfg.PollObserver = metrics
	}
	c.Executor, err = executor.New(execCfg)
	if err != nil {
		return nil, fmt.Errorf("executor: %w", err)
	}

	return c, nil
}

// NewRunner собирает validation pipeline.
func (c *Components) NewRunner(logger *slog.Logger, metrics *telemetry.Metrics) (*validation.Runner, error) {
	cfg := validation.Config{
		Generator: c.Planner,
		Comments:  c.ReviewHost,
		Preview:   c.Waiter,
		Executor:  c.Executor,
		Logger:    logger,
	}
	if metrics != nil {
		cfg.Observer = metrics
	}
	return validation.New(cfg)
}

// BuildRunner — Build и NewRunner за один вызов.
func BuildRunner(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *telemetry.Metrics) (*validation.Runner, error) {
	c, err := Build(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	return c.NewRunner(logger, metrics)
}
