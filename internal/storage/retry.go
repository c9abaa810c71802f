package storage

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/nandininema07/MacBuddies-HackSync2/internal/domain"
)

// Source is the full-snapshot read capability every backend offers.
type Source interface {
	ListProjects(ctx context.Context) ([]domain.Project, error)
	ListReports(ctx context.Context) ([]domain.Report, error)
}

// RetryConfig controls the exponential backoff around a Source.
type RetryConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// RetryingSource retries transient fetch failures. Context cancellation and
// deadline errors are never retried.
type RetryingSource struct {
	Source Source
	Config RetryConfig
	Logger *zap.Logger
}

func (r RetryingSource) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return retry(ctx, r.Config, r.Logger, "projects", r.Source.ListProjects)
}

func (r RetryingSource) ListReports(ctx context.Context) ([]domain.Report, error) {
	return retry(ctx, r.Config, r.Logger, "reports", r.Source.ListReports)
}

// RetryingProfiles applies the same policy to the contractor profile snapshot.
type RetryingProfiles struct {
	Store  ProfileStore
	Config RetryConfig
	Logger *zap.Logger
}

func (r RetryingProfiles) ListContractorProfiles(ctx context.Context) ([]domain.ContractorProfile, error) {
	return retry(ctx, r.Config, r.Logger, "contractor_risk_profiles", r.Store.ListContractorProfiles)
}

func retry[T any](ctx context.Context, cfg RetryConfig, logger *zap.Logger, what string, fn func(context.Context) ([]T, error)) ([]T, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = cfg.InitialInterval
	eb.MaxInterval = cfg.MaxInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, cfg.MaxRetries), ctx)

	var out []T
	op := func() error {
		res, err := fn(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		return nil
	}
	notify := func(err error, wait time.Duration) {
		if logger != nil {
			logger.Warn("Fetch failed, retrying",
				zap.String("table", what),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
	}
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, err
	}
	return out, nil
}
