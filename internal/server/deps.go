package server

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Anvoria/authgate/internal/cache"
	"github.com/Anvoria/authgate/internal/config"
	"github.com/Anvoria/authgate/internal/database"
	"github.com/Anvoria/authgate/internal/domain/audit"
	"github.com/Anvoria/authgate/internal/domain/auth"
	"github.com/Anvoria/authgate/internal/domain/keys"
	"github.com/Anvoria/authgate/internal/domain/session"
	"github.com/Anvoria/authgate/internal/metrics"
	"github.com/Anvoria/authgate/internal/migrations"
)

// Dependencies is everything the HTTP routes need, built once at startup
type Dependencies struct {
	Config     *config.Config
	KeyStore   *keys.KeyStore
	Verifier   *auth.Verifier
	KeyService auth.KeyService

	// Optional; nil when the matching section is disabled
	Metrics    *metrics.Metrics
	Rejections *cache.RejectionCounter
	Audit      audit.Service
	Outcomes   *auth.Dispatcher

	closers []func() error
}

// BuildVerifier loads the configured keys and session policy and returns a
// verifier over them. It touches no external services.
func BuildVerifier(cfg *config.Config, opts ...auth.Option) (*auth.Verifier, *keys.KeyStore, error) {
	ks, err := keys.LoadKeyStore(cfg.Auth)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load keys: %w", err)
	}

	policy, err := session.PolicyFromConfig(cfg.Session, cfg.Auth.Leeway())
	if err != nil {
		return nil, nil, fmt.Errorf("invalid session policy: %w", err)
	}

	opts = append([]auth.Option{auth.WithLeeway(cfg.Auth.Leeway())}, opts...)
	return auth.NewVerifier(ks, policy, opts...), ks, nil
}

// NewDependencies connects to the enabled backends and wires the verifier to them
func NewDependencies(cfg *config.Config) (*Dependencies, error) {
	d := &Dependencies{Config: cfg}
	// inline recorders only touch memory; everything doing I/O goes through d.Outcomes
	var recorders auth.MultiRecorder
	var opts []auth.Option
	var background auth.Recorder
	var auditor auth.Auditor

	if cfg.Metrics.Enabled {
		m, err := metrics.New(prometheus.NewRegistry())
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		d.Metrics = m
		recorders = append(recorders, m)
	}

	if cfg.Redis.Enabled {
		client, err := cache.ConnectRedis(&cfg.Redis)
		if err != nil {
			return nil, errors.Join(err, d.Close())
		}
		d.closers = append(d.closers, client.Close)
		d.Rejections = cache.NewRejectionCounter(&cache.RedisCounterStore{Client: client})
		background = d.Rejections
	}

	if cfg.Audit.Enabled {
		db, err := database.Connect(&cfg.Database)
		if err != nil {
			return nil, errors.Join(err, d.Close())
		}
		d.closers = append(d.closers, func() error { return database.Close(db) })
		slog.Info("Database connected successfully")

		if err := migrations.RunMigrations(db); err != nil {
			return nil, errors.Join(err, d.Close())
		}
		slog.Info("Migrations completed successfully")

		d.Audit = audit.NewService(audit.NewRepository(db))
		auditor = d.Audit
	}

	if background != nil || auditor != nil {
		d.Outcomes = auth.NewDispatcher(cfg.Server.OutcomeQueueSize, background, auditor, slog.Default())
		d.closers = append(d.closers, d.Outcomes.Close)
		if background != nil {
			// the shared counters only track rejections
			recorders = append(recorders, auth.RecorderFunc{OnRejected: d.Outcomes.Rejected})
		}
		if auditor != nil {
			opts = append(opts, auth.WithAuditor(d.Outcomes))
		}
		if d.Metrics != nil {
			if err := d.Metrics.ObserveDropped(d.Outcomes.Dropped); err != nil {
				return nil, errors.Join(err, d.Close())
			}
		}
	}

	if len(recorders) > 0 {
		opts = append(opts, auth.WithRecorder(recorders))
	}

	verifier, ks, err := BuildVerifier(cfg, opts...)
	if err != nil {
		return nil, errors.Join(err, d.Close())
	}
	d.Verifier = verifier
	d.KeyStore = ks
	d.KeyService = auth.NewService(ks, cfg.Auth.KeysPath)

	status := ks.Status()
	slog.Info("Signing keys loaded",
		"algorithm", status.Algorithm,
		"current_kid", status.CurrentKID,
		"previous_kid", status.PreviousKID,
	)
	return d, nil
}

// Close releases backend connections in reverse order of opening
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	d.closers = nil
	return errors.Join(errs...)
}
