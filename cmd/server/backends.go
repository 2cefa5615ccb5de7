package main

import (
	"context"
	"database/sql"
	"log/slog"

	"arisan/internal/events"
	"arisan/internal/platform/config"
	"arisan/internal/platform/postgres"
	"arisan/internal/platform/redis"
	poolservice "arisan/internal/pool/service"
	ratelimitmw "arisan/internal/ratelimit/middleware"
	"arisan/internal/ratelimit/store/bucket"
	poolstore "arisan/internal/pool/store"
	registrymodels "arisan/internal/registry/models"
	registryservice "arisan/internal/registry/service"
	"arisan/internal/registry/store/settings"
	"arisan/internal/token"
	trustservice "arisan/internal/trust/service"
	vouchstore "arisan/internal/trust/store/vouch"
	"arisan/pkg/platform/tx"
)

type poolStore interface {
	poolservice.Store
	registryservice.PoolStore
}

// backends are the storage, sequencing and publishing components shared by
// every module. One sequencer serves all of them so an operation that touches
// tokens, pools and events commits as a unit.
type backends struct {
	seq       tx.Sequencer
	ledger    token.Ledger
	vouches   trustservice.Store
	pools     poolStore
	settings  registryservice.SettingsStore
	buckets   ratelimitmw.Store
	publisher events.Publisher
	outbox    *events.Outbox
	db        *sql.DB
	redis     *redis.Client
}

// openBackends picks Postgres when DATABASE_URL is set and memory otherwise.
// A configured Redis takes over the vouch graph and rate limit windows in
// either mode.
func openBackends(ctx context.Context, cfg config.Server, logger *slog.Logger) (*backends, error) {
	initial := registrymodels.Settings{
		Owner:         cfg.Owner,
		Treasury:      cfg.Treasury,
		DeploymentFee: cfg.DeploymentFee,
	}
	auditLog := events.NewLogPublisher(logger)

	b := &backends{}
	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	b.redis = rc

	if cfg.UsePostgres() {
		if err := b.openPostgres(ctx, cfg.DatabaseURL, initial); err != nil {
			b.close(logger)
			return nil, err
		}
		b.publisher = events.Multi{b.outbox, auditLog}
	} else {
		b.seq = tx.NewSerial()
		b.ledger = token.NewInMemory()
		b.pools = poolstore.NewInMemory()
		b.settings = settings.NewInMemory(initial)
		b.vouches = vouchstore.NewInMemory()
		b.publisher = auditLog
	}
	b.buckets = bucket.NewInMemory()
	if rc != nil {
		b.vouches = vouchstore.NewRedis(rc.Client, vouchstore.WithLogger(logger))
		b.buckets = bucket.NewRedis(rc.Client)
	}

	logger.InfoContext(ctx, "backends ready",
		"postgres", b.db != nil,
		"redis", rc != nil,
	)
	return b, nil
}

func (b *backends) openPostgres(ctx context.Context, url string, initial registrymodels.Settings) error {
	db, err := postgres.Open(ctx, url)
	if err != nil {
		return err
	}
	b.db = db
	if err := postgres.Migrate(ctx, db); err != nil {
		return err
	}
	settingsStore := settings.NewPostgres(db)
	if err := settingsStore.Init(ctx, initial); err != nil {
		return err
	}

	b.seq = tx.NewSQL(db)
	b.ledger = token.NewPostgres(db)
	b.pools = poolstore.NewPostgres(db)
	b.settings = settingsStore
	b.vouches = vouchstore.NewPostgres(db)
	b.outbox = events.NewOutbox(db)
	return nil
}

func (b *backends) close(logger *slog.Logger) {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			logger.Warn("close postgres", "error", err)
		}
	}
	if b.redis != nil {
		if err := b.redis.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
}

// checks are the dependency probes served by /healthz.
func (b *backends) checks() map[string]func(context.Context) error {
	out := map[string]func(context.Context) error{}
	if b.db != nil {
		out["postgres"] = b.db.PingContext
	}
	if b.redis != nil {
		out["redis"] = b.redis.Health
	}
	return out
}
