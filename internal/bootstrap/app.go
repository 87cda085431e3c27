// Package bootstrap builds the service graph shared by the API process and cdrctl.
package bootstrap

import (
	"context"
	"log/slog"

	"crm-telephony/internal/audit"
	"crm-telephony/internal/auth"
	"crm-telephony/internal/calls"
	"crm-telephony/internal/cdr"
	"crm-telephony/internal/config"
	"crm-telephony/internal/employees"
	"crm-telephony/internal/events"
	"crm-telephony/internal/ingest"
	"crm-telephony/internal/lookup"
	"crm-telephony/internal/reporting"
	"crm-telephony/internal/telephony"
	"crm-telephony/pkg/logger"
	"crm-telephony/pkg/utils"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

// App holds every long-lived dependency. Close releases them in reverse order.
type App struct {
	Config config.Config
	Log    *slog.Logger

	DB        *pgxpool.Pool
	Redis     *redis.Client // nil when redis.host is empty
	Publisher events.Publisher

	Auth      *auth.Manager
	PBX       *telephony.PBXClient
	Ingest    *ingest.Service
	Lookup    *lookup.Service
	Reporting *reporting.Service

	closers []func()
}

// New connects to Postgres (required), Redis and NATS (both optional) and
// wires the services.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	ctx = logger.With(ctx, log)
	a := &App{Config: cfg, Log: log, Publisher: events.Noop{}}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		return nil, eris.Wrap(err, "bootstrap: auth")
	}
	a.Auth = authManager

	db, err := utils.OpenPostgres(ctx, cfg.PostgresDSN(), utils.PostgresPoolConfig{MaxConns: cfg.DB.MaxConns})
	if err != nil {
		return nil, eris.Wrap(err, "bootstrap: postgres")
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	if addr := cfg.RedisAddr(); addr != "" {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			a.Close()
			return nil, eris.Wrap(err, "bootstrap: redis")
		}
		a.Redis = rdb
		a.closers = append(a.closers, func() { _ = rdb.Close() })
	} else {
		log.Warn("redis not configured; sync lock and lookup cache disabled")
	}

	if cfg.NATS.URL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			a.Close()
			return nil, eris.Wrap(err, "bootstrap: nats")
		}
		a.Publisher = pub
		a.closers = append(a.closers, func() { _ = pub.Close() })
	}

	if err := a.wire(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire() error {
	cfg := a.Config

	pbx, err := telephony.NewPBXClient(telephony.PBXOptions{
		BaseURL:              cfg.PBX.BaseURL,
		APIKey:               cfg.PBX.APIKey,
		Tenant:               cfg.PBX.Tenant,
		RecordingURLTemplate: cfg.PBX.RecordingTemplate(),
		SendDateRange:        cfg.PBX.SendDateRange,
		Timeout:              cfg.PBX.Timeout,
		RatePerSecond:        cfg.PBX.RatePerSecond,
	})
	if err != nil {
		return eris.Wrap(err, "bootstrap: pbx client")
	}
	a.PBX = pbx

	rules := cdr.DefaultRules()
	if cfg.CDR.RulesFile != "" {
		if rules, err = cdr.LoadRules(cfg.CDR.RulesFile); err != nil {
			return eris.Wrap(err, "bootstrap: cdr rules")
		}
	}

	directory := employees.NewPostgresDirectory(a.DB)
	resolver := employees.NewResolver(directory, employees.ResolverOptions{TTL: cfg.CDR.DirectoryTTL, NoData: cfg.CDR.NoData})
	mapper := cdr.NewMapper(rules, resolver, cdr.MapperOptions{
		Tenant:               cfg.PBX.Tenant,
		RecordingURLTemplate: cfg.PBX.RecordingTemplate(),
	})

	callRepo := calls.NewPostgresRepo(a.DB)
	deps := ingest.Deps{
		Feed:         pbx,
		Mapper:       mapper,
		Calls:        callRepo,
		Audit:        audit.NewService(audit.NewPostgresRepo(a.DB)),
		Publisher:    a.Publisher,
		ResyncWindow: cfg.Sync.ResyncWindow,
	}
	if a.Redis != nil {
		deps.Lock = ingest.NewRedisLock(a.Redis, cfg.Sync.LockTTL)
	}
	if a.Ingest, err = ingest.NewService(deps); err != nil {
		return eris.Wrap(err, "bootstrap: ingest")
	}

	lookupDeps := lookup.Deps{
		Repo:    lookup.NewPostgresRepo(a.DB),
		Names:   directory,
		History: callRepo,
	}
	if a.Redis != nil && cfg.Lookup.CacheTTL > 0 {
		lookupDeps.Cache = lookup.NewRedisCache(a.Redis, cfg.Lookup.CacheTTL)
	}
	a.Lookup, err = lookup.NewService(lookupDeps, lookup.Options{
		Phone: lookup.PhoneOptions{
			CountryCode: cfg.Lookup.CountryCode,
			TrunkPrefix: cfg.Lookup.TrunkPrefix,
			SuffixLen:   cfg.Lookup.SuffixLen,
		},
		RecentLimit: cfg.Lookup.RecentLimit,
	})
	if err != nil {
		return eris.Wrap(err, "bootstrap: lookup")
	}

	a.Reporting = reporting.NewService(callRepo)
	a.Reporting.MaxRangeDays = cfg.Sync.MaxRangeDays
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
