package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/sparkd/internal/config"
	"github.com/fyrsmithlabs/sparkd/internal/events"
	sparkhttp "github.com/fyrsmithlabs/sparkd/internal/http"
	"github.com/fyrsmithlabs/sparkd/internal/ledger"
	"github.com/fyrsmithlabs/sparkd/internal/profile"
	"github.com/fyrsmithlabs/sparkd/internal/quest"
	"github.com/fyrsmithlabs/sparkd/internal/redemption"
	"github.com/fyrsmithlabs/sparkd/internal/reflection"
	"github.com/fyrsmithlabs/sparkd/internal/rewards"
	"github.com/fyrsmithlabs/sparkd/internal/storage/postgres"
)

// app is the wired service graph.
type app struct {
	server  *sparkhttp.Server
	sweeper *redemption.Sweeper
	closers []func() error
	logger  *zap.Logger
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
}

type stores struct {
	ledger      ledger.Ledger
	redemptions redemption.Store
	reflections reflection.Store
	profiles    profile.Store
	assignments quest.AssignmentStore
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	rewardCatalog, questCatalog, err := loadCatalogs(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	logger.Info("catalogs loaded",
		zap.String("rewards_version", rewardCatalog.Version()),
		zap.String("quests_version", questCatalog.Version()))

	checks := map[string]sparkhttp.HealthCheck{}
	st, err := a.openStores(ctx, cfg, checks)
	if err != nil {
		return nil, err
	}

	publisher, err := a.openPublisher(cfg.Events, checks)
	if err != nil {
		return nil, err
	}

	profiles, err := profile.NewService(st.profiles, logger.Named("profile"))
	if err != nil {
		return nil, err
	}
	reflections, err := reflection.NewService(st.reflections, st.ledger, logger.Named("reflection"),
		reflection.WithPublisher(publisher),
		reflection.WithMoodRecorder(profiles))
	if err != nil {
		return nil, err
	}
	quests, err := quest.NewService(quest.NewSelector(questCatalog), profiles, st.assignments, st.ledger, reflections,
		logger.Named("quest"), quest.WithPublisher(publisher))
	if err != nil {
		return nil, err
	}
	manager, err := redemption.NewManager(rewardCatalog, st.ledger, st.redemptions, logger.Named("redemption"),
		redemption.WithPublisher(publisher))
	if err != nil {
		return nil, err
	}

	if cfg.Redemptions.SweepEnabled {
		a.sweeper, err = redemption.NewSweeper(st.redemptions, cfg.Redemptions.SweepSchedule, logger.Named("sweeper"))
		if err != nil {
			return nil, err
		}
	}

	a.server, err = sparkhttp.NewServer(sparkhttp.Services{
		Rewards:     rewardCatalog,
		Quests:      questCatalog,
		Today:       quests,
		Reflections: reflections,
		Profiles:    profiles,
		Redemptions: manager,
		Checks:      checks,
	}, logger.Named("http"), &sparkhttp.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		RedeemPerMinute: cfg.RateLimit.RedeemPerMinute,
		RedeemBurst:     cfg.RateLimit.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}
	return a, nil
}

func loadCatalogs(cfg config.CatalogConfig) (*rewards.Catalog, *quest.Catalog, error) {
	var (
		rc  *rewards.Catalog
		qc  *quest.Catalog
		err error
	)
	if cfg.RewardsFile != "" {
		rc, err = rewards.Load(cfg.RewardsFile)
	} else {
		rc, err = rewards.Default()
	}
	if err != nil {
		return nil, nil, err
	}
	if cfg.QuestsFile != "" {
		qc, err = quest.LoadCatalog(cfg.QuestsFile)
	} else {
		qc, err = quest.DefaultCatalog()
	}
	if err != nil {
		return nil, nil, err
	}
	return rc, qc, nil
}

func (a *app) openStores(ctx context.Context, cfg *config.Config, checks map[string]sparkhttp.HealthCheck) (*stores, error) {
	st := &stores{}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Storage.PostgresDSN.Value(), postgres.Options{MaxOpenConns: cfg.Storage.MaxOpenConns})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		checks["postgres"] = db.PingContext

		if cfg.Storage.AutoMigrate {
			if err := postgres.Migrate(db.DB, a.logger); err != nil {
				return nil, err
			}
		}
		st.ledger = postgres.NewLedger(db)
		st.redemptions = postgres.NewRedemptionStore(db)
		st.reflections = postgres.NewReflectionStore(db)
		st.profiles = postgres.NewProfileStore(db)
		if cfg.Assignments.Backend == config.BackendPostgres {
			st.assignments = postgres.NewAssignmentStore(db)
		}
	case config.BackendMemory:
		a.logger.Warn("using in-memory storage; all data is lost on restart")
		st.ledger = ledger.NewMemoryLedger()
		st.redemptions = redemption.NewMemoryStore()
		st.reflections = reflection.NewMemoryStore()
		st.profiles = profile.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	switch cfg.Assignments.Backend {
	case config.BackendRedis:
		client, err := quest.NewRedisClient(ctx, cfg.Assignments.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		st.assignments, err = quest.NewRedisAssignmentStore(client, cfg.Assignments.RedisTTL.Duration())
		if err != nil {
			return nil, err
		}
	case config.BackendMemory:
		st.assignments = quest.NewMemoryAssignmentStore()
	}
	if st.assignments == nil {
		return nil, errors.New("no assignment store for backend " + cfg.Assignments.Backend)
	}
	return st, nil
}

func (a *app) openPublisher(cfg config.EventsConfig, checks map[string]sparkhttp.HealthCheck) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Nop{}, nil
	}
	nc, err := events.Connect(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return nc.Drain() })
	checks["nats"] = func(context.Context) error {
		if !nc.IsConnected() {
			return fmt.Errorf("nats status %s", nc.Status())
		}
		return nil
	}
	return events.NewNATSPublisher(nc, cfg.SubjectPrefix)
}
