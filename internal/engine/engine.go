// Package engine wires the gateway components from configuration. Both the
// worker process and the ingress API build on it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/thrillee/mnpgateway/internal/bss"
	"github.com/thrillee/mnpgateway/internal/cn"
	"github.com/thrillee/mnpgateway/internal/config"
	"github.com/thrillee/mnpgateway/internal/database"
	"github.com/thrillee/mnpgateway/internal/italy"
	"github.com/thrillee/mnpgateway/internal/lease"
	"github.com/thrillee/mnpgateway/internal/notification"
	"github.com/thrillee/mnpgateway/internal/porting"
	"github.com/thrillee/mnpgateway/internal/schedule"
	"github.com/thrillee/mnpgateway/pkg/codes"
)

// Engine holds the components shared by the gateway processes.
type Engine struct {
	Store      database.Store
	Calculator *schedule.Calculator
	CN         *cn.Client
	Processor  *porting.Processor
	Service    *porting.Service
	Ingestor   *italy.Ingestor

	cfg    *config.Config
	clock  schedule.Clock
	logger *slog.Logger
}

// New builds the engine over store. clock may be nil for the system clock.
func New(cfg *config.Config, store database.Store, clock schedule.Clock, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	calc, err := NewCalculator(cfg, clock)
	if err != nil {
		return nil, err
	}

	client := cn.NewClient(cfg.CN, logger)
	sessions := cn.NewSessionManager(client, cn.Credentials{
		Username:     cfg.CN.Username,
		AccessCode:   cfg.CN.AccessCode,
		OperatorCode: cfg.CN.OperatorCode,
	}, logger)

	proc, err := porting.NewProcessor(porting.Dependencies{
		Store:     store,
		CN:        cn.NewGateway(client, sessions, logger),
		Scheduler: calc,
		Outbox: bss.NewOutbox(bss.URLs{
			Default: cfg.BSS.WebhookURL,
			PortOut: cfg.BSS.PortOutWebhookURL,
			Return:  cfg.BSS.ReturnWebhookURL,
		}, cfg.BSS.Retries),
		Notifier: notification.NewLogNotifier(logger),
		Options: porting.Options{
			Country:          codes.CountrySpain,
			MaxRetries:       cfg.MaxRetries,
			StatusCheckDelay: cfg.WorkerConfig.StatusCheckDelay,
			RetryDelay:       cfg.WorkerConfig.RetryDelay,
			PortOutPageSize:  cfg.WorkerConfig.PortOutPageSize,
			PortOutMaxPages:  cfg.WorkerConfig.PortOutMaxPages,
			AlertRecipient:   cfg.AlertRecipient,
			RecipientCode:    cfg.CN.OperatorCode,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build processor: %w", err)
	}

	return &Engine{
		Store:      store,
		Calculator: calc,
		CN:         client,
		Processor:  proc,
		Service:    porting.NewService(proc),
		Ingestor:   italy.NewIngestor(store, calc, italyConfig(cfg)),
		cfg:        cfg,
		clock:      clock,
		logger:     logger,
	}, nil
}

// NewCalculator registers the Spanish working windows under every message
// type and one window per Italian message type, evaluated in Rome time.
func NewCalculator(cfg *config.Config, clock schedule.Clock) (*schedule.Calculator, error) {
	spain, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load TIME_ZONE: %w", err)
	}
	rome, err := time.LoadLocation(cfg.Italy.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load ITA_TIME_ZONE: %w", err)
	}

	calc := schedule.NewCalculator(schedule.Config{
		Location:      spain,
		IgnoreWindows: cfg.IgnoreWorkingHours,
		Jitter:        cfg.JitterWindow,
		Clock:         clock,
	})

	holidays, err := schedule.ParseHolidays(cfg.NationalHolidays)
	if err != nil {
		return nil, fmt.Errorf("parse NATIONAL_HOLIDAYS: %w", err)
	}
	sp := cfg.Spain
	morning, err := schedule.NewWindow(sp.WorkingDays, sp.MorningStart, sp.MorningStop)
	if err != nil {
		return nil, fmt.Errorf("spain morning window: %w", err)
	}
	afternoon, err := schedule.NewWindow(sp.WorkingDays, sp.AfternoonStart, sp.AfternoonStop)
	if err != nil {
		return nil, fmt.Errorf("spain afternoon window: %w", err)
	}
	calc.Register(codes.CountrySpain, schedule.AnyMessageType, schedule.Plan{
		Windows:  []schedule.Window{morning, afternoon},
		Holidays: holidays,
	})

	itHolidays, err := schedule.ParseHolidays(cfg.Italy.Holidays)
	if err != nil {
		return nil, fmt.Errorf("parse ITA_NATIONAL_HOLIDAYS: %w", err)
	}
	calc.SetLocation(codes.CountryItaly, rome)
	for i, w := range cfg.Italy.Windows {
		n := i + 1
		window, err := schedule.NewWindow(w.Days, w.Start, w.Stop)
		if err != nil {
			return nil, fmt.Errorf("ITA_MSG%d window: %w", n, err)
		}
		calc.Register(codes.CountryItaly, strconv.Itoa(n), schedule.Plan{
			Windows:  []schedule.Window{window},
			Holidays: itHolidays,
		})
	}
	return calc, nil
}

func italyConfig(cfg *config.Config) italy.Config {
	return italy.Config{
		OperatorCode: cfg.Italy.OperatorCode,
		OutboundDir:  cfg.Italy.OutboundDir,
		MaxAttempts:  cfg.Italy.ActionMaxAttempts,
		ActionTTL:    cfg.Italy.ActionTTL,
		ClaimTTL:     cfg.Italy.ActionClaimTTL,
		RetryDelay:   cfg.WorkerConfig.RetryDelay,
	}
}

// NewLeases returns a Redis lease manager when REDIS_URL is set and the
// in-process table otherwise. The returned close func releases the client.
func NewLeases(ctx context.Context, redisURL string) (lease.Manager, func() error, error) {
	if redisURL == "" {
		slog.InfoContext(ctx, "REDIS_URL not set, using in-process leases")
		return lease.NewMemory(), func() error { return nil }, nil
	}
	leases, client, err := lease.NewRedisFromURL(redisURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pingRedis(ctx, client); err != nil {
		client.Close()
		return nil, nil, err
	}
	slog.InfoContext(ctx, "Redis leases enabled")
	return leases, client.Close, nil
}

func pingRedis(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}
