// Package daemon wires the carebot components together and runs them as a
// long-lived process: the shared scheduler, daily triggers, escalation loops,
// the Telegram poller, durable storage, the optional NATS relay and the local
// admin endpoint.
package daemon

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/config"
	"github.com/lumehealth/carebot/internal/confirm"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/escalation"
	"github.com/lumehealth/carebot/internal/logfields"
	"github.com/lumehealth/carebot/internal/message"
	"github.com/lumehealth/carebot/internal/metrics"
	"github.com/lumehealth/carebot/internal/notify"
	"github.com/lumehealth/carebot/internal/registry"
	"github.com/lumehealth/carebot/internal/relay"
	"github.com/lumehealth/carebot/internal/retry"
	"github.com/lumehealth/carebot/internal/storage"
	"github.com/lumehealth/carebot/internal/telegram"
	"github.com/lumehealth/carebot/internal/trigger"
	"github.com/lumehealth/carebot/internal/version"
)

// Status represents the current daemon lifecycle state.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusError    Status = "error"
)

const (
	// statusLogInterval paces the periodic heartbeat line in the main loop.
	statusLogInterval = 1 * time.Minute

	// startupCheckTimeout bounds the getMe call that validates the bot token.
	startupCheckTimeout = 10 * time.Second
)

// Daemon owns every long-lived component of the bot. Components are
// constructed in New and brought up in dependency order by Start; Stop tears
// them down in reverse.
type Daemon struct {
	mu         sync.RWMutex
	cfg        *config.Config
	configPath string
	slotTimes  map[care.Slot]care.ClockTime

	logger    *slog.Logger
	status    atomic.Value // Status
	startTime time.Time
	stopChan  chan struct{}

	loc         *time.Location
	nagInterval time.Duration
	retryPolicy retry.Policy

	recorder     metrics.Recorder
	promRegistry *prom.Registry
	catalog      *message.Catalog

	store    storage.Store
	relay    *relay.Client
	registry *registry.Registry

	scheduler  gocron.Scheduler
	triggers   *trigger.Scheduler
	escalation *escalation.Manager
	confirmer  *confirm.Handler

	client    *telegram.Client
	transport callbackTransport
	notifier  notify.Notifier
	poller    *telegram.Poller

	pollCancel context.CancelFunc
	pollDone   chan struct{}

	admin   *adminServer
	watcher *configWatcher
}

// callbackTransport is the slice of the Telegram client the update router
// needs beyond plain message delivery.
type callbackTransport interface {
	AnswerCallbackQuery(ctx context.Context, req telegram.AnswerCallbackQueryRequest) error
	EditMessageText(ctx context.Context, req telegram.EditMessageTextRequest) error
}

// New creates a daemon from a validated configuration. Everything derivable
// from the config is resolved here so a bad schedule fails before any
// component starts; I/O-bearing components come up in Start.
func New(cfg *config.Config, configPath string, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.DaemonError("configuration is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "resolve timezone")
	}
	slotTimes, err := cfg.Schedule.SlotTimes()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "parse slot times")
	}
	nagInterval, err := cfg.Schedule.NagEvery()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "parse nag interval")
	}
	retryPolicy, err := cfg.Telegram.RetryPolicy()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal, "parse retry policy")
	}

	d := &Daemon{
		cfg:         cfg,
		configPath:  configPath,
		slotTimes:   slotTimes,
		logger:      logger,
		stopChan:    make(chan struct{}),
		loc:         loc,
		nagInterval: nagInterval,
		retryPolicy: retryPolicy,
		recorder:    metrics.NoopRecorder{},
		catalog:     message.NewCatalog(),
	}
	d.catalog.SetRecipientName(cfg.Recipient.Name)
	d.status.Store(StatusStopped)

	if cfg.Admin.Metrics.Enabled {
		d.promRegistry = prom.NewRegistry()
		d.recorder = metrics.NewPrometheusRecorder(d.promRegistry)
	}

	return d, nil
}

// GetStatus returns the current daemon status.
func (d *Daemon) GetStatus() Status {
	if s, ok := d.status.Load().(Status); ok {
		return s
	}
	return StatusStopped
}

func (d *Daemon) setStatus(s Status) {
	d.status.Store(s)
}

// Uptime reports how long the daemon has been running, zero when stopped.
func (d *Daemon) Uptime() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}

// Start brings every component up in dependency order and then blocks in the
// main loop until the context is cancelled or Stop is called. A failure
// during bring-up tears down whatever already started and leaves the daemon
// in the error state.
func (d *Daemon) Start(ctx context.Context) error {
	if d.GetStatus() != StatusStopped {
		return errors.DaemonError("daemon already running")
	}
	d.setStatus(StatusStarting)
	d.mu.Lock()
	d.startTime = time.Now()
	d.mu.Unlock()

	d.logger.Info("starting carebot daemon",
		slog.String("version", version.Version),
		slog.String("timezone", d.loc.String()),
		slog.Duration("nag_interval", d.nagInterval))

	if err := d.bringUp(ctx); err != nil {
		d.setStatus(StatusError)
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		d.teardown(cleanupCtx)
		cancel()
		return err
	}

	d.setStatus(StatusRunning)
	d.logger.Info("carebot daemon started")

	return d.mainLoop(ctx)
}

// bringUp starts components in dependency order: storage and relay first,
// then identity, timers, transport, and finally the edges that talk to the
// outside world.
func (d *Daemon) bringUp(ctx context.Context) error {
	store, err := storage.NewSQLiteStore(d.cfg.Storage.DatabasePath)
	if err != nil {
		return err
	}
	d.store = store

	// The relay mirrors events elsewhere; reminders must not depend on it.
	if d.cfg.Relay != nil && d.cfg.Relay.Enabled {
		rc, err := relay.Connect(d.cfg.Relay, d.logger)
		if err != nil {
			d.logger.Error("relay unavailable, continuing without it", logfields.Error(err))
		} else {
			d.relay = rc
		}
	}

	sources := []registry.OverrideSource{registry.EnvSource{Var: registry.DefaultEnvVar}}
	if d.relay != nil {
		if kv := d.relay.OverrideSource(); kv != nil {
			sources = append(sources, kv)
		}
	}
	sources = append(sources, storage.NewRecipientSource(d.store))
	d.registry = registry.New(d.logger, sources...)

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(d.loc))
	if err != nil {
		return errors.SchedulerError("create scheduler", err)
	}
	d.scheduler = scheduler

	d.triggers = trigger.NewScheduler(scheduler, d.loc, d.logger)
	d.triggers.SetFireFunc(d.onTrigger)
	d.triggers.SetRecorder(d.recorder)

	d.escalation = escalation.NewManager(scheduler, d.nagInterval, d.logger)
	d.escalation.SetNagFunc(d.onNag)
	d.escalation.SetResolver(d.registry)
	d.escalation.SetRecorder(d.recorder)

	d.confirmer = confirm.NewHandler(d.registry, d.escalation, d.logger)
	d.confirmer.SetRecorder(d.recorder)

	d.client = telegram.NewClient(d.cfg.Telegram.Token, d.cfg.Telegram.APIBase, nil)
	d.client.SetRecorder(d.recorder)
	d.transport = d.client
	notifier := telegram.NewNotifier(d.client, d.logger)
	notifier.SetRetryPolicy(d.retryPolicy)
	d.notifier = notifier

	if err := d.checkBotIdentity(ctx); err != nil {
		return err
	}

	if err := d.triggers.ScheduleAll(d.currentSlotTimes()); err != nil {
		return err
	}
	scheduler.Start()

	d.poller = telegram.NewPoller(d.client, d.cfg.Telegram.PollTimeout, d.logger)
	d.poller.SetHandler(d.handleUpdate)
	pollCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.pollCancel = cancel
	d.pollDone = make(chan struct{})
	go func() {
		defer close(d.pollDone)
		if err := d.poller.Run(pollCtx); err != nil {
			d.logger.Error("update poller exited", logfields.Error(err))
		}
	}()

	if d.cfg.Admin.Listen != "" {
		d.admin = newAdminServer(d.cfg.Admin, d, d.promRegistry, d.logger)
		if err := d.admin.Start(); err != nil {
			return err
		}
	}

	if d.configPath != "" {
		watcher, err := newConfigWatcher(d, d.configPath, d.logger)
		if err != nil {
			d.logger.Error("config watcher unavailable, reload disabled", logfields.Error(err))
		} else {
			d.watcher = watcher
			d.watcher.Start()
		}
	}

	return nil
}

// checkBotIdentity validates the token against the Bot API. A transport
// failure is tolerated since the poller retries, but a rejected token means
// the bot can never deliver anything.
func (d *Daemon) checkBotIdentity(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, startupCheckTimeout)
	defer cancel()

	me, err := d.client.GetMe(checkCtx)
	if err != nil {
		if errors.IsRetryable(err) {
			d.logger.Warn("bot identity check failed, will retry via poller", logfields.Error(err))
			return nil
		}
		return err
	}
	d.logger.Info("bot identity verified",
		slog.String("username", me.Username),
		slog.Int64("bot_id", me.ID))
	return nil
}

// Stop shuts the daemon down gracefully, tearing components down in reverse
// bring-up order.
func (d *Daemon) Stop(ctx context.Context) error {
	if d.GetStatus() != StatusRunning {
		return errors.DaemonError("daemon is not running")
	}
	d.setStatus(StatusStopping)
	d.logger.Info("stopping carebot daemon")

	select {
	case <-d.stopChan:
	default:
		close(d.stopChan)
	}

	d.teardown(ctx)

	d.setStatus(StatusStopped)
	d.logger.Info("carebot daemon stopped", slog.Duration("uptime", d.Uptime()))
	return nil
}

// teardown releases whatever bringUp managed to start. Safe to call after a
// partial bring-up; every component is nil-checked.
func (d *Daemon) teardown(ctx context.Context) {
	if d.watcher != nil {
		d.watcher.Stop()
		d.watcher = nil
	}

	if d.admin != nil {
		if err := d.admin.Stop(ctx); err != nil {
			d.logger.Warn("admin server shutdown failed", logfields.Error(err))
		}
		d.admin = nil
	}

	if d.pollCancel != nil {
		d.pollCancel()
		select {
		case <-d.pollDone:
		case <-ctx.Done():
			d.logger.Warn("poller did not stop before deadline")
		}
		d.pollCancel = nil
	}

	if d.scheduler != nil {
		if err := d.scheduler.Shutdown(); err != nil {
			d.logger.Warn("scheduler shutdown failed", logfields.Error(err))
		}
		d.scheduler = nil
	}

	if d.relay != nil {
		d.relay.Close()
		d.relay = nil
	}

	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("storage close failed", logfields.Error(err))
		}
		d.store = nil
	}
}

// mainLoop blocks until shutdown, emitting a periodic heartbeat.
func (d *Daemon) mainLoop(ctx context.Context) error {
	ticker := time.NewTicker(statusLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon context cancelled")
			return nil
		case <-d.stopChan:
			return nil
		case <-ticker.C:
			d.logHeartbeat()
		}
	}
}

func (d *Daemon) logHeartbeat() {
	d.logger.Debug("daemon heartbeat",
		slog.String("status", string(d.GetStatus())),
		slog.Duration("uptime", d.Uptime()),
		slog.Int("active_escalations", d.escalation.ActiveCount()))
}

// currentSlotTimes returns the slot schedule as of the latest config.
func (d *Daemon) currentSlotTimes() map[care.Slot]care.ClockTime {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slotTimes
}

// applyConfig applies a reloaded configuration to the running daemon. Trigger
// times and the nag cadence take effect immediately; changes that would need
// a component restart are logged and deferred.
func (d *Daemon) applyConfig(newCfg *config.Config) error {
	slotTimes, err := newCfg.Schedule.SlotTimes()
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityWarning, "parse slot times")
	}
	nagInterval, err := newCfg.Schedule.NagEvery()
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityWarning, "parse nag interval")
	}
	retryPolicy, err := newCfg.Telegram.RetryPolicy()
	if err != nil {
		return errors.Wrap(err, errors.CategoryConfig, errors.SeverityWarning, "parse retry policy")
	}

	d.mu.Lock()
	old := d.cfg
	d.cfg = newCfg
	d.slotTimes = slotTimes
	d.nagInterval = nagInterval
	d.retryPolicy = retryPolicy
	d.mu.Unlock()

	if old.Schedule.Timezone != newCfg.Schedule.Timezone {
		d.logger.Warn("timezone change requires a restart to take effect")
	}
	if old.Telegram.Token != newCfg.Telegram.Token {
		d.logger.Warn("telegram token change requires a restart to take effect")
	}
	if old.Admin.Listen != newCfg.Admin.Listen {
		d.logger.Warn("admin listen address change requires a restart to take effect")
	}

	if err := d.triggers.ScheduleAll(slotTimes); err != nil {
		return err
	}
	d.escalation.SetInterval(nagInterval)
	d.catalog.SetRecipientName(newCfg.Recipient.Name)
	if n, ok := d.notifier.(*telegram.Notifier); ok {
		n.SetRetryPolicy(retryPolicy)
	}

	d.logger.Info("configuration reloaded",
		slog.Duration("nag_interval", nagInterval))
	return nil
}
