// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"media-courier-bot/internal/application"
	"media-courier-bot/internal/config"
	"media-courier-bot/internal/conversation"
	"media-courier-bot/internal/dispatch"
	"media-courier-bot/internal/domain/ports/adapter"
	"media-courier-bot/internal/domain/ports/repository"
	"media-courier-bot/internal/infra/adapters/anime3rb"
	"media-courier-bot/internal/infra/adapters/media"
	"media-courier-bot/internal/infra/adapters/pinterest"
	tele "media-courier-bot/internal/infra/adapters/telegram"
	"media-courier-bot/internal/infra/adapters/ytdlp"
	"media-courier-bot/internal/infra/api"
	pg "media-courier-bot/internal/infra/db/postgres"
	"media-courier-bot/internal/infra/i18n"
	"media-courier-bot/internal/infra/logging"
	"media-courier-bot/internal/infra/memstore"
	"media-courier-bot/internal/infra/metrics"
	red "media-courier-bot/internal/infra/redis"
	"media-courier-bot/internal/infra/sched"
	"media-courier-bot/internal/infra/storage"
	"media-courier-bot/internal/infra/worker"
	"media-courier-bot/internal/jobs"
	"media-courier-bot/internal/progress"
	"media-courier-bot/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

// poller is implemented by both telegram adapters.
type poller interface {
	adapter.Transport
	StartPolling(ctx context.Context, handle tele.Handler) error
}

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted secrets)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("bot stopped with error")
	}
	logger.Info().Msg("bot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) error {
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().Str("version", version).Str("mode", cfg.Bot.Mode).Bool("dev", cfg.Runtime.Dev).Msg("starting media courier bot")

	// ---- Redis (optional) ----
	var (
		redisClient *red.Client
		limiter     application.RateLimiter
		locker      usecase.Locker
		chats       repository.ChatRegistry = memstore.NewChatRegistry()
		stateStore  repository.StateRepository
	)
	if cfg.Redis.Enabled {
		c, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer c.Close()
		redisClient = c
		limiter = red.NewRateLimiter(c)
		locker = red.NewLocker(c)
		chats = red.NewChatRegistry(c)
		logger.Info().Str("url", logging.Redact(cfg.Redis.URL, cfg.Runtime.Dev)).Msg("redis connected")
	}
	switch cfg.State.Backend {
	case "redis":
		stateStore = red.NewStateRepo(redisClient, cfg.State.TTL)
	default:
		stateStore = conversation.NewMemoryStore(cfg.State.TTL)
	}

	// ---- Postgres (optional) ----
	var history repository.HistoryRepository = memstore.NewHistoryRepo(200)
	if cfg.Database.URL != "" {
		pool, err := pg.NewPgxPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		repo, err := newHistory(ctx, pool)
		if err != nil {
			return err
		}
		history = repo
		logger.Info().Msg("download history stored in postgres")
	}

	// ---- Telegram ----
	var bot poller
	if strings.EqualFold(cfg.Bot.Mode, "noop") {
		bot = tele.NewNoopBotAdapter(logger)
	} else {
		b, err := tele.NewRealTelegramBotAdapter(&cfg.Bot, logger)
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		bot = b
	}

	// ---- Storage ----
	files, err := storage.NewLocalFileStore(cfg.Download.OutputDir, logger)
	if err != nil {
		return err
	}
	cookies := storage.NewCookieFile(cfg.Download.CookiesPath)

	// ---- Search and download adapters ----
	ytc := ytdlp.NewClient(ytdlp.Config{Binary: cfg.Download.Binary, Retries: cfg.Download.Retries}, logger)
	if !ytc.Available() {
		logger.Warn().Str("binary", cfg.Download.Binary).Msg("downloader not found on PATH; downloads and searches will fail")
	}
	catalog, err := anime3rb.NewCatalog(anime3rb.Config{BaseURL: cfg.Search.AnimeBaseURL, UserAgent: cfg.Search.UserAgent, RequestRate: 2}, logger)
	if err != nil {
		return err
	}
	var images adapter.ImageSearcher
	if cfg.Search.ImageCommand != "" {
		s, err := pinterest.NewSearcher(cfg.Search.ImageCommand, 0, logger)
		if err != nil {
			return err
		}
		images = s
	}

	// ---- Jobs ----
	registry := jobs.NewRegistry()
	reporters := func(conv int64) jobs.Reporter {
		return progress.NewReporter(bot, conv,
			progress.WithInterval(cfg.Progress.Interval),
			progress.WithReplaceDelay(cfg.Progress.ReplaceDelay),
			progress.WithLogger(logger))
	}
	// One ceiling for in-flight downloads, batch sends and broadcasts.
	throttle := worker.NewThrottle("shared", cfg.Throttle.MaxConcurrency)
	supervisor := jobs.NewSupervisor(ytc, registry, reporters, jobs.SupervisorConfig{
		WorkDir:   cfg.Download.WorkDir,
		OutputDir: files.Dir(),
		Interval:  cfg.Progress.Interval,
		Throttle:  throttle,
	}, logger)
	pool := worker.NewPool(cfg.Download.JobWorkers, cfg.Download.QueueSize, logger)

	dispatcher := dispatch.NewDispatcher(bot, throttle, dispatch.Config{
		PrepareConcurrency: cfg.Throttle.PrepareConcurrency,
		SendDelay:          cfg.Throttle.SendDelay,
	}, logger)
	broadcast := usecase.NewBroadcastUseCase(chats, bot, throttle, cfg.Throttle.ChunkSize, locker, logger)

	translator, err := i18n.NewTranslator(i18n.LocalesFS, "en")
	if err != nil {
		return fmt.Errorf("i18n: %w", err)
	}

	facade, err := application.NewBotFacade(application.Deps{
		Transport:  bot,
		States:     conversation.NewMachine(stateStore, logger),
		Supervisor: supervisor,
		Registry:   registry,
		Dispatcher: dispatcher,
		Pool:       pool,
		Videos:     ytc,
		Channels:   ytc,
		Music:      ytc,
		Images:     images,
		Anime:      catalog,
		Media:      media.NewHTTPGetter(cfg.Search.UserAgent, 0, 0),
		Files:      files,
		Cookies:    cookies,
		History:    history,
		Chats:      chats,
		Broadcast:  broadcast,
		Limiter:    limiter,
		Translator: translator,
	}, application.Options{
		AdminIDs:      cfg.Bot.AdminIDs,
		VideoLimit:    cfg.Search.VideoLimit,
		ChannelLimit:  cfg.Search.ChannelLimit,
		MusicLimit:    cfg.Search.MusicLimit,
		ImageDefault:  cfg.Search.ImageDefault,
		CommandLimit:  cfg.Bot.CommandLimit,
		CommandWindow: cfg.Bot.CommandWindow,
	}, logger)
	if err != nil {
		return fmt.Errorf("bot facade: %w", err)
	}

	// ---- Run ----
	g, gctx := errgroup.WithContext(ctx)
	pool.Start(gctx)
	defer pool.Stop()

	sweeper := sched.NewProgressSweeper(cfg.Progress.SweepInterval, registry, progress.NewSideChannel(cfg.Progress.SideChannel), logger)
	g.Go(func() error { return sweeper.Run(gctx) })
	janitor := sched.NewWorkdirJanitor(cfg.Download.JanitorInterval, cfg.Download.StaleAfter, cfg.Download.WorkDir, registry, logger)
	g.Go(func() error { return janitor.Run(gctx) })
	g.Go(func() error { return bot.StartPolling(gctx, facade.HandleMessage) })

	if cfg.Admin.Port > 0 {
		auth := api.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.APIKey, cfg.Admin.TokenTTL)
		srv := api.NewServer(registry, history, auth, logger)
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Admin.Port) })
	}

	logger.Info().Int("workers", cfg.Bot.Workers).Int("job_workers", cfg.Download.JobWorkers).Msg("bot is running")
	return g.Wait()
}

func newHistory(ctx context.Context, pool *pgxpool.Pool) (repository.HistoryRepository, error) {
	repo := pg.NewHistoryRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}
