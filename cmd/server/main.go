package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"

	"github.com/ignite/leadflow/internal/api"
	"github.com/ignite/leadflow/internal/config"
	"github.com/ignite/leadflow/internal/delivery"
	"github.com/ignite/leadflow/internal/domain"
	"github.com/ignite/leadflow/internal/notify"
	"github.com/ignite/leadflow/internal/pkg/httpretry"
	"github.com/ignite/leadflow/internal/pkg/logger"
	"github.com/ignite/leadflow/internal/pkg/tracing"
	"github.com/ignite/leadflow/internal/repository/postgres"
	redisrepo "github.com/ignite/leadflow/internal/repository/redis"
	"github.com/ignite/leadflow/internal/service/analysis"
	"github.com/ignite/leadflow/internal/service/campaign"
	"github.com/ignite/leadflow/internal/service/dossier"
	"github.com/ignite/leadflow/internal/service/handover"
	"github.com/ignite/leadflow/internal/service/sending"
	"github.com/ignite/leadflow/internal/service/watchdog"
	"github.com/ignite/leadflow/internal/worker"
)

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactPII(!cfg.Logging.DisableRedaction)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing.Endpoint, cfg.Tracing.ServiceName)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Connected to PostgreSQL at %s", extractHost(cfg.Database.URL))

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = openRedis(ctx, cfg.Redis)
		if err != nil {
			log.Printf("WARNING: Redis unavailable (%v); continuing without it", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Printf("Connected to Redis at %s", cfg.Redis.Addr)
		}
	}

	campaigns := postgres.NewCampaignRepo(db)
	leads := postgres.NewLeadRepo(db)
	enrollments := postgres.NewEnrollmentRepo(db)
	conversations := postgres.NewConversationRepo(db)
	communications := postgres.NewCommunicationRepo(db)
	emailLog := postgres.NewEmailLog(db)

	emailSender, err := newEmailSender(ctx, cfg.SES)
	if err != nil {
		log.Fatalf("Failed to set up SES: %v", err)
	}
	senders := sending.ChannelSenders{
		domain.ChannelEmail: emailSender,
		domain.ChannelSMS:   delivery.NewLogSender(),
	}

	notifier, closeNotifier, err := newNotifier(cfg, emailSender)
	if err != nil {
		log.Fatalf("Failed to set up notifications: %v", err)
	}
	defer closeNotifier()

	wd, err := newWatchdog(cfg, redisClient, emailLog, notifier)
	if err != nil {
		log.Fatalf("Failed to set up watchdog: %v", err)
	}

	analyzer := analysis.NewKeywordAnalyzer()
	generator := dossier.NewGenerator(dossier.Sources{
		Leads:          leads,
		Conversations:  conversations,
		Communications: communications,
		Channels:       communications,
	}, analyzer)

	handoverSvc := handover.NewService(handover.Deps{
		Conversations:  conversations,
		Campaigns:      campaigns,
		Communications: communications,
		Dossiers:       generator,
		Analyzer:       analyzer,
		Notifier:       notifier,
	}, cfg.Handover.Criteria())

	executor := campaign.NewExecutor(campaigns, enrollments, senders, wd,
		campaign.WithBatchSize(cfg.Executor.BatchSize),
		campaign.WithBatchDelay(cfg.Executor.BatchDelay()),
	)

	var pruner worker.LogPruner
	if cfg.Watchdog.CounterBackend == "postgres" {
		pruner = emailLog
	}
	sweeper := worker.NewSweeper(executor, wd, pruner, worker.SweeperConfig{
		Interval:           cfg.Executor.CleanupInterval(),
		ExecutionRetention: cfg.Executor.Retention(),
		HoldRetention:      cfg.Watchdog.HoldRetention(),
	})
	go sweeper.Start(ctx)

	server := api.NewServer(cfg.Server, api.Deps{
		Campaigns: executor,
		Handover:  handoverSvc,
		Watchdog:  wd,
		Email:     emailSender,
		Health:    api.NewHealthChecker(db, redisClient),
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized, server is ready")

	<-done
	log.Println("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	for _, exec := range executor.GetRunningCampaigns() {
		if err := executor.Wait(shutdownCtx, exec.CampaignID); err != nil {
			log.Printf("Campaign %s did not finish before shutdown: %v", exec.CampaignID, err)
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

func openDatabase(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func newEmailSender(ctx context.Context, cfg config.SESConfig) (sending.Sender, error) {
	if !cfg.Enabled {
		log.Println("SES disabled; outbound email is written to the log")
		return delivery.NewLogSender(), nil
	}
	s, err := delivery.NewSESSender(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Printf("SES sender initialized (region=%s)", cfg.Region)
	return s, nil
}

// newNotifier fans notifications out to email, then Slack and Kafka when
// configured. The returned func releases the Kafka writer.
func newNotifier(cfg *config.Config, email sending.Sender) (sending.Notifier, func(), error) {
	fromEmail := cfg.SES.FromEmail
	if fromEmail == "" {
		fromEmail = "noreply@leadflow.local"
	}
	fanout := notify.Fanout{notify.NewEmailNotifier(email, fromEmail, cfg.SES.FromName)}
	closeFn := func() {}

	if cfg.Slack.WebhookURL != "" {
		client := httpretry.NewRetryClient(&http.Client{Timeout: 10 * time.Second}, cfg.Slack.MaxRetries)
		fanout = append(fanout, notify.NewSlackNotifier(client, cfg.Slack.WebhookURL))
		log.Println("Slack notifications enabled")
	}

	if cfg.Kafka.Enabled {
		pub, err := notify.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, nil, err
		}
		fanout = append(fanout, pub)
		closeFn = func() {
			if err := pub.Close(); err != nil {
				log.Printf("Kafka publisher close error: %v", err)
			}
		}
		log.Printf("Kafka events enabled (topic=%s)", cfg.Kafka.Topic)
	}
	return fanout, closeFn, nil
}

func newWatchdog(cfg *config.Config, rdb *redis.Client, emailLog *postgres.EmailLog, notifier sending.Notifier) (*watchdog.Watchdog, error) {
	var counter watchdog.VolumeCounter
	switch cfg.Watchdog.CounterBackend {
	case "redis":
		if rdb == nil {
			return nil, errors.New("counter backend redis requires REDIS_ADDR")
		}
		counter = redisrepo.NewVolumeCounter(rdb, redisrepo.DefaultKey, 24*time.Hour)
	case "postgres":
		counter = emailLog
	case "memory", "":
		counter = watchdog.NewMemoryCounter(24 * time.Hour)
	default:
		return nil, fmt.Errorf("unknown counter backend %q", cfg.Watchdog.CounterBackend)
	}
	log.Printf("Watchdog volume counter: %s", cfg.Watchdog.CounterBackend)

	loc, err := time.LoadLocation(cfg.Watchdog.Timezone)
	if err != nil {
		return nil, fmt.Errorf("watchdog timezone: %w", err)
	}

	opts := []watchdog.Option{
		watchdog.WithLocation(loc),
		watchdog.WithAdminNotifier(notifier, cfg.Notify.AdminRecipients),
	}
	if cfg.Watchdog.DisableDefaultRules {
		opts = append(opts, watchdog.WithRules())
	}
	return watchdog.New(counter, opts...)
}
