package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/eduquest/user-service/config"
	"github.com/eduquest/user-service/internal/application"
	gcsinfra "github.com/eduquest/user-service/internal/infrastructure/gcs"
	pginfra "github.com/eduquest/user-service/internal/infrastructure/postgres"
	"github.com/eduquest/user-service/internal/interface/messaging"
	"github.com/eduquest/user-service/pkg/helpers"
	"github.com/eduquest/user-service/pkg/ticket"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres pool
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()

	// Run migrations using database/sql with pgx stdlib
	if err := runMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil && !errors.Is(migrate.ErrNoChange, err) {
		log.Fatalf("migration failed: %v", err)
	}

	// Redis
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()

	// GCS: only wired when a bucket is configured
	var objects application.ObjectStore
	if cfg.GCSBucket != "" {
		var gcsClient *storage.Client
		gcsClient, err = gcsinfra.NewClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			log.Fatalf("failed to init GCS client: %v", err)
		}
		defer func() { _ = gcsClient.Close() }()
		objects = gcsinfra.NewObjectStore(gcsClient, cfg.GCSBucket)
	} else {
		logger.Warn("GCS_BUCKET not set, avatar uploads disabled")
	}

	// Elasticsearch: empty address list disables indexing
	var es *elasticsearch.Client
	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err = helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			log.Fatalf("failed to init Elasticsearch client: %v", err)
		}
	}

	// JWT
	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	// Signed tickets for activation and password reset
	tickets := ticket.NewCodec(cfg.TicketSecret, cfg.ActivationTTL, cfg.ResetTTL)

	// Email jobs go out through the email queue
	emailPub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer emailPub.Close()
	notifier := messaging.NewEmailNotifier(emailPub)

	repo := pginfra.NewUserRepository(pool, cfg.CourseListDedupe)
	svc := application.NewService(repo, tickets, jwtManager, objects, notifier, rdb, es, cfg.ESUsersIndex, logger, cfg.AvatarKeyPrefix)

	dispatcher := messaging.NewDispatcher(svc, logger, cfg.HandlerTimeout)
	consumer := messaging.NewConsumer(cfg.RabbitMQURL, cfg.RabbitMQUserQueue, cfg.ConsumerPrefetch, cfg.WorkerConcurrency, dispatcher, logger)

	logger.Infof("user service starting, queue=%s", cfg.RabbitMQUserQueue)
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("consumer stopped: %v", err)
	}
	logger.Info("service exited properly")
}

func runMigrations(dsn string, migrationsDir string, logger *logrus.Logger) error {
	// Open sql DB via pgx stdlib
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance(fmt.Sprintf("file://%s", migrationsDir), "postgres", driver)
	if err != nil {
		return err
	}
	logger.Info("running migrations...")
	err = m.Up()
	if errors.Is(migrate.ErrNoChange, err) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}
