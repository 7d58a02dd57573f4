package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"clicker-quiz-service/internal/app"
	"clicker-quiz-service/internal/config"
	"clicker-quiz-service/internal/infra/memory"
	"clicker-quiz-service/internal/infra/postgres"
	"clicker-quiz-service/internal/infra/redis"
	"clicker-quiz-service/internal/pkg/logger"
	transport "clicker-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Server.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	// Without a configured Redis an embedded instance backs the fast state.
	// That keeps single-node development working but loses cross-instance
	// broadcast, so it is never the production setup.
	redisAddr := cfg.Redis.Addr
	if redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return err
		}
		defer mr.Close()
		redisAddr = mr.Addr()
		log.Warn("no redis configured, using embedded in-process instance", "addr", redisAddr)
	}
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     redisAddr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	live := redis.NewLiveStore(redisClient, log)
	bus := redis.NewBus(redisClient, log)

	var stores app.Stores
	if cfg.Postgres.URL != "" {
		db := postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
		if err := runMigrations(ctx, db, log); err != nil {
			return err
		}

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		stores = app.Stores{
			Quizzes:      postgres.NewQuizRepo(db),
			Questions:    postgres.NewQuestionRepo(db),
			Answers:      postgres.NewAnswerRepo(pool),
			Participants: postgres.NewParticipantRepo(db),
		}
	} else {
		log.Warn("no postgres configured, quiz data will not survive restarts")
		mem := memory.NewStore()
		stores = app.Stores{
			Quizzes:      mem.Quizzes(),
			Questions:    mem.Questions(),
			Answers:      mem.Answers(),
			Participants: mem.Participants(),
		}
	}

	service := app.New(stores, live, bus, log,
		app.WithSnapshotTTL(config.TTLDuration(cfg.Quiz.SnapshotTTL, 0)),
		app.WithLeaderboardLimit(cfg.LeaderboardLimit()),
	)

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()

	hub := transport.NewHub(log)
	if err := hub.StartForwarding(hubCtx, bus); err != nil {
		return err
	}

	router := transport.NewRouter(
		transport.NewAPIHandler(service, log),
		transport.NewWSHandler(service, hub, log),
	)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting clicker quiz service", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
