package cmd

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
	"github.com/theleywin/prolinka/src/cache"
	"github.com/theleywin/prolinka/src/config"
	"github.com/theleywin/prolinka/src/controllers"
	"github.com/theleywin/prolinka/src/events"
	"github.com/theleywin/prolinka/src/lib"
	"github.com/theleywin/prolinka/src/middleware"
	"github.com/theleywin/prolinka/src/repository/memory"
	"github.com/theleywin/prolinka/src/repository/mongodb"
	"github.com/theleywin/prolinka/src/routes"
	"github.com/theleywin/prolinka/src/services"
	"github.com/theleywin/prolinka/src/storage"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context(), cfg, lib.GetLogger())
	},
}

// backends holds the adapters behind the service ports plus the functions
// that release them, run in reverse order on shutdown.
type backends struct {
	users       services.UserRepository
	directory   services.UserDirectory
	invalidator services.DisplayInfoInvalidator
	connections services.ConnectionRepository
	posts       services.PostRepository
	events      services.ConnectionEventPublisher
	closers     []func(context.Context)
}

func (b *backends) onClose(fn func(context.Context)) {
	b.closers = append(b.closers, fn)
}

func (b *backends) close(ctx context.Context) {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i](ctx)
	}
}

func openBackends(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backends, error) {
	b := &backends{events: events.Noop{}}

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		b.users = memory.NewUserRepository()
		b.connections = memory.NewConnectionRepository()
		b.posts = memory.NewPostRepository()
	default:
		client, err := lib.ConnectDB(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		b.onClose(func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn("Failed to disconnect from MongoDB", zap.Error(err))
			}
		})

		db := client.Database(cfg.Mongo.Database)
		if err := lib.EnsureIndexes(ctx, db, logger); err != nil {
			b.close(ctx)
			return nil, err
		}
		b.users = mongodb.NewUserRepository(db)
		b.connections = mongodb.NewConnectionRepository(db, cfg.Mongo.Transactions, logger)
		b.posts = mongodb.NewPostRepository(db, logger)
	}
	b.directory = b.users

	if cfg.Redis.Addr != "" {
		client, err := cache.Connect(ctx, cfg.Redis, logger)
		if err != nil {
			b.close(ctx)
			return nil, err
		}
		b.onClose(func(context.Context) {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close Redis client", zap.Error(err))
			}
		})
		displayCache := cache.NewDisplayCache(client, b.users, cfg.Redis.TTL, logger)
		b.directory = displayCache
		b.invalidator = displayCache
	}

	if cfg.Nats.URL != "" {
		nc, err := events.Connect(cfg.Nats.URL, logger)
		if err != nil {
			b.close(ctx)
			return nil, err
		}
		b.onClose(func(context.Context) {
			if err := nc.Drain(); err != nil {
				logger.Warn("Failed to drain NATS connection", zap.Error(err))
			}
		})
		b.events = events.NewNatsPublisher(nc, cfg.Nats.SubjectPrefix, logger)
	}

	return b, nil
}

// newApp builds the fiber app with every route mounted.
func newApp(cfg *config.Config, b *backends, media services.MediaStore, logger *zap.Logger) *fiber.App {
	issuer := lib.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	userService := services.NewUserService(b.users, issuer, media, b.invalidator, logger)
	connectionService := services.NewConnectionService(b.connections, b.directory, b.events, logger,
		services.WithAutoAcceptCrossed(cfg.Connections.AutoAcceptCrossed),
	)
	postService := services.NewPostService(b.posts, b.directory, media, logger)

	app := fiber.New(fiber.Config{
		AppName:               "prolinka",
		ErrorHandler:          controllers.ErrorHandler,
		BodyLimit:             cfg.Server.BodyLimit,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(logger))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Static(cfg.Media.URLPrefix, cfg.Media.Dir)

	routes.Register(app, routes.Handlers{
		Auth:        controllers.NewAuthController(userService),
		Users:       controllers.NewUserController(userService),
		Connections: controllers.NewConnectionController(connectionService),
		Posts:       controllers.NewPostController(postService),
	}, issuer)

	return app
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	shutdownTracer, err := lib.InitTracer(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracer(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to shut down tracer", zap.Error(err))
		}
	}()

	b, err := openBackends(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.close(context.WithoutCancel(ctx))

	media, err := storage.NewLocalStore(cfg.Media, logger)
	if err != nil {
		return err
	}

	app := newApp(cfg, b, media, logger)

	listenErr := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		logger.Info("Server is running", zap.String("addr", addr), zap.String("backend", cfg.Storage.Backend))
		listenErr <- app.Listen(addr)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
		logger.Warn("Server shutdown incomplete", zap.Error(err))
	}
	logger.Info("Server exited")
	return nil
}
