package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rgeorgiev/taskchat-api/internal/config"
	"github.com/rgeorgiev/taskchat-api/internal/events"
	"github.com/rgeorgiev/taskchat-api/internal/platform/postgres"
	"github.com/rgeorgiev/taskchat-api/internal/service/access"
	"github.com/rgeorgiev/taskchat-api/internal/service/auth"
	"github.com/rgeorgiev/taskchat-api/internal/service/chat"
	"github.com/rgeorgiev/taskchat-api/internal/service/notify"
	"github.com/rgeorgiev/taskchat-api/internal/task"
	"github.com/rgeorgiev/taskchat-api/internal/ws"
)

// application holds the assembled dependency graph. Construction order
// matters: stores first, then services, then transports.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	accessService access.Service
	tokenVerifier auth.TokenVerifier
	chatService   chat.Service
	notifyService *notify.Service

	taskQueue  *task.TaskQueue
	workerPool *task.WorkerPool

	hub     *ws.Hub
	emitter *events.InMemoryEmitter

	router http.Handler
}

// newApplication wires every component of the chat backend together.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	messageStore := postgres.NewPostgresMessageStore(db, logger)
	membershipStore := postgres.NewPostgresMembershipStore(db, logger)
	notificationStore := postgres.NewPostgresNotificationStore(db, logger)

	app.accessService = access.NewService(membershipStore, logger)

	verifier, err := auth.NewTokenVerifier(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}
	app.tokenVerifier = verifier

	app.taskQueue = task.NewTaskQueue(cfg.Chat.FanoutQueueSize, logger)
	app.workerPool = task.NewWorkerPool(app.taskQueue, task.WorkerPoolConfig{
		WorkerCount: cfg.Chat.FanoutWorkers,
	}, logger)

	app.hub = ws.NewHub(app.accessService, logger)

	app.notifyService = notify.NewService(notify.Config{
		Memberships:   membershipStore,
		Notifications: notificationStore,
		Queue:         app.taskQueue,
		Pusher:        app.hub,
		Logger:        logger,
	})

	app.chatService = chat.NewService(chat.Config{
		Messages:        messageStore,
		Access:          app.accessService,
		Broadcaster:     app.hub,
		Notifier:        app.notifyService,
		DefaultPageSize: cfg.Chat.HistoryPageSize,
		Logger:          logger,
	})

	// Collaborator modules (task CRUD, team management) publish
	// task_updated and member_changed through this emitter.
	app.emitter = events.NewInMemoryEmitter(logger)
	app.emitter.RegisterHandler(app.hub)

	app.router = app.setupRouter()
	return app, nil
}

// run starts the background workers and the HTTP server, blocking until
// shutdown completes.
func (app *application) run() error {
	app.workerPool.Start()
	return app.startHTTPServer(app.router)
}

// cleanup stops the background machinery. The queue closes first so
// workers drain instead of racing new submissions.
func (app *application) cleanup() {
	app.taskQueue.Close()
	app.workerPool.Stop()
}

// writeTimeout returns the configured per-write websocket bound.
func (app *application) writeTimeout() time.Duration {
	return time.Duration(app.config.Chat.WriteTimeoutSeconds) * time.Second
}
