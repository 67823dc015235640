// Package app assembles the TaskFlow components from configuration.
package app

import (
	"fmt"
	"log"

	"taskflow/internal/config"
	"taskflow/internal/database"
	"taskflow/internal/memstore"
	"taskflow/internal/reminder"
	"taskflow/internal/sms"
	"taskflow/internal/task"
	"taskflow/internal/user"
)

// App holds the wired service components.
type App struct {
	Config    *config.Config
	DB        *database.DB // nil for the in-memory store
	Users     *user.Manager
	Tasks     *task.Manager
	Sender    sms.Sender
	Reminders *reminder.Job
}

// Options controls start-up side effects.
type Options struct {
	// Migrate runs pending migrations after connecting.
	Migrate bool
}

// New connects the configured store and builds every manager.
func New(cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	var (
		userStore user.Store
		taskStore task.Store
	)
	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Println("using in-memory store; data is lost on restart")
		userStore = memstore.NewUsers(nil)
		taskStore = memstore.NewTasks(nil)
	default:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Println("database connection established")
		a.DB = db

		if opts.Migrate {
			if err := migrate(db, cfg.MigrationsPath); err != nil {
				_ = db.Close()
				return nil, err
			}
		}

		userStore = user.NewDatastore(db.DB)
		taskStore = task.NewDatastore(db.DB)
	}

	a.Users = user.NewManager(userStore)
	a.Tasks = task.NewManager(taskStore, a.Users)

	sender, err := sms.New(cfg.SMS)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize sms sender %q: %w", cfg.SMS.Provider, err)
	}
	a.Sender = sender
	log.Printf("sms sender: %s", sender.Name())

	rc := cfg.Reminder
	a.Reminders = reminder.NewJob(
		reminder.NewScanner(a.Users, a.Tasks, rc.Location, rc.Concurrency),
		reminder.NewDispatcher(sender, rc.Concurrency),
		reminder.WithRunTimeout(rc.RunTimeout),
	)

	return a, nil
}

// Close releases the database connection, if any.
func (a *App) Close() {
	if a.DB == nil {
		return
	}
	if err := a.DB.Close(); err != nil {
		log.Printf("error closing database connection: %v", err)
	}
}

func migrate(db *database.DB, path string) error {
	src := database.MigrationSource{Path: path}
	if err := db.MigrateUp(src); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := db.MigrateVersion(src)
	switch {
	case err != nil:
		log.Printf("WARNING: failed to get migration version: %v", err)
	case dirty:
		log.Printf("WARNING: database is in dirty state at version %d - a previous migration failed and manual intervention is required", version)
	default:
		log.Printf("database migrations complete (version: %d)", version)
	}
	return nil
}
