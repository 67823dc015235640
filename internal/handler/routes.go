package handler

import (
	"context"
	"net/http"

	"github.com/rs/cors"

	"taskflow/internal/config"
	"taskflow/internal/middleware"
	"taskflow/internal/reminder"
	"taskflow/internal/sms"
	"taskflow/internal/task"
	"taskflow/internal/user"
)

// ReminderRunner triggers or previews the daily reminder run.
type ReminderRunner interface {
	Run(ctx context.Context) (*reminder.Report, error)
	Preview(ctx context.Context) ([]reminder.Recipient, error)
}

// HealthChecker reports backing-store health.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps holds the dependencies shared by all handlers.
type Deps struct {
	Config    *config.Config
	Verifier  middleware.TokenVerifier
	Users     *user.Manager
	Tasks     *task.Manager
	Sender    sms.Sender
	Reminders ReminderRunner
	Health    HealthChecker // nil for the in-memory store
}

// New returns the complete HTTP handler: every route behind access logging and CORS.
func New(deps *Deps) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, deps)

	var origins []string
	if deps.Config != nil {
		origins = deps.Config.CORSOrigins
	}
	return middleware.Chain(mux, middleware.AccessLog, corsHandler(origins))
}

// corsHandler allows browser clients. With no configured origins any
// origin is echoed back.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           600,
	}
	if len(origins) > 0 {
		opts.AllowedOrigins = origins
	} else {
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	return cors.New(opts).Handler
}

// RegisterRoutes registers all HTTP routes with the provided mux.
func RegisterRoutes(mux *http.ServeMux, deps *Deps) {
	// Health and status endpoints (no auth required)
	mux.HandleFunc("GET /{$}", rootHandler)
	mux.HandleFunc("GET /health", healthHandler(deps.Health))
	mux.HandleFunc("GET /api/v1/status", statusHandler(deps.Config))

	authn := middleware.RequireAuth(deps.Verifier)
	registered := middleware.RequireProfile(deps.Users)
	manager := middleware.RequireRole(deps.Users, user.RoleManager)

	users := NewUsersHandler(deps.Users)
	mux.Handle("POST /api/users", middleware.Chain(http.HandlerFunc(users.Upsert), authn))
	mux.Handle("GET /api/users", middleware.Chain(http.HandlerFunc(users.ListEmployees), authn, manager))
	mux.Handle("GET /api/users/me", middleware.Chain(http.HandlerFunc(users.Me), authn, registered))

	tasks := NewTasksHandler(deps.Tasks)
	mux.Handle("POST /api/tasks", middleware.Chain(http.HandlerFunc(tasks.Create), authn, manager))
	mux.Handle("GET /api/tasks", middleware.Chain(http.HandlerFunc(tasks.List), authn, registered))
	mux.Handle("PATCH /api/tasks/{id}", middleware.Chain(http.HandlerFunc(tasks.Patch), authn))
	mux.Handle("POST /api/tasks/{id}/updates", middleware.Chain(http.HandlerFunc(tasks.AppendUpdate), authn))
	mux.Handle("GET /api/tasks/{id}/updates", middleware.Chain(http.HandlerFunc(tasks.ListUpdates), authn))

	ops := NewOpsHandler(deps.Sender, deps.Reminders)
	mux.Handle("POST /api/sms/test", middleware.Chain(http.HandlerFunc(ops.TestSMS), authn, manager))
	mux.Handle("POST /api/reminders/run", middleware.Chain(http.HandlerFunc(ops.RunReminders), authn, manager))
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("TaskFlow backend running"))
}
