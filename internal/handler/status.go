package handler

import (
	"net/http"

	"taskflow/internal/config"
)

// statusHandler reports the service's runtime configuration, minus secrets.
func statusHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tz := "UTC"
		if cfg.Reminder.Location != nil {
			tz = cfg.Reminder.Location.String()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"service":     "taskflow",
			"version":     "0.1.0",
			"status":      "operational",
			"environment": cfg.Environment,
			"store":       cfg.StoreBackend,
			"sms":         cfg.SMS.Provider,
			"reminders": map[string]any{
				"enabled":  cfg.Reminder.Enabled,
				"hour":     cfg.Reminder.Hour,
				"timezone": tz,
			},
		})
	}
}
