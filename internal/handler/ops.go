package handler

import (
	"net/http"
	"strings"

	"taskflow/internal/sms"
)

// OpsHandler serves operator endpoints: test SMS and on-demand reminder runs.
type OpsHandler struct {
	sender    sms.Sender
	reminders ReminderRunner
}

// NewOpsHandler creates a new ops handler.
func NewOpsHandler(sender sms.Sender, reminders ReminderRunner) *OpsHandler {
	return &OpsHandler{sender: sender, reminders: reminders}
}

type testSMSRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// TestSMS handles POST /api/sms/test
func (h *OpsHandler) TestSMS(w http.ResponseWriter, r *http.Request) {
	var req testSMSRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, "send test sms", err)
		return
	}
	if strings.TrimSpace(req.To) == "" || req.Body == "" {
		writeError(w, "send test sms", badRequest{msg: "to & body required"})
		return
	}

	sid, err := h.sender.Send(r.Context(), req.To, req.Body)
	if err != nil {
		writeError(w, "send test sms", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"sid": sid})
}

// RunReminders handles POST /api/reminders/run
// With ?dryRun=true it returns the recipients without sending.
func (h *OpsHandler) RunReminders(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("dryRun") == "true" {
		recipients, err := h.reminders.Preview(r.Context())
		if err != nil {
			writeError(w, "preview reminders", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"recipients": recipients, "count": len(recipients)})
		return
	}

	report, err := h.reminders.Run(r.Context())
	if err != nil {
		writeError(w, "run reminders", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
