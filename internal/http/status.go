package http

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/httputil"
	"github.com/SibusisoMad/SecureFileStatementDelivery/internal/logging"
)

const statusProbeTimeout = 3 * time.Second

// StatusChecker is the part of the statement repository the status
// probe needs.
type StatusChecker interface {
	Ping(ctx context.Context) error
	HasStatements(ctx context.Context) (bool, error)
}

// StatusResponse describes the service's dependencies.
type StatusResponse struct {
	Status              string `json:"status"`
	CanConnectDB        bool   `json:"canConnectDb"`
	HasStatements       bool   `json:"hasStatements"`
	DataDir             string `json:"dataDir"`
	StatementsDirExists bool   `json:"statementsDirExists"`
}

// StatusHandler reports database and storage reachability.
type StatusHandler struct {
	checker StatusChecker
	dataDir string
}

func NewStatusHandler(checker StatusChecker, dataDir string) *StatusHandler {
	return &StatusHandler{checker: checker, dataDir: dataDir}
}

// ServeHTTP is the status probe
// @Summary      Service status
// @Description  Report database connectivity and statement storage state
// @Tags         health
// @Produce      json
// @Success      200 {object} StatusResponse
// @Failure      503 {object} StatusResponse
// @Router       /status [get]
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), statusProbeTimeout)
	defer cancel()

	resp := StatusResponse{Status: "ok", DataDir: h.dataDir}

	if err := h.checker.Ping(ctx); err != nil {
		logger.Warn("status probe: database unreachable", "error", err.Error())
	} else {
		resp.CanConnectDB = true
		has, err := h.checker.HasStatements(ctx)
		if err != nil {
			logger.Warn("status probe: failed to count statements", "error", err.Error())
		}
		resp.HasStatements = has
	}

	if info, err := os.Stat(h.dataDir); err == nil && info.IsDir() {
		resp.StatementsDirExists = true
	}

	status := http.StatusOK
	if !resp.CanConnectDB || !resp.StatementsDirExists {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	httputil.RespondJSON(w, resp, status)
}
