package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/shared/validate"
)

// MaxUILogEntries bounds one ingestion batch.
const MaxUILogEntries = 500

// uiSanitizer strips markup; ingested lines are rendered by log viewers.
var uiSanitizer = bluemonday.StrictPolicy()

// UILogEntry is a log line produced by a front-end
type UILogEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context"`
}

// UILogRequest is a batch of front-end log lines
type UILogRequest struct {
	Source  string       `json:"source"`
	Entries []UILogEntry `json:"entries"`
}

// IngestLogs writes front-end log lines into the broker log, so they reach
// every log sink alongside broker events.
func (h *Handlers) IngestLogs(c *gin.Context) {
	var req UILogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log request format"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no log entries provided"})
		return
	}
	if len(req.Entries) > MaxUILogEntries {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too many log entries"})
		return
	}

	if err := validate.Source(req.Source); err != nil {
		badRequest(c, err)
		return
	}

	source := req.Source
	if source == "" {
		source = "ui"
	}
	logger := h.logger.Named(source)

	processed := 0
	for _, entry := range req.Entries {
		if err := logUIEntry(logger, entry); err != nil {
			h.logger.Debug("Dropped UI log entry", zap.Error(err), zap.String("source", source))
			continue
		}
		processed++
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"entries_received":  len(req.Entries),
		"entries_processed": processed,
		"timestamp":         time.Now().Unix(),
	})
}

func logUIEntry(logger *logging.Logger, entry UILogEntry) error {
	message := uiSanitizer.Sanitize(entry.Message)
	if err := validate.Message(message); err != nil {
		return err
	}

	fields := make([]zap.Field, 0, len(entry.Context))
	for key, value := range entry.Context {
		if key == logging.CategoryKey {
			// front-ends may not forge security entries
			continue
		}
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch strings.ToLower(entry.Level) {
	case "error":
		logger.Error(message, fields...)
	case "warn", "warning":
		logger.Warn(message, fields...)
	case "debug", "verbose":
		logger.Debug(message, fields...)
	default:
		logger.Info(message, fields...)
	}
	return nil
}

// GetLogs returns the recent broadcast log entries, oldest first
func (h *Handlers) GetLogs(c *gin.Context) {
	entries := []logging.Entry{}
	if h.history != nil {
		entries = h.history.Entries()
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}
