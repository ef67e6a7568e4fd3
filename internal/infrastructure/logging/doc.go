// Package logging provides structured logging using uber/zap.
//
// This package offers logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// On top of zap it provides a Hub, a zapcore.Core that broadcasts every entry
// as a (message, level) pair to registered sinks. Sinks are how log panels and
// WebSocket streams observe the broker. A failing sink never affects logging
// or other sinks.
//
// Security audit entries are ordinary zap entries tagged with
// zap.String("category", "security"); sinks receive them with LevelSecurity.
//
// Example Usage:
//
//	base, err := logging.New(logging.Config{Level: "info", OutputPaths: []string{"stdout"}})
//	if err != nil {
//		return err
//	}
//	hub := logging.NewHub()
//	logger := base.WithHub(hub)
//	hub.Register(func(msg string, level logging.Level) { fmt.Println(level, msg) })
//	logger.Info("Channel created", zap.Int("id", 1))
package logging
