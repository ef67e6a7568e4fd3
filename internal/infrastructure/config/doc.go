// Package config provides 12-factor configuration management for the IPC broker.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//   - IPC: Channel defaults and the topology seed directory
//   - Workers: Tick cadence, emitter period and shutdown bound
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - PORT, HOST
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
//   - IPC_SHM_CAPACITY, IPC_STREAM_BUFFER, IPC_SEED_DIR
//   - WORKER_TICK, WORKER_EMIT_PERIOD, WORKER_MARKER, WORKER_SHUTDOWN_TIMEOUT
package config
