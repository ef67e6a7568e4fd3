// Package http exposes the broker over a JSON HTTP API.
//
// Endpoints:
//   - /channels: create, list, get, send, receive, close
//   - /processes: register, list, get, terminate
//   - /workers: spawn, stop, drain output
//   - /logs: ingest front-end logs, read recent entries
//   - /health, /metrics/json
//
// Send and receive mirror the channel contract: denial, empty and timeout
// come back as {"success": false} with status 200. Only malformed requests
// and unknown ids are HTTP errors.
package http
