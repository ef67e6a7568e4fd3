// Package ws streams broker log entries over WebSocket.
//
// Every connection registers its own sink on the log hub and receives JSON
// frames:
//
//	{"type":"log","level":"SECURITY","message":"[security] Unauthorized send attempt ...","time":"..."}
//
// On connect the client first gets a "system" frame and then the recent
// history. Clients may send {"type":"ping"} and get a "pong" frame back.
// A client that falls SendBuffer frames behind misses entries rather than
// slowing the broker down.
//
// Example Usage:
//
//	handler := ws.NewHandler(hub, history, metrics, logger)
//	router.GET("/logs/stream", handler.HandleConnection)
package ws
