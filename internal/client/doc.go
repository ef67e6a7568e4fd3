// Package client is a Go client for the broker's HTTP API.
//
// Calls retry on transport errors, 429 and 5xx, and run behind a circuit
// breaker so a dead broker fails fast. Denied, empty and timed-out
// operations are not errors: Send and Receive report them as false.
//
// Example Usage:
//
//	c := client.New(client.DefaultConfig())
//	ok, err := c.Send(ctx, 1, 7, "PING")
//	msg, ok, err := c.Receive(ctx, 1, 8, time.Second)
package client
