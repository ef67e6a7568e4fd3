// Package server assembles the broker: logging hub, metrics, the
// authorization gate, the channel registry, the worker supervisor and the
// HTTP router.
//
// Example Usage:
//
//	srv, err := server.NewServer(config.LoadOrDefault(), nil)
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server
