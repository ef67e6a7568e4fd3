// Package registry creates and tracks IPC channels.
//
// The registry assigns channel ids (starting at 1, strictly increasing
// across every kind), builds the requested variant and keeps it until it is
// closed. It never authorizes anything itself; each channel consults its
// injected policy.
//
// Components:
//   - Registry: Create, List, Lookup, Close, CloseAll
//   - Seeder: creates channels from topology files on startup
//
// Topology files (*.yaml, *.yml, *.toml, *.json) share one shape:
//
//	channels:
//	  - kind: queue
//	    name: jobs
//	    senders: [1]
//	    receivers: [2]
//	  - kind: shared-buffer
//	    name: status
//	    capacity: 64
//
// Example Usage:
//
//	reg := registry.New(deps, registry.Options{Capacity: 256})
//	meta, ch, err := reg.Create(ctx, registry.CreateRequest{Kind: channel.KindQueue, Name: "jobs"})
//	ch.Send(1, []byte("hi"))
package registry
