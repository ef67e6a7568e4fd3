// Command ipc-broker runs the IPC Control Room broker.
//
// Usage:
//
//	# Serve the HTTP API, the Prometheus endpoint and the log stream
//	ipc-broker serve --port 8000 --seed-dir ./topology
//
//	# Headless demo: emitter, echo and a denied intruder, printed to stdout
//	ipc-broker demo --duration 5s
//
//	# Drive a running broker
//	ipc-broker ctl create queue --name jobs --senders 1
//	ipc-broker ctl send 1 hello --actor 1
//	ipc-broker ctl receive 1 --actor 2 --wait 2s
//
// Configuration comes from environment variables (see package config);
// flags override them.
//
// Signals:
//   - SIGINT, SIGTERM: graceful shutdown
package main
