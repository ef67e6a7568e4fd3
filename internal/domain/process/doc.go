// Package process supervises logical processes and worker goroutines.
//
// Logical processes are plain entries used as actor ids. Workers run a task
// on their own tick loop and report progress on a private output queue.
//
// Worker lifecycle:
//
//	created -> running -> terminated
//
// A worker stops when it drains the stop sentinel from its control queue,
// when its task faults, or when the supervisor shuts down. Faults are
// reported once on the output queue as "ERROR: ..." and are never retried.
//
// Processes and workers draw ids from one sequence starting at 1.
package process
