// Package channel implements the authorization-guarded conduits the broker
// hands out: a point-to-point Stream over an OS pipe, a multi-producer
// multi-consumer Queue, and a fixed-size SharedBuffer.
//
// Every Send and Receive consults the injected security.Policy before the
// transport is touched. Failures never propagate: a denial, a transport error
// or an empty result all surface as false / absent, with a log entry for
// everything except the ordinary empty case.
//
// Each channel owns a private copy of its allow-lists, taken at construction.
//
// Shared buffer layout: Capacity bytes of UTF-8 text, terminated by the first
// zero byte, with every unused trailing byte zero. Writes longer than
// Capacity-1 bytes are truncated to Capacity-1 bytes. A write always zeroes
// the whole region before copying, and reads copy the whole region, both
// under the same lock, so a reader never observes a mix of two writes.
package channel
