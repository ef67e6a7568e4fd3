// Package security implements the authorization gate consulted by every
// channel operation.
//
// Authorization is a plain integer allow-list check, not authentication:
// an empty allow-list admits every actor, a non-empty one admits only its
// members. The rule is identical for senders and receivers.
//
// The Policy interface is injected into channels so tests can substitute
// AllowAll or DenyAll. Gate is the production policy; it holds no mutable
// state and needs no locking. Each denial is final for that call and is
// written to the log as a security audit event.
package security
