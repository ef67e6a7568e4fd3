package security

import (
	"time"

	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/monitoring"
)

// Policy decides whether an actor may use a channel in a role.
type Policy interface {
	Authorize(channel string, actor ActorID, allowed ActorSet, role Role) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(channel string, actor ActorID, allowed ActorSet, role Role) bool

// Authorize implements Policy.
func (f PolicyFunc) Authorize(channel string, actor ActorID, allowed ActorSet, role Role) bool {
	return f(channel, actor, allowed, role)
}

// AllowAll admits every actor regardless of the allow-list.
var AllowAll Policy = PolicyFunc(func(string, ActorID, ActorSet, Role) bool { return true })

// DenyAll rejects every actor regardless of the allow-list.
var DenyAll Policy = PolicyFunc(func(string, ActorID, ActorSet, Role) bool { return false })

// AuditEvent describes one authorization denial.
type AuditEvent struct {
	Timestamp time.Time
	Channel   string
	Actor     ActorID
	Role      Role
	Allowed   ActorSet
}

// Gate is the allow-list policy used in production.
type Gate struct {
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewGate creates a gate that audits denials to logger.
func NewGate(logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Gate{logger: logger.Named("security")}
}

// WithMetrics adds denial counting to the gate
func (g *Gate) WithMetrics(metrics *monitoring.Metrics) *Gate {
	g.metrics = metrics
	return g
}

// Authorize admits actor when allowed is empty or contains it. A denial is
// audited and counted.
func (g *Gate) Authorize(channel string, actor ActorID, allowed ActorSet, role Role) bool {
	if allowed.Admits(actor) {
		return true
	}

	g.audit(AuditEvent{
		Timestamp: time.Now(),
		Channel:   channel,
		Actor:     actor,
		Role:      role,
		Allowed:   allowed,
	})
	return false
}

func (g *Gate) audit(ev AuditEvent) {
	g.metrics.RecordDenial(string(ev.Role))
	g.logger.Security("Unauthorized "+verb(ev.Role)+" attempt",
		zap.String("channel", ev.Channel),
		zap.Int("actor", int(ev.Actor)),
		zap.String("role", string(ev.Role)),
		zap.Stringer("allowed", ev.Allowed),
	)
}

func verb(r Role) string {
	if r == RoleReceiver {
		return "receive"
	}
	return "send"
}
