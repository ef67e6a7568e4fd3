// Package resilience provides a circuit breaker for calls to a remote broker.
//
// After FailureThreshold consecutive failures the breaker opens and rejects
// calls with ErrCircuitOpen. Once Cooldown has passed it lets Probes calls
// through; if they all succeed it closes, and any failure reopens it.
//
// Example Usage:
//
//	breaker := resilience.New("broker", resilience.Settings{
//	    FailureThreshold: 3,
//	    Cooldown:         10 * time.Second,
//	})
//	err := breaker.Do(func() error {
//	    return call()
//	})
package resilience
