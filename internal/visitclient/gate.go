package visitclient

import "sync/atomic"

// gate is a NotStarted -> InFlight -> Done latch for side effects that
// may be triggered from several sources (poll ticks, provider messages,
// explicit user actions, teardown). Begin is a single atomic
// check-and-set, so exactly one trigger wins regardless of interleaving.
const (
	gateNotStarted int32 = iota
	gateInFlight
	gateDone
)

type gate struct {
	state atomic.Int32
}

// Begin reports whether the caller won the right to run the side effect.
func (g *gate) Begin() bool {
	return g.state.CompareAndSwap(gateNotStarted, gateInFlight)
}

// Done marks the side effect complete. Further Begin calls fail.
func (g *gate) Done() {
	g.state.Store(gateDone)
}

// Abort returns an in-flight gate to NotStarted so a later trigger can
// retry. Only valid from the goroutine that won Begin.
func (g *gate) Abort() {
	g.state.CompareAndSwap(gateInFlight, gateNotStarted)
}

// Fired reports whether the side effect has started or completed.
func (g *gate) Fired() bool {
	return g.state.Load() != gateNotStarted
}
