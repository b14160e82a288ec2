package capture

import "sync/atomic"

// ReferenceGate records whether a reference pose has been accepted by the
// backend. The uploader opens it; Session.Start refuses while it is closed.
type ReferenceGate struct {
	open atomic.Bool
}

func (g *ReferenceGate) Open()        { g.open.Store(true) }
func (g *ReferenceGate) Close()       { g.open.Store(false) }
func (g *ReferenceGate) IsOpen() bool { return g.open.Load() }
