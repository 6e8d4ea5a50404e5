package app

import "sync/atomic"

// Stats is a point-in-time snapshot of an App's atomic counters.
type Stats struct {
	FramesIn            uint64 `json:"framesIn"`
	FramesOut           uint64 `json:"framesOut"`
	HandlerFaults       uint64 `json:"handlerFaults"`
	ActiveSessions      int64  `json:"activeSessions"`
	ActiveSubscriptions int64  `json:"activeSubscriptions"`
}

type counters struct {
	framesIn            atomic.Uint64
	framesOut           atomic.Uint64
	handlerFaults       atomic.Uint64
	activeSessions      atomic.Int64
	activeSubscriptions atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		FramesIn:            c.framesIn.Load(),
		FramesOut:           c.framesOut.Load(),
		HandlerFaults:       c.handlerFaults.Load(),
		ActiveSessions:      c.activeSessions.Load(),
		ActiveSubscriptions: c.activeSubscriptions.Load(),
	}
}
