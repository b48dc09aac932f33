package broadcast

import (
	"context"
	"log/slog"

	"github.com/samber/lo"

	"github.com/dmitrymomot/coursechat/pkg/logger"
)

// Report summarizes one fan-out.
type Report struct {
	Recipients int // handles targeted after exclusion
	Delivered  int
	Pruned     int
}

// Dispatcher fans events out to every subscriber of a room.
// Delivery is best-effort and at-most-once: a failed push prunes the handle
// and never affects the other recipients.
type Dispatcher struct {
	reg *Registry
	log *slog.Logger
}

func NewDispatcher(reg *Registry, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = logger.Noop()
	}
	return &Dispatcher{reg: reg, log: log.With(logger.Component("dispatcher"))}
}

// Broadcast pushes ev to every handle in room except excludeUserID's.
// An empty excludeUserID excludes nobody. Rooms without subscribers are a no-op.
func (d *Dispatcher) Broadcast(ctx context.Context, room string, ev Event, excludeUserID string) {
	d.Deliver(ctx, room, ev, excludeUserID)
}

// Deliver is Broadcast with a report of what happened.
func (d *Dispatcher) Deliver(ctx context.Context, room string, ev Event, excludeUserID string) Report {
	targets := lo.Filter(d.reg.Handles(room), func(h *Handle, _ int) bool {
		return excludeUserID == "" || h.userID != excludeUserID
	})

	var rep Report
	rep.Recipients = len(targets)
	if rep.Recipients == 0 {
		return rep
	}

	var dead []*Handle
	for _, h := range targets {
		if err := h.sink.Push(ev); err != nil {
			d.log.DebugContext(ctx, "push failed, marking subscriber dead",
				logger.Room(room),
				logger.UserID(h.userID),
				logger.Error(err),
			)
			dead = append(dead, h)
			continue
		}
		rep.Delivered++
	}
	rep.Pruned = d.Prune(room, dead)

	d.log.DebugContext(ctx, "event dispatched",
		logger.Room(room),
		logger.EventType(string(ev.Type)),
		slog.Int("delivered", rep.Delivered),
		slog.Int("pruned", rep.Pruned),
	)
	return rep
}

// Prune removes dead handles of room from the registry and closes their
// queues so the owning stream sessions wind down. Handles that were already
// replaced or removed are skipped. Returns the number removed.
func (d *Dispatcher) Prune(room string, dead []*Handle) int {
	pruned := 0
	for _, h := range dead {
		if h == nil || h.room != room {
			continue
		}
		if !d.reg.Release(h) {
			continue
		}
		pruned++
		if q, ok := h.sink.(*Queue); ok {
			q.Close()
		}
	}
	if pruned > 0 {
		d.log.Debug("pruned dead subscribers",
			logger.Room(room),
			slog.Int("count", pruned),
			logger.Connections(d.reg.Connections()),
		)
	}
	return pruned
}
