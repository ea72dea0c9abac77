package probe

import (
	"github.com/rs/zerolog"
)

// ArchivalSink optionally receives every appended package in addition to
// the mandatory binary sample log (see SPEC_FULL.md §C.4). Its errors are
// logged and ignored; it never affects the core append/broadcast path.
type ArchivalSink interface {
	InsertPackage(pkg TimePackage) error
}

// Dispatcher is the single consumer on the multi-producer channel that
// carries TimePackages from every Worker. It is the only writer to any
// SampleLog, and runs on its own single-threaded loop.
type Dispatcher struct {
	Managers    map[int]*Manager // keyed by Kind.ID()
	Broadcaster *Broadcaster
	Archival    ArchivalSink
	Logger      zerolog.Logger
}

// NewDispatcher constructs a Dispatcher over managers (one per probe kind).
func NewDispatcher(managers []*Manager, b *Broadcaster, logger zerolog.Logger) *Dispatcher {
	m := make(map[int]*Manager, len(managers))
	for _, mgr := range managers {
		m[mgr.Kind.ID()] = mgr
	}
	return &Dispatcher{Managers: m, Broadcaster: b, Logger: logger}
}

// Run consumes packages from ch until it is closed.
func (d *Dispatcher) Run(ch <-chan TimePackage) {
	for pkg := range ch {
		d.handle(pkg)
	}
}

func (d *Dispatcher) handle(pkg TimePackage) {
	m, ok := d.Managers[pkg.Kind.ID()]
	if !ok {
		d.Logger.Error().Int("kind_id", pkg.Kind.ID()).Msg("dispatcher: no manager for kind")
		return
	}

	appended, err := m.AppendPackage(pkg)
	if err != nil {
		defaultMetrics.dispatcher_appends_total.fail_persist(pkg.Kind.Name()).Inc()
		d.Logger.Error().Err(err).Str("kind", pkg.Kind.Name()).Msg("dispatcher: append sample batch failed")
		return
	}
	if !appended {
		defaultMetrics.dispatcher_appends_total.reject_stale(pkg.Kind.Name()).Inc()
		d.Logger.Debug().Str("kind", pkg.Kind.Name()).Int32("nonce", pkg.Nonce).Msg("dispatcher: discarding stale-nonce package")
		return
	}
	defaultMetrics.dispatcher_appends_total.success(pkg.Kind.Name()).Inc()

	if d.Archival != nil {
		if err := d.Archival.InsertPackage(pkg); err != nil {
			d.Logger.Warn().Err(err).Str("kind", pkg.Kind.Name()).Msg("dispatcher: archival sink insert failed")
		}
	}

	frame := EncodeBroadcastFrame(pkg)
	if err := d.Broadcaster.Send(frame); err != nil {
		defaultMetrics.dispatcher_broadcasts_total.fail_unavail(pkg.Kind.Name()).Inc()
		d.Logger.Debug().Err(err).Str("kind", pkg.Kind.Name()).Msg("dispatcher: broadcast failed")
		return
	}
	defaultMetrics.dispatcher_broadcasts_total.success(pkg.Kind.Name()).Inc()
}
