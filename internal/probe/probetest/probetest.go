// Package probetest holds hand-written fakes for tests that exercise code
// built on top of internal/probe, following the teacher's preference for
// small hand-rolled fakes over a mocking library (see
// pkg/api/api0/api0testutil in the retrieved pack).
package probetest

import (
	"sync"

	"github.com/jordanbertasso/stabping-go/internal/probe"
)

// FakeBroadcaster records every frame sent to it instead of delivering it
// anywhere, for tests that need to assert on broadcast traffic without a
// real WebSocket transport.
type FakeBroadcaster struct {
	mu     sync.Mutex
	frames [][]byte
}

// NewFakeBroadcaster returns a Broadcaster wired to an always-available fake
// sender, plus a handle to inspect what it received.
func NewFakeBroadcaster() (*probe.Broadcaster, *FakeBroadcaster) {
	fb := &FakeBroadcaster{}
	b := probe.NewBroadcaster()
	b.Update(fb.send)
	return b, fb
}

func (fb *FakeBroadcaster) send(frame []byte) error {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.frames = append(fb.frames, append([]byte(nil), frame...))
	return nil
}

// Frames returns every frame received so far, in order.
func (fb *FakeBroadcaster) Frames() [][]byte {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return append([][]byte(nil), fb.frames...)
}

// FakeArchivalSink records every package it receives, optionally failing
// with a fixed error, for tests of dispatcher/archival wiring without a real
// database.
type FakeArchivalSink struct {
	mu       sync.Mutex
	Err      error
	Inserted []probe.TimePackage
}

// InsertPackage implements probe.ArchivalSink.
func (f *FakeArchivalSink) InsertPackage(pkg probe.TimePackage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Inserted = append(f.Inserted, pkg)
	return f.Err
}

// Packages returns every package received so far, in order.
func (f *FakeArchivalSink) Packages() []probe.TimePackage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]probe.TimePackage(nil), f.Inserted...)
}
