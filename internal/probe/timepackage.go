package probe

// Entry is one address's measurement within a TimePackage.
type Entry struct {
	AddrID AddrID
	Value  float32
	SD     float32
}

// TimePackage is the in-memory batch a Worker produces for one scheduling
// tick. All entries share TimeS; AddrIds are unique within the package. It
// is tagged with the nonce that Options held when the tick's snapshot was
// taken, so the Dispatcher can discard it if a racing update has since
// changed the configuration.
type TimePackage struct {
	Kind  Kind
	Nonce int32
	TimeS uint32
	Entries []Entry
}
