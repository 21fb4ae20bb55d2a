package engine

import (
	"fmt"
	"log/slog"
)

// ChannelStore is the external channel registry the engine consumes.
// Reads and writes race benignly with hardware-driver tasks: only the
// most recent value matters, never a cross-channel snapshot.
type ChannelStore interface {
	Get(ch Channel) int32
	Set(ch Channel, value int32) error
}

// OutputDriver receives actuation commands for physical switch outputs.
type OutputDriver interface {
	SetOutputState(index int, on bool) error
}

// Stats summarizes engine occupancy and tick accounting.
type Stats struct {
	Nodes        int
	Links        int
	NodeCapacity int
	LinkCapacity int
	Ticks        uint64
	SkippedTicks uint64
	LastDTMS     int64
}

// Engine is the fixed-memory virtual channel runtime.
//
// All tables are bounded and owned by the engine; callers interact only
// through lifecycle operations and never hold slot indices across a
// reload. Exactly one caller drives Tick; nothing here blocks, yields
// or spawns goroutines.
type Engine struct {
	store  ChannelStore
	driver OutputDriver
	clock  Clock

	nodes []Node
	links []OutputLink

	nodeCap int
	linkCap int

	skippedTicks uint64
	lastDT       int64
}

// Option configures engine construction.
type Option func(*Engine)

// WithNodeCapacity overrides the node table capacity. Intended for
// tests that exercise capacity rejection without 64 registrations.
func WithNodeCapacity(n int) Option {
	return func(e *Engine) { e.nodeCap = n }
}

// WithLinkCapacity overrides the output link table capacity.
func WithLinkCapacity(n int) Option {
	return func(e *Engine) { e.linkCap = n }
}

// New creates an engine bound to a channel store and an output driver.
func New(store ChannelStore, driver OutputDriver, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		driver:  driver,
		nodeCap: NodeCapacity,
		linkCap: LinkCapacity,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.nodes = make([]Node, 0, e.nodeCap)
	e.links = make([]OutputLink, 0, e.linkCap)
	return e
}

// AddNode registers a processing node writing channel id.
//
// Rejections (no partial effect): channel 0 or >= SubChannelBase,
// duplicate owner, unknown or invalid config, full table. Runtime
// state is allocated here, sized to the node type; the tick path never
// allocates.
func (e *Engine) AddNode(id Channel, cfg Config) error {
	if id == 0 {
		return errInvalidChannel(id, "channel 0 is reserved")
	}
	if id >= SubChannelBase {
		return errInvalidChannel(id, fmt.Sprintf("channel above primary range (max %d)", SubChannelBase-1))
	}
	if cfg == nil || !cfg.Type().Valid() {
		return &EngineError{Code: ErrCodeUnknownType, Message: "unknown node type", Channel: id}
	}
	if e.findNode(id) != nil {
		return errDuplicate(id)
	}
	if len(e.nodes) >= e.nodeCap {
		return errCapacity("node table", e.nodeCap)
	}
	if err := cfg.validate(); err != nil {
		return err
	}

	e.nodes = append(e.nodes, Node{
		id:      id,
		typ:     cfg.Type(),
		cfg:     cfg,
		st:      newState(cfg),
		enabled: true,
	})
	slog.Debug("node registered", "channel", id, "type", cfg.Type().String())
	return nil
}

// RemoveNode unregisters the node owning channel id, compacting the
// table in place. Later nodes keep their relative evaluation order.
func (e *Engine) RemoveNode(id Channel) error {
	for i := range e.nodes {
		if e.nodes[i].id == id {
			copy(e.nodes[i:], e.nodes[i+1:])
			e.nodes = e.nodes[:len(e.nodes)-1]
			slog.Debug("node removed", "channel", id)
			return nil
		}
	}
	return errNotFound(id)
}

// EnableNode marks the node for evaluation.
func (e *Engine) EnableNode(id Channel) error { return e.setEnabled(id, true) }

// DisableNode excludes the node from evaluation. Its last output stays
// visible in the node record and the channel store.
func (e *Engine) DisableNode(id Channel) error { return e.setEnabled(id, false) }

func (e *Engine) setEnabled(id Channel, enabled bool) error {
	n := e.findNode(id)
	if n == nil {
		return errNotFound(id)
	}
	n.enabled = enabled
	return nil
}

// ResetNode zeroes one node's runtime state and output without
// touching its configuration.
func (e *Engine) ResetNode(id Channel) error {
	n := e.findNode(id)
	if n == nil {
		return errNotFound(id)
	}
	if n.st != nil {
		n.st.reset()
	}
	n.out = 0
	n.prevOut = 0
	return nil
}

// AddLink registers an output link. The source must not be the
// no-reference sentinel and the physical index must be valid.
func (e *Engine) AddLink(l OutputLink) error {
	if l.Source == 0 || l.Source == NoReference {
		return &EngineError{Code: ErrCodeBadReference, Message: "link source is unset", Channel: l.Output}
	}
	if l.HWIndex < 0 || l.HWIndex >= OutputCount {
		return &EngineError{
			Code:    ErrCodeBadReference,
			Message: fmt.Sprintf("physical output %d outside 0..%d", l.HWIndex, OutputCount-1),
			Channel: l.Output,
		}
	}
	if len(e.links) >= e.linkCap {
		return errCapacity("link table", e.linkCap)
	}
	e.links = append(e.links, l)
	slog.Debug("output link registered", "channel", l.Output, "source", l.Source, "hw_index", l.HWIndex)
	return nil
}

// ClearAll performs a full reset: node and link counts zeroed, clock
// rewound. Counts are zeroed before any slot content is touched so a
// concurrent reader can never observe stale records.
func (e *Engine) ClearAll() {
	e.reset()
	slog.Info("engine cleared")
}

// reset is the single reset primitive shared by ClearAll and the
// loader. Truncating the tables is what makes old slots unreachable;
// slot contents are then overwritten in place on the next registration.
func (e *Engine) reset() {
	e.nodes = e.nodes[:0]
	e.links = e.links[:0]
	e.clock.Reset()
	e.lastDT = 0
	e.skippedTicks = 0
}

// Stats returns occupancy and tick accounting.
func (e *Engine) Stats() Stats {
	return Stats{
		Nodes:        len(e.nodes),
		Links:        len(e.links),
		NodeCapacity: e.nodeCap,
		LinkCapacity: e.linkCap,
		Ticks:        e.clock.Seq(),
		SkippedTicks: e.skippedTicks,
		LastDTMS:     e.lastDT,
	}
}

// Node returns the node owning channel id, or nil. The returned
// pointer is valid only until the next lifecycle operation.
func (e *Engine) Node(id Channel) *Node { return e.findNode(id) }

// Links returns the registered output links in evaluation order.
func (e *Engine) Links() []OutputLink { return e.links }

func (e *Engine) findNode(id Channel) *Node {
	// Linear scan: the table is at most NodeCapacity entries and the
	// tick path must stay allocation-free, so no index map is kept.
	for i := range e.nodes {
		if e.nodes[i].id == id {
			return &e.nodes[i]
		}
	}
	return nil
}

// ChannelValue reads a channel the way node evaluation does: engine
// nodes first (freshest, possibly same-tick value), sub-channel
// telemetry next, then the external store.
func (e *Engine) ChannelValue(ch Channel) int32 {
	if ch >= SubChannelBase {
		if v, err := e.subChannelValue(ch); err == nil {
			return v
		}
		return e.store.Get(ch)
	}
	if n := e.findNode(ch); n != nil {
		return n.out
	}
	return e.store.Get(ch)
}

// SetNodeCountForTesting force-extends the recorded node count past
// capacity to exercise the corruption guard. Not for production use.
func (e *Engine) SetNodeCountForTesting(n int) {
	grown := make([]Node, n)
	copy(grown, e.nodes)
	e.nodes = grown
}
