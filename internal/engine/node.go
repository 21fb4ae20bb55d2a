package engine

// Channel is a 16-bit identifier into the shared value namespace.
// Channel 0 is reserved and never valid.
type Channel uint16

// Static capacities. The unit drives 30 physical switch outputs; the
// node table is sized for the densest configurations seen in the field.
const (
	// NodeCapacity is the maximum number of registered processing nodes.
	NodeCapacity = 64

	// LinkCapacity is the maximum number of output links.
	LinkCapacity = 30

	// OutputCount is the number of physical switch outputs.
	OutputCount = 30

	// SubChannelBase is the stride of the derived telemetry namespace.
	// Primary node channels must be below this value so the derived
	// addresses (id + kind*SubChannelBase) can never collide with a
	// user-assigned ID.
	SubChannelBase Channel = 0x2000

	// NoReference is the wire sentinel for "no source channel".
	NoReference Channel = 0xFFFF

	// MaxInputs bounds variadic math/logic fan-in.
	MaxInputs = 8

	// MaxTablePoints bounds 1-D lookup tables.
	MaxTablePoints = 16

	// MaxWindow bounds the moving-average window.
	MaxWindow = 32

	// milli is the fixed-point scale: 1.000 is represented as 1000.
	milli = 1000
)

// NodeType tags the evaluation rule a node uses.
type NodeType uint8

const (
	TypeMath NodeType = iota + 1
	TypeComparison
	TypeLogic
	TypeTimer
	TypePID
	TypeHysteresis
	TypeRateLimit
	TypeDebounce
	TypeTable1D
	TypeMovingAvg
	TypeSwitch
	TypeCounter
	TypeFlipFlop
	TypeNumber

	typeMax = TypeNumber
)

var nodeTypeNames = map[NodeType]string{
	TypeMath:       "math",
	TypeComparison: "compare",
	TypeLogic:      "logic",
	TypeTimer:      "timer",
	TypePID:        "pid",
	TypeHysteresis: "hysteresis",
	TypeRateLimit:  "ratelimit",
	TypeDebounce:   "debounce",
	TypeTable1D:    "table",
	TypeMovingAvg:  "movingavg",
	TypeSwitch:     "switch",
	TypeCounter:    "counter",
	TypeFlipFlop:   "flipflop",
	TypeNumber:     "number",
}

// String returns the lower-case name used in config documents and logs.
func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Valid reports whether t is a known node type tag.
func (t NodeType) Valid() bool { return t >= TypeMath && t <= typeMax }

// NodeTypeByName resolves a config-document type name to its tag.
func NodeTypeByName(name string) (NodeType, bool) {
	for t, s := range nodeTypeNames {
		if s == name {
			return t, true
		}
	}
	return 0, false
}

// Config is the immutable, type-specific parameter set of a node.
// One concrete case per node type; the evaluator dispatches on the
// Type tag with an exhaustive switch.
type Config interface {
	// Type returns the node type this config parameterizes.
	Type() NodeType

	// validate checks internal consistency at registration time.
	validate() error
}

// MathOp selects the arithmetic rule of a math node.
type MathOp uint8

const (
	MathAdd MathOp = iota + 1
	MathSub
	MathMul
	MathDiv
	MathMin
	MathMax
	MathAverage
	MathAbs
	MathScale
	MathClamp
)

// MathConfig parameterizes a math node.
//
// Multiply and divide use milli-unit fixed point: Mul computes
// a*b/1000, Div computes a*1000/b and yields 0 on a zero divisor.
// Scale computes in*Scale/1000 + Offset. Clamp bounds the first input
// to [Min, Max].
type MathConfig struct {
	Op     MathOp
	Inputs []Channel // 1..MaxInputs source channels
	Scale  int32     // MathScale only, milli
	Offset int32     // MathScale only
	Min    int32     // MathClamp only
	Max    int32     // MathClamp only
}

func (MathConfig) Type() NodeType { return TypeMath }

// CompareOp selects the comparison rule.
type CompareOp uint8

const (
	CmpGT CompareOp = iota + 1
	CmpLT
	CmpEQ
	CmpNE
	CmpGE
	CmpLE
	CmpInRange
)

// CompareConfig parameterizes a comparison node.
//
// Ops GT..LE compare InputA against InputB when InputB is non-zero,
// otherwise against the constant Ref. CmpInRange tests
// Min <= a <= Max. The output is 0 or 1.
type CompareConfig struct {
	Op     CompareOp
	InputA Channel
	InputB Channel // 0 = compare against Ref
	Ref    int32
	Min    int32 // CmpInRange only
	Max    int32 // CmpInRange only
}

func (CompareConfig) Type() NodeType { return TypeComparison }

// LogicOp selects the boolean rule.
type LogicOp uint8

const (
	LogicAnd LogicOp = iota + 1
	LogicOr
	LogicNot
	LogicXor
	LogicNand
	LogicNor
)

// LogicConfig parameterizes a boolean node over non-zero-coerced
// inputs. And/Nand short-circuit on the first false input.
type LogicConfig struct {
	Op     LogicOp
	Inputs []Channel // 1..MaxInputs
}

func (LogicConfig) Type() NodeType { return TypeLogic }

// TimerMode selects what a timer node outputs while running.
type TimerMode uint8

const (
	// TimerCountUp outputs elapsed milliseconds while running and holds
	// the configured delay after completing.
	TimerCountUp TimerMode = iota + 1
	// TimerCountDown outputs remaining milliseconds, 0 when idle.
	TimerCountDown
	// TimerPulse outputs 1 while running, 0 otherwise.
	TimerPulse
)

// Edge selects which transitions of a trigger input are significant.
type Edge uint8

const (
	EdgeRising Edge = iota + 1
	EdgeFalling
	EdgeBoth
)

// TimerConfig parameterizes a timer node. The timer starts only from
// idle on the configured edge of the trigger input and returns to idle
// once elapsed >= DelayMS. Elapsed, remaining and running state are
// exposed as read-only sub-channels of the owning channel.
type TimerConfig struct {
	Mode     TimerMode
	Trigger  Channel
	TrigEdge Edge
	DelayMS  int32
}

func (TimerConfig) Type() NodeType { return TypeTimer }

// PIDConfig parameterizes a PID node. Gains are milli-units (Kp=2000
// is a proportional gain of 2.0). The error term is setpoint - process,
// negated when Reversed. The integral advances once per SampleMS; the
// derivative is optionally low-pass filtered with milli coefficient
// DAlpha (f' = alpha*raw + (1-alpha)*f_prev). The output is clamped to
// [OutMin, OutMax] with anti-windup: the integral stops growing while
// the output is saturated in the same direction as the error.
type PIDConfig struct {
	Process    Channel
	SetpointCh Channel // 0 = use the fixed Setpoint value
	Setpoint   int32
	Kp         int32 // milli
	Ki         int32 // milli, per second
	Kd         int32 // milli, per second
	SampleMS   int32
	DAlpha     int32 // milli, 0 or 1000 disables filtering
	Reversed   bool
	OutMin     int32
	OutMax     int32
}

func (PIDConfig) Type() NodeType { return TypePID }

// HysteresisConfig parameterizes a bistable threshold node: output
// sets to 1 at/above On, clears to 0 at/below Off, holds in between.
type HysteresisConfig struct {
	Input Channel
	On    int32
	Off   int32
}

func (HysteresisConfig) Type() NodeType { return TypeHysteresis }

// RateLimitConfig bounds per-tick output change to MaxRate*dt.
// MaxRate is in value units per second. The first evaluation seeds the
// output from the input without limiting.
type RateLimitConfig struct {
	Input   Channel
	MaxRate int32 // units per second
}

func (RateLimitConfig) Type() NodeType { return TypeRateLimit }

// DebounceConfig parameterizes a debounce node: a new boolean input is
// committed only after it holds continuously for DurationMS. Any
// reversal resets the pending timer.
type DebounceConfig struct {
	Input      Channel
	DurationMS int32
}

func (DebounceConfig) Type() NodeType { return TypeDebounce }

// TablePoint is one breakpoint of a 1-D lookup table.
type TablePoint struct {
	X int32
	Y int32
}

// Table1DConfig parameterizes a lookup node: strictly increasing
// breakpoints, linear interpolation between neighbors, clamping to the
// nearest edge value out of range.
type Table1DConfig struct {
	Input  Channel
	Points []TablePoint // 2..MaxTablePoints, X strictly increasing
}

func (Table1DConfig) Type() NodeType { return TypeTable1D }

// MovingAvgConfig parameterizes a moving-average node over a fixed
// circular window. The output is sum/Window, where samples not yet
// seen count as zero.
type MovingAvgConfig struct {
	Input  Channel
	Window int // 1..MaxWindow
}

func (MovingAvgConfig) Type() NodeType { return TypeMovingAvg }

// SwitchMode selects the virtual switch behavior.
type SwitchMode uint8

const (
	// SwitchMomentary mirrors the input's truthiness.
	SwitchMomentary SwitchMode = iota + 1
	// SwitchLatching turns on at a rising edge of the input and off at
	// a rising edge of the off-input (or of the input again when no
	// off-input is configured).
	SwitchLatching
	// SwitchToggle flips the output on every rising edge of the input.
	SwitchToggle
)

// SwitchConfig parameterizes a virtual switch node.
type SwitchConfig struct {
	Input Channel
	Off   Channel // optional, SwitchLatching only
	Mode  SwitchMode
}

func (SwitchConfig) Type() NodeType { return TypeSwitch }

// CounterConfig parameterizes an edge counter. The count starts at Min
// and moves by Step on each configured edge of the input; past Max it
// wraps to Min when Wrap is set, otherwise saturates (symmetrically for
// Min when Step is negative). A non-zero reset input forces Min.
type CounterConfig struct {
	Input     Channel
	Reset     Channel // optional
	CountEdge Edge
	Min       int32
	Max       int32
	Step      int32
	Wrap      bool
}

func (CounterConfig) Type() NodeType { return TypeCounter }

// FlipFlopConfig parameterizes an SR latch over two boolean inputs.
// When both are asserted in the same tick, set wins.
type FlipFlopConfig struct {
	Set   Channel
	Reset Channel
}

func (FlipFlopConfig) Type() NodeType { return TypeFlipFlop }

// NumberConfig parameterizes a constant source node.
type NumberConfig struct {
	Value int32
}

func (NumberConfig) Type() NodeType { return TypeNumber }

// Node is one registered processing unit. It owns the channel it
// writes: the node ID is that channel ID.
type Node struct {
	id      Channel
	typ     NodeType
	cfg     Config
	st      nodeState // nil for stateless types
	enabled bool
	out     int32
	prevOut int32
}

// ID returns the channel this node writes.
func (n *Node) ID() Channel { return n.id }

// Type returns the node's type tag.
func (n *Node) Type() NodeType { return n.typ }

// Enabled reports whether the node participates in evaluation.
func (n *Node) Enabled() bool { return n.enabled }

// Output returns the node's most recent output value.
func (n *Node) Output() int32 { return n.out }

// PrevOutput returns the output cached before the last evaluation,
// for edge/change detection by consumers.
func (n *Node) PrevOutput() int32 { return n.prevOut }

// nodeState is the mutable runtime state of a node. Each stateful type
// has its own intrinsically-sized case; stateless types carry nil.
type nodeState interface {
	reset()
}

type timerState struct {
	running   bool
	completed bool
	elapsedMS int64
	prevTrig  bool
	trigSeen  bool
}

func (s *timerState) reset() { *s = timerState{} }

type pidState struct {
	integral  int64 // milli-scaled accumulator
	prevErr   int32
	hasPrev   bool
	dFilt     int64 // milli-scaled filtered derivative
	sinceMS   int64
	out       int32
}

func (s *pidState) reset() { *s = pidState{} }

type hystState struct {
	on bool
}

func (s *hystState) reset() { *s = hystState{} }

type rateState struct {
	seeded bool
	out    int32
}

func (s *rateState) reset() { *s = rateState{} }

type debounceState struct {
	committed  bool
	pending    bool
	pendingVal bool
	heldMS     int64
}

func (s *debounceState) reset() { *s = debounceState{} }

type avgState struct {
	buf []int32 // len == window, allocated at registration
	idx int
	sum int64
}

func (s *avgState) reset() {
	for i := range s.buf {
		s.buf[i] = 0
	}
	s.idx = 0
	s.sum = 0
}

type switchState struct {
	on      bool
	prevIn  bool
	prevOff bool
}

func (s *switchState) reset() { *s = switchState{} }

type counterState struct {
	count   int32
	prevIn  bool
	primed  bool
}

func (s *counterState) reset() { *s = counterState{} }

type flipFlopState struct {
	on bool
}

func (s *flipFlopState) reset() { *s = flipFlopState{} }

// newState allocates the runtime state for a config. This is the only
// place evaluation memory is sized; the tick path never allocates.
func newState(cfg Config) nodeState {
	switch c := cfg.(type) {
	case TimerConfig:
		return &timerState{}
	case PIDConfig:
		// Prime the sample accumulator so the first tick evaluates.
		return &pidState{sinceMS: int64(c.SampleMS)}
	case HysteresisConfig:
		return &hystState{}
	case RateLimitConfig:
		return &rateState{}
	case DebounceConfig:
		return &debounceState{}
	case MovingAvgConfig:
		return &avgState{buf: make([]int32, c.Window)}
	case SwitchConfig:
		return &switchState{}
	case CounterConfig:
		return &counterState{count: c.Min}
	case FlipFlopConfig:
		return &flipFlopState{}
	default:
		return nil
	}
}

// OutputLink maps a source channel's truthiness onto a physical switch
// output. Links have a lifecycle independent from nodes and are
// evaluated strictly after all nodes each tick.
type OutputLink struct {
	Output  Channel // channel mirroring the link state as 0/1000
	Source  Channel
	HWIndex int // physical output index, 0..OutputCount-1
	Enabled bool
}
