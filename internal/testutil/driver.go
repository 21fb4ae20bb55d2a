package testutil

// Actuation records one output driver call.
type Actuation struct {
	Index int
	On    bool
}

// RecordingDriver is an OutputDriver fake that records every
// actuation and tracks the last commanded state per output.
type RecordingDriver struct {
	Actuations []Actuation
	state      map[int]bool

	// FailIndex, when non-negative, makes calls for that output
	// return FailErr. Used to exercise the engine's error path.
	FailIndex int
	FailErr   error
}

func NewRecordingDriver() *RecordingDriver {
	return &RecordingDriver{state: make(map[int]bool), FailIndex: -1}
}

func (d *RecordingDriver) SetOutputState(index int, on bool) error {
	if index == d.FailIndex {
		return d.FailErr
	}
	d.Actuations = append(d.Actuations, Actuation{Index: index, On: on})
	d.state[index] = on
	return nil
}

// State returns the last commanded state for an output, false if it
// was never driven.
func (d *RecordingDriver) State(index int) bool { return d.state[index] }

// Reset clears recorded actuations and state for test reuse.
func (d *RecordingDriver) Reset() {
	d.Actuations = d.Actuations[:0]
	clear(d.state)
}
