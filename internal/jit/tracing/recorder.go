package tracing

import "github.com/aerojs/aerojs-core/pkg/errors"

// recorderState is the tagged-variant state a Recorder occupies (spec §9
// redesign flag: "the recorder has four observable states [...] make
// these states explicit"), mirroring internal/jit/baseline/cache.go's
// siteState pattern rather than original_source's implicit
// isRecording() boolean.
type recorderState interface {
	isRecorderState()
}

type idleState struct{}

func (idleState) isRecorderState() {}

// recordingState carries the in-progress trace: the loop-header location
// recording started at and the length/guard counters needed to decide
// when to abort (spec §4.9: "exceeding a length cap [...] accumulating
// too many guards [...] or a timeout").
type recordingState struct {
	location Location
	length   int
	guards   int
}

func (recordingState) isRecorderState() {}

// committingState is entered once the recorded trace has closed its
// loop (returned to its entry location) and is being validated,
// optimized, allocated, and emitted.
type committingState struct {
	recordingState
}

func (committingState) isRecorderState() {}

// abortingState carries why recording stopped without producing a
// trace, tagged with the same error Kinds spec §7 already reserves for
// "JIT internal — never surfaced to user code" failures, so the abort
// reason taxonomy isn't duplicated in two packages.
type abortingState struct {
	reason errors.Kind
}

func (abortingState) isRecorderState() {}

// Recorder drives the Idle -> Recording -> Committing|Aborting state
// machine for one tracer. A Tracer owns exactly one Recorder and reuses
// it across attempts (Reset returns it to Idle).
type Recorder struct {
	state     recorderState
	maxLength int
	maxGuards int
}

// NewRecorder creates an idle recorder enforcing the given trace-length
// and guard-count caps (spec §9 open question: "trace abort thresholds
// [...] have no canonical values in the source [...] treat them as
// configuration").
func NewRecorder(maxLength, maxGuards int) *Recorder {
	return &Recorder{state: idleState{}, maxLength: maxLength, maxGuards: maxGuards}
}

// StateName reports the recorder's current tagged variant, for
// statistics and tests.
func (r *Recorder) StateName() string {
	switch r.state.(type) {
	case idleState:
		return "idle"
	case recordingState:
		return "recording"
	case committingState:
		return "committing"
	case abortingState:
		return "aborting"
	default:
		return "unknown"
	}
}

// OnEntry is the recorder's entry event: Idle -> Recording at loc. A
// call while already recording or committing is ignored, matching spec
// §8's idempotency requirement ("calling the tracer's
// getCompileTraceForLocation(L) is idempotent").
func (r *Recorder) OnEntry(loc Location) {
	if _, ok := r.state.(idleState); !ok {
		return
	}
	r.state = recordingState{location: loc}
}

// OnOpcode is the recorder's per-instruction event: it extends the
// in-progress trace by one instruction and aborts with TraceTooLong once
// maxLength is exceeded.
func (r *Recorder) OnOpcode() {
	st, ok := r.state.(recordingState)
	if !ok {
		return
	}
	st.length++
	if st.length > r.maxLength {
		r.state = abortingState{reason: errors.KindTraceTooLong}
		return
	}
	r.state = st
}

// OnBranch is the recorder's guard event: every control-flow point that
// could diverge at runtime becomes a recorded guard (spec §4.9
// "Recording"). Exceeding maxGuards aborts with TooManyGuardFailures.
func (r *Recorder) OnBranch() {
	st, ok := r.state.(recordingState)
	if !ok {
		return
	}
	st.guards++
	if st.guards > r.maxGuards {
		r.state = abortingState{reason: errors.KindTooManyGuardFailures}
		return
	}
	r.state = st
}

// OnReturn is the recorder's loop-closure event: reaching bytecodeOffset
// again after having recorded at least one instruction from it commits
// the trace. It reports the recording state to hand off to compilation,
// and whether closure actually occurred.
func (r *Recorder) OnReturn(bytecodeOffset int) (recordingState, bool) {
	st, ok := r.state.(recordingState)
	if !ok {
		return recordingState{}, false
	}
	if bytecodeOffset != st.location.Offset() || st.length == 0 {
		return recordingState{}, false
	}
	r.state = committingState{st}
	return st, true
}

// Abort forces the recorder into Aborting with an explicit reason (used
// for the Timeout case, which isn't driven by OnOpcode/OnBranch's
// counters).
func (r *Recorder) Abort(reason errors.Kind) {
	r.state = abortingState{reason: reason}
}

// AbortReason reports the reason the recorder last aborted, if it is
// currently in the Aborting state.
func (r *Recorder) AbortReason() (errors.Kind, bool) {
	st, ok := r.state.(abortingState)
	if !ok {
		return "", false
	}
	return st.reason, true
}

// Reset returns the recorder to Idle, ready for the next attempt.
func (r *Recorder) Reset() {
	r.state = idleState{}
}
