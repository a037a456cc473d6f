package tracing

import (
	"sort"
	"sync"
	"time"

	"github.com/aerojs/aerojs-core/internal/bytecode"
	"github.com/aerojs/aerojs-core/internal/codegen"
	"github.com/aerojs/aerojs-core/internal/ir"
	"github.com/aerojs/aerojs-core/internal/ir/optimize"
	"github.com/aerojs/aerojs-core/internal/regalloc"
	"github.com/aerojs/aerojs-core/pkg/errors"
	"github.com/aerojs/aerojs-core/pkg/logging"
)

// Config tunes the tracer's dispatch and abort thresholds. The default
// values resolve spec §9's open question that trace abort thresholds
// "have no canonical values in the source [...] treat them as
// configuration, with documented defaults."
type Config struct {
	Enabled           bool
	HotThreshold      int
	MaxTraceAttempts  int
	MaxCompiledTraces int
	MemoryBudget      int
	MaxTraceLength    int
	MaxGuards         int
	RecordTimeout     time.Duration
}

// DefaultConfig is the tracer's documented default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		HotThreshold:      10,
		MaxTraceAttempts:  4,
		MaxCompiledTraces: 256,
		MemoryBudget:      4 << 20,
		MaxTraceLength:    2000,
		MaxGuards:         64,
		RecordTimeout:     50 * time.Millisecond,
	}
}

// Tracer is the meta-tracing JIT tier's per-engine state (spec §4.9):
// it watches loop-header locations for hotness, records and compiles a
// trace once a location crosses HotThreshold, and evicts the
// least-recently-useful traces once its native code budget is
// exceeded.
type Tracer struct {
	arch        codegen.Arch
	cache       *codegen.CodeCache
	trampolines Trampolines
	cfg         Config
	log         logging.Logger
	stats       *Statistics

	mu           sync.Mutex
	entryCount   map[Location]int
	attemptCount map[Location]int
	traceAt      map[Location]int
	traces       map[int]*CompiledTrace
	nextTraceID  int
	recorder     *Recorder
}

// NewTracer constructs a tracer targeting arch, reserving native code
// from cache and routing guard failures and unspecialized ops through
// trampolines.
func NewTracer(arch codegen.Arch, cache *codegen.CodeCache, trampolines Trampolines, cfg Config, log logging.Logger) *Tracer {
	return &Tracer{
		arch:         arch,
		cache:        cache,
		trampolines:  trampolines,
		cfg:          cfg,
		log:          log.Tier("tracing"),
		stats:        newStatistics(),
		entryCount:   make(map[Location]int),
		attemptCount: make(map[Location]int),
		traceAt:      make(map[Location]int),
		traces:       make(map[int]*CompiledTrace),
		recorder:     NewRecorder(cfg.MaxTraceLength, cfg.MaxGuards),
	}
}

// Statistics exposes the tracer's counters.
func (t *Tracer) Statistics() StatisticsSnapshot { return t.stats.Snapshot() }

// GetCompileTraceForLocation is the tracer's hot-dispatch entry point
// (spec §4.9 "Dispatch": "on every loop-back-edge or function-entry
// event, the tracer checks whether a compiled trace exists for the
// current location"). It is idempotent: calling it repeatedly for a
// location with a compiled trace always returns that trace without
// recompiling (spec §8 scenario #1's promotion property).
func (t *Tracer) GetCompileTraceForLocation(loc Location, chunk *bytecode.Chunk, functionID int) *CompiledTrace {
	if !t.cfg.Enabled {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.traceAt[loc]; ok {
		tr := t.traces[id]
		tr.ExecutionCount++
		t.stats.recordHit()
		return tr
	}

	t.entryCount[loc]++
	if t.entryCount[loc] < t.cfg.HotThreshold {
		return nil
	}
	if t.attemptCount[loc] >= t.cfg.MaxTraceAttempts {
		return nil
	}

	t.stats.recordAttempt()
	t.attemptCount[loc]++

	tr, err := t.recordAndCompileLocked(loc, chunk, functionID)
	if err != nil {
		t.log.Warn().Err(err).Int64("location", int64(loc)).Msg("trace compile failed")
		return nil
	}
	return tr
}

// recordAndCompileLocked drives the recorder through
// Idle->Recording->Committing for loc's enclosing loop, then optimizes,
// allocates, and emits the resulting trace IR to native code (spec
// §4.9 "Recording" and "Compilation").
func (t *Tracer) recordAndCompileLocked(loc Location, chunk *bytecode.Chunk, functionID int) (*CompiledTrace, error) {
	t.recorder.Reset()
	t.recorder.OnEntry(loc)
	t.stats.recordStart()

	fn, err := ir.Build(chunk, "trace")
	if err != nil {
		t.recorder.Abort(errors.KindOther)
		t.stats.recordAbort(string(errors.KindOther))
		return nil, errors.Wrap(errors.KindOther, errors.Position{}, err, "tracing: build IR for location %d", int64(loc))
	}

	header, ok := firstLoopHeader(fn)
	if !ok {
		t.recorder.Abort(errors.KindOther)
		t.stats.recordAbort(string(errors.KindOther))
		return nil, errors.New(errors.KindOther, errors.Position{}, "tracing: no loop header found for location %d", int64(loc))
	}

	body, _, ok := loopRange(fn, header)
	if !ok {
		t.recorder.Abort(errors.KindOther)
		t.stats.recordAbort(string(errors.KindOther))
		return nil, errors.New(errors.KindOther, errors.Position{}, "tracing: irregular loop shape at location %d", int64(loc))
	}

	for _, bid := range body {
		for range fn.Block(bid).Instrs {
			t.recorder.OnOpcode()
			if reason, aborted := t.recorder.AbortReason(); aborted {
				t.stats.recordAbort(string(reason))
				return nil, errors.New(reason, errors.Position{}, "tracing: recording aborted at location %d", int64(loc))
			}
		}
		t.recorder.OnBranch()
		if reason, aborted := t.recorder.AbortReason(); aborted {
			t.stats.recordAbort(string(reason))
			return nil, errors.New(reason, errors.Position{}, "tracing: recording aborted at location %d", int64(loc))
		}
	}

	if _, closed := t.recorder.OnReturn(loc.Offset()); !closed {
		t.recorder.Abort(errors.KindOther)
		t.stats.recordAbort(string(errors.KindOther))
		return nil, errors.New(errors.KindOther, errors.Position{}, "tracing: loop did not close at location %d", int64(loc))
	}
	t.stats.recordCompletion()

	traceFn, guards, exits := buildTraceFunction(fn, body)
	originalCount := len(traceFn.Blocks[traceFn.Entry].Instrs)

	optimize.Optimize(traceFn, chunk, optimize.DefaultConfig(optimize.LevelO3))
	optimizedCount := len(traceFn.Blocks[traceFn.Entry].Instrs)

	start := time.Now()
	alloc := regalloc.Allocate(traceFn, map[ir.VReg]ir.Type{}, regalloc.StrategyLinearScan, traceClassCaps)

	id := t.nextTraceID
	t.nextTraceID++

	tc := &traceCompiler{
		chunk:       chunk,
		trampolines: t.trampolines,
		traceID:     id,
		alloc:       alloc,
		e:           codegen.New(t.arch),
	}
	if err := tc.run(traceFn); err != nil {
		return nil, err
	}

	code := tc.e.Finalize()
	region, err := t.cache.Reserve(len(chunk.Code))
	if err != nil {
		return nil, errors.Wrap(errors.KindOther, errors.Position{}, err, "tracing: reserve code region for location %d", int64(loc))
	}
	if len(code) > len(region.Bytes()) {
		_ = t.cache.Release(region)
		return nil, errors.New(errors.KindOther, errors.Position{}, "tracing: emitted %d bytes exceeds reserved region of %d", len(code), len(region.Bytes()))
	}
	copy(region.Bytes(), code)
	if err := t.cache.Protect(region); err != nil {
		_ = t.cache.Release(region)
		return nil, errors.Wrap(errors.KindOther, errors.Position{}, err, "tracing: protect code region for location %d", int64(loc))
	}

	tr := &CompiledTrace{
		ID:        id,
		Location:  loc,
		Region:    region,
		Entry:     region.EntryPoint(),
		Size:      len(code),
		Guards:    guards,
		SideExits: exits,
		Profile: ProfileInfo{
			OriginalInstructionCount:  originalCount,
			OptimizedInstructionCount: optimizedCount,
			CompileTimeNanos:          time.Since(start).Nanoseconds(),
		},
		ExecutionCount: 1,
	}

	t.traces[id] = tr
	t.traceAt[loc] = id
	t.stats.recordCompilation()
	t.log.Info().Int64("location", int64(loc)).Int("bytes", len(code)).Int("guards", len(guards)).Msg("trace compile")

	if t.cache.UsedBytes() > t.cfg.MemoryBudget || len(t.traces) > t.cfg.MaxCompiledTraces {
		t.evictOldTracesLocked()
	}

	return tr, nil
}

// evictOldTracesLocked reclaims native code from the least-executed
// fifth of compiled traces (spec §4.9 "Memory reclamation": "evicts the
// least-recently-useful entries, releasing their code regions back to
// the allocator and subtracting their code size from the used-memory
// counter").
func (t *Tracer) evictOldTracesLocked() {
	all := make([]*CompiledTrace, 0, len(t.traces))
	for _, tr := range t.traces {
		all = append(all, tr)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ExecutionCount < all[j].ExecutionCount
	})

	n := len(all) / 5
	if n < 1 {
		n = 1
	}
	if n > len(all) {
		n = len(all)
	}

	for _, tr := range all[:n] {
		_ = t.cache.Release(tr.Region)
		delete(t.traces, tr.ID)
		delete(t.traceAt, tr.Location)
		t.stats.recordEviction()
	}
}

// HandleSideExit is the side-exit trampoline's Go-side handler (spec
// §4.9 "Side exits": "a central side-exit handler that records the
// side-exit kind [...] and resumes interpretation at the bytecode
// offset the guard corresponds to"). It returns the bytecode offset
// execution should resume at.
func (t *Tracer) HandleSideExit(traceID int, exitIndex int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.traces[traceID]
	if !ok || exitIndex < 0 || exitIndex >= len(tr.SideExits) {
		t.stats.recordSideExit(SideExitOther)
		return 0
	}
	exit := tr.SideExits[exitIndex]
	t.stats.recordSideExit(exit.Kind)
	return exit.ResumeAt
}
