// Package search drives the parallel weight-space search: a fixed pool of
// worker goroutines each try one (context, weight) mutation of the current
// best compressor per cycle, the fastest-improving candidate is adopted, and
// the ensemble is periodically rebased to keep weights from drifting towards
// the integer ceiling.
package search

import (
	"bytes"
	"fmt"
	"math"
	"runtime"
	"sync"

	"fcmp/bitstream"
	"fcmp/coder"
	"fcmp/compressor"
	"fcmp/container"
	"fcmp/extract"
	"fcmp/fcmperr"

	"github.com/mewkiz/pkg/dbg"
)

// Options configures an Engine.
type Options struct {
	// Threads is the worker count. 0 selects runtime.NumCPU().
	Threads int
	// Verbosity, when greater than zero, enables trace output via dbg: one
	// line per adopted candidate.
	Verbosity int
	// OnCycle, if set, is called after every completed cycle.
	OnCycle func(CycleStats)
}

// CycleStats summarizes one compress_cycle call, for progress reporting.
type CycleStats struct {
	CycleIndex int
	ModelCount int
	BestBits   int
	Rebased    bool
	Advanced   bool
}

// worker is one pool slot: its own condition variable (sharing the engine's
// mutex), and the job fields the dispatcher fills in before waking it.
type worker struct {
	cond *sync.Cond

	context   uint8
	weight    uint8
	sizeLimit int
	base      *compressor.Compressor

	hasWork   bool
	terminate bool
}

// Engine owns the search state: the data being compressed, the current
// accepted compressor, the best record produced so far, and the worker pool.
// All fields below the mutex are only ever touched with it held.
type Engine struct {
	opts Options
	data []byte

	mu           sync.Mutex
	dispatchCond *sync.Cond
	workers      []*worker
	active       []*worker
	dormant      []*worker
	wg           sync.WaitGroup

	current     *compressor.Compressor
	next        *compressor.Compressor
	best        *container.Record
	cycleIndex  int
	lastRebased bool
}

// trial is the outcome of running one candidate compressor over the full
// payload.
type trial struct {
	aborted          bool
	models           []container.ModelDescriptor
	bitPayloadLength int
	codedBits        []byte
	codedBitLen      int
}

// NewEngine starts a worker pool of opts.Threads goroutines (runtime.NumCPU()
// if zero) over data, with an empty starting compressor.
func NewEngine(data []byte, opts Options) *Engine {
	dbg.Debug = opts.Verbosity > 0

	threads := opts.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	e := &Engine{
		opts:    opts,
		data:    data,
		current: compressor.New(),
		workers: make([]*worker, threads),
	}
	e.dispatchCond = sync.NewCond(&e.mu)
	for i := range e.workers {
		w := &worker{cond: sync.NewCond(&e.mu)}
		e.workers[i] = w
		e.wg.Add(1)
		go e.workerLoop(w)
	}
	return e
}

// Close signals every worker to terminate and waits for them to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	for _, w := range e.workers {
		w.terminate = true
		w.cond.Signal()
	}
	e.mu.Unlock()
	e.wg.Wait()
}

// Compress runs compress_cycle to a fixed point and returns the best record
// found. The input is rejected up front if it could never fit the
// container's 24-bit bit_payload_length field, so the search never runs to
// completion only to have consider() discover the same thing from inside a
// worker. An empty input yields a record with no models and no coded bits
// without running the search.
func Compress(data []byte, opts Options) (*container.Record, error) {
	if len(data)*8 >= container.MaxBitPayloadLength {
		return nil, fcmperr.New(fcmperr.InputTooLarge, "input is %d bits, exceeds %d", len(data)*8, container.MaxBitPayloadLength)
	}
	if len(data) == 0 {
		return container.NewRecord(nil, 0, nil, 0)
	}

	e := NewEngine(data, opts)
	defer e.Close()

	for e.compressCycle() {
	}

	if e.best == nil {
		return nil, fmt.Errorf("search: no candidate compressor was ever adopted")
	}
	return e.best, nil
}

// workerLoop is a single pool slot's lifetime: sleep until given a job, mutate
// the base compressor, run it over the full payload, report back, repeat.
func (e *Engine) workerLoop(w *worker) {
	defer e.wg.Done()

	e.mu.Lock()
	e.goDormant(w, false)
	for !w.terminate {
		ctx, weight, limit, base := w.context, w.weight, w.sizeLimit, w.base
		w.hasWork = false
		e.mu.Unlock()

		candidate := base.Mutate(ctx, weight)
		var t *trial
		if candidate != nil {
			t = e.compressRun(candidate, limit)
		}

		e.mu.Lock()
		if candidate != nil && !t.aborted {
			e.consider(candidate, t)
		}
		e.goDormant(w, true)
	}
	e.mu.Unlock()
}

// goDormant moves w onto the dormant list (removing it from active first if
// wasActive), wakes the dispatcher, and sleeps on w's own condition variable
// until the dispatcher hands it work or the engine is shutting down. Must be
// called with e.mu held; returns with e.mu held.
func (e *Engine) goDormant(w *worker, wasActive bool) {
	if wasActive {
		e.removeActive(w)
	}
	e.dormant = append(e.dormant, w)
	e.dispatchCond.Signal()
	for !w.hasWork && !w.terminate {
		w.cond.Wait()
	}
}

func (e *Engine) removeActive(w *worker) {
	for i, aw := range e.active {
		if aw == w {
			e.active = append(e.active[:i], e.active[i+1:]...)
			return
		}
	}
}

// compressRun resets candidate's predictor tables and encodes the full
// payload with it, aborting early if the coded length exceeds sizeLimit bits
// (the current best's length, or unbounded on the very first trial).
func (e *Engine) compressRun(candidate *compressor.Compressor, sizeLimit int) *trial {
	candidate.Reset()

	enc := coder.NewEncoder()
	reader := bitstream.NewBitReader(e.data)
	total := reader.Len()

	for pos := 0; pos < total; pos++ {
		state := reader.State()
		bit := reader.CurrentBit()

		interval := candidate.Probability(state, true)
		enc.EncodeBit(bit, interval)
		candidate.Update(state, bit)
		reader.Advance()

		if enc.Bits().BitLength() > sizeLimit {
			return &trial{aborted: true}
		}
	}
	enc.Finish()

	models := make([]container.ModelDescriptor, candidate.Len())
	for i := 0; i < candidate.Len(); i++ {
		m := candidate.ModelAt(i)
		models[i] = container.ModelDescriptor{Context: m.Context(), Weight: m.Weight()}
	}

	bits := enc.Bits()
	return &trial{
		models:           models,
		bitPayloadLength: total,
		codedBits:        bits.Bytes(),
		codedBitLen:      bits.BitLength(),
	}
}

// consider adopts candidate as the engine's next current compressor if t
// strictly improves on the best record so far. Adoption is always followed by
// a self-check: re-extracting the candidate record and comparing it
// byte-for-byte against the original input. A mismatch is an internal
// invariant violation, not a user-facing error, since it can only mean a bug
// in the mixer, coder, or container layers -- not bad input.
func (e *Engine) consider(candidate *compressor.Compressor, t *trial) {
	if e.best != nil && t.codedBitLen >= e.best.CodedBitLength() {
		return
	}

	record, err := container.NewRecord(t.models, t.bitPayloadLength, t.codedBits, t.codedBitLen)
	if err != nil {
		panic(fmt.Sprintf("search: internal invariant violated building candidate record: %v", err))
	}
	verifyRecord(record, e.data)

	e.next = candidate
	e.best = record
	dbg.Println("search: adopted candidate,", t.codedBitLen, "coded bits,", candidate.Len(), "models")
}

// verifyRecord re-extracts record and panics if it does not reproduce
// original exactly.
func verifyRecord(record *container.Record, original []byte) {
	decoded, err := extract.Bytes(record)
	if err != nil {
		panic(fmt.Sprintf("search: self-check decode failed: %v", err))
	}
	if !bytes.Equal(decoded, original) {
		panic(fmt.Sprintf("search: self-check mismatch, decoded %d bytes, want %d", len(decoded), len(original)))
	}
}

// compressCycle dispatches every (context, weight) mutation of the current
// compressor to a worker, waits for the pool to drain, then rebases. It
// returns whether a strictly improving candidate was adopted this cycle (the
// caller should keep calling compressCycle while this is true).
func (e *Engine) compressCycle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for context := 1; context <= 255; context++ {
		for weight := 0; weight <= 255; weight++ {
			for len(e.dormant) == 0 {
				e.dispatchCond.Wait()
			}
			w := e.dormant[len(e.dormant)-1]
			e.dormant = e.dormant[:len(e.dormant)-1]
			e.active = append(e.active, w)

			limit := math.MaxInt
			if e.best != nil {
				limit = e.best.CodedBitLength()
			}
			w.context = uint8(context)
			w.weight = uint8(weight)
			w.sizeLimit = limit
			w.base = e.current
			w.hasWork = true
			w.cond.Signal()
		}
	}

	for len(e.dormant) != len(e.workers) {
		e.dispatchCond.Wait()
	}

	e.cycleIndex++
	advanced := e.cycle()

	if e.opts.OnCycle != nil {
		stats := CycleStats{CycleIndex: e.cycleIndex, ModelCount: e.current.Len(), Rebased: e.lastRebased, Advanced: advanced}
		if e.best != nil {
			stats.BestBits = e.best.CodedBitLength()
		}
		e.opts.OnCycle(stats)
	}
	return advanced
}

// cycle promotes next to current if a strictly smaller candidate was found
// this pass, then rebases (rescaling the weights toward the default on
// promotion, scaling down only otherwise). Must be called with e.mu held.
func (e *Engine) cycle() bool {
	if e.next == nil {
		e.lastRebased = e.current.Rebase(false)
		if e.lastRebased && e.best != nil {
			e.applyRebaseToHeader()
			verifyRecord(e.best, e.data)
		}
		return false
	}

	e.current = e.next
	e.next = nil
	e.lastRebased = e.current.Rebase(true)
	if e.lastRebased && e.best != nil {
		e.applyRebaseToHeader()
		verifyRecord(e.best, e.data)
	}
	return true
}

// applyRebaseToHeader rewrites best's model weights to match current after a
// rebase. current and best describe the same model set (rebase only ever
// changes weights), so the two line up index-for-index.
func (e *Engine) applyRebaseToHeader() {
	for i := 0; i < e.current.Len(); i++ {
		m := e.current.ModelAt(i)
		e.best.Models[i] = container.ModelDescriptor{Context: m.Context(), Weight: m.Weight()}
	}
}
