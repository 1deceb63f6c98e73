package vm

import (
	"sort"
	"sync/atomic"

	"github.com/zraight/numium/pkg/bytecode"
)

// Profiler counts executed instructions per opcode. Counters are atomic so
// a profiler may be read while the VM that feeds it is running.
type Profiler struct {
	counts [256]uint64
	total  uint64
}

// NewProfiler creates an empty profiler.
func NewProfiler() *Profiler {
	return &Profiler{}
}

// Record counts one execution of op.
func (p *Profiler) Record(op bytecode.Opcode) {
	atomic.AddUint64(&p.counts[op], 1)
	atomic.AddUint64(&p.total, 1)
}

// Count returns how often op was executed.
func (p *Profiler) Count(op bytecode.Opcode) uint64 {
	return atomic.LoadUint64(&p.counts[op])
}

// Total returns the number of recorded instructions.
func (p *Profiler) Total() uint64 {
	return atomic.LoadUint64(&p.total)
}

// OpcodeCount is one row of a profile.
type OpcodeCount struct {
	Op    bytecode.Opcode
	Count uint64
}

// Counts returns every executed opcode with its count, most frequent first.
// Ties are ordered by opcode value.
func (p *Profiler) Counts() []OpcodeCount {
	var out []OpcodeCount
	for i := range p.counts {
		if n := atomic.LoadUint64(&p.counts[i]); n > 0 {
			out = append(out, OpcodeCount{Op: bytecode.Opcode(i), Count: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Op < out[j].Op
	})
	return out
}

// Reset zeroes all counters.
func (p *Profiler) Reset() {
	for i := range p.counts {
		atomic.StoreUint64(&p.counts[i], 0)
	}
	atomic.StoreUint64(&p.total, 0)
}

// ProfilerStats holds aggregate profiling statistics.
type ProfilerStats struct {
	Total    uint64
	Distinct int
	Hottest  bytecode.Opcode
}

// Stats returns aggregate statistics. Hottest is OpNop when nothing ran.
func (p *Profiler) Stats() ProfilerStats {
	counts := p.Counts()
	stats := ProfilerStats{Total: p.Total(), Distinct: len(counts), Hottest: bytecode.OpNop}
	if len(counts) > 0 {
		stats.Hottest = counts[0].Op
	}
	return stats
}
