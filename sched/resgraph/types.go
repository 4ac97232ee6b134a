// Package resgraph implements the hierarchical pipeline-resource
// scheduler: stages (parents) with child substages, predecessor
// readiness, per-type capacity, and exit conditions that can extend a
// stage's occupancy. Grounded on original_source/ResourceScheduling.h's
// Node/CompareNodes/CompareOpReady/find_candidate_operations/
// find_running_operations, translated to per-type candidate slices of ids
// that are sorted fresh each cycle and dereferenced against the live node
// table (SPEC_FULL.md DESIGN NOTES §9).
package resgraph

// Type identifies a pipeline-stage/substage kind. The zero value, Empty,
// is reserved and never assigned to a real node (§6).
type Type uint32

const Empty Type = 0

const unsetOperandsReady = ^uint64(0)

type node struct {
	id       uint64
	parent   uint64 // 0 if top-level
	typ      Type
	capacity uint32
	latency  uint64
	tLR      uint64
	opReady  uint64

	childrenUnfinished int // -1 means "not a parent node"
	active             bool

	preds    []uint64
	succs    []uint64
	exitCond []uint64
}

// finish is the cycle n vacates its resource. A parent whose children have
// not all finished has no latency yet, so it reports unsetOperandsReady:
// it stays occupied and its successors are not yet ready.
func (n *node) finish() uint64 {
	if n.latency == unsetOperandsReady {
		return unsetOperandsReady
	}
	return n.tLR + n.latency
}

func (n *node) isParent() bool { return n.childrenUnfinished >= 0 }

// scheduled reports whether n has been assigned a start cycle.
func (n *node) scheduled() bool { return n.tLR > 0 }
