package resgraph

import "sort"

// Tracer receives optional per-cycle observability events; see
// sched/depgraph.Tracer for the matching interface shared by
// internal/tracelog's single Logger implementation.
type Tracer interface {
	Sweep(tCurr uint64, class any, uAct, tActSet, sAct []uint64)
	Park(id uint64, opReady uint64)
	Readmit(id uint64)
}

// extraTracer carries the two resource-graph-specific events that don't
// apply to the dependency engine; implemented by *tracelog.Logger too.
type extraTracer interface {
	ExitExtend(id uint64, cond uint64, newLatency uint64)
	ParentFinish(id uint64, latency uint64)
}

// Graph is the hierarchical pipeline-resource scheduler (SPEC_FULL.md
// §4.2). Construct with NewGraph.
type Graph struct {
	nodes  []*node
	ids    map[uint64]bool
	ready  map[uint64]bool
	nextID uint64

	// uAct holds, per type, the candidates that have cleared
	// find_candidate_operations but have not yet been admitted — it is
	// persistent across cycles (unlike depgraph's per-tick rebuild)
	// because a candidate skipped this cycle (capacity full, or its
	// parent stage has not started) must still be retried next cycle
	// rather than silently dropping out of contention.
	uAct map[Type][]uint64

	types    []Type
	typesSet map[Type]bool

	tCurr uint64
	trace Tracer
}

// NewGraph constructs an empty resource graph with only the root
// sentinel present.
func NewGraph() *Graph {
	g := &Graph{
		ids:      make(map[uint64]bool),
		ready:    make(map[uint64]bool),
		uAct:     make(map[Type][]uint64),
		typesSet: make(map[Type]bool),
		nextID:   1,
		tCurr:    1,
	}
	root := &node{id: 0, typ: Empty, latency: 0, childrenUnfinished: -1}
	g.nodes = append(g.nodes, root)
	g.ids[0] = true
	return g
}

// SetTracer attaches an observability sink; pass nil to disable tracing.
func (g *Graph) SetTracer(t Tracer) { g.trace = t }

func (g *Graph) mustNode(id uint64) *node {
	if int(id) >= len(g.nodes) {
		panic("resgraph: internal invariant broken: unknown id referenced after insertion")
	}
	return g.nodes[id]
}

func (g *Graph) registerType(typ Type) {
	if typ == Empty || g.typesSet[typ] {
		return
	}
	g.typesSet[typ] = true
	g.types = append(g.types, typ)
}

// AddParentNode inserts a stage node: it has children and no intrinsic
// latency until the last of them finishes.
func (g *Graph) AddParentNode(typ Type, capacity uint32) uint64 {
	if capacity == 0 {
		capacity = 1
	}
	g.registerType(typ)
	id := g.nextID
	g.nextID++
	n := &node{id: id, typ: typ, capacity: capacity, latency: unsetOperandsReady, childrenUnfinished: 0}
	g.nodes = append(g.nodes, n)
	g.ids[id] = true
	return id
}

// AddNode inserts a leaf node, or a top-level node if parent is 0.
// Joining a parent inherits that parent's predecessors; if the parent
// currently has none, the new node becomes immediately ready.
func (g *Graph) AddNode(typ Type, latency uint64, capacity uint32, parent uint64) (uint64, error) {
	if capacity == 0 {
		capacity = 1
	}
	if parent != 0 && !g.ids[parent] {
		return 0, newErr("AddNode", parent, ErrUnknownID)
	}
	if parent != 0 && !g.mustNode(parent).isParent() {
		return 0, newErr("AddNode", parent, ErrNotParent)
	}

	g.registerType(typ)
	id := g.nextID
	g.nextID++
	n := &node{id: id, typ: typ, latency: latency, capacity: capacity, childrenUnfinished: -1}
	g.nodes = append(g.nodes, n)
	g.ids[id] = true

	if parent != 0 {
		pn := g.mustNode(parent)
		n.parent = parent
		pn.childrenUnfinished++

		for _, p := range pn.preds {
			if err := g.AddEdge(p, id); err != nil {
				return 0, err
			}
		}
		if len(pn.preds) == 0 {
			g.ready[id] = true
		}
	}

	return id, nil
}

// AddEdge adds a predecessor edge; an edge from the root (0) inserts to
// directly into the ready set.
func (g *Graph) AddEdge(from, to uint64) error {
	if !g.ids[to] {
		return newErr("AddEdge", to, ErrUnknownID)
	}
	if from != 0 {
		if !g.ids[from] {
			return newErr("AddEdge", from, ErrUnknownID)
		}
		if from == to {
			return newErr("AddEdge", to, ErrCycle)
		}
		tn := g.mustNode(to)
		fn := g.mustNode(from)
		tn.preds = append(tn.preds, from)
		fn.succs = append(fn.succs, to)
		return nil
	}
	g.ready[to] = true
	return nil
}

// AddExitCond declares that id cannot vacate its resource until cond has
// also finished; while blocked, id's latency is extended by one cycle
// per blocked cycle.
func (g *Graph) AddExitCond(id, cond uint64) error {
	if !g.ids[id] {
		return newErr("AddExitCond", id, ErrUnknownID)
	}
	if !g.ids[cond] {
		return newErr("AddExitCond", cond, ErrUnknownID)
	}
	g.mustNode(id).exitCond = append(g.mustNode(id).exitCond, cond)
	return nil
}

// GetNodeTStart returns t_LR - 1.
func (g *Graph) GetNodeTStart(id uint64) uint64 { return g.mustNode(id).tLR - 1 }

// GetNodeTEnd returns t_LR + latency - 1.
func (g *Graph) GetNodeTEnd(id uint64) uint64 {
	n := g.mustNode(id)
	return n.tLR + n.latency - 1
}

// NodeCount returns the number of nodes inserted, including the root.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// PriorityString renders a node's tie-break tuple as
// "(operands_ready, id)" — the resource engine drops issue_ready from the
// tuple since leaf nodes have no frontend issue-ready concept of their own.
func (g *Graph) PriorityString(id uint64) string {
	n := g.mustNode(id)
	return "(" + uintStr(n.opReady) + ", " + uintStr(n.id) + ")"
}

func uintStr(v uint64) string {
	if v == unsetOperandsReady {
		return "inf"
	}
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// Schedule advances t_curr up to and including tEnter. If finish is true,
// it keeps advancing past tEnter while any node remains in the ready set,
// awaiting admission, or (for a leaf) still occupying its resource. Without
// finish, a tEnter below the already-advanced t_curr is a no-op (§4.2
// failure semantics).
func (g *Graph) Schedule(tEnter uint64, finish bool) {
	g.nodes[0].tLR = 1

	for g.tCurr <= tEnter || (finish && (len(g.ready) > 0 || g.anyPending())) {
		g.findCandidateOperations(g.tCurr)
		tActByType := g.findRunningOperations(g.tCurr)

		for _, typ := range g.types {
			g.admitOneType(typ, tActByType[typ], g.tCurr)
		}

		g.tCurr++
	}
}

func (g *Graph) anyPending() bool {
	for _, ids := range g.uAct {
		if len(ids) > 0 {
			return true
		}
	}
	// An active leaf must still be swept each cycle so it can retire, and
	// so an unmet exit condition can extend its latency.
	for _, n := range g.nodes[1:] {
		if n.active && !n.isParent() {
			return true
		}
	}
	return false
}

// findCandidateOperations drains ready into the persistent per-type
// candidate lists, recording operands_ready as the max predecessor
// finish time.
func (g *Graph) findCandidateOperations(t uint64) {
	var admitted []uint64
	for id := range g.ready {
		n := g.mustNode(id)
		allFinished := true
		var maxFinish uint64
		for _, p := range n.preds {
			pn := g.mustNode(p)
			pf := pn.finish()
			if pn.tLR == 0 || pf > t {
				allFinished = false
				break
			}
			if pf > maxFinish {
				maxFinish = pf
			}
		}
		if !allFinished {
			continue
		}
		n.opReady = maxFinish
		g.uAct[n.typ] = append(g.uAct[n.typ], id)
		admitted = append(admitted, id)
		if g.trace != nil {
			g.trace.Park(id, maxFinish)
		}
	}
	for _, id := range admitted {
		delete(g.ready, id)
	}
}

// findRunningOperations retires finished occupants (honoring exit
// conditions) and propagates parent-completion zero-crossings to
// successors. Returns the still-active occupants grouped by type, for
// this cycle's admission pass.
func (g *Graph) findRunningOperations(t uint64) map[Type][]uint64 {
	tActByType := make(map[Type][]uint64)
	addCandidates := false

	for _, n := range g.nodes[1:] {
		if !n.active {
			continue
		}
		if n.finish() > t {
			tActByType[n.typ] = append(tActByType[n.typ], n.id)
			continue
		}

		blocked := false
		for _, condID := range n.exitCond {
			cn := g.mustNode(condID)
			if cn.tLR == 0 || cn.finish() > t {
				blocked = true
				n.latency++
				if g.trace != nil {
					if et, ok := g.trace.(extraTracer); ok {
						et.ExitExtend(n.id, condID, n.latency)
					}
				}
				break
			}
		}
		if blocked {
			tActByType[n.typ] = append(tActByType[n.typ], n.id)
			continue
		}

		n.active = false

		if n.parent != 0 {
			pn := g.mustNode(n.parent)
			pn.childrenUnfinished--
			if pn.childrenUnfinished == 0 {
				pn.latency = t - pn.tLR
				pn.active = false
				if g.trace != nil {
					if et, ok := g.trace.(extraTracer); ok {
						et.ParentFinish(pn.id, pn.latency)
					}
				}
				addCandidates = true
			}
		}
	}

	if addCandidates {
		g.findCandidateOperations(t)
	}

	return tActByType
}

// admitOneType is step 3 of the per-cycle sweep for a single type: build
// the priority order over this type's persistent candidate list, then
// admit while capacity allows, skipping (but retaining, for next cycle)
// any candidate whose parent has not started.
func (g *Graph) admitOneType(typ Type, tActSet []uint64, tCurr uint64) {
	uAct := g.uAct[typ]
	sort.Slice(uAct, func(i, j int) bool {
		ni, nj := g.mustNode(uAct[i]), g.mustNode(uAct[j])
		if ni.opReady != nj.opReady {
			return ni.opReady < nj.opReady
		}
		return ni.id < nj.id
	})

	var sAct []uint64
	remaining := uAct[:0:0]
	for i, id := range uAct {
		n := g.mustNode(id)
		if n.parent != 0 && g.mustNode(n.parent).tLR == 0 {
			remaining = append(remaining, id)
			continue
		}
		if uint32(len(tActSet)+len(sAct)) >= n.capacity {
			// Capacity exhausted: this and every remaining candidate
			// (sorted by ascending priority) stay parked for next cycle.
			remaining = append(remaining, uAct[i:]...)
			break
		}
		n.tLR = tCurr
		n.active = true
		sAct = append(sAct, id)
		for _, s := range n.succs {
			g.ready[s] = true
		}
	}
	g.uAct[typ] = remaining

	if g.trace != nil {
		g.trace.Sweep(tCurr, typ, uAct, tActSet, sAct)
	}
}
