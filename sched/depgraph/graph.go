package depgraph

import "sort"

// Tracer receives optional per-cycle observability events. A nil Tracer
// on Graph means tracing is disabled; internal/tracelog provides the
// zerolog-backed implementation used by cmd/supraxsched's --debug flag.
type Tracer interface {
	// class is a Class, typed any so one Tracer implementation can also
	// satisfy sched/resgraph.Tracer (whose classes are a different type)
	// without an adapter.
	Sweep(tAct uint64, class any, uAct, tActSet, sAct []uint64)
	Park(id uint64, opReady uint64)
	Readmit(id uint64)
}

// Graph is the incremental dependency-graph list scheduler (SPEC_FULL.md
// §4.1). The zero value is not usable; construct with NewGraph.
type Graph struct {
	nodes  []*node // index == id; nodes[0] is the root sentinel
	ids    map[uint64]bool
	order  []Class // ClassOrder or ClassOrderLSU
	limits map[Class]Limits
	ready  map[uint64]bool
	active classSet
	slip   *slipQueue
	trace  Tracer
	nextID uint64

	// tAct is the engine's current cycle, persisted across Schedule calls
	// the same way sched/resgraph.Graph.tCurr is. It only ever advances.
	// Without this, a_k/s_k admissions already counted for a cycle by one
	// Schedule call would be invisible to a later call revisiting that
	// same cycle, letting a class over-admit across calls.
	tAct uint64
}

// NewGraph constructs a dependency graph using the default functional-unit
// class order and capacity/issue-rate table. Use NewGraphWithLimits to
// override them (e.g. for the LSU-merged variant, or config-driven tables
// loaded by sched/config).
func NewGraph() *Graph {
	return NewGraphWithLimits(ClassOrder, DefaultLimits)
}

// NewGraphWithLimits constructs a graph with an explicit class sweep order
// and limits table.
func NewGraphWithLimits(order []Class, limits map[Class]Limits) *Graph {
	g := &Graph{
		ids:    make(map[uint64]bool),
		order:  order,
		limits: limits,
		ready:  make(map[uint64]bool),
		nextID: 1,
	}
	g.slip = newSlipQueue(g)
	root := &node{id: 0, class: Empty, latency: 0}
	g.nodes = append(g.nodes, root)
	g.ids[0] = true
	return g
}

// SetTracer attaches an observability sink; pass nil to disable tracing.
func (g *Graph) SetTracer(t Tracer) { g.trace = t }

func (g *Graph) mustNode(id uint64) *node {
	if int(id) >= len(g.nodes) {
		panic("depgraph: internal invariant broken: unknown id referenced after insertion")
	}
	return g.nodes[id]
}

// AddNode inserts a new node of the given class, issue-ready cycle, and
// optional per-node a_k/s_k overrides (pass nil to use the table default).
// The root is wired in as a placeholder predecessor and the node is
// inserted into the ready set; it is replaced by AddEdgeRAW's first real
// edge.
func (g *Graph) AddNode(class Class, issueReady uint64, capacity, issueRate *uint32) uint64 {
	id := g.nextID
	g.nextID++

	n := &node{
		id:         id,
		class:      class,
		issueReady: issueReady,
		latency:    1,
		opReady:    unsetOperandsReady,
		predc:      []uint64{0},
		capacity:   capacity,
		issueRate:  issueRate,
	}
	g.nodes = append(g.nodes, n)
	g.ids[id] = true
	g.ready[id] = true
	return id
}

// AddEdgeRAW records a read-after-write dependency: to must wait for
// from to finish. If to's only predecessor was the root placeholder, it
// is replaced rather than appended to, per SPEC_FULL.md §4.1.
func (g *Graph) AddEdgeRAW(from, to uint64) error {
	if !g.ids[from] {
		return newErr("AddEdgeRAW", from, ErrUnknownID)
	}
	if !g.ids[to] {
		return newErr("AddEdgeRAW", to, ErrUnknownID)
	}
	if from == to {
		return newErr("AddEdgeRAW", to, ErrCycle)
	}
	if from > to {
		// Insertion order is id order (invariant 6); a predecessor with a
		// larger id than its successor could never have been scheduled
		// first and signals a malformed or cyclic graph.
		return newErr("AddEdgeRAW", from, ErrNotPredecessor)
	}

	tn := g.mustNode(to)
	if len(tn.predc) == 1 && tn.predc[0] == 0 && from != 0 {
		tn.predc = tn.predc[:0]
	}
	tn.predc = append(tn.predc, from)
	return nil
}

// SetLatency records the driver-observed latency for a node, replacing
// the default placeholder of 1. It may be called before or after the
// node has been scheduled; later schedule calls pick up the new value
// when recomputing operands_ready for any dependent successor.
func (g *Graph) SetLatency(id uint64, value uint64) error {
	if !g.ids[id] {
		return newErr("SetLatency", id, ErrUnknownID)
	}
	g.mustNode(id).latency = value
	return nil
}

// SetWBTime is the LSU-variant counterpart of SetLatency: the driver
// supplies the absolute write-back cycle instead of a duration, and the
// engine derives latency = t_now - (t_LR+1), clamped to a minimum of 1.
func (g *Graph) SetWBTime(id uint64, tNow uint64) error {
	if !g.ids[id] {
		return newErr("SetWBTime", id, ErrUnknownID)
	}
	n := g.mustNode(id)
	n.wbDeclared = true
	if n.tLR == 0 {
		// Not yet scheduled: there is no start cycle to subtract from,
		// so the latency is left unchanged until a call made after the
		// node has a start cycle.
		return nil
	}
	var latency uint64 = 1
	if tNow > n.tLR {
		d := tNow - (n.tLR + 1)
		if d >= 1 {
			latency = d
		}
	}
	n.latency = latency
	return nil
}

// NodeCount returns the number of nodes inserted, including the root
// sentinel.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// PriorityString renders a node's tie-break tuple as
// "(operands_ready, issue_ready, id)", matching the external-interface
// surface of SPEC_FULL.md §6.
func (g *Graph) PriorityString(id uint64) string {
	n := g.mustNode(id)
	return sprintPriority(n.opReady, n.issueReady, n.id)
}

// CriticalPathWeight is an informational, supplemental metric echoing
// original_source/DependencyGraph.h's update_priorities() back-propagation:
// the sum of latencies along the longest chain from id to any sink. It is
// computed on demand, never cached, and never consulted by Schedule —
// purely diagnostic (SPEC_FULL.md §C).
func (g *Graph) CriticalPathWeight(id uint64) uint64 {
	if !g.ids[id] {
		return 0
	}
	succs := g.successors()
	memo := make(map[uint64]uint64)
	var walk func(uint64) uint64
	walk = func(cur uint64) uint64 {
		if w, ok := memo[cur]; ok {
			return w
		}
		n := g.mustNode(cur)
		var best uint64
		for _, s := range succs[cur] {
			if w := walk(s); w > best {
				best = w
			}
		}
		w := n.latency + best
		memo[cur] = w
		return w
	}
	return walk(id)
}

func (g *Graph) successors() map[uint64][]uint64 {
	out := make(map[uint64][]uint64)
	for _, n := range g.nodes {
		for _, p := range n.predc {
			out[p] = append(out[p], n.id)
		}
	}
	return out
}

func sprintPriority(opReady, issueReady, id uint64) string {
	return "(" + uintStr(opReady) + ", " + uintStr(issueReady) + ", " + uintStr(id) + ")"
}

func uintStr(v uint64) string {
	if v == unsetOperandsReady {
		return "inf"
	}
	// small, local formatter avoids pulling in strconv just for this
	// display helper; kept here rather than in a shared utils package
	// since nothing else in the module needs it.
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

// Schedule advances the engine's current cycle (g.tAct) until curr's
// t_LR is set and returns it, or returns 0 if curr cannot be admitted
// this call because one of its direct predecessors has not itself been
// scheduled yet — the driver must Schedule that predecessor first (see
// Scenario E, spec.md §8, and DESIGN.md's open-question 7 resolution).
//
// tAct is persisted on Graph rather than restarted from tCurr on every
// call (unlike a naive re-implementation, and mirroring
// sched/resgraph.Graph.tCurr): a class's a_k/s_k admissions already
// counted for a cycle by one Schedule call must stay visible to a later
// call that revisits the same cycle, or the cap is trivially bypassed by
// calling Schedule once per node at the same t_curr (spec.md §2's
// documented usage pattern).
//
// It is otherwise a shared-state sweep: every call, regardless of which
// node is named as curr, purges finished occupants, re-admits slipped
// candidates, and admits whatever is ready across the whole graph as
// t_act advances — curr only names the node this particular call reports
// back.
func (g *Graph) Schedule(curr uint64, tCurr uint64) (uint64, error) {
	if !g.ids[curr] {
		return 0, newErr("Schedule", curr, ErrUnknownID)
	}

	if tCurr > g.tAct {
		g.tAct = tCurr
	}

	g.purgeCompletedActives(g.tAct)
	g.readmitDeferred(g.tAct)

	root := g.nodes[0]
	root.tLR = 1
	delete(g.ready, 0)

	target := g.mustNode(curr)
	for target.tLR == 0 {
		for _, class := range g.order {
			g.sweepClass(class, g.tAct)
		}
		if target.tLR != 0 {
			break
		}
		if g.hasUnscheduledPredecessor(target) {
			return 0, nil
		}
		g.tAct++
	}
	return target.tLR, nil
}

// hasUnscheduledPredecessor reports whether n has a direct predecessor
// with no t_LR yet. Schedule stops in that case instead of advancing tAct
// further: continuing would let the sweep admit the predecessor itself
// with whatever latency it currently holds, before the driver has
// scheduled it through its own Schedule call.
func (g *Graph) hasUnscheduledPredecessor(n *node) bool {
	for _, p := range n.predc {
		if g.mustNode(p).tLR == 0 {
			return true
		}
	}
	return false
}

func (g *Graph) purgeCompletedActives(tCurr uint64) {
	for _, id := range g.active.ids() {
		n := g.mustNode(id)
		if n.finish() < tCurr {
			g.active.remove(id)
		}
	}
}

func (g *Graph) readmitDeferred(tCurr uint64) {
	for g.slip.Len() > 0 {
		top := g.mustNode(g.slip.top())
		if g.slip.liveOpReady(top) <= tCurr {
			break
		}
		id := g.slip.popTop()
		n := g.mustNode(id)
		n.tLR = 0
		g.active.remove(id)
		g.ready[id] = true
		if g.trace != nil {
			g.trace.Readmit(id)
		}
	}
}

func (g *Graph) sweepClass(class Class, tAct uint64) {
	uAct, tActSet, issuedAtTAct := g.scanCandidatesAndActives(class, tAct)

	sort.Slice(uAct, func(i, j int) bool {
		ni, nj := g.mustNode(uAct[i]), g.mustNode(uAct[j])
		if ni.opReady != nj.opReady {
			return ni.opReady < nj.opReady
		}
		if ni.issueReady != nj.issueReady {
			return ni.issueReady < nj.issueReady
		}
		return ni.id < nj.id
	})

	limits := g.limitsFor(class)
	var sAct []uint64
	for _, id := range uAct {
		n := g.mustNode(id)
		cap := limits.Capacity
		if n.capacity != nil {
			cap = *n.capacity
		}
		rate := limits.IssueRate
		if n.issueRate != nil {
			rate = *n.issueRate
		}
		// issuedAtTAct already reflects admissions made for this exact
		// cycle by an earlier Schedule call (tracked via g.active, which
		// persists across calls); sAct only adds this call's own.
		if uint32(issuedAtTAct+len(sAct)) >= rate {
			break
		}
		if uint32(len(tActSet)+len(sAct)) >= cap {
			break
		}
		n.tLR = tAct
		delete(g.ready, id)
		g.active.add(id)
		sAct = append(sAct, id)
	}

	if g.trace != nil {
		g.trace.Sweep(tAct, class, uAct, tActSet, sAct)
	}
}

// scanCandidatesAndActives is find_candidate_operations + the still-active
// half of find_running_operations for one class, folded together since
// both need the same class-filtered pass over live node state.
//
// tActSet is the a_k occupancy set: active nodes of this class whose
// window actually covers tAct (started at or before tAct, not yet
// finished). issuedAtTAct is the s_k admission count: active nodes of
// this class admitted at exactly tAct, by this call or an earlier one —
// this is what makes the issue-rate cap persistent-engine-state rather
// than reset per call.
func (g *Graph) scanCandidatesAndActives(class Class, tAct uint64) (uAct, tActSet []uint64, issuedAtTAct int) {
	for id := range g.ready {
		n := g.mustNode(id)
		if n.class != class || n.tLR != 0 {
			continue
		}
		if tAct < n.issueReady {
			continue
		}
		allFinished := true
		var maxFinish uint64
		for _, p := range n.predc {
			pn := g.mustNode(p)
			if pn.tLR == 0 || pn.finish() > tAct {
				allFinished = false
				break
			}
			if pn.finish() > maxFinish {
				maxFinish = pn.finish()
			}
		}
		if !allFinished {
			continue
		}
		n.opReady = maxFinish
		uAct = append(uAct, id)
		g.slip.pushIfAbsent(id)
		if g.trace != nil {
			g.trace.Park(id, maxFinish)
		}
	}

	for _, id := range g.active.ids() {
		n := g.mustNode(id)
		if n.class != class {
			continue
		}
		if n.tLR != 0 && n.tLR <= tAct && n.finish() > tAct {
			tActSet = append(tActSet, id)
		}
		if n.tLR == tAct {
			issuedAtTAct++
		}
	}
	return uAct, tActSet, issuedAtTAct
}

func (g *Graph) limitsFor(class Class) Limits {
	if l, ok := g.limits[class]; ok {
		return l
	}
	return Limits{Capacity: 1, IssueRate: 1}
}
