package depgraph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// Scenario A: ten-instruction dependency chain (spec.md §8). Types and
// latencies: LD,LD,DIV,ALU,MUL,MUL,ALU,ST,LD,ALU with latencies
// 2,2,4,1,2,2,1,1,2,1 and edges 1->3, 2->3, 1->4, {1,4}->5, 3->6,
// {2,6}->7, 7->8, 9->10. All issue_ready=1; the driver calls schedule
// then set_latency per node, in id order.
//
// spec.md's worked t_LR table for this scenario has nodes 1 and 2 (both
// LD, both independent, identical priority) issuing in the very same
// cycle, attributed in prose to "LD uses a_k=2". But the default table
// also gives LD an issue rate s_k=1, and Scenario B demonstrates s_k=1
// forcing strictly one admission per cycle even with a_k=2 headroom
// (four independent MULs land on cycles 1,2,3,4, not 1,1,2,2). Taking
// both scenarios' literal values at once is inconsistent under the
// stated algorithm, so this test checks the invariants spec.md §8
// actually quantifies — predecessor-finish ordering, capacity/issue-rate
// caps, and determinism — rather than asserting the specific disputed
// t_LR map (see DESIGN.md open-question 8).
func TestScenarioA_TenInstructionChain(t *testing.T) {
	g := NewGraph()

	classes := []Class{LD, LD, DIV, ALU, MUL, MUL, ALU, ST, LD, ALU}
	latencies := []uint64{2, 2, 4, 1, 2, 2, 1, 1, 2, 1}

	ids := make([]uint64, 11)
	for i := 1; i <= 10; i++ {
		ids[i] = g.AddNode(classes[i-1], 1, nil, nil)
	}

	edges := [][2]int{{1, 3}, {2, 3}, {1, 4}, {1, 5}, {4, 5}, {3, 6}, {2, 7}, {6, 7}, {7, 8}, {9, 10}}
	for _, e := range edges {
		require.NoError(t, g.AddEdgeRAW(ids[e[0]], ids[e[1]]))
	}

	for i := 1; i <= 10; i++ {
		_, err := g.Schedule(ids[i], 1)
		require.NoError(t, err)
		require.NoError(t, g.SetLatency(ids[i], latencies[i-1]))
	}

	got := make(map[int]uint64, 10)
	for i := 1; i <= 10; i++ {
		v, err := g.Schedule(ids[i], 1)
		require.NoError(t, err)
		require.NotZero(t, v, "node %d must end up scheduled", i)
		got[i] = v
	}

	// Predecessor ordering (quantified invariant, §8): p.t_LR+p.latency
	// <= n.t_LR for every edge.
	finish := func(i int) uint64 { return got[i] + latencies[i-1] }
	for _, e := range edges {
		p, n := e[0], e[1]
		require.LessOrEqualf(t, finish(p), got[n], "edge %d->%d violates predecessor-finish ordering", p, n)
	}

	// Capacity (a_k) invariant for DIV (a_k=1): node 3 is the only DIV,
	// trivially satisfied; exercised for real by the issue-rate check
	// below across the two independent MUL nodes (5, 6) which do share
	// a class: a_k(MUL)=2 would let both be in flight, but s_k(MUL)=1
	// forbids them issuing in the same cycle.
	require.NotEqual(t, got[5], got[6], "s_k(MUL)=1 allows only one MUL issue per cycle")

	// Determinism: re-running Schedule on an already-scheduled id must
	// return the same value (t_LR is monotonic, never revised).
	for i := 1; i <= 10; i++ {
		again, err := g.Schedule(ids[i], 1)
		require.NoError(t, err)
		require.Equal(t, got[i], again)
	}
}

// Scenario B: four independent MUL nodes, a_k(MUL)=2, s_k(MUL)=1, all
// issue_ready=1. Expected t_LR = {1,2,3,4}: one issues per cycle, and
// capacity headroom (2 in flight) only opens back up once an earlier MUL
// finishes.
func TestScenarioB_MulCapacityCap(t *testing.T) {
	g := NewGraph()

	var ids []uint64
	for i := 0; i < 4; i++ {
		id := g.AddNode(MUL, 1, nil, nil)
		require.NoError(t, g.SetLatency(id, 2))
		ids = append(ids, id)
	}

	want := []uint64{1, 2, 3, 4}
	for i, id := range ids {
		got, err := g.Schedule(id, 1)
		require.NoError(t, err)
		require.Equalf(t, want[i], got, "mul node index %d", i)
	}
}

// Scenario E: node A scheduled (eventually) at cycle 5 with latency 3;
// node B depends on A. schedule(B, 4) is called before A's latency is
// known. B cannot possibly be admitted within that first call since A
// has not been scheduled yet — this repo's Schedule therefore returns 0
// (not-yet) rather than sweeping on and admitting A itself with its
// placeholder latency (see DESIGN.md open-question 7,
// "single-call-advances-everyone semantics" plus its boundary case: a
// direct predecessor with no t_LR yet). Once the driver schedules A and
// sets its latency, re-examining B converges on t_LR=8.
func TestScenarioE_DeferredReadiness(t *testing.T) {
	g := NewGraph()

	a := g.AddNode(ALU, 5, nil, nil)
	b := g.AddNode(ALU, 1, nil, nil)
	require.NoError(t, g.AddEdgeRAW(a, b))

	gotB, err := g.Schedule(b, 4)
	require.NoError(t, err)
	require.Zero(t, gotB, "B must not be admitted before A has a start cycle")

	gotA, err := g.Schedule(a, 5)
	require.NoError(t, err)
	require.Equal(t, uint64(5), gotA)
	require.NoError(t, g.SetLatency(a, 3))

	gotB, err = g.Schedule(b, 6)
	require.NoError(t, err)
	require.Equal(t, uint64(8), gotB)
}

// Scenario F: two ALU nodes with identical operands_ready and
// issue_ready; the lower id must be admitted first. ALU has a_k=1, so
// they cannot issue the same cycle — the deterministic tie-break alone
// decides who goes first.
func TestScenarioF_TieBreakDeterminism(t *testing.T) {
	g := NewGraph()

	first := g.AddNode(ALU, 1, nil, nil)
	second := g.AddNode(ALU, 1, nil, nil)

	gotFirst, err := g.Schedule(first, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), gotFirst)

	gotSecond, err := g.Schedule(second, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), gotSecond, "second ALU must wait one cycle behind the lower id")
}

func TestAddEdgeRAW_UnknownID(t *testing.T) {
	g := NewGraph()
	n := g.AddNode(ALU, 1, nil, nil)

	err := g.AddEdgeRAW(999, n)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUnknownID))
}

func TestAddEdgeRAW_RejectsBackwardEdge(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(ALU, 1, nil, nil)
	b := g.AddNode(ALU, 1, nil, nil)

	err := g.AddEdgeRAW(b, a)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotPredecessor))
}

// Per-node a_k/s_k overrides take priority over the table default
// (open question 2): a DIV node explicitly allowed two concurrent
// occupants should not be capped at the table's a_k(DIV)=1.
// TestPerNodeCapacityOverride exercises a_k and s_k as orthogonal caps.
// DIV's table default is a_k=1, s_k=1. With a per-node a_k override to 2,
// two independent DIVs can overlap in flight — b need not wait for a's
// finish (cycle 5, since a's latency is 4) to start — but s_k is still 1
// by default, so b still cannot issue in the very same cycle as a; it
// issues the next cycle instead, overlapping a's remaining execution.
func TestPerNodeCapacityOverride(t *testing.T) {
	g := NewGraph()
	two := uint32(2)

	a := g.AddNode(DIV, 1, &two, nil)
	b := g.AddNode(DIV, 1, &two, nil)
	require.NoError(t, g.SetLatency(a, 4))
	require.NoError(t, g.SetLatency(b, 4))

	gotA, err := g.Schedule(a, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), gotA)

	gotB, err := g.Schedule(b, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(2), gotB,
		"override capacity 2 lets b start the cycle after a, without waiting for a's finish at cycle 5; s_k=1 still forbids the same cycle as a")
}

func TestCriticalPathWeight_NeverConsultedBySchedule(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(ALU, 1, nil, nil)
	b := g.AddNode(ALU, 1, nil, nil)
	require.NoError(t, g.AddEdgeRAW(a, b))
	require.NoError(t, g.SetLatency(a, 5))
	require.NoError(t, g.SetLatency(b, 1))

	// Computed before any scheduling happens; purely a static graph walk.
	weight := g.CriticalPathWeight(a)
	require.Equal(t, uint64(6), weight)

	gotA, err := g.Schedule(a, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), gotA, "CriticalPathWeight must not influence t_LR")
}

func TestPriorityString(t *testing.T) {
	g := NewGraph()
	a := g.AddNode(ALU, 3, nil, nil)
	g.Schedule(a, 3)
	// a's only predecessor is the root sentinel, anchored at t_LR=1 with
	// latency 0, so operands_ready = root.finish() = 1.
	require.Equal(t, "(1, 3, 1)", g.PriorityString(a))
}

func TestNodeCount(t *testing.T) {
	g := NewGraph()
	require.Equal(t, 1, g.NodeCount())
	g.AddNode(ALU, 1, nil, nil)
	g.AddNode(MUL, 1, nil, nil)
	require.Equal(t, 3, g.NodeCount())
}
