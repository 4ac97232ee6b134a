package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maemo32/supraxsched/sched/depgraph"
	"github.com/maemo32/supraxsched/sched/resgraph"
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario {a|b|c|d|e|f}",
		Short: "Run one of spec.md §8's worked scenarios and print the resulting schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "a":
				return runScenarioA(cmd)
			case "b":
				return runScenarioB(cmd)
			case "c":
				return runScenarioC(cmd)
			case "d":
				return runScenarioD(cmd)
			case "e":
				return runScenarioE(cmd)
			case "f":
				return runScenarioF(cmd)
			default:
				return fmt.Errorf("unknown scenario %q (want a, b, c, d, e, or f)", args[0])
			}
		},
	}
	return cmd
}

// runScenarioA reproduces the ten-instruction dependency chain.
func runScenarioA(cmd *cobra.Command) error {
	g := depgraph.NewGraph()
	g.SetTracer(logger())

	classes := []depgraph.Class{depgraph.LD, depgraph.LD, depgraph.DIV, depgraph.ALU, depgraph.MUL, depgraph.MUL, depgraph.ALU, depgraph.ST, depgraph.LD, depgraph.ALU}
	latencies := []uint64{2, 2, 4, 1, 2, 2, 1, 1, 2, 1}

	ids := make([]uint64, 11)
	for i := 1; i <= 10; i++ {
		ids[i] = g.AddNode(classes[i-1], 1, nil, nil)
	}
	edges := [][2]int{{1, 3}, {2, 3}, {1, 4}, {1, 5}, {4, 5}, {3, 6}, {2, 7}, {6, 7}, {7, 8}, {9, 10}}
	for _, e := range edges {
		if err := g.AddEdgeRAW(ids[e[0]], ids[e[1]]); err != nil {
			return err
		}
	}
	for i := 1; i <= 10; i++ {
		if _, err := g.Schedule(ids[i], 1); err != nil {
			return err
		}
		if err := g.SetLatency(ids[i], latencies[i-1]); err != nil {
			return err
		}
	}
	for i := 1; i <= 10; i++ {
		t, err := g.Schedule(ids[i], 1)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "node %d: t_LR=%d %s\n", i, t, g.PriorityString(ids[i]))
	}
	return nil
}

// runScenarioB reproduces the four-independent-MUL capacity cap.
func runScenarioB(cmd *cobra.Command) error {
	g := depgraph.NewGraph()
	g.SetTracer(logger())

	for i := 0; i < 4; i++ {
		id := g.AddNode(depgraph.MUL, 1, nil, nil)
		if err := g.SetLatency(id, 2); err != nil {
			return err
		}
		t, err := g.Schedule(id, 1)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "mul %d: t_LR=%d\n", i, t)
	}
	return nil
}

// runScenarioC reproduces the IF/ID/EX/WB pipeline.
func runScenarioC(cmd *cobra.Command) error {
	const (
		typeIF resgraph.Type = iota + 1
		typeIF1a
		typeIF1b
		typeID
		typeEX
		typeWB
	)
	g := resgraph.NewGraph()
	g.SetTracer(logger())

	ifStage := g.AddParentNode(typeIF, 1)
	if err := g.AddEdge(0, ifStage); err != nil {
		return err
	}
	if1, err := g.AddNode(typeIF1a, 1, 1, ifStage)
	if err != nil {
		return err
	}
	if2, err := g.AddNode(typeIF1b, 1, 1, ifStage)
	if err != nil {
		return err
	}
	if err := g.AddEdge(if1, if2); err != nil {
		return err
	}
	id, err := g.AddNode(typeID, 1, 1, 0)
	if err != nil {
		return err
	}
	if err := g.AddEdge(ifStage, id); err != nil {
		return err
	}
	ex, err := g.AddNode(typeEX, 4, 1, 0)
	if err != nil {
		return err
	}
	if err := g.AddEdge(id, ex); err != nil {
		return err
	}
	wb, err := g.AddNode(typeWB, 1, 1, 0)
	if err != nil {
		return err
	}
	if err := g.AddEdge(ex, wb); err != nil {
		return err
	}

	g.Schedule(1, true)

	for name, nid := range map[string]uint64{"IF": ifStage, "ID": id, "EX": ex, "WB": wb} {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: t_start=%d t_end=%d\n", name, g.GetNodeTStart(nid), g.GetNodeTEnd(nid))
	}
	return nil
}

// runScenarioD reproduces the exit-conditioned stall.
func runScenarioD(cmd *cobra.Command) error {
	const (
		typeEX resgraph.Type = iota + 1
		typeID
	)
	g := resgraph.NewGraph()
	g.SetTracer(logger())

	ex1, err := g.AddNode(typeEX, 4, 1, 0)
	if err != nil {
		return err
	}
	if err := g.AddEdge(0, ex1); err != nil {
		return err
	}
	id2, err := g.AddNode(typeID, 1, 1, 0)
	if err != nil {
		return err
	}
	if err := g.AddEdge(0, id2); err != nil {
		return err
	}
	if err := g.AddExitCond(id2, ex1); err != nil {
		return err
	}

	g.Schedule(1, true)

	fmt.Fprintf(cmd.OutOrStdout(), "ex1: t_start=%d t_end=%d\n", g.GetNodeTStart(ex1), g.GetNodeTEnd(ex1))
	fmt.Fprintf(cmd.OutOrStdout(), "id2: t_start=%d t_end=%d\n", g.GetNodeTStart(id2), g.GetNodeTEnd(id2))
	return nil
}

// runScenarioE reproduces deferred readiness across two out-of-order
// schedule calls.
func runScenarioE(cmd *cobra.Command) error {
	g := depgraph.NewGraph()
	g.SetTracer(logger())

	a := g.AddNode(depgraph.ALU, 5, nil, nil)
	b := g.AddNode(depgraph.ALU, 1, nil, nil)
	if err := g.AddEdgeRAW(a, b); err != nil {
		return err
	}

	tb, err := g.Schedule(b, 4)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "b (first attempt, t_curr=4): t_LR=%d\n", tb)

	ta, err := g.Schedule(a, 5)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "a: t_LR=%d\n", ta)
	if err := g.SetLatency(a, 3); err != nil {
		return err
	}

	tb, err = g.Schedule(b, 6)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "b (re-examined, t_curr=6): t_LR=%d\n", tb)
	return nil
}

// runScenarioF reproduces tie-break determinism between two equal-priority
// ALU nodes.
func runScenarioF(cmd *cobra.Command) error {
	g := depgraph.NewGraph()
	g.SetTracer(logger())

	first := g.AddNode(depgraph.ALU, 1, nil, nil)
	second := g.AddNode(depgraph.ALU, 1, nil, nil)

	t1, err := g.Schedule(first, 1)
	if err != nil {
		return err
	}
	t2, err := g.Schedule(second, 1)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "first: t_LR=%d\nsecond: t_LR=%d\n", t1, t2)
	return nil
}
