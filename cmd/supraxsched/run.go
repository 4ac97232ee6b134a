package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/maemo32/supraxsched/sched/config"
	"github.com/maemo32/supraxsched/sched/depgraph"
)

// instructionFile is the declarative YAML shape accepted by `run`: a flat
// list of dynamic instructions, each naming the predecessors it reads
// operands from. Separate from sched/config, which tunes the engine's
// tables rather than describing a program to schedule.
type instructionFile struct {
	Instructions []instruction `yaml:"instructions"`
}

type instruction struct {
	ID         uint64   `yaml:"id"`
	Class      string   `yaml:"class"`
	IssueReady uint64   `yaml:"issue_ready"`
	Latency    uint64   `yaml:"latency"`
	Preds      []uint64 `yaml:"preds"`
}

var classByName = map[string]depgraph.Class{
	"DIV": depgraph.DIV,
	"MUL": depgraph.MUL,
	"BR":  depgraph.BR,
	"ALU": depgraph.ALU,
	"LD":  depgraph.LD,
	"ST":  depgraph.ST,
	"LSU": depgraph.LSU,
}

func newRunCmd() *cobra.Command {
	var programPath, configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Schedule a declarative instruction list from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProgram(cmd, programPath, configPath)
		},
	}
	cmd.Flags().StringVar(&programPath, "program", "", "path to a YAML instruction list (required)")
	cmd.Flags().StringVar(&configPath, "config", "", "optional YAML file overriding class capacity/issue-rate tables")
	cmd.MarkFlagRequired("program")
	return cmd
}

func runProgram(cmd *cobra.Command, programPath, configPath string) error {
	data, err := os.ReadFile(programPath)
	if err != nil {
		return fmt.Errorf("read program: %w", err)
	}
	var prog instructionFile
	if err := yaml.Unmarshal(data, &prog); err != nil {
		return fmt.Errorf("parse program: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	g := depgraph.NewGraphWithLimits(cfg.DepgraphOrder(), cfg.DepgraphLimits())
	g.SetTracer(logger())

	ids := make(map[uint64]uint64, len(prog.Instructions))
	for _, ins := range prog.Instructions {
		class, ok := classByName[ins.Class]
		if !ok {
			return fmt.Errorf("instruction %d: unknown class %q", ins.ID, ins.Class)
		}
		issueReady := ins.IssueReady
		if issueReady == 0 {
			issueReady = 1
		}
		ids[ins.ID] = g.AddNode(class, issueReady, nil, nil)
	}
	for _, ins := range prog.Instructions {
		for _, p := range ins.Preds {
			if err := g.AddEdgeRAW(ids[p], ids[ins.ID]); err != nil {
				return fmt.Errorf("instruction %d: %w", ins.ID, err)
			}
		}
	}

	for _, ins := range prog.Instructions {
		gid := ids[ins.ID]
		if _, err := g.Schedule(gid, ins.IssueReady); err != nil {
			return err
		}
		latency := ins.Latency
		if latency == 0 {
			latency = 1
		}
		if err := g.SetLatency(gid, latency); err != nil {
			return err
		}
	}
	for _, ins := range prog.Instructions {
		gid := ids[ins.ID]
		t, err := g.Schedule(gid, 1)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "instruction %d (%s): t_LR=%d %s\n", ins.ID, ins.Class, t, g.PriorityString(gid))
	}
	return nil
}
