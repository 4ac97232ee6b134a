// Package config loads an optional YAML document overriding the
// compiled-in functional-unit class table and registering named pipeline
// stages, per SPEC_FULL.md §A.2. Absent a file, the compiled-in defaults
// from spec.md §6 apply; nothing in sched/depgraph or sched/resgraph
// depends on this package existing.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maemo32/supraxsched/sched/depgraph"
)

// ClassLimits mirrors depgraph.Limits in YAML-friendly form.
type ClassLimits struct {
	Capacity  uint32 `yaml:"capacity"`
	IssueRate uint32 `yaml:"issue_rate"`
}

// Config is the root of the optional YAML document.
type Config struct {
	// Variant selects the functional-unit class set: "default"
	// (DIV,MUL,BR,ALU,LD,ST) or "lsu" (DIV,MUL,BR,ALU,LSU).
	Variant string `yaml:"variant"`

	// Classes overrides per-class a_k/s_k; keys are class names
	// ("DIV","MUL","BR","ALU","LD","ST","LSU"). Classes omitted here
	// keep the compiled-in default.
	Classes map[string]ClassLimits `yaml:"classes"`

	// Stages registers named pipeline-stage types for the resource
	// graph, in declaration order; index 0 is reserved for EMPTY and
	// must not be declared.
	Stages []string `yaml:"stages"`
}

var classNames = map[string]depgraph.Class{
	"DIV": depgraph.DIV,
	"MUL": depgraph.MUL,
	"BR":  depgraph.BR,
	"ALU": depgraph.ALU,
	"LD":  depgraph.LD,
	"ST":  depgraph.ST,
	"LSU": depgraph.LSU,
}

// Load reads and parses a YAML config file. A missing path is not an
// error: it returns the zero Config, which DepgraphOrder and
// DepgraphLimits below turn into the compiled-in table.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &c, nil
}

// DepgraphOrder returns the class sweep order implied by Variant.
func (c *Config) DepgraphOrder() []depgraph.Class {
	if c.Variant == "lsu" {
		return depgraph.ClassOrderLSU
	}
	return depgraph.ClassOrder
}

// DepgraphLimits builds the effective per-class limits table: the
// compiled-in default for the selected variant, with any YAML overrides
// applied on top.
func (c *Config) DepgraphLimits() map[depgraph.Class]depgraph.Limits {
	base := depgraph.DefaultLimits
	if c.Variant == "lsu" {
		base = depgraph.DefaultLimitsLSU
	}
	out := make(map[depgraph.Class]depgraph.Limits, len(base))
	for k, v := range base {
		out[k] = v
	}
	for name, lim := range c.Classes {
		class, ok := classNames[name]
		if !ok {
			continue
		}
		out[class] = depgraph.Limits{Capacity: lim.Capacity, IssueRate: lim.IssueRate}
	}
	return out
}

// StageNames returns the driver-chosen pipeline-stage names in
// declaration order, 1-indexed (0 is always EMPTY); if Stages is empty
// the §6 example topology is used as the default.
func (c *Config) StageNames() []string {
	if len(c.Stages) > 0 {
		return c.Stages
	}
	return []string{"IF", "ID", "EX", "WB", "IF1_1", "IF1_2", "IF2"}
}
