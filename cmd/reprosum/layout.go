package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stelzch/binary-tree-summation/topology"
)

// explicitLayout is the YAML shape of a --layout file: one entry per
// native rank, naming the contiguous region of the input it owns. This
// is the alternative to an even split, for reproducing a specific
// partitioning original_source's distribute_evenly would not produce
// (e.g. the permuted, irregular layouts spec.md §8's Scenario D and F
// describe).
type explicitLayout struct {
	Ranks []struct {
		Start uint64 `yaml:"start"`
		Size  uint64 `yaml:"size"`
	} `yaml:"ranks"`
}

// loadLayout parses path as a YAML layout file and returns the regions
// it describes, in native rank order.
func loadLayout(path string) ([]topology.Region, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	var l explicitLayout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return nil, fmt.Errorf("layout: %s: %w", path, err)
	}
	if len(l.Ranks) == 0 {
		return nil, fmt.Errorf("layout: %s: must name at least one rank", path)
	}

	regions := make([]topology.Region, len(l.Ranks))
	for i, rank := range l.Ranks {
		regions[i] = topology.Region{GlobalStartIndex: rank.Start, Size: rank.Size}
	}
	return regions, nil
}
