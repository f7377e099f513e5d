package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stelzch/binary-tree-summation/debughook"
	"github.com/stelzch/binary-tree-summation/metrics"
	"github.com/stelzch/binary-tree-summation/psllh"
	"github.com/stelzch/binary-tree-summation/reduction"
	"github.com/stelzch/binary-tree-summation/simsubstrate"
	"github.com/stelzch/binary-tree-summation/simulator"
	"github.com/stelzch/binary-tree-summation/topology"
)

func newSumCommand() *cobra.Command {
	var leadingRemainder bool
	var layoutPath string

	cmd := &cobra.Command{
		Use:   "sum <file.psllh|file.binpsllh>",
		Short: "Sum a summand file's contents reproducibly over a simulated cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runSum(args[0], configPath, layoutPath, leadingRemainder)
		},
	}
	cmd.Flags().BoolVar(&leadingRemainder, "leading-remainder", false,
		"assign the uneven remainder to the leading ranks (original_source/test/reproducibility_test.cpp's convention) instead of the trailing ranks (the default, original_source/src/main.cpp's convention)")
	cmd.Flags().StringVar(&layoutPath, "layout", "",
		"YAML file naming each rank's explicit region, instead of an even split")
	return cmd
}

func runSum(filename, configPath, layoutPath string, leadingRemainder bool) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	runID := uuid.New()
	data, err := psllh.Read(filename)
	if err != nil {
		return err
	}
	n := uint64(len(data))

	var regions []topology.Region
	if layoutPath != "" {
		regions, err = loadLayout(layoutPath)
		if err != nil {
			return err
		}
		cfg.Cluster.Size = len(regions)
	} else if leadingRemainder {
		regions = topology.EvenSplitLeadingRemainder(n, cfg.Cluster.Size)
	} else {
		regions = topology.EvenSplitTrailingRemainder(n, cfg.Cluster.Size)
	}

	fmt.Printf("run %s: summing %d summands across %d ranks\n", runID, n, cfg.Cluster.Size)

	var opts []reduction.Option
	if cfg.Cluster.Broadcast {
		opts = append(opts, reduction.WithBroadcast(true))
	}
	if cfg.Cluster.ReservedFanout > 0 {
		opts = append(opts, reduction.WithReservedFanout(cfg.Cluster.ReservedFanout))
	}

	loop := simulator.NewEventLoop()
	nodes := make([]*simulator.Node, cfg.Cluster.Size)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	network := simulator.NewOrderedNetwork(cfg.Cluster.Rate, cfg.Cluster.Latency)

	results := make([]float64, cfg.Cluster.Size)
	runErrs := make([]error, cfg.Cluster.Size)
	snapshots := make([]metrics.Snapshot, cfg.Cluster.Size)

	simsubstrate.SpawnSubstrates(loop, network, nodes, func(s *simsubstrate.Sub) {
		debughook.AttachFromEnv(s.Rank(), cfg.Cluster.Size)

		collector := metrics.NewCollector(s.Rank())
		sub := metrics.Wrap(s, collector)

		r, err := reduction.New(sub, regions, opts...)
		if err != nil {
			runErrs[s.Rank()] = err
			return
		}
		buf := r.Buffer()
		start := r.RegionStart()
		for i := range buf {
			buf[i] = data[start+uint64(i)]
		}
		result, err := r.Reduce()
		if err != nil {
			runErrs[s.Rank()] = err
			return
		}
		results[s.Rank()] = result
		snapshots[s.Rank()] = collector.Snapshot()
	})

	if err := loop.Run(); err != nil {
		return fmt.Errorf("reprosum: simulation failed: %w", err)
	}
	for rank, err := range runErrs {
		if err != nil {
			return fmt.Errorf("reprosum: rank %d: %w", rank, err)
		}
	}

	root := rootRank(regions)
	fmt.Printf("%.32f\n", results[root])

	printTrafficSummary(snapshots)
	return nil
}

// rootRank returns the native rank owning global index 0, the array-
// order rank-0 anchor invariant topology.NewLayout enforces.
func rootRank(regions []topology.Region) int {
	for rank, r := range regions {
		if r.GlobalStartIndex == 0 && r.Size > 0 {
			return rank
		}
	}
	return 0
}

func printTrafficSummary(snapshots []metrics.Snapshot) {
	var sb strings.Builder
	for rank, s := range snapshots {
		sb.WriteString("rank ")
		sb.WriteString(strconv.Itoa(rank))
		sb.WriteString(": ")
		sb.WriteString(strconv.FormatInt(s.MessagesSent, 10))
		sb.WriteString(" messages, ")
		sb.WriteString(strconv.FormatInt(s.SummandsSent, 10))
		sb.WriteString(" summands, avg ")
		sb.WriteString(strconv.FormatFloat(s.AverageSummandsPerMessage(), 'f', 2, 64))
		sb.WriteString(" per message\n")
	}
	fmt.Print(sb.String())
}
