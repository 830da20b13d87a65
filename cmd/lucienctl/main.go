// Copyright (c) 2025 The Lucien Authors
// SPDX-License-Identifier: MIT

// Command lucienctl is a small demo/benchmark CLI for the Lucien
// spatial index, the equivalent of the teacher's own cmd/main.go random
// workload generator, extended with subcommands via cobra.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lucien-spatial/lucien"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lucienctl",
		Short: "Demo and benchmark driver for the Lucien spatial index",
	}
	root.AddCommand(newBenchCmd())
	root.AddCommand(newGhostServeCmd())
	return root
}

func newBenchCmd() *cobra.Command {
	var n int
	var level uint8
	var k int

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Insert N random points into an octree and run a k-NN query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := lucien.DefaultConfig()
			tree := lucien.NewOctree[string](cfg)
			defer tree.Close()

			rng := rand.New(rand.NewSource(1))
			bound := uint32(1) << level
			start := time.Now()
			for i := 0; i < n; i++ {
				x, y, z := rng.Uint32()%bound, rng.Uint32()%bound, rng.Uint32()%bound
				if _, err := tree.Insert(x, y, z, level, fmt.Sprintf("p%d", i)); err != nil {
					return err
				}
			}
			elapsed := time.Since(start)

			ids, err := tree.KNearest(lucien.Point3{X: bound / 2, Y: bound / 2, Z: bound / 2}, k, 0)
			if err != nil {
				return err
			}
			stats := tree.StatsSnapshot()
			fmt.Printf("inserted %d points in %s\n", n, elapsed)
			fmt.Printf("nodes=%d entities=%d version=%d\n", stats.NodeCount, stats.EntityCount, stats.Version)
			fmt.Printf("k-nearest to center (%d): %v\n", k, ids)
			return nil
		},
	}
	cmd.Flags().IntVar(&n, "n", 10000, "number of random points to insert")
	cmd.Flags().Uint8Var(&level, "level", 10, "insertion level")
	cmd.Flags().IntVar(&k, "k", 5, "k for k-nearest query")
	return cmd
}

func newGhostServeCmd() *cobra.Command {
	var rank uint32

	cmd := &cobra.Command{
		Use:   "ghost-serve",
		Short: "Populate a ghost layer with synthetic data and print its stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree := lucien.NewOctree[string](lucien.DefaultConfig())
			defer tree.Close()
			layer := tree.Ghosts()
			for i := 0; i < 16; i++ {
				if _, err := tree.Insert(uint32(i), uint32(i), uint32(i), 10, fmt.Sprintf("p%d", i)); err != nil {
					return err
				}
				key, ok := tree.Enclosing(uint32(i), uint32(i), uint32(i))
				if !ok {
					continue
				}
				layer.AddGhost(key, lucien.GhostElement[lucien.MortonKey, string]{
					ID:    lucien.ID(i),
					Owner: lucien.RankID(rank),
					Pos:   lucien.Point3{X: uint32(i), Y: uint32(i), Z: uint32(i)},
					Value: fmt.Sprintf("ghost-%d", i),
				})
			}
			stats := layer.StatsResponse()
			fmt.Printf("ghosts=%d remotes=%d ranks=%v\n", stats.TotalGhosts, stats.TotalRemotes, stats.Ranks)
			return nil
		},
	}
	cmd.Flags().Uint32Var(&rank, "rank", 0, "synthetic owning rank")
	return cmd
}
