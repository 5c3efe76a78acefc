package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/picorope/internal/config"
)

func newStressCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Build, verify and release deep ropes",
		Long: `stress builds ropes by sequential single-byte appends, checks Bytes,
At and Substr against a reference string, releases everything and
fails if the pool still holds live nodes or buffers.`,
		Args: cobra.NoArgs,
		Annotations: map[string]string{
			"appends":      "stress.appends",
			"rounds":       "stress.rounds",
			"shape":        "stress.shape",
			"metrics-addr": "stress.metricsAddr",
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			report, err := c.app.RunStress(cmd.Context(), c.app.Config().Stress())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "shape=%s appends=%d rounds=%d depth=%d leaves=%d\n",
				report.Shape, report.Appends, report.Rounds, report.Depth, report.Leaves)
			fmt.Fprintf(c.stdout, "build=%s verify=%s release=%s max_pending=%d live_nodes=%d live_buffers=%d\n",
				report.Build, report.Verify, report.Release,
				report.Stats.MaxPending, report.Stats.LiveNodes(), report.Stats.LiveBuffers())
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntP("appends", "n", 100_000, "single-byte appends per rope")
	flags.Int("rounds", 1, "build/verify/release rounds")
	flags.String("shape", config.ShapeLeft, "tree shape (left, right, balanced)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	return cmd
}
