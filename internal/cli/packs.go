package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/packwave/internal/traffic"
	"github.com/banshee-data/packwave/internal/units"
)

func newPacksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packs",
		Short: "Detect vehicle packs in a snapshot CSV",
		Long: `Detect packs in a CSV of vehicle snapshots with rows of the form
id,position,speed[,lane] (header optional). Use "-" to read stdin.

Vehicles are scanned around the ring in position order; a new pack starts
at a large following gap, a speed far from the speed that anchored the
current pack, or a lane change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			gap, _ := cmd.Flags().GetFloat64("gap")
			speedDiff, _ := cmd.Flags().GetFloat64("speed-diff")
			laneLength, _ := cmd.Flags().GetFloat64("lane-length")
			laneAware, _ := cmd.Flags().GetBool("lane-aware")
			unit, _ := cmd.Flags().GetString("units")

			if !units.IsValid(unit) {
				return fmt.Errorf("invalid units %q (expected one of %s)", unit, units.ValidUnitsString())
			}
			if laneLength <= 0 {
				return fmt.Errorf("lane length must be positive, got %g", laneLength)
			}

			var r io.Reader
			if input == "-" {
				r = cmd.InOrStdin()
			} else {
				f, err := os.Open(input)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			snapshots, err := traffic.ReadSnapshotsCSV(r)
			if err != nil {
				return err
			}

			packs, _ := traffic.DetectPacks(snapshots, gap, speedDiff, laneLength, laneAware)

			colors := scheme(cmd)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, colors.Title.Sprintf("%d vehicles in %d packs (mean size %.1f, largest %d)",
				len(snapshots), len(packs), traffic.MeanPackSize(packs), traffic.LargestPackSize(packs)))
			for _, pack := range packs {
				fmt.Fprintf(out, "pack %d: %d vehicles at %.1f %s, members %v\n",
					pack.ID, pack.Size(), units.ConvertSpeed(pack.RepresentativeSpeed, unit),
					units.Label(unit), pack.MemberIDs)
			}
			return nil
		},
	}

	cmd.Flags().StringP("input", "i", "", `Snapshot CSV file ("-" for stdin)`)
	cmd.MarkFlagRequired("input")
	cmd.Flags().Float64("gap", traffic.DefaultGapThreshold, "Gap threshold in metres")
	cmd.Flags().Float64("speed-diff", traffic.DefaultSpeedDiffThreshold, "Speed difference threshold in m/s")
	cmd.Flags().Float64("lane-length", 1000, "Circular lane length in metres")
	cmd.Flags().Bool("lane-aware", true, "Split packs at lane changes (no effect on single-lane data)")
	cmd.Flags().String("units", units.MPS, "Display units for speeds ("+units.ValidUnitsString()+")")

	return cmd
}
