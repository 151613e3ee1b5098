package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
	"github.com/squidsoft/flightmarkers/internal/config"
	"github.com/squidsoft/flightmarkers/internal/storage/memory"
	"github.com/squidsoft/flightmarkers/pkg/core"
)

const configFileHint = config.FileName

var inspectCmd = &cobra.Command{
	Use:   "inspect <recording>",
	Short: "Summarize a JSON recording written by the memory backend",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		export, err := memory.Load(args[0])
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), export)
		return nil
	},
}

func printSummary(w io.Writer, e *memory.Export) {
	fmt.Fprintf(w, "session  %s (%s)\n", e.SessionID, e.SessionName)
	fmt.Fprintf(w, "version  %s\n", e.ExtensionVersion)
	fmt.Fprintf(w, "period   %s - %s\n", e.StartTime.Format("2006-01-02 15:04:05"), e.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "frames   %d\n", e.FrameCount)

	for _, v := range e.Vessels {
		counts := map[core.Category]int{}
		peak := map[core.Category]float64{}
		for _, f := range v.Frames {
			for _, a := range f.Arrows {
				counts[a.Category]++
				if a.Magnitude > peak[a.Category] {
					peak[a.Category] = a.Magnitude
				}
			}
		}

		cats := make([]core.Category, 0, len(counts))
		for c := range counts {
			cats = append(cats, c)
		}
		sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

		fmt.Fprintf(w, "vessel   %s: %d frames\n", v.VesselID, len(v.Frames))
		for _, c := range cats {
			fmt.Fprintf(w, "  %-13s %6d arrows  peak %.2f\n", c, counts[c], peak[c])
		}
	}
}
