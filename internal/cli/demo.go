package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/procharness/internal/lesson"
)

// NewDemoCommand creates the demo command: the ordinary program entry point
// of the lessons, independent of the harness.
func NewDemoCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the lesson program (fires the missiles)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			before := lesson.MissilesFired()
			lesson.Main()
			fmt.Fprintf(cmd.OutOrStdout(), "missiles fired: %d\n", lesson.MissilesFired()-before)
			return nil
		},
	}
}
