package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tgvault/backend/internal/watch"
)

var cancelYes bool

var cancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Request cancellation of a running sync task",
	Long:  `Requests cancellation of a sync task. The request is advisory: the worker finishes its current page before it stops, so the task may report running for a short while afterwards.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		source := watch.NewHTTPSource(serverAddr, args[0], resolveToken())

		confirm := confirmPrompt(stdin)
		if cancelYes {
			confirm = nil
		}
		canceller := watch.NewCanceller(watch.CancellerConfig{
			Source:  source,
			Confirm: confirm,
		})

		if err := canceller.Cancel(cmd.Context()); err != nil {
			return err
		}
		if canceller.State() == watch.CancelAwaitingPoll {
			fmt.Println("Cancellation requested.")
		}
		return nil
	},
}

func init() {
	cancelCmd.Flags().BoolVar(&cancelYes, "yes", false, "skip the confirmation prompt")
}
