package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuditCommand(env *environment) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent audit events",
		Long:  `Lists the most recent audit events. Only the database audit sink keeps events that can be listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if env.components.AuditLog == nil {
				return fmt.Errorf("audit.sink %q does not keep queryable events; use the database sink", env.cfg.Audit.Sink)
			}
			events, err := env.components.AuditLog.ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No audit events found")
				return nil
			}
			renderAuditEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of events")
	return cmd
}
