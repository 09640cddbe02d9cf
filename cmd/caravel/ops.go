package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/artpar/caravel/internal/shell/client"
)

func daemonClient() *client.Client {
	return client.New(viper.GetString("daemon_url"))
}

var stopCmd = &cobra.Command{
	Use:   "stop MODULE",
	Short: "Stop a running module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := daemonClient().StopModule(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], resp.Status)
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart MODULE",
	Short: "Restart a module",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := daemonClient().RestartModule(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], resp.Status)
		return nil
	},
}

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List known modules and their status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := daemonClient().ListModules(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tSTATUS\tPID\tEXIT\tSTARTED")
		for _, m := range resp.Modules {
			pid, exit := "-", "-"
			if m.Pid != 0 {
				pid = fmt.Sprint(m.Pid)
			}
			if m.ExitCode != nil {
				exit = fmt.Sprint(*m.ExitCode)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", m.Name, m.Kind, m.Status, pid, exit, m.StartedAt)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent deployment events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		resp, err := daemonClient().History(cmd.Context(), limit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tMODULE\tACTION\tOUTCOME")
		for _, e := range resp.Events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt, e.Module, e.Action, e.Outcome)
		}
		return w.Flush()
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs MODULE",
	Short: "Show where a module's log is written",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := daemonClient().LogInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), resp.LogFilePath)
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 50, "Maximum number of events to show")
}
