package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/artpar/caravel/internal/core/module"
	"github.com/artpar/caravel/internal/shell/probe"
)

var execCmd = &cobra.Command{
	Use:   "exec MODULE CMD...",
	Short: "Run a command in a module's working directory",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := loadManifest()
		if err != nil {
			return err
		}
		return runExec(cmd.Context(), cmd.OutOrStdout(), defs, args[0], args[1:])
	},
}

// runExec executes argv locally in the named module's working directory,
// with the module's environment applied.
func runExec(ctx context.Context, out io.Writer, defs []module.Definition, name string, argv []string) error {
	var def *module.Definition
	for i := range defs {
		if defs[i].Name == name {
			def = &defs[i]
			break
		}
	}
	if def == nil {
		return fmt.Errorf("module %q is not defined", name)
	}
	if def.Kind == module.KindCheck {
		return fmt.Errorf("module %q is a check; exec needs a deployable module", name)
	}

	result, err := probe.Run(ctx, argv, def.WorkingDir, def.Environment)
	if err != nil {
		return err
	}
	if _, err := out.Write(result.Output); err != nil {
		return err
	}
	if !result.Success() {
		return fmt.Errorf("command exited with code %d", result.ExitCode)
	}
	return nil
}
