// Command gojabind is a host shell for the binding layer: it evaluates
// scripts with a set of demo classes installed, offers an interactive
// REPL, and validates object-schema snapshot files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quarrydb/gojabind"
	"github.com/quarrydb/gojabind/schema"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gojabind",
		Short:         "Host shell for the gojabind script binding layer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newREPLCmd(), newSchemaCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var snapshotPath string
	cmd := &cobra.Command{
		Use:   "run <script.js>",
		Short: "Evaluate a script file with the demo classes installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newHostContext(snapshotPath)
			if err != nil {
				return err
			}
			defer ctx.Close()
			result, err := ctx.EvalFile(args[0])
			if err != nil {
				return fmt.Errorf("execution failed: %w", err)
			}
			if !result.IsUndefined() {
				fmt.Fprintln(cmd.OutOrStdout(), result.String())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "object-schema snapshot to install as host.schema")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Work with object-schema snapshot files",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "check <snapshot.json>",
			Short: "Validate a snapshot file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				snap, err := schema.LoadFile(args[0])
				if err != nil {
					return err
				}
				for _, obj := range snap.Objects {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %d properties\n", obj.Name, len(obj.Properties))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "format",
			Short: "Print the snapshot wire format as a JSON Schema document",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				doc, err := schema.DocumentSchema()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(doc))
				return nil
			},
		},
	)
	return cmd
}

// newHostContext builds the context every subcommand evaluates in: the
// demo classes registered, plus an optional schema snapshot installed
// under host.schema.
func newHostContext(snapshotPath string) (*gojabind.Context, error) {
	registry, err := demoRegistry()
	if err != nil {
		return nil, err
	}
	ctx, err := gojabind.NewContext(gojabind.WithClassRegistry(registry))
	if err != nil {
		return nil, err
	}
	if err := installDemoNamespace(ctx, registry, snapshotPath); err != nil {
		ctx.Close()
		return nil, err
	}
	return ctx, nil
}
