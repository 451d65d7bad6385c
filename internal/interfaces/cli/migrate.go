package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type migrationStatus struct {
	Version uint `json:"version"`
	Dirty   bool `json:"dirty"`
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the encoded_graphs schema",
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd, func(m Migrator) error { return m.Down(steps) })
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m Migrator) error { return m.Up() })
			},
		},
		down,
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(Migrator) error { return nil })
			},
		},
		&cobra.Command{
			Use:   "force VERSION",
			Short: "Mark VERSION as applied and clear the dirty flag",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return errors.InvalidParam("version must be an integer").WithDetailf("version=%q", args[0])
				}
				return withMigrator(cmd, func(m Migrator) error { return m.Force(v) })
			},
		},
	)
	return cmd
}

// withMigrator runs fn and then reports the resulting schema version.
func withMigrator(cmd *cobra.Command, fn func(Migrator) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	m, err := cliCtx.Deps.OpenMigrator(cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			cliCtx.Logger.Warn("failed to close migrator", logging.Err(err))
		}
	}()

	if err := fn(m); err != nil {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	status := migrationStatus{Version: version, Dirty: dirty}
	return PrintResult(cmd, status, func(w io.Writer) error {
		fmt.Fprintf(w, "schema version %d", status.Version)
		if status.Dirty {
			fmt.Fprint(w, " (dirty)")
		}
		fmt.Fprintln(w)
		return nil
	})
}

//Personal.AI order the ending
