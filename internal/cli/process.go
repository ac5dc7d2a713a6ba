package cli

import (
	"fmt"
	"strconv"

	"github.com/ChuLiYu/schedsim/internal/report"
	"github.com/ChuLiYu/schedsim/internal/repository"
	"github.com/ChuLiYu/schedsim/pkg/types"
	"github.com/spf13/cobra"
)

func buildProcessCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Manage the stored process set",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <id> <duration> [priority]",
		Short: "Add a process (priority defaults to 0)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			duration, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("duration must be an integer: %w", err)
			}
			priority := 0
			if len(args) == 3 {
				if priority, err = strconv.Atoi(args[2]); err != nil {
					return fmt.Errorf("priority must be an integer: %w", err)
				}
			}

			p, err := types.NewProcess(args[0], duration, priority)
			if err != nil {
				return err
			}
			return mutate(cmd, opts, func(repo *repository.Repository) (string, error) {
				if err := repo.Add(p); err != nil {
					return "", err
				}
				return fmt.Sprintf("Process %q added (%d total).", p.ID, repo.Len()), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List processes in ready-queue order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			repo, st, err := e.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			report.WriteProcesses(e.out, repo.List())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a process",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, opts, func(repo *repository.Repository) (string, error) {
				if err := repo.Remove(types.ProcessID(args[0])); err != nil {
					return "", err
				}
				return fmt.Sprintf("Process %q removed.", args[0]), nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, opts, func(repo *repository.Repository) (string, error) {
				n := repo.Len()
				repo.Clear()
				return fmt.Sprintf("%d processes removed.", n), nil
			})
		},
	})

	return cmd
}

func buildImportCommand(opts *globalOptions) *cobra.Command {
	var appendMode bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load processes from a .json, .csv or .yaml file into the store",
		Long: `Load processes from a file into the store. By default the store content is
replaced; with --append the file's processes are added after the existing
ones and duplicate ids are rejected.

CSV files use ';' as separator with an optional "id;duration;priority" header.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			procs, err := readProcessFile(args[0])
			if err != nil {
				return err
			}

			return mutate(cmd, opts, func(repo *repository.Repository) (string, error) {
				next := procs
				if appendMode {
					next = append(repo.List(), procs...)
				}
				if err := repo.Replace(next); err != nil {
					return "", err
				}
				return fmt.Sprintf("Imported %d processes from %s (%d total).", len(procs), args[0], repo.Len()), nil
			})
		},
	}

	cmd.Flags().BoolVar(&appendMode, "append", false, "append to the stored processes instead of replacing them")
	return cmd
}

func buildExportCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Write the stored processes to a .json, .csv or .yaml file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			repo, st, err := e.openRepository(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			target, err := repository.NewFileStore(args[0], e.logger)
			if err != nil {
				return err
			}
			if err := repository.Save(cmd.Context(), repo, target); err != nil {
				return err
			}

			fmt.Fprintf(e.out, "Exported %d processes to %s.\n", repo.Len(), args[0])
			return nil
		},
	}
}

// mutate loads the store, applies fn and saves the result.
func mutate(cmd *cobra.Command, opts *globalOptions, fn func(*repository.Repository) (string, error)) error {
	e, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	repo, st, err := e.openRepository(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()

	msg, err := fn(repo)
	if err != nil {
		return err
	}
	if err := repository.Save(cmd.Context(), repo, st); err != nil {
		return fmt.Errorf("failed to save processes: %w", err)
	}

	e.logger.Debug("store updated", "processes", repo.Len())
	fmt.Fprintln(e.out, msg)
	return nil
}
