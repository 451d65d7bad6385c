package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph-Codec/internal/application/dataset"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type datasetOptions struct {
	file      string
	maxLength int
	pad       bool
	shardSize int
	lock      bool
	samples   int
	out       string
}

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Build and inspect featurized datasets in object storage",
	}
	cmd.AddCommand(
		newDatasetBuildCmd(),
		newDatasetInspectCmd(),
		newDatasetListCmd(),
		newDatasetExportCmd(),
		newDatasetDeleteCmd(),
	)
	return cmd
}

func newDatasetBuildCmd() *cobra.Command {
	opts := &datasetOptions{}
	cmd := &cobra.Command{
		Use:     "build NAME",
		Short:   "Featurize a SMILES file into sharded training data",
		Example: `  molgraph dataset build qm9-small --file qm9.smi --max-length 8 --pad`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasetBuild(cmd, args[0], opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "SMILES file, one per line (- for stdin)")
	f.IntVar(&opts.maxLength, "max-length", -1, "index of the last encoded atom (default: codec.max_length)")
	f.BoolVar(&opts.pad, "pad", false, "zero-pad molecules with fewer atoms (default: codec.pad)")
	f.IntVar(&opts.shardSize, "shard-size", 0, "samples per shard (default: dataset.shard_size)")
	f.BoolVar(&opts.lock, "lock", false, "hold a Redis lock on the dataset while building")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newDatasetInspectCmd() *cobra.Command {
	opts := &datasetOptions{}
	cmd := &cobra.Command{
		Use:   "inspect NAME",
		Short: "Show a dataset manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasetInspect(cmd, args[0], opts)
		},
	}
	cmd.Flags().IntVar(&opts.samples, "samples", 0, "also print the first N samples")
	return cmd
}

func newDatasetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withBuilder(cmd, &datasetOptions{maxLength: -1}, func(ctx context.Context, b *dataset.Builder, _ *CLIContext) error {
				names, err := b.List(ctx)
				if err != nil {
					return err
				}
				return PrintResult(cmd, names, func(w io.Writer) error {
					for _, n := range names {
						fmt.Fprintln(w, n)
					}
					return nil
				})
			})
		},
	}
}

func newDatasetExportCmd() *cobra.Command {
	opts := &datasetOptions{maxLength: -1}
	cmd := &cobra.Command{
		Use:   "export NAME",
		Short: "Write a dataset as flattened JSON tensors",
		Long:  "export writes the tensor file read by `molgraph decode`.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBuilder(cmd, opts, func(ctx context.Context, b *dataset.Builder, _ *CLIContext) error {
				ds, err := b.Load(ctx, args[0])
				if err != nil {
					return err
				}
				maxLength := ds.Manifest.MaxLength
				tf := tensorFile{MaxLength: &maxLength}
				for _, s := range ds.Samples() {
					tf.Nodes = append(tf.Nodes, s.Nodes)
					tf.Edges = append(tf.Edges, s.Edges)
				}

				w := cmd.OutOrStdout()
				if opts.out != "" && opts.out != "-" {
					f, err := os.Create(opts.out)
					if err != nil {
						return errors.Wrap(err, errors.ErrCodeBadRequest, "cannot create output file").WithDetailf("path=%s", opts.out)
					}
					defer f.Close()
					w = f
				}
				return printJSON(w, tf)
			})
		},
	}
	cmd.Flags().StringVar(&opts.out, "out", "-", "output file (- for stdout)")
	return cmd
}

func newDatasetDeleteCmd() *cobra.Command {
	opts := &datasetOptions{maxLength: -1}
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a dataset and its shards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBuilder(cmd, opts, func(ctx context.Context, b *dataset.Builder, _ *CLIContext) error {
				if err := b.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&opts.lock, "lock", false, "hold a Redis lock on the dataset while deleting")
	return cmd
}

// withBuilder opens the shard store (and the lock when asked) and runs fn
// with a builder configured from the dataset and codec sections.
func withBuilder(cmd *cobra.Command, opts *datasetOptions, fn func(context.Context, *dataset.Builder, *CLIContext) error) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := cliCtx.operationContext(cmd)
	defer cancel()

	store, err := cliCtx.Deps.OpenShardStore(ctx, cliCtx.Config, cliCtx.Logger)
	if err != nil {
		return err
	}

	cfg := dataset.BuilderConfig{
		Prefix:      cliCtx.Config.Dataset.Prefix,
		ShardSize:   cliCtx.Config.Dataset.ShardSize,
		Concurrency: cliCtx.Config.Dataset.Concurrency,
		MaxLength:   cliCtx.Config.Codec.MaxLength,
		Pad:         cliCtx.Config.Codec.Pad || opts.pad,
	}
	if opts.maxLength >= 0 {
		cfg.MaxLength = opts.maxLength
	}
	if opts.shardSize > 0 {
		cfg.ShardSize = opts.shardSize
	}

	var builderOpts []dataset.BuilderOption
	if opts.lock {
		locker, closeFn, err := cliCtx.Deps.OpenLocker(cliCtx.Config, cliCtx.Logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeFn(); err != nil {
				cliCtx.Logger.Warn("failed to close lock client", logging.Err(err))
			}
		}()
		builderOpts = append(builderOpts, dataset.WithLocker(locker))
	}

	return fn(ctx, dataset.NewBuilder(store, cfg, nil, cliCtx.Logger, builderOpts...), cliCtx)
}

func runDatasetBuild(cmd *cobra.Command, name string, opts *datasetOptions) error {
	smiles, err := readSMILESFile(cmd, opts.file)
	if err != nil {
		return err
	}
	if len(smiles) == 0 {
		return errors.New(errors.ErrCodeDatasetEmpty, "SMILES file is empty").WithDetailf("path=%s", opts.file)
	}

	return withBuilder(cmd, opts, func(ctx context.Context, b *dataset.Builder, _ *CLIContext) error {
		start := time.Now()
		m, err := b.Build(ctx, name, smiles)
		if err != nil {
			return err
		}
		return PrintResult(cmd, m, func(w io.Writer) error {
			fmt.Fprintf(w, "built %s: %d/%d molecules in %d shards (%s)\n",
				m.Name, m.NumSamples, m.NumInputs, len(m.Shards), time.Since(start).Round(time.Millisecond))
			writeSkipped(w, m.Skipped)
			return nil
		})
	})
}

func runDatasetInspect(cmd *cobra.Command, name string, opts *datasetOptions) error {
	inspectOpts := &datasetOptions{maxLength: -1}
	return withBuilder(cmd, inspectOpts, func(ctx context.Context, b *dataset.Builder, _ *CLIContext) error {
		m, err := b.LoadManifest(ctx, name)
		if err != nil {
			return err
		}

		var preview []dataset.Sample
		for i := 0; i < len(m.Shards) && len(preview) < opts.samples; i++ {
			s, err := b.LoadShard(ctx, m, i)
			if err != nil {
				return err
			}
			for _, smp := range s.Samples {
				if len(preview) == opts.samples {
					break
				}
				preview = append(preview, smp)
			}
		}

		out := struct {
			*dataset.Manifest
			Preview []dataset.Sample `json:"preview,omitempty"`
		}{m, preview}

		return PrintResult(cmd, out, func(w io.Writer) error {
			fmt.Fprintf(w, "name:        %s\n", m.Name)
			fmt.Fprintf(w, "created:     %s\n", m.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(w, "max length:  %d (padded: %t)\n", m.MaxLength, m.Padded)
			fmt.Fprintf(w, "samples:     %d of %d inputs\n", m.NumSamples, m.NumInputs)
			fmt.Fprintf(w, "shard format v%d, %d per shard\n\n", m.ShardVersion, m.ShardSize)

			rows := make([][]string, len(m.Shards))
			for i, s := range m.Shards {
				rows[i] = []string{strconv.Itoa(s.Index), s.Key, strconv.Itoa(s.Samples), strconv.Itoa(s.Bytes)}
			}
			fmt.Fprint(w, FormatTable([]string{"SHARD", "KEY", "SAMPLES", "BYTES"}, rows))
			writeSkipped(w, m.Skipped)
			for i, s := range preview {
				fmt.Fprintf(w, "sample %d: %s\n", i, s.SMILES)
			}
			return nil
		})
	})
}

func writeSkipped(w io.Writer, skipped []dataset.SkippedMolecule) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintf(w, "skipped %d:\n", len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(w, "  line %d %s: %s\n", s.Index+1, s.SMILES, s.Code)
	}
}

//Personal.AI order the ending
