package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type featurizeOptions struct {
	maxLength int
	pad       bool
	file      string
}

// featurizeOutput is one line of featurize output.
type featurizeOutput struct {
	SMILES   string  `json:"smiles"`
	Nodes    []int   `json:"nodes,omitempty"`
	Edges    [][]int `json:"edges,omitempty"`
	NumAtoms int     `json:"num_atoms,omitempty"`
	NumBonds int     `json:"num_bonds,omitempty"`
	Padded   bool    `json:"padded,omitempty"`
	Error    string  `json:"error,omitempty"`
}

func newFeaturizeCmd() *cobra.Command {
	opts := &featurizeOptions{}
	cmd := &cobra.Command{
		Use:   "featurize [SMILES...]",
		Short: "Encode molecules as node and edge matrices",
		Example: `  molgraph featurize CCO
  molgraph featurize --max-length 8 --pad --file molecules.smi
  cat molecules.smi | molgraph featurize --file - -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeaturize(cmd, args, opts)
		},
	}
	cmd.Flags().IntVar(&opts.maxLength, "max-length", -1, "index of the last encoded atom (default: codec.max_length)")
	cmd.Flags().BoolVar(&opts.pad, "pad", false, "zero-pad molecules with fewer atoms")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read SMILES from a file, one per line (- for stdin)")
	return cmd
}

func runFeaturize(cmd *cobra.Command, args []string, opts *featurizeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	smiles := append([]string(nil), args...)
	if opts.file != "" {
		lines, err := readSMILESFile(cmd, opts.file)
		if err != nil {
			return err
		}
		smiles = append(smiles, lines...)
	}
	if len(smiles) == 0 {
		return errors.InvalidParam("no SMILES given").WithDetail("pass SMILES arguments or --file")
	}

	in := &featurization.BatchInput{SMILES: smiles, Pad: opts.pad}
	if opts.maxLength >= 0 {
		in.MaxLength = &opts.maxLength
	}

	ctx, cancel := cliCtx.operationContext(cmd)
	defer cancel()
	res, err := cliCtx.codecService().FeaturizeBatch(ctx, in)
	if err != nil {
		return err
	}

	out := make([]featurizeOutput, len(smiles))
	for i, r := range res.Results {
		if r == nil {
			continue
		}
		out[i] = featurizeOutput{
			SMILES:   r.SMILES,
			Nodes:    r.Graph.Nodes,
			Edges:    r.Graph.Edges,
			NumAtoms: r.NumAtoms,
			NumBonds: r.NumBonds,
			Padded:   r.Padded,
		}
	}
	for _, e := range res.Errors {
		out[e.Index] = featurizeOutput{SMILES: e.SMILES, Error: e.Err.Error()}
	}

	if err := PrintResult(cmd, out, func(w io.Writer) error { return writeFeaturizeText(w, out) }); err != nil {
		return err
	}
	if len(res.Errors) > 0 {
		return errors.New(errors.ErrCodeValidation, "some molecules could not be featurized").
			WithDetailf("failed=%d total=%d", len(res.Errors), len(smiles))
	}
	return nil
}

func writeFeaturizeText(w io.Writer, out []featurizeOutput) error {
	for _, o := range out {
		if o.Error != "" {
			fmt.Fprintf(w, "%s\n  error: %s\n", o.SMILES, o.Error)
			continue
		}
		fmt.Fprintf(w, "%s\n  atoms: %d  bonds: %d  padded: %t\n", o.SMILES, o.NumAtoms, o.NumBonds, o.Padded)
		fmt.Fprintf(w, "  nodes: %s\n", joinInts(o.Nodes, " "))
		fmt.Fprintln(w, "  edges:")
		for _, row := range o.Edges {
			fmt.Fprintf(w, "    %s\n", joinInts(row, " "))
		}
	}
	return nil
}

// readSMILESFile reads one SMILES per line.  Blank lines and lines starting
// with # are skipped; anything after the first whitespace is a title.
func readSMILESFile(cmd *cobra.Command, path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot open SMILES file").WithDetailf("path=%s", path)
		}
		defer f.Close()
		r = f
	}

	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.Fields(line)[0])
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot read SMILES file").WithDetailf("path=%s", path)
	}
	return out, nil
}

func joinInts(v []int, sep string) string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, sep)
}

//Personal.AI order the ending
