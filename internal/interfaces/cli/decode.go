package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph-Codec/internal/application/dataset"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type decodeOptions struct {
	file      string
	maxLength int
	strict    bool
}

// tensorFile holds flattened generator output: nodes[i] has max_length+1
// values and edges[i] has (max_length+1)^2.
type tensorFile struct {
	MaxLength *int        `json:"max_length,omitempty"`
	Nodes     [][]float32 `json:"nodes"`
	Edges     [][]float32 `json:"edges"`
}

func newDecodeCmd() *cobra.Command {
	opts := &decodeOptions{}
	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode a batch of generator output and report validity",
		Example: `  molgraph decode --file samples.json
  molgraph decode --file - --max-length 8 --strict -o json < samples.json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDecode(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", `JSON file {"nodes": [[...]], "edges": [[...]]} (- for stdin)`)
	cmd.Flags().IntVar(&opts.maxLength, "max-length", -1, "sample max length (default: file value, then codec.max_length)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "reject samples with edge values outside the bond table")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runDecode(cmd *cobra.Command, opts *decodeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	var r io.Reader = cmd.InOrStdin()
	if opts.file != "-" {
		f, err := os.Open(opts.file)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeBadRequest, "cannot open tensor file").WithDetailf("path=%s", opts.file)
		}
		defer f.Close()
		r = f
	}
	var tf tensorFile
	if err := json.NewDecoder(r).Decode(&tf); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "invalid tensor file").WithDetail(err.Error())
	}

	maxLength := cliCtx.Config.Codec.MaxLength
	switch {
	case opts.maxLength >= 0:
		maxLength = opts.maxLength
	case tf.MaxLength != nil:
		maxLength = *tf.MaxLength
	}

	ctx, cancel := cliCtx.operationContext(cmd)
	defer cancel()
	report, err := dataset.NewDecoder(maxLength, opts.strict, cliCtx.Logger).DecodeTensors(ctx, tf.Nodes, tf.Edges)
	if err != nil {
		return err
	}

	return PrintResult(cmd, report, func(w io.Writer) error {
		rows := make([][]string, len(report.Molecules))
		for i, m := range report.Molecules {
			status := "valid"
			if !m.Valid {
				status = m.Error
			}
			rows[i] = []string{strconv.Itoa(m.Index), m.SMILES, strconv.Itoa(m.DroppedEdges), status}
		}
		fmt.Fprint(w, FormatTable([]string{"#", "SMILES", "DROPPED", "STATUS"}, rows))
		fmt.Fprintf(w, "validity: %.3f (%d/%d)  uniqueness: %.3f (%d)\n",
			report.Validity, report.Valid, len(report.Molecules), report.Uniqueness, report.Unique)
		return nil
	})
}

//Personal.AI order the ending
