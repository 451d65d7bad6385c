package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

type defeaturizeOptions struct {
	nodes       string
	edges       string
	file        string
	strict      bool
	round       bool
	trimPadding bool
}

// graphFile is the JSON shape accepted by --file.
type graphFile struct {
	Nodes []float64   `json:"nodes"`
	Edges [][]float64 `json:"edges"`
}

type defeaturizeOutput struct {
	SMILES  string                      `json:"smiles"`
	Formula string                      `json:"formula"`
	Atoms   []string                    `json:"atoms"`
	Bonds   []bondOutput                `json:"bonds"`
	Dropped []featurization.DroppedEdge `json:"dropped_edges,omitempty"`
}

type bondOutput struct {
	Begin int    `json:"begin"`
	End   int    `json:"end"`
	Type  string `json:"type"`
}

func newDefeaturizeCmd() *cobra.Command {
	opts := &defeaturizeOptions{}
	cmd := &cobra.Command{
		Use:   "defeaturize",
		Short: "Rebuild a molecule from node and edge matrices",
		Example: `  molgraph defeaturize --nodes 6,6,8 --edges "0,1,0;1,0,2;0,2,0"
  molgraph defeaturize --file sample.json --round --trim-padding`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDefeaturize(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.nodes, "nodes", "", "comma-separated atomic numbers")
	f.StringVar(&opts.edges, "edges", "", "edge matrix rows separated by ';', values by ','")
	f.StringVarP(&opts.file, "file", "f", "", `JSON file {"nodes": [...], "edges": [[...]]} (- for stdin)`)
	f.BoolVar(&opts.strict, "strict", false, "reject edge values outside the bond table")
	f.BoolVar(&opts.round, "round", false, "round values to the nearest integer first")
	f.BoolVar(&opts.trimPadding, "trim-padding", false, "drop trailing padding atoms")
	cmd.MarkFlagsMutuallyExclusive("file", "nodes")
	cmd.MarkFlagsMutuallyExclusive("file", "edges")
	return cmd
}

func runDefeaturize(cmd *cobra.Command, opts *defeaturizeOptions) error {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}

	g, err := loadGraphInput(cmd, opts)
	if err != nil {
		return err
	}

	in := &featurization.DefeaturizeInput{
		Nodes:       g.Nodes,
		Edges:       g.Edges,
		Round:       opts.round,
		TrimPadding: opts.trimPadding,
	}
	if cmd.Flags().Changed("strict") {
		in.Strict = &opts.strict
	}

	ctx, cancel := cliCtx.operationContext(cmd)
	defer cancel()
	res, err := cliCtx.codecService().Defeaturize(ctx, in)
	if err != nil {
		return err
	}

	out := defeaturizeOutput{SMILES: res.SMILES, Formula: res.Formula, Dropped: res.Dropped}
	for _, a := range res.Molecule.Atoms() {
		out.Atoms = append(out.Atoms, a.Symbol())
	}
	for _, b := range res.Molecule.Bonds() {
		out.Bonds = append(out.Bonds, bondOutput{Begin: b.Begin, End: b.End, Type: b.Type.String()})
	}

	return PrintResult(cmd, out, func(w io.Writer) error {
		fmt.Fprintf(w, "smiles:  %s\nformula: %s\n", out.SMILES, out.Formula)
		rows := make([][]string, len(out.Bonds))
		for i, b := range out.Bonds {
			rows[i] = []string{strconv.Itoa(b.Begin), strconv.Itoa(b.End), b.Type}
		}
		if len(rows) > 0 {
			fmt.Fprint(w, FormatTable([]string{"BEGIN", "END", "TYPE"}, rows))
		}
		for _, d := range out.Dropped {
			fmt.Fprintf(w, "dropped edge %d-%d (value %g)\n", d.A, d.B, d.Value)
		}
		return nil
	})
}

func loadGraphInput(cmd *cobra.Command, opts *defeaturizeOptions) (*graphFile, error) {
	if opts.file != "" {
		var r io.Reader = cmd.InOrStdin()
		if opts.file != "-" {
			f, err := os.Open(opts.file)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "cannot open graph file").WithDetailf("path=%s", opts.file)
			}
			defer f.Close()
			r = f
		}
		var g graphFile
		if err := json.NewDecoder(r).Decode(&g); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "invalid graph file").WithDetail(err.Error())
		}
		return &g, nil
	}

	if opts.nodes == "" {
		return nil, errors.InvalidParam("no graph given").WithDetail("pass --nodes and --edges, or --file")
	}
	nodes, err := parseFloats(opts.nodes)
	if err != nil {
		return nil, err
	}
	var edges [][]float64
	if strings.TrimSpace(opts.edges) != "" {
		for _, row := range strings.Split(opts.edges, ";") {
			vals, err := parseFloats(row)
			if err != nil {
				return nil, err
			}
			edges = append(edges, vals)
		}
	}
	if len(edges) == 0 {
		// A single atom has a 1x1 zero matrix; anything larger must be given.
		if len(nodes) != 1 {
			return nil, errors.New(errors.ErrCodeGraphShapeMismatch, "edge matrix is required").
				WithDetailf("nodes=%d", len(nodes))
		}
		edges = [][]float64{{0}}
	}
	return &graphFile{Nodes: nodes, Edges: edges}, nil
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Split(s, ",")
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.InvalidParam("not a number").WithDetailf("value=%q", f)
		}
		out = append(out, v)
	}
	return out, nil
}

//Personal.AI order the ending
