// Package molgraph defines the request/response structures of the molecule
// graph codec API.  No domain logic lives here, only plain data types that
// the HTTP layer, the CLI, the job envelopes and the Go client can share
// without importing internal packages.
package molgraph

import (
	"fmt"
	"strings"

	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
)

// ─────────────────────────────────────────────────────────────────────────────
// Featurization
// ─────────────────────────────────────────────────────────────────────────────

// FeaturizeRequest asks for the fixed-size graph encoding of one molecule.
type FeaturizeRequest struct {
	SMILES string `json:"smiles"`

	// MaxLength is the index of the last encoded atom; nil selects the
	// server default.
	MaxLength *int `json:"max_length,omitempty"`

	// Pad fills molecules smaller than MaxLength+1 atoms with atomic number 0.
	Pad bool `json:"pad,omitempty"`

	// Persist stores the encoding so it can be fetched by id later.
	Persist bool `json:"persist,omitempty"`
}

// Validate performs structural checks only.
func (r FeaturizeRequest) Validate() error {
	if strings.TrimSpace(r.SMILES) == "" {
		return fmt.Errorf("smiles is required")
	}
	if r.MaxLength != nil && *r.MaxLength < 0 {
		return fmt.Errorf("max_length must not be negative")
	}
	return nil
}

// FeaturizeResponse carries one encoding.
type FeaturizeResponse struct {
	ID        string  `json:"id,omitempty"`
	SMILES    string  `json:"smiles"`
	MaxLength int     `json:"max_length"`
	Nodes     []int   `json:"nodes"`
	Edges     [][]int `json:"edges"`
	NumAtoms  int     `json:"num_atoms"`
	NumBonds  int     `json:"num_bonds"`
	Padded    bool    `json:"padded"`
	Cached    bool    `json:"cached"`
}

// BatchFeaturizeRequest encodes several molecules with the same parameters.
type BatchFeaturizeRequest struct {
	SMILES    []string `json:"smiles"`
	MaxLength *int     `json:"max_length,omitempty"`
	Pad       bool     `json:"pad,omitempty"`
	Persist   bool     `json:"persist,omitempty"`
}

// Validate performs structural checks only.  limit <= 0 disables the size
// check.
func (r BatchFeaturizeRequest) Validate(limit int) error {
	if len(r.SMILES) == 0 {
		return fmt.Errorf("smiles must not be empty")
	}
	if limit > 0 && len(r.SMILES) > limit {
		return fmt.Errorf("batch of %d exceeds limit %d", len(r.SMILES), limit)
	}
	if r.MaxLength != nil && *r.MaxLength < 0 {
		return fmt.Errorf("max_length must not be negative")
	}
	return nil
}

// BatchFeaturizeResponse reports per-item outcomes.
type BatchFeaturizeResponse = common.BatchResponse[FeaturizeResponse]

// ─────────────────────────────────────────────────────────────────────────────
// De-featurization
// ─────────────────────────────────────────────────────────────────────────────

// DefeaturizeRequest rebuilds a molecule from an encoding.  Values are
// floats so raw generator output can be submitted.
type DefeaturizeRequest struct {
	Nodes       []float64   `json:"nodes"`
	Edges       [][]float64 `json:"edges"`
	Strict      bool        `json:"strict,omitempty"`
	Round       bool        `json:"round,omitempty"`
	TrimPadding bool        `json:"trim_padding,omitempty"`
}

// Validate performs structural checks only.
func (r DefeaturizeRequest) Validate() error {
	if len(r.Nodes) == 0 {
		return fmt.Errorf("nodes must not be empty")
	}
	if len(r.Edges) != len(r.Nodes) {
		return fmt.Errorf("edges must have %d rows, got %d", len(r.Nodes), len(r.Edges))
	}
	return nil
}

// AtomDTO describes one rebuilt atom.
type AtomDTO struct {
	Index     int    `json:"index"`
	AtomicNum int    `json:"atomic_num"`
	Symbol    string `json:"symbol"`
}

// BondDTO describes one rebuilt bond.
type BondDTO struct {
	Begin int    `json:"begin"`
	End   int    `json:"end"`
	Type  string `json:"type"`
	Code  int    `json:"code"`
}

// DefeaturizeResponse carries the rebuilt molecule.
type DefeaturizeResponse struct {
	SMILES       string    `json:"smiles"`
	Formula      string    `json:"formula"`
	Atoms        []AtomDTO `json:"atoms"`
	Bonds        []BondDTO `json:"bonds"`
	DroppedEdges int       `json:"dropped_edges"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Stored graphs and codec metadata
// ─────────────────────────────────────────────────────────────────────────────

// GraphResponse is a persisted encoding.
type GraphResponse struct {
	ID        string           `json:"id"`
	SMILES    string           `json:"smiles"`
	MaxLength int              `json:"max_length"`
	Nodes     []int            `json:"nodes"`
	Edges     [][]int          `json:"edges"`
	NumAtoms  int              `json:"num_atoms"`
	NumBonds  int              `json:"num_bonds"`
	Padded    bool             `json:"padded"`
	CreatedAt common.Timestamp `json:"created_at"`
}

// BondCode is one entry of the bond category table.
type BondCode struct {
	Code  int     `json:"code"`
	Type  string  `json:"type"`
	Order float64 `json:"order"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Asynchronous jobs
// ─────────────────────────────────────────────────────────────────────────────

// JobStatus is the outcome of a featurization job.
type JobStatus string

const (
	JobSucceeded JobStatus = "succeeded"
	JobPartial   JobStatus = "partial"
	JobFailed    JobStatus = "failed"
)

// FeaturizeJob is the payload of a featurization request event.
type FeaturizeJob struct {
	JobID     string   `json:"job_id"`
	SMILES    []string `json:"smiles"`
	// MaxLength is nil when the job should use the worker's default.
	MaxLength *int     `json:"max_length,omitempty"`
	Pad       bool     `json:"pad,omitempty"`
	Persist   bool     `json:"persist,omitempty"`
}

// Validate performs structural checks only.
func (j FeaturizeJob) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if len(j.SMILES) == 0 {
		return fmt.Errorf("smiles must not be empty")
	}
	if j.MaxLength != nil && *j.MaxLength < 0 {
		return fmt.Errorf("max_length must not be negative")
	}
	return nil
}

// JobItemResult is the outcome for one molecule of a job.
type JobItemResult struct {
	SMILES  string              `json:"smiles"`
	GraphID string              `json:"graph_id,omitempty"`
	Error   *common.ErrorDetail `json:"error,omitempty"`
}

// FeaturizeJobResult is the payload of a featurization completed event.
type FeaturizeJobResult struct {
	JobID     string          `json:"job_id"`
	Status    JobStatus       `json:"status"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Items     []JobItemResult `json:"items"`
}

// EventKey partitions completion events by job.
func (r FeaturizeJobResult) EventKey() string { return r.JobID }

// StatusFor derives the job status from the item counts.
func StatusFor(succeeded, failed int) JobStatus {
	switch {
	case failed == 0:
		return JobSucceeded
	case succeeded == 0:
		return JobFailed
	default:
		return JobPartial
	}
}

//Personal.AI order the ending
