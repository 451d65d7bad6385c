package molgraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestFeaturizeRequest_Validate(t *testing.T) {
	assert.NoError(t, FeaturizeRequest{SMILES: "CCO"}.Validate())
	assert.NoError(t, FeaturizeRequest{SMILES: "CCO", MaxLength: intPtr(0)}.Validate())
	assert.Error(t, FeaturizeRequest{SMILES: "  "}.Validate())
	assert.Error(t, FeaturizeRequest{SMILES: "CCO", MaxLength: intPtr(-1)}.Validate())
}

func TestBatchFeaturizeRequest_Validate(t *testing.T) {
	req := BatchFeaturizeRequest{SMILES: []string{"C", "CC", "CCC"}}
	assert.NoError(t, req.Validate(0))
	assert.NoError(t, req.Validate(3))

	err := req.Validate(2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit 2")

	assert.Error(t, BatchFeaturizeRequest{}.Validate(10))
	assert.Error(t, BatchFeaturizeRequest{SMILES: []string{"C"}, MaxLength: intPtr(-3)}.Validate(10))
}

func TestDefeaturizeRequest_Validate(t *testing.T) {
	ok := DefeaturizeRequest{Nodes: []float64{6, 8}, Edges: [][]float64{{0, 2}, {2, 0}}}
	assert.NoError(t, ok.Validate())
	assert.Error(t, DefeaturizeRequest{}.Validate())
	assert.Error(t, DefeaturizeRequest{Nodes: []float64{6, 8}, Edges: [][]float64{{0, 2}}}.Validate())
}

func TestFeaturizeJob_Validate(t *testing.T) {
	assert.NoError(t, FeaturizeJob{JobID: "j1", SMILES: []string{"C"}}.Validate())
	assert.Error(t, FeaturizeJob{SMILES: []string{"C"}}.Validate())
	assert.Error(t, FeaturizeJob{JobID: "j1"}.Validate())
	assert.Error(t, FeaturizeJob{JobID: "j1", SMILES: []string{"C"}, MaxLength: intPtr(-1)}.Validate())
	assert.NoError(t, FeaturizeJob{JobID: "j1", SMILES: []string{"C"}, MaxLength: intPtr(0)}.Validate())

	var job FeaturizeJob
	require.NoError(t, json.Unmarshal([]byte(`{"job_id":"j2","smiles":["C"],"max_length":0}`), &job))
	require.NotNil(t, job.MaxLength)
	assert.Zero(t, *job.MaxLength)
	require.NoError(t, json.Unmarshal([]byte(`{"job_id":"j3","smiles":["C"]}`), &job))
	assert.Nil(t, job.MaxLength)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, JobSucceeded, StatusFor(3, 0))
	assert.Equal(t, JobFailed, StatusFor(0, 2))
	assert.Equal(t, JobPartial, StatusFor(1, 1))
	assert.Equal(t, JobSucceeded, StatusFor(0, 0))
}

func TestFeaturizeRequest_JSON(t *testing.T) {
	var req FeaturizeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"smiles":"CC=O","max_length":2,"pad":true}`), &req))
	require.NotNil(t, req.MaxLength)
	assert.Equal(t, 2, *req.MaxLength)
	assert.True(t, req.Pad)

	var bare FeaturizeRequest
	require.NoError(t, json.Unmarshal([]byte(`{"smiles":"CC=O"}`), &bare))
	assert.Nil(t, bare.MaxLength)
}

//Personal.AI order the ending
