package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

// Featurize encodes one SMILES string.
func (c *Client) Featurize(ctx context.Context, req *mgtypes.FeaturizeRequest) (*mgtypes.FeaturizeResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam("invalid featurize request").WithDetail(err.Error())
	}
	var out mgtypes.FeaturizeResponse
	if err := c.post(ctx, "/featurize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FeaturizeBatch encodes several molecules.  Per-molecule failures are
// reported in the response, not as an error.
func (c *Client) FeaturizeBatch(ctx context.Context, req *mgtypes.BatchFeaturizeRequest) (*mgtypes.BatchFeaturizeResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(0); err != nil {
		return nil, errors.InvalidParam("invalid batch request").WithDetail(err.Error())
	}
	var out mgtypes.BatchFeaturizeResponse
	if err := c.post(ctx, "/featurize/batch", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Defeaturize rebuilds a molecule from generator output.
func (c *Client) Defeaturize(ctx context.Context, req *mgtypes.DefeaturizeRequest) (*mgtypes.DefeaturizeResponse, error) {
	if req == nil {
		return nil, errors.InvalidParam("request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, errors.InvalidParam("invalid defeaturize request").WithDetail(err.Error())
	}
	var out mgtypes.DefeaturizeResponse
	if err := c.post(ctx, "/defeaturize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetGraph fetches a persisted encoding by id.
func (c *Client) GetGraph(ctx context.Context, id string) (*mgtypes.GraphResponse, error) {
	if id == "" {
		return nil, errors.InvalidParam("graph id is required")
	}
	var out mgtypes.GraphResponse
	if err := c.get(ctx, "/graphs/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GraphList is one page of persisted encodings, newest first.
type GraphList struct {
	Graphs     []mgtypes.GraphResponse
	Pagination common.Pagination
}

// ListGraphs fetches one page of persisted encodings.
func (c *Client) ListGraphs(ctx context.Context, page common.Pagination) (*GraphList, error) {
	if err := page.Validate(); err != nil {
		return nil, errors.InvalidParam("invalid pagination").WithDetail(err.Error())
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page.Page))
	q.Set("page_size", strconv.Itoa(page.PageSize))

	out := &GraphList{Graphs: []mgtypes.GraphResponse{}}
	if err := c.get(ctx, "/graphs?"+q.Encode(), &paged{data: &out.Graphs, page: &out.Pagination}); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteGraph removes a persisted encoding.
func (c *Client) DeleteGraph(ctx context.Context, id string) error {
	if id == "" {
		return errors.InvalidParam("graph id is required")
	}
	return c.do(ctx, http.MethodDelete, apiPrefix+"/graphs/"+url.PathEscape(id), nil, nil)
}

// BondCodes returns the server's bond category table.
func (c *Client) BondCodes(ctx context.Context) ([]mgtypes.BondCode, error) {
	var out []mgtypes.BondCode
	if err := c.get(ctx, "/bond-codes", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Ready probes /readyz once, without retries.
func (c *Client) Ready(ctx context.Context) error {
	resp, requestID, err := c.send(ctx, http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeServiceUnavailable, "readiness probe failed").WithDetail(err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Code: string(errors.ErrCodeServiceUnavailable), Message: "service not ready", RequestID: requestID}
	}
	return nil
}

//Personal.AI order the ending
