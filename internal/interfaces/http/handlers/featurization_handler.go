package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

// FeaturizationHandler serves the codec endpoints.
type FeaturizationHandler struct {
	svc        featurization.Service
	batchLimit int
}

// NewFeaturizationHandler creates the handler.  batchLimit <= 0 leaves batch
// size checks to the service.
func NewFeaturizationHandler(svc featurization.Service, batchLimit int) *FeaturizationHandler {
	return &FeaturizationHandler{svc: svc, batchLimit: batchLimit}
}

// RegisterRoutes mounts the codec endpoints on g.
func (h *FeaturizationHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.POST("/featurize", h.Featurize)
	g.POST("/featurize/batch", h.FeaturizeBatch)
	g.POST("/defeaturize", h.Defeaturize)
	g.GET("/graphs", h.ListGraphs)
	g.GET("/graphs/:id", h.GetGraph)
	g.DELETE("/graphs/:id", h.DeleteGraph)
	g.GET("/bond-codes", h.BondCodes)
}

// Featurize handles POST /api/v1/featurize.
func (h *FeaturizationHandler) Featurize(c *gin.Context) {
	var req mgtypes.FeaturizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, badRequest(err))
		return
	}

	res, err := h.svc.Featurize(c.Request.Context(), &featurization.FeaturizeInput{
		SMILES:    req.SMILES,
		MaxLength: req.MaxLength,
		Pad:       req.Pad,
		Persist:   req.Persist,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if res.ID != "" && !res.Cached {
		status = http.StatusCreated
	}
	respond(c, status, toFeaturizeResponse(res))
}

// FeaturizeBatch handles POST /api/v1/featurize/batch.  Item failures are
// reported in the body; the request itself succeeds.
func (h *FeaturizationHandler) FeaturizeBatch(c *gin.Context) {
	var req mgtypes.BatchFeaturizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if err := req.Validate(h.batchLimit); err != nil {
		respondError(c, badRequest(err))
		return
	}

	res, err := h.svc.FeaturizeBatch(c.Request.Context(), &featurization.BatchInput{
		SMILES:    req.SMILES,
		MaxLength: req.MaxLength,
		Pad:       req.Pad,
		Persist:   req.Persist,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	out := mgtypes.BatchFeaturizeResponse{
		Succeeded:      make([]mgtypes.FeaturizeResponse, 0, res.Succeeded()),
		Failed:         make([]common.BatchError, 0, len(res.Errors)),
		TotalProcessed: len(req.SMILES),
	}
	for _, r := range res.Results {
		if r != nil {
			out.Succeeded = append(out.Succeeded, toFeaturizeResponse(r))
		}
	}
	for _, e := range res.Errors {
		out.Failed = append(out.Failed, common.BatchError{Index: e.Index, Input: e.SMILES, Error: errorDetail(e.Err)})
	}
	respond(c, http.StatusOK, out)
}

// Defeaturize handles POST /api/v1/defeaturize.
func (h *FeaturizationHandler) Defeaturize(c *gin.Context) {
	var req mgtypes.DefeaturizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, badRequest(err))
		return
	}

	in := &featurization.DefeaturizeInput{
		Nodes:       req.Nodes,
		Edges:       req.Edges,
		Round:       req.Round,
		TrimPadding: req.TrimPadding,
	}
	if req.Strict {
		in.Strict = &req.Strict
	}
	res, err := h.svc.Defeaturize(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toDefeaturizeResponse(res))
}

// GetGraph handles GET /api/v1/graphs/:id.
func (h *FeaturizationHandler) GetGraph(c *gin.Context) {
	rec, err := h.svc.GetGraph(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, toGraphResponse(rec))
}

// ListGraphs handles GET /api/v1/graphs?page=&page_size=.
func (h *FeaturizationHandler) ListGraphs(c *gin.Context) {
	res, err := h.svc.ListGraphs(c.Request.Context(), parsePagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]mgtypes.GraphResponse, len(res.Graphs))
	for i, rec := range res.Graphs {
		out[i] = toGraphResponse(rec)
	}
	respondPage(c, http.StatusOK, out, res.Pagination)
}

// DeleteGraph handles DELETE /api/v1/graphs/:id.
func (h *FeaturizationHandler) DeleteGraph(c *gin.Context) {
	if err := h.svc.DeleteGraph(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BondCodes handles GET /api/v1/bond-codes.
func (h *FeaturizationHandler) BondCodes(c *gin.Context) {
	entries := h.svc.BondCodes()
	out := make([]mgtypes.BondCode, len(entries))
	for i, e := range entries {
		out[i] = mgtypes.BondCode{Code: e.Code, Type: e.Type.String(), Order: e.Order}
	}
	respond(c, http.StatusOK, out)
}

func toFeaturizeResponse(r *featurization.FeaturizeResult) mgtypes.FeaturizeResponse {
	resp := mgtypes.FeaturizeResponse{
		ID:       r.ID,
		SMILES:   r.SMILES,
		NumAtoms: r.NumAtoms,
		NumBonds: r.NumBonds,
		Padded:   r.Padded,
		Cached:   r.Cached,
	}
	if r.Graph != nil {
		resp.MaxLength = r.Graph.MaxLength
		resp.Nodes = r.Graph.Nodes
		resp.Edges = r.Graph.Edges
	}
	return resp
}

func toDefeaturizeResponse(r *featurization.DefeaturizeResult) mgtypes.DefeaturizeResponse {
	resp := mgtypes.DefeaturizeResponse{
		SMILES:       r.SMILES,
		Formula:      r.Formula,
		Atoms:        []mgtypes.AtomDTO{},
		Bonds:        []mgtypes.BondDTO{},
		DroppedEdges: len(r.Dropped),
	}
	if r.Molecule == nil {
		return resp
	}
	for i, a := range r.Molecule.Atoms() {
		resp.Atoms = append(resp.Atoms, mgtypes.AtomDTO{Index: i, AtomicNum: a.Number, Symbol: a.Symbol()})
	}
	for _, b := range r.Molecule.Bonds() {
		code, _ := molgraph.EncodeBond(b.Type)
		resp.Bonds = append(resp.Bonds, mgtypes.BondDTO{Begin: b.Begin, End: b.End, Type: b.Type.String(), Code: code})
	}
	return resp
}

func toGraphResponse(rec *molgraph.GraphRecord) mgtypes.GraphResponse {
	resp := mgtypes.GraphResponse{
		ID:        rec.ID.String(),
		SMILES:    rec.SMILES,
		NumAtoms:  rec.NumAtoms,
		NumBonds:  rec.NumBonds,
		Padded:    rec.Padded,
		CreatedAt: common.Timestamp(rec.CreatedAt),
	}
	if rec.Graph != nil {
		resp.MaxLength = rec.Graph.MaxLength
		resp.Nodes = rec.Graph.Nodes
		resp.Edges = rec.Graph.Edges
	}
	return resp
}

//Personal.AI order the ending
