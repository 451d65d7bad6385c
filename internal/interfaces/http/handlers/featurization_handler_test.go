package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/MolGraph-Codec/internal/application/featurization"
	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
	mgtypes "github.com/turtacn/MolGraph-Codec/pkg/types/molgraph"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Featurize(ctx context.Context, in *featurization.FeaturizeInput) (*featurization.FeaturizeResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*featurization.FeaturizeResult)
	return res, args.Error(1)
}

func (m *MockService) FeaturizeBatch(ctx context.Context, in *featurization.BatchInput) (*featurization.BatchResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*featurization.BatchResult)
	return res, args.Error(1)
}

func (m *MockService) Defeaturize(ctx context.Context, in *featurization.DefeaturizeInput) (*featurization.DefeaturizeResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*featurization.DefeaturizeResult)
	return res, args.Error(1)
}

func (m *MockService) GetGraph(ctx context.Context, id string) (*molgraph.GraphRecord, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*molgraph.GraphRecord)
	return res, args.Error(1)
}

func (m *MockService) ListGraphs(ctx context.Context, page common.Pagination) (*featurization.GraphPage, error) {
	args := m.Called(ctx, page)
	res, _ := args.Get(0).(*featurization.GraphPage)
	return res, args.Error(1)
}

func (m *MockService) DeleteGraph(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockService) BondCodes() []featurization.BondCodeEntry {
	return m.Called().Get(0).([]featurization.BondCodeEntry)
}

func setupRouter(svc featurization.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewFeaturizationHandler(svc, 3).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) common.APIResponse[T] {
	t.Helper()
	var resp common.APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func ethanolResult() *featurization.FeaturizeResult {
	return &featurization.FeaturizeResult{
		SMILES: "CCO",
		Graph: &molgraph.EncodedGraph{
			MaxLength: 2,
			Nodes:     []int{6, 6, 8},
			Edges:     [][]int{{0, 1, 0}, {1, 0, 1}, {0, 1, 0}},
		},
		NumAtoms: 3,
		NumBonds: 2,
	}
}

func TestFeaturize_OK(t *testing.T) {
	svc := new(MockService)
	svc.On("Featurize", mock.Anything, mock.MatchedBy(func(in *featurization.FeaturizeInput) bool {
		return in.SMILES == "CCO" && in.MaxLength != nil && *in.MaxLength == 2
	})).Return(ethanolResult(), nil)

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/featurize", map[string]any{"smiles": "CCO", "max_length": 2})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[mgtypes.FeaturizeResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, []int{6, 6, 8}, resp.Data.Nodes)
	assert.Equal(t, [][]int{{0, 1, 0}, {1, 0, 1}, {0, 1, 0}}, resp.Data.Edges)
	assert.Equal(t, 2, resp.Data.MaxLength)
}

func TestFeaturize_PersistedReturnsCreated(t *testing.T) {
	svc := new(MockService)
	res := ethanolResult()
	res.ID = uuid.NewString()
	svc.On("Featurize", mock.Anything, mock.Anything).Return(res, nil)

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/featurize", map[string]any{"smiles": "CCO", "persist": true})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, res.ID, decode[mgtypes.FeaturizeResponse](t, w).Data.ID)
}

func TestFeaturize_Errors(t *testing.T) {
	svc := new(MockService)
	svc.On("Featurize", mock.Anything, mock.Anything).
		Return(nil, errors.New(errors.ErrCodeMoleculeTooSmall, "molecule has too few atoms").WithDetail("atoms=1 max_length=3"))
	r := setupRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/v1/featurize", map[string]any{"smiles": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeBadRequest), decode[any](t, w).Error.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/featurize", map[string]any{"smiles": "C", "max_length": 3})
	assert.Equal(t, errors.HTTPStatusForCode(errors.ErrCodeMoleculeTooSmall), w.Code)
	body := decode[any](t, w)
	assert.Equal(t, string(errors.ErrCodeMoleculeTooSmall), body.Error.Code)
	assert.Equal(t, "atoms=1 max_length=3", body.Error.Detail)
}

func TestFeaturize_MasksServerErrors(t *testing.T) {
	svc := new(MockService)
	svc.On("Featurize", mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(assert.AnError, errors.ErrCodeDatabaseError, "insert failed: pq secret"))

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/featurize", map[string]any{"smiles": "CCO", "persist": true})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode[any](t, w)
	assert.Equal(t, errors.DefaultMessageForCode(errors.ErrCodeDatabaseError), body.Error.Message)
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestFeaturizeBatch(t *testing.T) {
	svc := new(MockService)
	svc.On("FeaturizeBatch", mock.Anything, mock.Anything).Return(&featurization.BatchResult{
		Results: []*featurization.FeaturizeResult{ethanolResult(), nil},
		Errors: []featurization.BatchItemError{{
			Index: 1, SMILES: "X", Err: errors.New(errors.ErrCodeMoleculeInvalidSMILES, "invalid SMILES"),
		}},
	}, nil)
	r := setupRouter(svc)

	w := doJSON(r, http.MethodPost, "/api/v1/featurize/batch", map[string]any{"smiles": []string{"CCO", "X"}})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[mgtypes.BatchFeaturizeResponse](t, w)
	assert.Equal(t, 2, resp.Data.TotalProcessed)
	require.Len(t, resp.Data.Succeeded, 1)
	require.Len(t, resp.Data.Failed, 1)
	assert.Equal(t, 1, resp.Data.Failed[0].Index)
	assert.Equal(t, string(errors.ErrCodeMoleculeInvalidSMILES), resp.Data.Failed[0].Error.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/featurize/batch", map[string]any{"smiles": []string{"C", "C", "C", "C"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDefeaturize(t *testing.T) {
	m := molgraph.NewMol()
	a, b, c := m.AddAtom(6), m.AddAtom(6), m.AddAtom(8)
	require.NoError(t, m.AddBond(a, b, molgraph.BondSingle))
	require.NoError(t, m.AddBond(b, c, molgraph.BondDouble))

	svc := new(MockService)
	svc.On("Defeaturize", mock.Anything, mock.MatchedBy(func(in *featurization.DefeaturizeInput) bool {
		return in.Strict == nil && in.Round
	})).Return(&featurization.DefeaturizeResult{Molecule: m, SMILES: "CC=O", Formula: "C2O"}, nil)

	w := doJSON(setupRouter(svc), http.MethodPost, "/api/v1/defeaturize", map[string]any{
		"nodes": []float64{6, 6, 8},
		"edges": [][]float64{{0, 1, 0}, {1, 0, 2}, {0, 2, 0}},
		"round": true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[mgtypes.DefeaturizeResponse](t, w)
	assert.Equal(t, "CC=O", resp.Data.SMILES)
	require.Len(t, resp.Data.Atoms, 3)
	assert.Equal(t, "O", resp.Data.Atoms[2].Symbol)
	require.Len(t, resp.Data.Bonds, 2)
	assert.Equal(t, mgtypes.BondDTO{Begin: 1, End: 2, Type: "double", Code: 2}, resp.Data.Bonds[1])
}

func TestDefeaturize_ShapeMismatch(t *testing.T) {
	w := doJSON(setupRouter(new(MockService)), http.MethodPost, "/api/v1/defeaturize", map[string]any{
		"nodes": []float64{6, 6},
		"edges": [][]float64{{0, 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetGraph(t *testing.T) {
	id := uuid.New()
	svc := new(MockService)
	svc.On("GetGraph", mock.Anything, id.String()).Return(&molgraph.GraphRecord{
		ID: id, SMILES: "CCO", Graph: ethanolResult().Graph, NumAtoms: 3, NumBonds: 2,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}, nil)
	svc.On("GetGraph", mock.Anything, "missing").Return(nil, errors.New(errors.ErrCodeGraphNotFound, "graph not found"))
	r := setupRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/v1/graphs/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[mgtypes.GraphResponse](t, w)
	assert.Equal(t, id.String(), resp.Data.ID)
	assert.Equal(t, 2024, time.Time(resp.Data.CreatedAt).Year())

	w = doJSON(r, http.MethodGet, "/api/v1/graphs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListGraphs(t *testing.T) {
	rec := &molgraph.GraphRecord{ID: uuid.New(), SMILES: "CCO", Graph: ethanolResult().Graph, NumAtoms: 3, NumBonds: 2}
	svc := new(MockService)
	svc.On("ListGraphs", mock.Anything, common.Pagination{Page: 2, PageSize: 1}).Return(&featurization.GraphPage{
		Graphs:     []*molgraph.GraphRecord{rec},
		Pagination: common.Pagination{Page: 2, PageSize: 1, Total: 3},
	}, nil)
	svc.On("ListGraphs", mock.Anything, common.Pagination{Page: 1, PageSize: 20}).Return(&featurization.GraphPage{
		Graphs:     []*molgraph.GraphRecord{},
		Pagination: common.Pagination{Page: 1, PageSize: 20},
	}, nil)
	r := setupRouter(svc)

	w := doJSON(r, http.MethodGet, "/api/v1/graphs?page=2&page_size=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[[]mgtypes.GraphResponse](t, w)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, rec.ID.String(), resp.Data[0].ID)
	assert.Equal(t, []int{6, 6, 8}, resp.Data[0].Nodes)
	require.NotNil(t, resp.Pagination)
	assert.Equal(t, int64(3), resp.Pagination.Total)

	w = doJSON(r, http.MethodGet, "/api/v1/graphs?page=zero&page_size=100000", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[[]mgtypes.GraphResponse](t, w)
	assert.Empty(t, resp.Data)
	assert.Equal(t, 20, resp.Pagination.PageSize)
	svc.AssertExpectations(t)
}

func TestDeleteGraph(t *testing.T) {
	id := uuid.New().String()
	svc := new(MockService)
	svc.On("DeleteGraph", mock.Anything, id).Return(nil)
	svc.On("DeleteGraph", mock.Anything, "missing").Return(errors.New(errors.ErrCodeGraphNotFound, "graph not found"))
	r := setupRouter(svc)

	w := doJSON(r, http.MethodDelete, "/api/v1/graphs/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = doJSON(r, http.MethodDelete, "/api/v1/graphs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBondCodes(t *testing.T) {
	svc := new(MockService)
	svc.On("BondCodes").Return([]featurization.BondCodeEntry{
		{Code: 1, Type: molgraph.BondSingle, Order: 1},
		{Code: 4, Type: molgraph.BondAromatic, Order: 1.5},
	})

	w := doJSON(setupRouter(svc), http.MethodGet, "/api/v1/bond-codes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[[]mgtypes.BondCode](t, w)
	assert.Equal(t, []mgtypes.BondCode{{Code: 1, Type: "single", Order: 1}, {Code: 4, Type: "aromatic", Order: 1.5}}, resp.Data)
}

//Personal.AI order the ending
