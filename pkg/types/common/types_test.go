package common

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestamp_JSON(t *testing.T) {
	now := time.Date(2023, 10, 27, 10, 0, 0, 0, time.UTC)
	data, err := json.Marshal(Timestamp(now))
	require.NoError(t, err)
	assert.Equal(t, `"2023-10-27T10:00:00Z"`, string(data))

	var ts Timestamp
	require.NoError(t, json.Unmarshal(data, &ts))
	assert.Equal(t, now, time.Time(ts))

	require.NoError(t, json.Unmarshal([]byte(`"2023-10-27T12:00:00.5+02:00"`), &ts))
	assert.Equal(t, now.Add(500*time.Millisecond), time.Time(ts))

	assert.Error(t, json.Unmarshal([]byte(`"invalid-date"`), &ts))
	assert.Error(t, json.Unmarshal([]byte(`42`), &ts))
}

func TestPagination(t *testing.T) {
	assert.NoError(t, Pagination{Page: 1, PageSize: 20}.Validate())
	assert.NoError(t, Pagination{Page: 1, PageSize: MaxPageSize}.Validate())
	assert.Error(t, Pagination{Page: 0, PageSize: 20}.Validate())
	assert.Error(t, Pagination{Page: 1, PageSize: 0}.Validate())
	assert.Error(t, Pagination{Page: 1, PageSize: MaxPageSize + 1}.Validate())
	assert.Equal(t, 40, Pagination{Page: 3, PageSize: 20}.Offset())

	assert.True(t, Pagination{Page: 1, PageSize: 10, Total: 11}.HasNext())
	assert.False(t, Pagination{Page: 2, PageSize: 10, Total: 11}.HasNext())
	assert.False(t, Pagination{Page: 1, PageSize: 10}.HasNext())
}

func TestResponses(t *testing.T) {
	ok := NewSuccessResponse([]int{1, 2})
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
	assert.Nil(t, ok.Pagination)
	assert.Equal(t, []int{1, 2}, ok.Data)

	bad := NewErrorResponse("GRF_001", "bad graph")
	assert.False(t, bad.Success)
	require.NotNil(t, bad.Error)
	assert.Equal(t, "GRF_001", bad.Error.Code)

	page := NewPaginatedResponse([]string{"x"}, Pagination{Page: 2, PageSize: 10, Total: 31})
	assert.True(t, page.Success)
	require.NotNil(t, page.Pagination)
	assert.Equal(t, int64(31), page.Pagination.Total)
}

func TestAPIResponse_JSON(t *testing.T) {
	resp := NewSuccessResponse(map[string]int{"atoms": 3})
	resp.RequestID = "req-1"
	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var back APIResponse[map[string]int]
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 3, back.Data["atoms"])
	assert.Equal(t, "req-1", back.RequestID)
	assert.NotContains(t, string(data), `"error"`)
	assert.NotContains(t, string(data), `"pagination"`)

	paged, err := json.Marshal(NewPaginatedResponse([]int{}, Pagination{Page: 1, PageSize: 5}))
	require.NoError(t, err)
	assert.Contains(t, string(paged), `"pagination":{"page":1,"page_size":5,"total":0}`)
}

//Personal.AI order the ending
