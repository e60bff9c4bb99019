package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Code: "REALM_NOT_FOUND", Message: "realm not found"}
	assert.Equal(t, "realm not found", err.Error())
}

func TestServiceErrorOmitsEmptyDetails(t *testing.T) {
	data, err := json.Marshal(&ServiceError{Code: "X", Message: "y"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "details")
}

func TestPaginatedJSONShape(t *testing.T) {
	page := Paginated[int]{
		Data:       []int{1, 2, 3},
		Pagination: PaginationInfo{Limit: 3, Offset: 0, Total: 10},
	}

	data, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":[1,2,3],"pagination":{"limit":3,"offset":0,"total":10}}`, string(data))
}
