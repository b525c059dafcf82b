package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stockledger/stockledger-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineInput struct {
	BatchNo  string `json:"batch_no" validate:"required"`
	Movement string `json:"movement" validate:"omitempty,oneof=IN OUT"`
}

type batchInput struct {
	Lines []lineInput `json:"lines" validate:"required,min=1,dive"`
}

func TestValidate_FieldPaths(t *testing.T) {
	err := Validate(batchInput{Lines: []lineInput{
		{BatchNo: "24-1111-2222"},
		{BatchNo: "", Movement: "SIDEWAYS"},
	}})

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Equal(t, "this field is required", appErr.Details["lines[1].batch_no"])
	assert.Equal(t, "must be one of: IN OUT", appErr.Details["lines[1].movement"])
	assert.NotContains(t, appErr.Details, "lines[0].batch_no")
}

func TestValidate_EmptyList(t *testing.T) {
	err := Validate(batchInput{Lines: []lineInput{}})

	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "lines")
}

func TestQueryInt64(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?branch_id=4&bad=abc", nil)

	v, err := QueryInt64(r, "branch_id")
	require.NoError(t, err)
	assert.Equal(t, int64(4), *v)

	v, err = QueryInt64(r, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = QueryInt64(r, "bad")
	assert.Error(t, err)
}
