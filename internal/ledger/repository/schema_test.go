package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stockledger/stockledger-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap_RunsAllStatementsInOneTransaction(t *testing.T) {
	mockDB := testutil.NewMockDB(t)

	mockDB.Mock.ExpectBegin()
	for _, stmt := range schemaStatements {
		mockDB.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mockDB.Mock.ExpectCommit()

	require.NoError(t, Bootstrap(context.Background(), mockDB.DB))
	mockDB.ExpectationsWereMet(t)
}

func TestBootstrap_RollsBackOnFailure(t *testing.T) {
	mockDB := testutil.NewMockDB(t)

	mockDB.Mock.ExpectBegin()
	mockDB.ExpectExec(schemaStatements[0]).WillReturnError(errors.New("permission denied"))
	mockDB.Mock.ExpectRollback()

	err := Bootstrap(context.Background(), mockDB.DB)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema statement 1")
	mockDB.ExpectationsWereMet(t)
}

func TestSchema_SeedsDefaultBranchOnlyWhenEmpty(t *testing.T) {
	seed := schemaStatements[len(schemaStatements)-1]
	assert.Contains(t, seed, "WHERE NOT EXISTS (SELECT 1 FROM branches)")
	assert.Contains(t, seed, "'"+DefaultBranchCode+"'")
}
