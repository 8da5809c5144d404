package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow-backend/pkg/errors"
	"github.com/taskflow/taskflow-backend/pkg/tenant"
	"github.com/taskflow/taskflow-backend/pkg/testutil"
)

const testSchema = "tenant_acme"

func tenantCtx() context.Context {
	return tenant.WithTenantContext(context.Background(), "tenant-1", "acme", testSchema)
}

func TestEmployeeUpsertWritesTenantScoped(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantExec(testSchema, "INSERT INTO employees", sqlmock.NewResult(1, 1))

	repo := NewEmployeeRepository(mockDB.DB)
	dept := "Engineering"
	err := repo.Upsert(tenantCtx(), &Employee{
		UserID:     "user-1",
		FullName:   "Ada Byron",
		Email:      "ada@example.com",
		Role:       "EMPLOYEE",
		Department: &dept,
		IsActive:   true,
	})

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}

func TestEmployeeUpsertRequiresTenantContext(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	repo := NewEmployeeRepository(mockDB.DB)
	err := repo.Upsert(context.Background(), &Employee{UserID: "user-1"})

	assert.ErrorIs(t, err, tenant.ErrNoTenantInContext)
}

func TestEmployeeGetByIDNotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantBegin(testSchema)
	mockDB.ExpectQuery("SELECT user_id, full_name").WillReturnError(sql.ErrNoRows)
	mockDB.ExpectTenantRollback()

	repo := NewEmployeeRepository(mockDB.DB)
	_, err := repo.GetByID(tenantCtx(), "missing")

	assert.True(t, stderrors.Is(err, errors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

func TestEmployeeDeactivateKeepsRow(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectTenantExec(testSchema, "UPDATE employees", sqlmock.NewResult(0, 1))

	repo := NewEmployeeRepository(mockDB.DB)
	err := repo.Deactivate(tenantCtx(), "user-1")

	require.NoError(t, err)
	mockDB.ExpectationsWereMet(t)
}
