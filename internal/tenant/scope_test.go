package tenant_test

import (
	"testing"

	"go-hris-leave/internal/shared/testutil"
	"go-hris-leave/internal/tenant"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID string
}

func TestScope(t *testing.T) {
	db, mock := testutil.NewGormMock(t)

	mock.ExpectQuery(`SELECT \* FROM "leave_types" WHERE organization_id = \$1`).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("lt-1"))

	var rows []row
	require.NoError(t, db.Table("leave_types").Scopes(tenant.Scope("org-1")).Find(&rows).Error)

	assert.Equal(t, []row{{ID: "lt-1"}}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScopeColumn(t *testing.T) {
	db, mock := testutil.NewGormMock(t)

	mock.ExpectQuery(`SELECT \* FROM "leave_balances" WHERE "LeaveType".organization_id = \$1`).
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	var rows []row
	require.NoError(t, db.Table("leave_balances").
		Scopes(tenant.ScopeColumn(`"LeaveType".organization_id`, "org-1")).
		Find(&rows).Error)

	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
