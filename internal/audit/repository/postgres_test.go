package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"asset-registry/backend/internal/audit/domain"
)

func TestCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	r := NewPostgresRepository(mock)
	now := time.Now().UTC()
	e := &domain.AuditEvent{
		ID: "a-1", Event: "OTP_ISSUE_SUCCESS", IdentityID: "id-1", Channel: "sms", Success: true,
		DiagnosticCode: "OK", IP: "10.0.0.1", UserAgent: "grpc-go", CreatedAt: now,
	}

	mock.ExpectExec(`INSERT INTO audit_events`).
		WithArgs("a-1", "OTP_ISSUE_SUCCESS", "id-1", "sms", true, "OK", "10.0.0.1", "grpc-go", now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(context.Background(), e))

	boom := errors.New("disk full")
	mock.ExpectExec(`INSERT INTO audit_events`).WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(boom)
	require.ErrorIs(t, r.Create(context.Background(), e), boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEvents(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	r := NewPostgresRepository(mock)
	now := time.Now().UTC()
	cols := []string{"id", "event", "identity_id", "channel", "success", "diagnostic_code", "ip", "user_agent", "created_at"}

	mock.ExpectQuery(`FROM audit_events WHERE \(\$1 = '' OR event = \$1\) AND \(\$2 = '' OR identity_id = \$2\) ORDER BY created_at DESC, id LIMIT \$3 OFFSET \$4`).
		WithArgs("OTP_VERIFY_FAILURE", "", int32(50), int32(0)).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("a-2", "OTP_VERIFY_FAILURE", "id-1", "", false, "OTP_MISMATCH", "10.0.0.1", "ua", now).
			AddRow("a-1", "OTP_VERIFY_FAILURE", "_unknown", "", false, "INVALID_INPUT", "10.0.0.2", "ua", now.Add(-time.Minute)))

	got, err := r.ListEvents(context.Background(), Filter{Event: "OTP_VERIFY_FAILURE"}, 50, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "a-2", got[0].ID)
	require.Equal(t, "OTP_MISMATCH", got[0].DiagnosticCode)
	require.NoError(t, mock.ExpectationsWereMet())
}
