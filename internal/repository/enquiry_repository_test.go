package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

func newEnquiryMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnquiryRepositoryList(t *testing.T) {
	db, mock, cleanup := newEnquiryMock(t)
	defer cleanup()
	repo := NewEnquiryRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "candidate_name", "phone", "alt_phone", "email", "address", "status",
		"assigned_to", "branch_id", "source_id", "preferred_course_id", "required_service_id",
		"notes", "feedback", "last_contact_date", "created_at", "updated_at",
		"branch_name", "source_name", "course_name", "service_name", "assigned_to_name",
	}).AddRow("enq-1", "Asha Rao", "9000000001", nil, nil, nil, "NEW",
		nil, "branch-1", "src-1", nil, nil,
		nil, nil, nil, now, now,
		"Main Branch", "Walk-in", nil, nil, nil)
	mock.ExpectQuery("SELECT e.id, e.candidate_name").
		WithArgs("NEW").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("NEW").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	enquiries, total, err := repo.List(context.Background(), models.EnquiryFilter{Status: models.EnquiryStatusNew})
	require.NoError(t, err)
	assert.Len(t, enquiries, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryCreateDefaultsStatus(t *testing.T) {
	db, mock, cleanup := newEnquiryMock(t)
	defer cleanup()
	repo := NewEnquiryRepository(db)

	mock.ExpectExec("INSERT INTO enquiries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	enquiry := &models.Enquiry{CandidateName: "Asha Rao", Phone: "9000000001", BranchID: "branch-1", SourceID: "src-1"}
	err := repo.Create(context.Background(), enquiry)
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusNew, enquiry.Status)
	assert.NotEmpty(t, enquiry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryStatusTransition(t *testing.T) {
	db, mock, cleanup := newEnquiryMock(t)
	defer cleanup()
	repo := NewEnquiryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM enquiries WHERE id = $1 FOR UPDATE")).
		WithArgs("enq-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("INTERESTED"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiries SET status = $2, last_contact_date = $3, updated_at = $3 WHERE id = $1")).
		WithArgs("enq-1", models.EnquiryStatusContacted, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	prev, err := repo.UpdateStatusWithActivity(context.Background(), StatusTransitionParams{
		EnquiryID: "enq-1",
		NewStatus: models.EnquiryStatusContacted,
		Type:      models.ActivityStatusChange,
		ActorID:   "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusInterested, prev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryStatusTransitionRollsBackOnActivityFailure(t *testing.T) {
	db, mock, cleanup := newEnquiryMock(t)
	defer cleanup()
	repo := NewEnquiryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM enquiries WHERE id = $1 FOR UPDATE")).
		WithArgs("enq-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("NEW"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiries SET status = $2, last_contact_date = $3, updated_at = $3 WHERE id = $1")).
		WithArgs("enq-1", models.EnquiryStatusDropped, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	_, err := repo.UpdateStatusWithActivity(context.Background(), StatusTransitionParams{
		EnquiryID: "enq-1",
		NewStatus: models.EnquiryStatusDropped,
		Type:      models.ActivityStatusChange,
		ActorID:   "user-1",
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnquiryRepositoryDirectEnrollmentDescription(t *testing.T) {
	db, mock, cleanup := newEnquiryMock(t)
	defer cleanup()
	repo := NewEnquiryRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM enquiries WHERE id = $1 FOR UPDATE")).
		WithArgs("enq-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("INTERESTED"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enquiries SET status = $2, last_contact_date = $3, updated_at = $3 WHERE id = $1")).
		WithArgs("enq-1", models.EnquiryStatusEnrolled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	remarks := "paid cash on visit"
	prev, err := repo.UpdateStatusWithActivity(context.Background(), StatusTransitionParams{
		EnquiryID: "enq-1",
		NewStatus: models.EnquiryStatusEnrolled,
		Type:      models.ActivityEnrollmentDirect,
		Remarks:   &remarks,
		ActorID:   "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.EnquiryStatusInterested, prev)
	assert.NoError(t, mock.ExpectationsWereMet())
}
