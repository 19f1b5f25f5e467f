package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/institute-crm-api/internal/models"
)

func newAssignmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestAssignmentRepositoryAssignWritesActivities(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE enquiries SET assigned_to").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Assign(context.Background(), []string{"enq-1", "enq-2"}, "caller-1", "admin-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryAssignRollsBackOnMissingEnquiry(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE enquiries SET assigned_to").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := repo.Assign(context.Background(), []string{"enq-1", "missing"}, "caller-1", "admin-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryCreateJobWithAssignments(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO assignment_jobs").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE enquiries SET assigned_to").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	job := &models.AssignmentJob{
		Name:       "August telecalling",
		StartDate:  time.Now().AddDate(0, 0, 1),
		EndDate:    time.Now().AddDate(0, 0, 7),
		AssignedTo: "caller-1",
		CreatedBy:  "admin-1",
	}
	err := repo.CreateJobWithAssignments(context.Background(), job, []string{"enq-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, job.EnquiryCount)
	assert.Equal(t, models.AssignmentJobStatusPending, job.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepositoryFindJobByID(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewAssignmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "description", "start_date", "end_date", "remarks", "assigned_to", "enquiry_count", "status", "created_by", "created_at"}).
		AddRow("job-1", "August telecalling", nil, now, now.AddDate(0, 0, 7), nil, "caller-1", 3, "PENDING", "admin-1", now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, description, start_date, end_date, remarks, assigned_to, enquiry_count, status, created_by, created_at")).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.FindJobByID(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "August telecalling", job.Name)
	assert.Equal(t, 3, job.EnquiryCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
