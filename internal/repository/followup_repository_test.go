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

func newFollowUpMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFollowUpRepositoryCreateDefaultsPending(t *testing.T) {
	db, mock, cleanup := newFollowUpMock(t)
	defer cleanup()
	repo := NewFollowUpRepository(db)

	mock.ExpectExec("INSERT INTO follow_ups").
		WillReturnResult(sqlmock.NewResult(1, 1))

	followUp := &models.FollowUp{EnquiryID: "enq-1", ScheduledAt: time.Now().Add(24 * time.Hour), CreatedBy: "user-1"}
	err := repo.Create(context.Background(), followUp)
	require.NoError(t, err)
	assert.Equal(t, models.FollowUpStatusPending, followUp.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowUpRepositoryUpdateWithActivityComplete(t *testing.T) {
	db, mock, cleanup := newFollowUpMock(t)
	defer cleanup()
	repo := NewFollowUpRepository(db)

	scheduled := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "enquiry_id", "scheduled_at", "status", "notes", "outcome", "created_by", "created_at", "updated_at"}).
		AddRow("fu-1", "enq-1", scheduled, "PENDING", nil, nil, "user-1", scheduled, scheduled)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, enquiry_id, scheduled_at").
		WithArgs("fu-1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE follow_ups SET status = $2, outcome = $3, notes = $4, scheduled_at = $5, updated_at = $6 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	outcome := "answered, asked to call next week"
	updated, err := repo.UpdateWithActivity(context.Background(), FollowUpUpdateParams{
		FollowUpID: "fu-1",
		Status:     models.FollowUpStatusCompleted,
		Outcome:    &outcome,
		ActorID:    "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FollowUpStatusCompleted, updated.Status)
	assert.Equal(t, scheduled, updated.ScheduledAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowUpRepositoryUpdateWithoutNotesKeepsCreationNotes(t *testing.T) {
	db, mock, cleanup := newFollowUpMock(t)
	defer cleanup()
	repo := NewFollowUpRepository(db)

	scheduled := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "enquiry_id", "scheduled_at", "status", "notes", "outcome", "created_by", "created_at", "updated_at"}).
		AddRow("fu-1", "enq-1", scheduled, "PENDING", "call after 6pm", nil, "user-1", scheduled, scheduled)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, enquiry_id, scheduled_at").
		WithArgs("fu-1").
		WillReturnRows(rows)
	outcome := "answered"
	mock.ExpectExec(regexp.QuoteMeta("UPDATE follow_ups SET status = $2, outcome = $3, notes = $4, scheduled_at = $5, updated_at = $6 WHERE id = $1")).
		WithArgs("fu-1", string(models.FollowUpStatusCompleted), outcome, "call after 6pm", scheduled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateWithActivity(context.Background(), FollowUpUpdateParams{
		FollowUpID: "fu-1",
		Status:     models.FollowUpStatusCompleted,
		Outcome:    &outcome,
		ActorID:    "user-1",
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "call after 6pm", *updated.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowUpRepositoryRescheduleKeepsEnquiryAndMovesSchedule(t *testing.T) {
	db, mock, cleanup := newFollowUpMock(t)
	defer cleanup()
	repo := NewFollowUpRepository(db)

	original := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	rescheduled := original.AddDate(0, 0, 3)
	rows := sqlmock.NewRows([]string{"id", "enquiry_id", "scheduled_at", "status", "notes", "outcome", "created_by", "created_at", "updated_at"}).
		AddRow("fu-1", "enq-1", original, "PENDING", nil, nil, "user-1", original, original)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, enquiry_id, scheduled_at").
		WithArgs("fu-1").
		WillReturnRows(rows)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE follow_ups SET status = $2, outcome = $3, notes = $4, scheduled_at = $5, updated_at = $6 WHERE id = $1")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO enquiry_activities").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	updated, err := repo.UpdateWithActivity(context.Background(), FollowUpUpdateParams{
		FollowUpID:    "fu-1",
		Status:        models.FollowUpStatusRescheduled,
		RescheduledAt: &rescheduled,
		ActorID:       "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, rescheduled, updated.ScheduledAt)
	assert.Equal(t, "enq-1", updated.EnquiryID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
