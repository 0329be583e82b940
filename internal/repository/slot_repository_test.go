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

	"github.com/willowdale/rota-api/internal/models"
)

func newSlotRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func slotRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "date", "time", "activity_type", "status", "volunteer_name",
		"volunteers", "is_urgent_when_free", "notes", "description", "created_at", "updated_at",
	})
}

func TestSlotRepositoryList(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	now := time.Now()
	rows := slotRows().
		AddRow(1, now, "08:00", "feeding", "free", nil, []byte(`[]`), true, nil, nil, now, now).
		AddRow(2, now, "10:00", "feeding", "assigned", "Alice", []byte(`["Alice"]`), true, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+slotColumns+" FROM schedule_slots WHERE 1=1 ORDER BY date ASC, time ASC NULLS LAST, id ASC")).
		WillReturnRows(rows)

	slots, err := repo.List(context.Background(), models.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, models.VolunteerList{}, slots[0].Volunteers)
	assert.Equal(t, models.VolunteerList{"Alice"}, slots[1].Volunteers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+slotColumns+" FROM schedule_slots WHERE 1=1 AND activity_type = $1 AND status = $2 ORDER BY date ASC, time ASC NULLS LAST, id ASC")).
		WithArgs("feeding", "free").
		WillReturnRows(slotRows())

	slots, err := repo.List(context.Background(), models.SlotFilter{ActivityType: "feeding", Status: models.SlotStatusFree})
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryListScansMalformedVolunteers(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	now := time.Now()
	rows := slotRows().
		AddRow(1, now, "08:00", "feeding", "free", nil, []byte(`{"broken`), false, nil, nil, now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + slotColumns + " FROM schedule_slots")).
		WillReturnRows(rows)

	slots, err := repo.List(context.Background(), models.SlotFilter{})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.VolunteerList{}, slots[0].Volunteers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedule_slots")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	slot := models.ScheduleSlot{
		Date:         time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		ActivityType: models.FeedingActivity,
		Status:       models.SlotStatusFree,
	}
	require.NoError(t, repo.Create(context.Background(), &slot))
	assert.Equal(t, int64(42), slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryUpdateReportsMissingRow(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_slots SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	slot := models.ScheduleSlot{ID: 99, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree}
	found, err := repo.Update(context.Background(), &slot)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedule_slots WHERE id = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	found, err := repo.Delete(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryMaxDateEmptyTable(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT MAX(date) FROM schedule_slots WHERE activity_type = $1")).
		WithArgs("feeding").
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

	max, err := repo.MaxDate(context.Background(), "feeding")
	require.NoError(t, err)
	assert.Nil(t, max)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryBulkInsertPreservesIDs(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectBegin()
	// Carried id inserts explicitly, the fresh row takes one from the sequence.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots (id, date,")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO schedule_slots (date,")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))
	mock.ExpectExec(regexp.QuoteMeta("SELECT setval(pg_get_serial_sequence('schedule_slots', 'id')")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)

	slots := []models.ScheduleSlot{
		{ID: 5, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
		{Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
	}
	require.NoError(t, repo.BulkInsertWithTx(context.Background(), tx, slots))
	require.NoError(t, tx.Commit())

	assert.Equal(t, int64(5), slots[0].ID)
	assert.Equal(t, int64(6), slots[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryBulkInsertFailureSurfacesError(t *testing.T) {
	db, mock, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots (id, date,")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_slots (id, date,")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	tx, err := db.Beginx()
	require.NoError(t, err)

	slots := []models.ScheduleSlot{
		{ID: 1, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
		{ID: 2, Date: time.Now(), ActivityType: "feeding", Status: models.SlotStatusFree},
	}
	err = repo.BulkInsertWithTx(context.Background(), tx, slots)
	require.Error(t, err)
	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotRepositoryDeleteAllRequiresTx(t *testing.T) {
	db, _, cleanup := newSlotRepoMock(t)
	defer cleanup()
	repo := NewSlotRepository(db)

	assert.Error(t, repo.DeleteAllWithTx(context.Background(), nil))
	assert.Error(t, repo.BulkInsertWithTx(context.Background(), nil, nil))
	_, err := repo.ListWithTx(context.Background(), nil)
	assert.Error(t, err)
}
