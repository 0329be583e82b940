package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/jobs"
	"github.com/willowdale/rota-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T, slots []models.ScheduleSlot) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	return NewExportService(&slotRepoStub{slots: slots}, store, signer, nil, ExportServiceConfig{
		WindowWeeks:  2,
		DownloadPath: "/api/v1/exports/download",
	})
}

func exportTestSlots() []models.ScheduleSlot {
	now := time.Now().UTC()
	return []models.ScheduleSlot{
		{ID: 1, Date: now, Time: strp("08:00"), ActivityType: models.FeedingActivity, Status: models.SlotStatusAssigned, VolunteerName: strp("Alice")},
		{ID: 2, Date: now, ActivityType: models.MeetingActivity, Status: models.SlotStatusFree},
	}
}

func TestExportServiceProcessCSV(t *testing.T) {
	svc := newExportServiceForTest(t, exportTestSlots())
	job := &models.ExportJob{ID: "11111111-aaaa-bbbb-cccc-dddddddddddd", Format: models.ExportFormatCSV, Status: models.ExportJobQueued}
	svc.tracked[job.ID] = job

	require.NoError(t, svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: "csv"}))

	tracked, err := svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobCompleted, tracked.Status)
	assert.True(t, strings.HasSuffix(tracked.FilePath, ".csv"))
	assert.Contains(t, tracked.DownloadURL, "/api/v1/exports/download?token=")
	require.NotNil(t, tracked.ExpiresAt)

	token := strings.TrimPrefix(tracked.DownloadURL, "/api/v1/exports/download?token=")
	file, contentType, err := svc.Download(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "text/csv", contentType)

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Alice")
	assert.Contains(t, string(content), models.FeedingActivity)
}

func TestExportServiceProcessPDF(t *testing.T) {
	svc := newExportServiceForTest(t, exportTestSlots())
	job := &models.ExportJob{ID: "22222222-aaaa-bbbb-cccc-dddddddddddd", Format: models.ExportFormatPDF, Status: models.ExportJobQueued}
	svc.tracked[job.ID] = job

	require.NoError(t, svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: "pdf"}))

	tracked, err := svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobCompleted, tracked.Status)
	assert.True(t, strings.HasSuffix(tracked.FilePath, ".pdf"))

	token := strings.TrimPrefix(tracked.DownloadURL, "/api/v1/exports/download?token=")
	file, contentType, err := svc.Download(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "application/pdf", contentType)
}

func TestExportServiceRequestValidatesFormat(t *testing.T) {
	svc := newExportServiceForTest(t, nil)

	_, err := svc.Request(context.Background(), "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRequestQueuesJob(t *testing.T) {
	svc := newExportServiceForTest(t, exportTestSlots())
	svc.Start(context.Background())
	defer svc.Stop()

	job, err := svc.Request(context.Background(), "csv")
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.ExportFormatCSV, job.Format)
}

func TestExportServiceGetUnknownJob(t *testing.T) {
	svc := newExportServiceForTest(t, nil)

	_, err := svc.Get("missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceDownloadRejectsBadToken(t *testing.T) {
	svc := newExportServiceForTest(t, nil)

	_, _, err := svc.Download("garbage")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceFailedAttemptStaysQueuedUntilRetriesExhausted(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	svc := NewExportService(&slotRepoStub{listErr: errors.New("db offline")}, store, signer, nil, ExportServiceConfig{
		WorkerRetries: 2,
	})

	job := &models.ExportJob{ID: "22222222-aaaa-bbbb-cccc-dddddddddddd", Format: models.ExportFormatCSV, Status: models.ExportJobQueued}
	svc.tracked[job.ID] = job

	// Attempts with retries remaining leave the job retryable, not failed.
	require.Error(t, svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: "csv", Attempt: 0}))
	tracked, err := svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobQueued, tracked.Status)
	assert.Equal(t, "db offline", tracked.Error)

	require.Error(t, svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: "csv", Attempt: 1}))
	tracked, err = svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobQueued, tracked.Status)

	// The last permitted attempt settles the job as failed.
	require.Error(t, svc.process(context.Background(), jobs.Job{ID: job.ID, Payload: "csv", Attempt: 2}))
	tracked, err = svc.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportJobFailed, tracked.Status)
}
