package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/willowdale/rota-api/internal/models"
	appErrors "github.com/willowdale/rota-api/pkg/errors"
	"github.com/willowdale/rota-api/pkg/export"
	"github.com/willowdale/rota-api/pkg/jobs"
	"github.com/willowdale/rota-api/pkg/storage"
)

type exportSlotLister interface {
	List(ctx context.Context, filter models.SlotFilter) ([]models.ScheduleSlot, error)
}

// ExportServiceConfig tunes export rendering and workers.
type ExportServiceConfig struct {
	WindowWeeks       int
	WorkerConcurrency int
	WorkerRetries     int
	DownloadPath      string
}

// ExportService renders the rolling rota window to CSV or PDF artifacts.
// Rendering runs on a worker queue off the request path; artifacts are
// fetched through expiring signed URLs.
type ExportService struct {
	slots   exportSlotLister
	store   *storage.LocalStorage
	signer  *storage.SignedURLSigner
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	queue   *jobs.Queue
	logger  *zap.Logger
	cfg     ExportServiceConfig
	mu      sync.RWMutex
	tracked map[string]*models.ExportJob
}

// NewExportService constructs the service and its worker queue.
func NewExportService(slots exportSlotLister, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WindowWeeks <= 0 {
		cfg.WindowWeeks = models.DefaultWindowWeeks
	}
	if cfg.DownloadPath == "" {
		cfg.DownloadPath = "/api/v1/exports/download"
	}
	if cfg.WorkerRetries <= 0 {
		// Mirror the queue default so retry accounting stays in step.
		cfg.WorkerRetries = 3
	}

	s := &ExportService{
		slots:   slots,
		store:   store,
		signer:  signer,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		cfg:     cfg,
		tracked: make(map[string]*models.ExportJob),
	}
	s.queue = jobs.NewQueue("rota-exports", s.process, jobs.QueueConfig{
		Workers:    cfg.WorkerConcurrency,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the export workers.
func (s *ExportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the export workers.
func (s *ExportService) Stop() {
	s.queue.Stop()
}

// Request queues a new export of the current rolling window.
func (s *ExportService) Request(ctx context.Context, format string) (*models.ExportJob, error) {
	f := models.ExportFormat(strings.ToLower(format))
	if f != models.ExportFormatCSV && f != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	job := &models.ExportJob{
		ID:          uuid.NewString(),
		Format:      f,
		Status:      models.ExportJobQueued,
		RequestedAt: time.Now().UTC(),
	}
	s.mu.Lock()
	s.tracked[job.ID] = job
	s.mu.Unlock()

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "rota-export", Payload: string(f)}); err != nil {
		s.transition(job.ID, models.ExportJobFailed, err.Error())
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue export")
	}
	return s.snapshot(job.ID), nil
}

// Get returns the tracked state of one export job.
func (s *ExportService) Get(id string) (*models.ExportJob, error) {
	job := s.snapshot(id)
	if job == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export job not found")
	}
	return job, nil
}

// Download validates a signed token and opens the referenced artifact.
func (s *ExportService) Download(token string) (*os.File, string, error) {
	jobID, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid download token")
	}
	if job := s.snapshot(jobID); job == nil || job.Status != models.ExportJobCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export artifact not available")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export artifact missing")
	}
	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}
	return file, contentType, nil
}

func (s *ExportService) process(ctx context.Context, job jobs.Job) error {
	s.transition(job.ID, models.ExportJobRunning, "")

	format, _ := job.Payload.(string)
	now := time.Now().UTC()

	slots, err := s.slots.List(ctx, models.SlotFilter{})
	if err != nil {
		s.fail(job, err)
		return err
	}
	weeks := models.GroupWeeks(slots, now, s.cfg.WindowWeeks)
	dataset := buildRotaDataset(weeks)

	var payload []byte
	ext := "csv"
	switch models.ExportFormat(format) {
	case models.ExportFormatPDF:
		ext = "pdf"
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Volunteer rota for week of %s", models.AnchorMonday(now).Format(DateLayout)))
	default:
		payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		s.fail(job, err)
		return err
	}

	relPath := fmt.Sprintf("rota-%s-%s.%s", now.Format("20060102T150405"), job.ID[:8], ext)
	if _, err := s.store.Save(relPath, payload); err != nil {
		s.fail(job, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		s.fail(job, err)
		return err
	}

	completedAt := time.Now().UTC()
	s.mu.Lock()
	if tracked, ok := s.tracked[job.ID]; ok {
		tracked.Status = models.ExportJobCompleted
		tracked.FilePath = relPath
		tracked.DownloadURL = s.cfg.DownloadPath + "?token=" + token
		tracked.ExpiresAt = &expiresAt
		tracked.CompletedAt = &completedAt
	}
	s.mu.Unlock()
	s.logger.Info("export completed", zap.String("job_id", job.ID), zap.String("file", relPath))
	return nil
}

func buildRotaDataset(weeks []models.Week) export.Dataset {
	headers := []string{"Week", "Activity", "Date", "Day", "Time", "Status", "Volunteer", "Notes"}
	rows := make([]map[string]string, 0, 64)
	dayNames := []string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}
	for _, week := range weeks {
		for _, group := range week.Activities {
			for _, slot := range group.Slots {
				row := map[string]string{
					"Week":     week.StartDate.Format(DateLayout),
					"Activity": group.ActivityType,
					"Date":     slot.Date.Format(DateLayout),
					"Day":      dayNames[slot.DayOfWeek()],
					"Status":   string(slot.Status),
				}
				if slot.Time != nil {
					row["Time"] = *slot.Time
				}
				if slot.VolunteerName != nil {
					row["Volunteer"] = *slot.VolunteerName
				}
				if slot.Notes != nil {
					row["Notes"] = *slot.Notes
				}
				rows = append(rows, row)
			}
		}
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) transition(id string, status models.ExportJobStatus, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.tracked[id]; ok {
		job.Status = status
		job.Error = errMsg
	}
}

// fail records a processing error. The job stays queued while the worker
// pool will retry it; it only turns failed once retries are exhausted, so
// pollers never observe a terminal state that later resumes.
func (s *ExportService) fail(job jobs.Job, err error) {
	status := models.ExportJobFailed
	if job.Attempt < s.cfg.WorkerRetries {
		status = models.ExportJobQueued
	}
	s.transition(job.ID, status, err.Error())
}

func (s *ExportService) snapshot(id string) *models.ExportJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.tracked[id]
	if !ok {
		return nil
	}
	clone := *job
	return &clone
}
