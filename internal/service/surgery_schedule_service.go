package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/or-scheduler-api/internal/dto"
	"github.com/noah-isme/or-scheduler-api/internal/models"
	"github.com/noah-isme/or-scheduler-api/internal/scheduler"
	appErrors "github.com/noah-isme/or-scheduler-api/pkg/errors"
	"github.com/noah-isme/or-scheduler-api/pkg/export"
	"github.com/noah-isme/or-scheduler-api/pkg/jobs"
)

// JobTypePersistRun tags queue jobs that store a finished scheduling pass.
const JobTypePersistRun = "schedule.persist"

// MaxSurgeriesPerRun caps the cases accepted by one scheduling pass.
const MaxSurgeriesPerRun = 500

func errTooManySurgeries() *appErrors.Error {
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("too many surgeries in one request, max %d", MaxSurgeriesPerRun))
}

type scheduleBuilder interface {
	Build(ctx context.Context, surgeries []models.Surgery, horizonStart time.Time, cfg scheduler.Config) (*scheduler.Result, error)
}

type scheduleRunReader interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleRun, error)
	List(ctx context.Context, limit int) ([]models.ScheduleRun, error)
}

type scheduleAssignmentReader interface {
	ListByRun(ctx context.Context, runID string) ([]models.ScheduleRunAssignment, error)
}

type persistDispatcher interface {
	Enqueue(job jobs.Job) (string, error)
}

// SurgeryScheduleConfig governs pass limits and result retention.
type SurgeryScheduleConfig struct {
	Defaults  scheduler.Config
	Timeout   time.Duration
	ResultTTL time.Duration
}

// SurgeryScheduleService runs scheduling passes, keeps recent results in memory
// and hands them to the persistence queue when one is configured.
type SurgeryScheduleService struct {
	builder     scheduleBuilder
	runs        scheduleRunReader
	assignments scheduleAssignmentReader
	queue       persistDispatcher
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         SurgeryScheduleConfig
	store       *runStore
	now         func() time.Time
}

// NewSurgeryScheduleService wires the scheduling pipeline. runs, assignments
// and queue may be nil when persistence is disabled.
func NewSurgeryScheduleService(
	builder scheduleBuilder,
	runs scheduleRunReader,
	assignments scheduleAssignmentReader,
	queue persistDispatcher,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SurgeryScheduleConfig,
) *SurgeryScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 30 * time.Minute
	}
	if cfg.Defaults.Rooms == 0 {
		cfg.Defaults = scheduler.DefaultConfig()
	}
	return &SurgeryScheduleService{
		builder:     builder,
		runs:        runs,
		assignments: assignments,
		queue:       queue,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
		store:       newRunStore(cfg.ResultTTL),
		now:         time.Now,
	}
}

// Generate validates the request and runs one scheduling pass under the
// configured deadline.
func (s *SurgeryScheduleService) Generate(ctx context.Context, req dto.ScheduleRequest) (*dto.ScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if len(req.Surgeries) > MaxSurgeriesPerRun {
		return nil, errTooManySurgeries()
	}
	cfg, err := mergeConfig(s.cfg.Defaults, req.Options)
	if err != nil {
		return nil, err
	}
	horizonStart, err := parseDate(req.StartDate, cfg.Location)
	if err != nil {
		return nil, err
	}
	surgeries, err := toSurgeries(req.Surgeries, cfg.Location)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, surgeries, horizonStart, cfg)
}

func (s *SurgeryScheduleService) generate(ctx context.Context, surgeries []models.Surgery, horizonStart time.Time, cfg scheduler.Config) (*dto.ScheduleResponse, error) {
	passCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	started := s.now()
	result, err := s.builder.Build(passCtx, surgeries, horizonStart, cfg)
	if err != nil {
		return nil, mapBuildError(err)
	}
	elapsed := s.now().Sub(started)

	unplaced := make(map[models.UnplacedReason]int)
	for _, p := range result.Unplaced() {
		unplaced[p.Reason]++
	}
	s.metrics.ObserveSchedulePass(elapsed, len(result.Schedule), unplaced, result.SlotsUsed, result.SlotsTotal)

	run := storedRun{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		Result:    result,
	}
	run.Response = scheduleResponse(run.ID, result, elapsed)
	s.store.Save(run)
	s.enqueuePersist(run)

	s.logger.Info("schedule generated",
		zap.String("run_id", run.ID),
		zap.Int("placed", run.Response.Stats.Placed),
		zap.Int("unplaced", run.Response.Stats.Unplaced),
		zap.Duration("elapsed", elapsed),
	)
	return run.Response, nil
}

func mapBuildError(err error) error {
	switch {
	case errors.Is(err, scheduler.ErrInvalidConfig):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "schedule pass exceeded its deadline")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build schedule")
	}
}

// enqueuePersist never fails the request; a full or stopped queue only costs
// the durable copy.
func (s *SurgeryScheduleService) enqueuePersist(run storedRun) {
	if s.queue == nil {
		return
	}
	record, err := newRunRecord(run)
	if err != nil {
		s.logger.Error("failed to encode schedule run", zap.String("run_id", run.ID), zap.Error(err))
		s.metrics.RecordPersistenceFailure()
		return
	}
	if _, err := s.queue.Enqueue(jobs.Job{ID: run.ID, Type: JobTypePersistRun, Payload: record}); err != nil {
		s.logger.Warn("schedule run not queued for persistence", zap.String("run_id", run.ID), zap.Error(err))
		s.metrics.RecordPersistenceFailure()
	}
}

// Get returns a run, preferring the in-memory copy over the database.
func (s *SurgeryScheduleService) Get(ctx context.Context, runID string) (*dto.ScheduleResponse, error) {
	if runID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "run id is required")
	}
	if run, ok := s.store.Get(runID); ok {
		return run.Response, nil
	}
	run, rows, meta, err := s.loadPersisted(ctx, runID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ScheduleResponse{
		RunID:        run.ID,
		HorizonStart: run.HorizonStart.In(meta.location()).Format(dateLayout),
		Schedule:     make([]dto.ScheduledSurgery, 0, len(rows)),
		Unplaced:     meta.Unplaced,
		Stats:        meta.Stats,
	}
	if resp.Unplaced == nil {
		resp.Unplaced = []dto.UnplacedSurgery{}
	}
	for _, row := range rows {
		resp.Schedule = append(resp.Schedule, scheduledSurgeryFromRow(meta.localise(row)))
	}
	return resp, nil
}

// List returns persisted runs, newest first.
func (s *SurgeryScheduleService) List(ctx context.Context, query dto.ScheduleRunQuery) ([]dto.ScheduleRunSummary, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run query")
	}
	if s.runs == nil {
		return []dto.ScheduleRunSummary{}, nil
	}
	runs, err := s.runs.List(ctx, query.Limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule runs")
	}
	out := make([]dto.ScheduleRunSummary, 0, len(runs))
	for _, run := range runs {
		out = append(out, dto.ScheduleRunSummary{
			ID:            run.ID,
			HorizonStart:  run.HorizonStart,
			Status:        string(run.Status),
			PlacedCount:   run.PlacedCount,
			UnplacedCount: run.UnplacedCount,
			CreatedAt:     run.CreatedAt,
		})
	}
	return out, nil
}

// ExportResult carries a rendered schedule document.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Export renders a run as CSV or PDF.
func (s *SurgeryScheduleService) Export(ctx context.Context, runID, format string) (*ExportResult, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, fmt.Sprintf("unsupported export format %q", format))
	}
	renderer, err := export.RendererFor(f)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnsupportedFormat.Code, appErrors.ErrUnsupportedFormat.Status, "no renderer for format")
	}

	var (
		schedule     []models.ScheduledAssignment
		horizonStart time.Time
	)
	if run, ok := s.store.Get(runID); ok {
		schedule = run.Result.Schedule
		horizonStart = run.Result.HorizonStart
	} else {
		run, rows, meta, err := s.loadPersisted(ctx, runID)
		if err != nil {
			return nil, err
		}
		horizonStart = run.HorizonStart.In(meta.location())
		schedule = make([]models.ScheduledAssignment, 0, len(rows))
		for _, row := range rows {
			schedule = append(schedule, assignmentFromRow(meta.localise(row)))
		}
	}

	title := fmt.Sprintf("Surgery Schedule - week of %s", horizonStart.Format(dateLayout))
	body, err := renderer.Render(export.ScheduleDataset(title, schedule))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}
	return &ExportResult{
		Filename:    fmt.Sprintf("schedule_%s.%s", horizonStart.Format("20060102"), f),
		ContentType: f.ContentType(),
		Body:        body,
	}, nil
}

func (s *SurgeryScheduleService) loadPersisted(ctx context.Context, runID string) (*models.ScheduleRun, []models.ScheduleRunAssignment, runMeta, error) {
	if s.runs == nil || s.assignments == nil {
		return nil, nil, runMeta{}, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found or expired")
	}
	run, err := s.runs.FindByID(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, runMeta{}, appErrors.Clone(appErrors.ErrNotFound, "schedule run not found")
		}
		return nil, nil, runMeta{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule run")
	}
	rows, err := s.assignments.ListByRun(ctx, runID)
	if err != nil {
		return nil, nil, runMeta{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule assignments")
	}
	var meta runMeta
	if len(run.Meta) > 0 {
		if err := json.Unmarshal(run.Meta, &meta); err != nil {
			s.logger.Warn("schedule run meta unreadable", zap.String("run_id", runID), zap.Error(err))
		}
	}
	return run, rows, meta, nil
}

// runMeta is the JSON stored alongside a persisted run.
type runMeta struct {
	Timezone       string                `json:"timezone"`
	Rooms          int                   `json:"rooms"`
	SlotMinutes    int                   `json:"slot_minutes"`
	CleanupMinutes int                   `json:"cleanup_minutes"`
	Stats          dto.ScheduleStats     `json:"stats"`
	Unplaced       []dto.UnplacedSurgery `json:"unplaced"`
}

func (m runMeta) location() *time.Location {
	if m.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (m runMeta) localise(row models.ScheduleRunAssignment) models.ScheduleRunAssignment {
	loc := m.location()
	row.StartTime = row.StartTime.In(loc)
	row.EndTime = row.EndTime.In(loc)
	row.OriginalTime = row.OriginalTime.In(loc)
	return row
}

// RunRecord is the persistence job payload: one run header and its rows.
type RunRecord struct {
	Run         models.ScheduleRun
	Assignments []models.ScheduleRunAssignment
}

func newRunRecord(run storedRun) (*RunRecord, error) {
	result := run.Result
	cfg := result.Config
	tz := "UTC"
	if cfg.Location != nil {
		tz = cfg.Location.String()
	}
	meta, err := json.Marshal(runMeta{
		Timezone:       tz,
		Rooms:          cfg.Rooms,
		SlotMinutes:    cfg.SlotMinutes,
		CleanupMinutes: cfg.CleanupMinutes,
		Stats:          run.Response.Stats,
		Unplaced:       run.Response.Unplaced,
	})
	if err != nil {
		return nil, err
	}

	status := models.ScheduleRunStatusCompleted
	if len(result.Schedule) == 0 {
		status = models.ScheduleRunStatusEmpty
	}
	record := &RunRecord{
		Run: models.ScheduleRun{
			ID:            run.ID,
			HorizonStart:  result.HorizonStart,
			Status:        status,
			PlacedCount:   run.Response.Stats.Placed,
			UnplacedCount: run.Response.Stats.Unplaced,
			Meta:          types.JSONText(meta),
			CreatedAt:     run.CreatedAt,
		},
		Assignments: make([]models.ScheduleRunAssignment, 0, len(result.Schedule)),
	}
	for _, a := range result.Schedule {
		record.Assignments = append(record.Assignments, models.ScheduleRunAssignment{
			RunID:                    run.ID,
			CaseID:                   a.Surgery.ID,
			SurgeryType:              a.Surgery.SurgeryType,
			Surgeon:                  a.Surgery.Surgeon,
			PatientAge:               a.Surgery.PatientAge,
			Room:                     a.Room,
			StartTime:                a.StartTime,
			EndTime:                  a.EndTime(cfg.SlotMinutes),
			EstimatedDurationMinutes: a.EstimatedDurationMinutes,
			DelayRisk:                a.DelayRisk,
			OriginalTime:             a.OriginalTime,
			Score:                    a.Score,
		})
	}
	return record, nil
}

// --- persistence worker ---

type scheduleRunWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, run *models.ScheduleRun) error
}

type scheduleAssignmentWriter interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, rows []models.ScheduleRunAssignment) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// ScheduleRunWorker bridges persistence jobs to the run repositories.
type ScheduleRunWorker struct {
	runs        scheduleRunWriter
	assignments scheduleAssignmentWriter
	tx          txProvider
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewScheduleRunWorker constructs a worker.
func NewScheduleRunWorker(runs scheduleRunWriter, assignments scheduleAssignmentWriter, tx txProvider, metrics *MetricsService, logger *zap.Logger) *ScheduleRunWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleRunWorker{runs: runs, assignments: assignments, tx: tx, metrics: metrics, logger: logger}
}

// Handle stores one run and its rows in a single transaction.
func (w *ScheduleRunWorker) Handle(ctx context.Context, job jobs.Job) (err error) {
	record, ok := job.Payload.(*RunRecord)
	if !ok || record == nil {
		return fmt.Errorf("job %s: unexpected payload %T", job.ID, job.Payload)
	}
	if w.tx == nil {
		return errors.New("transaction provider missing")
	}

	start := time.Now()
	tx, err := w.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = w.runs.Create(ctx, tx, &record.Run); err != nil {
		return err
	}
	if err = w.assignments.InsertBatch(ctx, tx, record.Assignments); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule run: %w", err)
	}

	w.metrics.ObserveDBQuery("persist_schedule_run", time.Since(start))
	w.logger.Debug("schedule run persisted", zap.String("run_id", record.Run.ID), zap.Int("rows", len(record.Assignments)))
	return nil
}

// GiveUp is the queue hook for runs that exhausted their retries.
func (w *ScheduleRunWorker) GiveUp(job jobs.Job, err error) {
	w.metrics.RecordPersistenceFailure()
	w.logger.Error("schedule run dropped", zap.String("run_id", job.ID), zap.Error(err))
}

// --- in-memory run store ---

type storedRun struct {
	ID        string
	CreatedAt time.Time
	Result    *scheduler.Result
	Response  *dto.ScheduleResponse
}

type runStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]storedRun
	now   func() time.Time
}

func newRunStore(ttl time.Duration) *runStore {
	return &runStore{
		ttl:   ttl,
		items: make(map[string]storedRun),
		now:   time.Now,
	}
}

// Save stores run and drops entries past their TTL.
func (s *runStore) Save(run storedRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, item := range s.items {
		if now.Sub(item.CreatedAt) > s.ttl {
			delete(s.items, id)
		}
	}
	s.items[run.ID] = run
}

func (s *runStore) Get(id string) (storedRun, bool) {
	s.mu.RLock()
	run, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return storedRun{}, false
	}
	if s.now().Sub(run.CreatedAt) > s.ttl {
		s.Delete(id)
		return storedRun{}, false
	}
	return run, true
}

func (s *runStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
