package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/encoder"
	"github.com/ignite/aspect-export/internal/pkg/distlock"
	"github.com/ignite/aspect-export/internal/pkg/logger"
	"github.com/ignite/aspect-export/internal/uploader"
)

// DefaultChunkSize is how many records are generated and flushed per round
// trip while writing a batch file.
const DefaultChunkSize = 50

// tmpSubdir under os.TempDir() holds in-progress batch files.
const tmpSubdir = "aspect-export"

// SchemaSource resolves schemas without coupling this package to the schema
// service implementation.
type SchemaSource interface {
	Get(ctx context.Context, id string) (*domain.Schema, error)
}

// BackendSelector picks the upload backend for a destination kind.
// *uploader.Selector satisfies it.
type BackendSelector interface {
	For(kind domain.DestinationKind) (uploader.Backend, error)
}

// Service drives batches through their lifecycle. All public methods are safe
// for concurrent use; ProcessPending additionally guards against concurrent
// worker ticks with a distributed lock.
type Service struct {
	repo      Repository
	schemas   SchemaSource
	contacts  encoder.ContactSource
	enc       *encoder.Encoder
	mapper    *encoder.Mapper
	backends  BackendSelector
	lock      distlock.Lock
	log       *logger.Logger
	chunkSize int
}

// Config carries processor tunables.
type Config struct {
	// ChunkSize is the per-flush record count during generation.
	// Zero means DefaultChunkSize.
	ChunkSize int
}

// NewService creates a batch service. lock may be nil when the deployment
// runs a single worker.
func NewService(repo Repository, schemas SchemaSource, contacts encoder.ContactSource,
	enc *encoder.Encoder, mapper *encoder.Mapper, backends BackendSelector,
	lock distlock.Lock, log *logger.Logger, cfg Config) *Service {

	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &Service{
		repo:      repo,
		schemas:   schemas,
		contacts:  contacts,
		enc:       enc,
		mapper:    mapper,
		backends:  backends,
		lock:      lock,
		log:       log,
		chunkSize: chunk,
	}
}

// Get returns a single batch.
func (s *Service) Get(ctx context.Context, id string) (*domain.Batch, error) {
	return s.repo.Get(ctx, id)
}

// List returns batches matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.Batch, int, error) {
	return s.repo.List(ctx, f)
}

// PendingCount returns the number of batches waiting to be processed.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.repo.CountPending(ctx)
}

// EnqueueInput identifies the contact to queue and the batch grouping key.
type EnqueueInput struct {
	ContactID         string
	CampaignID        string
	EventID           string
	SchemaID          string
	DestinationKind   domain.DestinationKind
	DestinationTarget string
	FileNameTemplate  string
}

// EnqueueResult reports where the contact landed.
type EnqueueResult struct {
	BatchID string
	// Created is true when this enqueue opened a new batch.
	Created bool
}

// Enqueue appends a contact to the open PENDING batch for the grouping key
// (campaign, event, schema, target), creating the batch if none is open. The
// find-or-create is not atomic; a partial unique index on open batches makes
// concurrent creates fail with ErrDuplicatePending, and the find is retried
// once in that case.
func (s *Service) Enqueue(ctx context.Context, input EnqueueInput) (*EnqueueResult, error) {
	if input.ContactID == "" {
		return nil, ErrMissingContact
	}
	if input.SchemaID == "" {
		return nil, ErrMissingSchema
	}
	if input.DestinationTarget == "" {
		return nil, ErrMissingTarget
	}

	result := &EnqueueResult{}
	b, err := s.repo.FindPending(ctx, input.CampaignID, input.EventID, input.SchemaID, input.DestinationTarget)
	if errors.Is(err, ErrNotFound) {
		b, err = s.createBatch(ctx, input)
		result.Created = b != nil && err == nil
		if errors.Is(err, ErrDuplicatePending) {
			b, err = s.repo.FindPending(ctx, input.CampaignID, input.EventID, input.SchemaID, input.DestinationTarget)
			result.Created = false
		}
	}
	if err != nil {
		return nil, err
	}
	result.BatchID = b.ID

	rec := &domain.BatchRecord{
		ID:        uuid.New().String(),
		BatchID:   b.ID,
		ContactID: input.ContactID,
		Status:    domain.RecordPending,
	}
	if err := s.repo.AddRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("queue contact %s: %w", input.ContactID, err)
	}

	s.log.Debug("batch: contact queued",
		"batch_id", b.ID,
		"contact_id", input.ContactID,
		"created", result.Created,
	)
	return result, nil
}

func (s *Service) createBatch(ctx context.Context, input EnqueueInput) (*domain.Batch, error) {
	b := &domain.Batch{
		ID:                uuid.New().String(),
		SchemaID:          input.SchemaID,
		CampaignID:        input.CampaignID,
		EventID:           input.EventID,
		DestinationKind:   input.DestinationKind,
		DestinationTarget: input.DestinationTarget,
		FileNameTemplate:  input.FileNameTemplate,
		Status:            domain.BatchPending,
	}
	if _, err := s.repo.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ProcessResult summarizes one worker tick.
type ProcessResult struct {
	Processed int
	Succeeded int
	Failed    int
}

// ProcessPending processes up to limit PENDING batches, oldest first. Each
// batch is isolated: one failing batch does not stop the others. When another
// worker holds the lock the tick is skipped with a zero result.
func (s *Service) ProcessPending(ctx context.Context, limit int) (*ProcessResult, error) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire processing lock: %w", err)
		}
		if !acquired {
			s.log.Debug("batch: processing lock held elsewhere, skipping tick")
			return &ProcessResult{}, nil
		}
		defer func() {
			if err := s.lock.Release(ctx); err != nil {
				s.log.Warn("batch: release processing lock", "error", err.Error())
			}
		}()
	}

	batches, err := s.repo.ListOldestPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending batches: %w", err)
	}

	res := &ProcessResult{}
	for i := range batches {
		res.Processed++
		if err := s.ProcessBatch(ctx, &batches[i]); err != nil {
			res.Failed++
			s.log.Error("batch: processing failed",
				"batch_id", batches[i].ID,
				"error", err.Error(),
			)
			continue
		}
		res.Succeeded++
	}
	return res, nil
}

// ProcessBatch drives one batch to UPLOADED. Terminal batches are a no-op so
// a redundant tick or a stale queue entry cannot corrupt finished work.
func (s *Service) ProcessBatch(ctx context.Context, b *domain.Batch) error {
	if b.IsTerminal() {
		s.log.Debug("batch: already terminal, skipping", "batch_id", b.ID, "status", string(b.Status))
		return nil
	}

	if err := s.transition(ctx, b, domain.BatchGenerating); err != nil {
		return err
	}

	sc, err := s.schemas.Get(ctx, b.SchemaID)
	if err != nil {
		return s.revertToPending(ctx, b, fmt.Errorf("load schema %s: %w", b.SchemaID, err))
	}

	tmpPath, written, err := s.generateFile(ctx, b, sc)
	if err != nil {
		return s.revertToPending(ctx, b, err)
	}
	if written == 0 {
		os.Remove(tmpPath)
		return s.markFailed(ctx, b, "no pending records")
	}

	now := time.Now()
	b.GeneratedAt = &now
	b.FileName = RenderFileName(b, sc, now)
	if err := s.transition(ctx, b, domain.BatchUploading); err != nil {
		os.Remove(tmpPath)
		return err
	}

	backend, err := s.backends.For(b.DestinationKind)
	if err != nil {
		os.Remove(tmpPath)
		return s.revertToPending(ctx, b, err)
	}

	info, statErr := os.Stat(tmpPath)
	uploaded, err := backend.Upload(ctx, tmpPath, b.DestinationTarget, b.FileName)
	if err != nil {
		os.Remove(tmpPath)
		return s.revertToPending(ctx, b, fmt.Errorf("upload %s: %w", b.FileName, err))
	}
	os.Remove(tmpPath)

	uploadedAt := time.Now()
	b.Status = domain.BatchUploaded
	b.FilePath = uploaded.Path
	b.UploadedAt = &uploadedAt
	b.ErrorMessage = ""
	if statErr == nil {
		b.FileSizeBytes = info.Size()
	}
	if err := s.repo.Update(ctx, b); err != nil {
		return fmt.Errorf("persist uploaded batch %s: %w", b.ID, err)
	}

	s.log.Info("batch: uploaded",
		"batch_id", b.ID,
		"file", b.FilePath,
		"records", written,
		"size", b.FileSizeBytes,
	)
	return nil
}

// generateFile writes the batch's pending records to a temp file in chunks,
// flushing record statuses after each chunk. Returns the temp path and the
// number of lines written.
func (s *Service) generateFile(ctx context.Context, b *domain.Batch, sc *domain.Schema) (string, int, error) {
	dir := filepath.Join(os.TempDir(), tmpSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create temp directory: %w", err)
	}
	tmpPath := filepath.Join(dir, fmt.Sprintf("batch_%s_%s.tmp", b.ID, uuid.New().String()))

	f, err := os.Create(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("create temp file: %w", err)
	}

	written := 0
	for {
		records, err := s.repo.PendingRecords(ctx, b.ID, s.chunkSize)
		if err != nil {
			f.Close()
			os.Remove(tmpPath)
			return "", 0, fmt.Errorf("load pending records: %w", err)
		}
		if len(records) == 0 {
			break
		}

		generated := make([]string, 0, len(records))
		vanished := make([]string, 0)
		for _, rec := range records {
			contact, err := s.contacts.Get(ctx, rec.ContactID)
			if err != nil {
				s.log.Warn("batch: contact vanished, skipping record",
					"batch_id", b.ID,
					"contact_id", rec.ContactID,
					"error", err.Error(),
				)
				vanished = append(vanished, rec.ID)
				continue
			}
			line := s.enc.Encode(sc, s.mapper.Map(contact, sc))
			if _, err := f.WriteString(line + "\n"); err != nil {
				f.Close()
				os.Remove(tmpPath)
				return "", 0, fmt.Errorf("write record: %w", err)
			}
			generated = append(generated, rec.ID)
			written++
		}

		if len(generated) > 0 {
			if err := s.repo.SetRecordStatus(ctx, generated, domain.RecordGenerated); err != nil {
				f.Close()
				os.Remove(tmpPath)
				return "", 0, fmt.Errorf("flush record statuses: %w", err)
			}
		}
		if len(vanished) > 0 {
			if err := s.repo.SetRecordStatus(ctx, vanished, domain.RecordFailed); err != nil {
				f.Close()
				os.Remove(tmpPath)
				return "", 0, fmt.Errorf("flush record statuses: %w", err)
			}
		}
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", 0, fmt.Errorf("flush temp file: %w", err)
	}
	return tmpPath, written, nil
}

// Reprocess returns a terminal batch and all of its records to PENDING so the
// next worker tick regenerates and re-uploads it.
func (s *Service) Reprocess(ctx context.Context, id string) error {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !b.IsTerminal() {
		return ErrNotReprocessable
	}

	if err := s.repo.ResetAllRecords(ctx, id); err != nil {
		return fmt.Errorf("reset records of batch %s: %w", id, err)
	}
	b.Status = domain.BatchPending
	b.ErrorMessage = ""
	b.GeneratedAt = nil
	b.UploadedAt = nil
	if err := s.repo.Update(ctx, b); err != nil {
		return fmt.Errorf("reset batch %s: %w", id, err)
	}

	s.log.Info("batch: queued for reprocessing", "batch_id", id)
	return nil
}

// Delete removes a batch and its records.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) transition(ctx context.Context, b *domain.Batch, next domain.BatchStatus) error {
	if !b.Status.CanTransition(next) {
		return fmt.Errorf("batch %s: illegal transition %s -> %s", b.ID, b.Status, next)
	}
	b.Status = next
	if err := s.repo.Update(ctx, b); err != nil {
		return fmt.Errorf("persist batch %s status %s: %w", b.ID, next, err)
	}
	return nil
}

// revertToPending is the failure recovery path: generated records and the
// batch itself go back to PENDING with the cause recorded, and the original
// error is returned so the tick counts the batch as failed.
func (s *Service) revertToPending(ctx context.Context, b *domain.Batch, cause error) error {
	if err := s.repo.ResetGeneratedRecords(ctx, b.ID); err != nil {
		s.log.Error("batch: failure recovery could not reset records",
			"batch_id", b.ID,
			"error", err.Error(),
		)
	}
	b.Status = domain.BatchPending
	b.ErrorMessage = cause.Error()
	b.GeneratedAt = nil
	if err := s.repo.Update(ctx, b); err != nil {
		s.log.Error("batch: failure recovery could not reset batch",
			"batch_id", b.ID,
			"error", err.Error(),
		)
	}
	return cause
}

func (s *Service) markFailed(ctx context.Context, b *domain.Batch, reason string) error {
	b.Status = domain.BatchFailed
	b.ErrorMessage = reason
	if err := s.repo.Update(ctx, b); err != nil {
		return fmt.Errorf("persist failed batch %s: %w", b.ID, err)
	}
	return fmt.Errorf("batch %s: %s", b.ID, reason)
}
