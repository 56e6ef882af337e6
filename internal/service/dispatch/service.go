package dispatch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/aspect-export/internal/domain"
	"github.com/ignite/aspect-export/internal/encoder"
	"github.com/ignite/aspect-export/internal/fastpath"
	"github.com/ignite/aspect-export/internal/pkg/logger"
)

// messageIDPrefix is prepended to every outgoing message ID. The remote side
// uses it to attribute traffic to this integration.
const messageIDPrefix = "ASPECT"

// csvHeader is the fixed export column set. Existing downstream imports
// depend on the exact names and order.
var csvHeader = []string{
	"ID", "Message ID", "Status", "Environment", "WSDL URL", "FastList",
	"Function Type", "Lead ID", "Lead Email", "Schema", "Campaign ID",
	"Duration (ms)", "Error", "Created At",
}

// SchemaSource resolves schemas without coupling this package to the schema
// service implementation.
type SchemaSource interface {
	Get(ctx context.Context, id string) (*domain.Schema, error)
}

// SoapCaller performs one FeedRecord round trip. *fastpath.Client satisfies it.
type SoapCaller interface {
	FeedRecord(ctx context.Context, endpoint string, msg *fastpath.FeedRecordMsg, timeout time.Duration) (*fastpath.CallResult, error)
}

// Service sends single encoded records and manages the audit trail. All
// public methods are safe for concurrent use.
type Service struct {
	repo     Repository
	schemas  SchemaSource
	contacts encoder.ContactSource
	enc      *encoder.Encoder
	mapper   *encoder.Mapper
	client   SoapCaller
	log      *logger.Logger
}

// NewService creates a dispatch service.
func NewService(repo Repository, schemas SchemaSource, contacts encoder.ContactSource,
	enc *encoder.Encoder, mapper *encoder.Mapper, client SoapCaller, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		schemas:  schemas,
		contacts: contacts,
		enc:      enc,
		mapper:   mapper,
		client:   client,
		log:      log,
	}
}

// SendConfig carries the per-send delivery settings, usually taken from the
// triggering automation action.
type SendConfig struct {
	TargetURL    string
	ListName     string
	FunctionType int
	ResponseURI  string
	CustomField1 string
	CustomField2 string
	CustomField3 string
	CampaignID   string
	EventID      string
	Timeout      time.Duration
}

// SendResult reports the outcome of one dispatch attempt.
type SendResult struct {
	LogID      string
	MessageID  string
	Status     domain.DispatchStatus
	DurationMs int64
	FaultCode  string
}

// Send resolves the contact, encodes one record line and performs a single
// synchronous FeedRecord call. Exactly one DispatchLog entry is written per
// attempt; a failure to persist it is logged but does not change the
// dispatch outcome. There are no retries.
func (s *Service) Send(ctx context.Context, contactID, schemaID string, cfg SendConfig) (*SendResult, error) {
	if cfg.TargetURL == "" {
		return nil, ErrMissingEndpoint
	}
	if cfg.ListName == "" {
		return nil, ErrMissingList
	}
	if cfg.FunctionType == 0 {
		cfg.FunctionType = 1
	}

	now := time.Now()
	entry := &domain.DispatchLog{
		ID:           uuid.New().String(),
		ContactID:    contactID,
		SchemaID:     schemaID,
		CampaignID:   cfg.CampaignID,
		EventID:      cfg.EventID,
		TargetURL:    cfg.TargetURL,
		ListName:     cfg.ListName,
		FunctionType: cfg.FunctionType,
		MessageID:    fmt.Sprintf("%s_%s_%s", messageIDPrefix, contactID, now.Format("20060102150405")),
		CustomFields: customFields(cfg),
		CreatedAt:    now,
	}

	sendErr := s.attempt(ctx, entry, schemaID, cfg)

	if entry.Status == domain.DispatchSuccess {
		s.log.Info("dispatch: record sent",
			"message_id", entry.MessageID,
			"contact_id", contactID,
			"endpoint", cfg.TargetURL,
			"duration_ms", entry.DurationMs,
		)
	} else {
		s.log.Warn("dispatch: record failed",
			"message_id", entry.MessageID,
			"contact_id", contactID,
			"endpoint", cfg.TargetURL,
			"error", entry.ErrorMessage,
		)
	}

	if _, err := s.repo.Create(ctx, entry); err != nil {
		s.log.Error("dispatch: could not persist log entry",
			"message_id", entry.MessageID,
			"error", err.Error(),
		)
	}

	return &SendResult{
		LogID:      entry.ID,
		MessageID:  entry.MessageID,
		Status:     entry.Status,
		DurationMs: entry.DurationMs,
		FaultCode:  entry.FaultCode,
	}, sendErr
}

// attempt fills the log entry in place and returns the error to hand back to
// the caller, nil on success.
func (s *Service) attempt(ctx context.Context, entry *domain.DispatchLog, schemaID string, cfg SendConfig) error {
	contact, err := s.contacts.Get(ctx, entry.ContactID)
	if err != nil {
		entry.Status = domain.DispatchFailed
		entry.ErrorMessage = fmt.Sprintf("resolve contact: %v", err)
		return fmt.Errorf("resolve contact %s: %w", entry.ContactID, err)
	}
	entry.ContactEmail = contact.Email

	sc, err := s.schemas.Get(ctx, schemaID)
	if err != nil {
		entry.Status = domain.DispatchFailed
		entry.ErrorMessage = fmt.Sprintf("resolve schema: %v", err)
		return fmt.Errorf("resolve schema %s: %w", schemaID, err)
	}
	entry.SchemaName = sc.Name
	entry.RecordLine = s.enc.Encode(sc, s.mapper.Map(contact, sc))

	msg := &fastpath.FeedRecordMsg{
		MessageID:    entry.MessageID,
		FunctionType: cfg.FunctionType,
		FastList:     cfg.ListName,
		Record:       entry.RecordLine,
		ResponseURI:  cfg.ResponseURI,
		CustomField1: cfg.CustomField1,
		CustomField2: cfg.CustomField2,
		CustomField3: cfg.CustomField3,
	}

	start := time.Now()
	result, err := s.client.FeedRecord(ctx, cfg.TargetURL, msg, cfg.Timeout)
	entry.DurationMs = time.Since(start).Milliseconds()
	if result != nil {
		entry.RequestPayload = result.RequestBody
		entry.ResponsePayload = result.ResponseBody
	}

	switch {
	case err != nil:
		entry.Status = domain.DispatchFailed
		entry.ErrorMessage = err.Error()
		return err
	case result.Fault != nil:
		entry.Status = domain.DispatchFailed
		entry.FaultCode = result.Fault.Code
		entry.ErrorMessage = result.Fault.Message
		return result.Fault
	}

	entry.Status = domain.DispatchSuccess
	return nil
}

func customFields(cfg SendConfig) map[string]string {
	out := map[string]string{}
	if cfg.CustomField1 != "" {
		out["custom_field_1"] = cfg.CustomField1
	}
	if cfg.CustomField2 != "" {
		out["custom_field_2"] = cfg.CustomField2
	}
	if cfg.CustomField3 != "" {
		out["custom_field_3"] = cfg.CustomField3
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Get returns a single log entry.
func (s *Service) Get(ctx context.Context, id string) (*domain.DispatchLog, error) {
	return s.repo.Get(ctx, id)
}

// List returns log entries matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]domain.DispatchLog, int, error) {
	return s.repo.List(ctx, f)
}

// Delete removes a single log entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Clear removes log entries older than the given number of days and returns
// how many were removed.
func (s *Service) Clear(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("olderThanDays must be >= 0, got %d", olderThanDays)
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	removed, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.Info("dispatch: logs cleared", "removed", removed, "older_than_days", olderThanDays)
	}
	return removed, nil
}

// ExportCSV streams log entries matching the filter as CSV. The header and
// column order are fixed; error text has line breaks flattened to spaces and
// commas replaced with semicolons.
func (s *Service) ExportCSV(ctx context.Context, f ListFilter, w io.Writer) error {
	entries, _, err := s.repo.List(ctx, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range entries {
		l := &entries[i]
		row := []string{
			l.ID,
			l.MessageID,
			string(l.Status),
			l.Environment(),
			l.TargetURL,
			l.ListName,
			strconv.Itoa(l.FunctionType),
			l.ContactID,
			l.ContactEmail,
			l.SchemaName,
			l.CampaignID,
			strconv.FormatInt(l.DurationMs, 10),
			sanitizeError(l.ErrorMessage),
			l.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func sanitizeError(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", " ")
	msg = strings.ReplaceAll(msg, "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	return strings.ReplaceAll(msg, ",", ";")
}
