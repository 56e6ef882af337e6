package domain

import (
	"net/url"
	"strings"
	"time"
)

// DispatchStatus enumerates the outcome of a single dispatch attempt.
type DispatchStatus string

const (
	DispatchSuccess DispatchStatus = "SUCCESS"
	DispatchFailed  DispatchStatus = "FAILED"
)

// DispatchLog records exactly one synchronous send of one encoded record to
// the remote FastPath service. Entries are immutable after creation.
type DispatchLog struct {
	ID              string            `json:"id" db:"id"`
	ContactID       string            `json:"contact_id" db:"contact_id"`
	ContactEmail    string            `json:"contact_email" db:"contact_email"`
	SchemaID        string            `json:"schema_id" db:"schema_id"`
	SchemaName      string            `json:"schema_name" db:"schema_name"`
	CampaignID      string            `json:"campaign_id" db:"campaign_id"`
	EventID         string            `json:"event_id" db:"event_id"`
	TargetURL       string            `json:"target_url" db:"target_url"`
	ListName        string            `json:"list_name" db:"list_name"`
	FunctionType    int               `json:"function_type" db:"function_type"`
	MessageID       string            `json:"message_id" db:"message_id"`
	Status          DispatchStatus    `json:"status" db:"status"`
	RequestPayload  string            `json:"request_payload" db:"request_payload"`
	ResponsePayload string            `json:"response_payload" db:"response_payload"`
	RecordLine      string            `json:"record_line" db:"record_line"`
	CustomFields    map[string]string `json:"custom_fields" db:"custom_fields"`
	ErrorMessage    string            `json:"error_message" db:"error_message"`
	FaultCode       string            `json:"fault_code" db:"fault_code"`
	DurationMs      int64             `json:"duration_ms" db:"duration_ms"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
}

// IsSuccess returns true if the dispatch attempt succeeded.
func (l *DispatchLog) IsSuccess() bool { return l.Status == DispatchSuccess }

// Environment classifies the dispatch target from its hostname. First match
// wins, matching is case-insensitive, unknown hosts are returned verbatim.
func (l *DispatchLog) Environment() string {
	host := "unknown"
	if u, err := url.Parse(l.TargetURL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	lower := strings.ToLower(host)

	switch {
	case strings.Contains(lower, "prod"), strings.Contains(lower, "prd"):
		return "PRODUCTION"
	case strings.Contains(lower, "hom"), strings.Contains(lower, "homolog"):
		return "HOMOLOGATION"
	case strings.Contains(lower, "dev"), strings.Contains(lower, "develop"):
		return "DEVELOPMENT"
	case strings.Contains(lower, "test"), strings.Contains(lower, "tst"):
		return "TEST"
	case strings.Contains(lower, "local"):
		return "LOCAL"
	}
	return host
}
