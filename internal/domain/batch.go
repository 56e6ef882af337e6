package domain

import "time"

// BatchStatus enumerates the lifecycle states of an export batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "PENDING"
	BatchGenerating BatchStatus = "GENERATING"
	BatchUploading  BatchStatus = "UPLOADING"
	BatchUploaded   BatchStatus = "UPLOADED"
	BatchFailed     BatchStatus = "FAILED"
)

// CanTransition reports whether moving from s to next is a legal state-machine
// step. PENDING is reachable again from GENERATING/UPLOADING because transient
// failures return the batch to PENDING for retry.
func (s BatchStatus) CanTransition(next BatchStatus) bool {
	switch s {
	case BatchPending:
		return next == BatchGenerating
	case BatchGenerating:
		return next == BatchUploading || next == BatchPending || next == BatchFailed
	case BatchUploading:
		return next == BatchUploaded || next == BatchPending
	case BatchUploaded, BatchFailed:
		return false
	}
	return false
}

// DestinationKind enumerates the upload target family.
type DestinationKind string

const (
	DestObjectStore  DestinationKind = "S3"
	DestNetworkShare DestinationKind = "NETWORK"
)

// Batch is a queued group of records destined for one generated file and one
// upload. DestinationTarget is a bucket name for S3 or a directory path for
// network shares.
type Batch struct {
	ID                string          `json:"id" db:"id"`
	SchemaID          string          `json:"schema_id" db:"schema_id"`
	CampaignID        string          `json:"campaign_id" db:"campaign_id"`
	EventID           string          `json:"event_id" db:"event_id"`
	DestinationKind   DestinationKind `json:"destination_kind" db:"destination_kind"`
	DestinationTarget string          `json:"destination_target" db:"destination_target"`
	FileNameTemplate  string          `json:"file_name_template" db:"file_name_template"`
	Status            BatchStatus     `json:"status" db:"status"`
	RecordCount       int             `json:"record_count" db:"record_count"`
	FileName          string          `json:"file_name" db:"file_name"`
	FilePath          string          `json:"file_path" db:"file_path"`
	FileSizeBytes     int64           `json:"file_size_bytes" db:"file_size_bytes"`
	GeneratedAt       *time.Time      `json:"generated_at" db:"generated_at"`
	UploadedAt        *time.Time      `json:"uploaded_at" db:"uploaded_at"`
	ErrorMessage      string          `json:"error_message" db:"error_message"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// IsTerminal returns true if the batch will not be picked up automatically.
func (b *Batch) IsTerminal() bool {
	return b.Status == BatchUploaded || b.Status == BatchFailed
}

// RecordStatus enumerates the lifecycle of one contact's inclusion in a batch.
type RecordStatus string

const (
	RecordPending   RecordStatus = "PENDING"
	RecordGenerated RecordStatus = "GENERATED"
	RecordFailed    RecordStatus = "FAILED"
)

// BatchRecord tracks one contact's inclusion in a batch, independently of the
// batch's own status.
type BatchRecord struct {
	ID        string       `json:"id" db:"id"`
	BatchID   string       `json:"batch_id" db:"batch_id"`
	ContactID string       `json:"contact_id" db:"contact_id"`
	Status    RecordStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
