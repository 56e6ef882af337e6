// Package batch implements the export batch lifecycle.
//
// A batch collects pending contacts for one schema/destination pair, then a
// worker tick drives it through PENDING, GENERATING, UPLOADING and UPLOADED.
// Transient failures return the batch and its generated records to PENDING so
// the next tick retries them; FAILED is reserved for batches with nothing to
// generate and requires a manual reprocess.
//
// Repository implementations live in repository/postgres/.
package batch
