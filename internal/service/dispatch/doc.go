// Package dispatch implements synchronous per-record delivery to the remote
// FastPath service, with a full audit trail.
//
// Every send attempt produces exactly one immutable DispatchLog entry,
// success or failure, carrying the raw SOAP bodies that crossed the wire.
// There are no retries at this layer; callers decide whether to try again.
//
// Repository implementations live in repository/postgres/.
package dispatch
