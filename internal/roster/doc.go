// Package roster holds the customer records of one triage session and the
// read-only queues derived from them.
//
// Records are addressed by a synthetic identifier assigned at load time;
// rows are never deleted, only replaced in place. The untouched queue and
// the pending list are recomputed from the store on every call so that a
// status change is visible immediately.
package roster
