// Package triage is the customer triage lifecycle engine.
//
// A record moves Untouched -> Pending when the operator contacts it and
// Pending -> Purchased or NotPurchased when an outcome is recorded for the
// selected record. The engine applies one Action per Dispatch call and
// returns the side effects (open a messaging link, persist the cursor,
// write an export) for the caller to run afterwards. Nothing in this
// package performs I/O.
package triage
