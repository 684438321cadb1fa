// Package history records print jobs in the local SQLite database.
//
// One row is written when a start-print request is accepted by the
// device and updated once the job reaches a terminal state. The record
// keeps the resolved slot mapping alongside the file name so a failed
// reconciliation can be compared against what was actually sent.
package history
