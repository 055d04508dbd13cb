// Package dupcache maintains the persistent record of submitted invoices
// used for duplicate detection.
//
// The store is a packed binary file guarded by one exclusive lock; every
// mutation persists to disk inside the same critical section, so a caller
// that has seen AddEntry return has also seen the record become durable.
// An optional background loop merges records from an external source of
// truth.
package dupcache
