// Package routing decides whether an opened document is an invoice that
// belongs in the submission pipeline.
//
// Routing is two-tiered: a filename pattern table gives an instant,
// high-precision decision for known senders, and a bounded content scan of
// the first page acts as a weighted-scoring fallback for everything else.
package routing
