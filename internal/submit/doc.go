// Package submit sequences the submission flow: session validation,
// duplicate check, relay upload, and cache commit, collapsing every outcome
// into one UI-observable button state.
//
// All state mutations are atomic snapshot replacements published to a
// bounded single-consumer channel, and timed reverts run through an
// injectable clock, so the flow is testable without wall-clock delays and
// background work can never interleave partial updates.
package submit
