// Package runner drives each input record through search and extraction with bounded retries.
//
// Every attempt walks Init, Searching, Matched, Extracting and ends in Done or Failed. Transient
// failures are retried up to MaxAttempts times, a missing institution ends the record after one
// attempt, and failed id or output persistence halts the whole run. Completed records are
// appended to the run's tables and the full output is rewritten after each one, so an interrupted
// run leaves every finished record on disk.
package runner
