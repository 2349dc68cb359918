// Package jobs runs persisted background jobs with at-least-once semantics.
//
// A job is saved before it is queued, so a crash or a full in-memory queue
// never loses it: Runner.Start recovers unfinished jobs and a monitor
// periodically re-dispatches jobs that sat pending or processing for too
// long. Workers claim a job before executing it, which keeps two workers
// from running the same job concurrently. Failed executions are retried
// until Config.MaxAttempts is reached.
package jobs
