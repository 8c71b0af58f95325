// Package scheduler triggers named jobs on cron or interval schedules.
//
// Jobs run on their own goroutines. A job that is still running when its
// next trigger arrives is skipped, and Config.Workers caps how many jobs
// run at once.
package scheduler
