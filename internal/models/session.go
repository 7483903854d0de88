package models

import "time"

type ProcessStatus string

const (
	StatusRunning    ProcessStatus = "Running"
	StatusStopped    ProcessStatus = "Stopped"
	StatusCompleted  ProcessStatus = "Completed"
	StatusTerminated ProcessStatus = "Terminated"
)

// ReportedStatuses are the session statuses included in a snapshot.
var ReportedStatuses = []ProcessStatus{
	StatusCompleted,
	StatusRunning,
	StatusTerminated,
	StatusStopped,
}

// ProcessSession is one execution of an automation process.
// EndTime is nil while the session is still running.
type ProcessSession struct {
	ProcessName string        `yaml:"process_name"`
	Status      ProcessStatus `yaml:"process_status"`
	StartTime   time.Time     `yaml:"process_start_time"`
	EndTime     *time.Time    `yaml:"process_end_time"`
}
