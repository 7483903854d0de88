package models

import "time"

// WorkItem is a unit of work stored in exactly one work queue.
type WorkItem struct {
	ItemKey       string     `yaml:"item_key"`
	ProcessName   string     `yaml:"process_name"`
	WorkqueueName string     `yaml:"workqueue_name"`
	CompletedAt   *time.Time `yaml:"completed"`
	ExceptionAt   *time.Time `yaml:"exception"`
}

func (w WorkItem) Completed() bool { return w.CompletedAt != nil }

func (w WorkItem) Exception() bool { return w.ExceptionAt != nil }
