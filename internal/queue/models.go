package queue

import (
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle of a queued acquisition run.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAcquiring  Status = "acquiring"
	StatusAcquired   Status = "acquired"
	StatusAssembling Status = "assembling"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusAcquiring,
	StatusAcquired,
	StatusAssembling,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// ValidStatus reports whether the value is a known lifecycle status.
func ValidStatus(status Status) bool {
	_, ok := statusSet[status]
	return ok
}

// ActiveStatuses lists the states of a run that is still progressing.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusAcquiring, StatusAcquired, StatusAssembling}
}

// Item represents one acquisition run persisted in SQLite.
type Item struct {
	ID              int64
	RunID           string
	Mode            string
	ContainerSchema string
	Channels        []int
	Status          Status
	NominalAt       time.Time
	CanonicalAt     time.Time
	StagedDir       string
	OutputPath      string
	FileSize        int64
	ErrorMessage    string
	ProgressStage   string
	ProgressMessage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HealthSummary describes aggregated queue counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// ChannelList renders the requested channel set for display.
func (i *Item) ChannelList() string {
	parts := make([]string, 0, len(i.Channels))
	for _, channel := range i.Channels {
		parts = append(parts, strconv.Itoa(channel))
	}
	return strings.Join(parts, ",")
}
