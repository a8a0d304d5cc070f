package driver

import "time"

// Stage is the step a file is in.
type Stage string

const (
	StageRead  Stage = "read"
	StageScore Stage = "score"
	StageCache Stage = "cache"
)

// Status captures progress within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Event reports progress for the input at Index.
type Event struct {
	Index   int
	File    string
	Stage   Stage
	Status  Status
	Label   string
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Run calls it from worker goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(ev Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- ev
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(ev Event) { f(ev) }

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
