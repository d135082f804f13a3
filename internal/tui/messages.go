package tui

import (
	"github.com/killallgit/scribe-api/internal/services/pipeline"
)

// startedMsg carries the result of StartCapture
type startedMsg struct {
	state *pipeline.State
	err   error
}

// transitionMsg carries the result of a pause or resume
type transitionMsg struct {
	state *pipeline.State
	err   error
}

// elapsedMsg carries the capture time reported by the pipeline
type elapsedMsg struct {
	seconds float64
}

// tickMsg drives the timer refresh
type tickMsg struct{}

// levelMsg carries one input level sample in [0,1]
type levelMsg struct {
	level float64
}

// stageMsg wraps a pipeline progress event
type stageMsg struct {
	event pipeline.Event
}

// finishedMsg carries the end of a stop or retry run
type finishedMsg struct {
	outcome *pipeline.Outcome
	err     error
}

// discardedMsg is sent once the attempt was abandoned
type discardedMsg struct {
	err error
}
