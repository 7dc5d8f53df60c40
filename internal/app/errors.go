package service

import (
	"fmt"
)

// StageError attributes a chart failure to the pipeline stage that raised it.
type StageError struct {
	Chart string
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("chart %s: %s: %v", e.Chart, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Stages outside the chart pipeline.
const (
	StageLookup = "lookup"
	StageSink   = "sink"
	StageRender = "render"
	StagePanic  = "panic"
)
