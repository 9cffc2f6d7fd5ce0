// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import "fmt"

// Kind is the kind of pipeline state.
type Kind int

const (
	Idle Kind = iota
	Selected
	ExtractingText
	GeneratingNotes
	Ready
	RenderingOutput
	Failed
)

var kindNames = [...]string{
	Idle:            "idle",
	Selected:        "selected",
	ExtractingText:  "extracting",
	GeneratingNotes: "generating",
	Ready:           "ready",
	RenderingOutput: "rendering",
	Failed:          "failed",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Stage names one independently failable unit of work.
type Stage string

const (
	StageExtract  Stage = "extract"
	StageGenerate Stage = "generate"
	StageRender   Stage = "render"
)

// State is the pipeline state. Stage is set only when Kind is Failed.
type State struct {
	Kind  Kind
	Stage Stage
}

// At returns the state of the given kind. Use FailedAt for failures.
func At(k Kind) State {
	return State{Kind: k}
}

// FailedAt returns the failed state for stage.
func FailedAt(stage Stage) State {
	return State{Kind: Failed, Stage: stage}
}

// InFlight reports whether a stage is running.
func (s State) InFlight() bool {
	switch s.Kind {
	case ExtractingText, GeneratingNotes, RenderingOutput:
		return true
	}
	return false
}

func (s State) String() string {
	if s.Kind == Failed {
		return fmt.Sprintf("failed(%s)", s.Stage)
	}
	return s.Kind.String()
}
