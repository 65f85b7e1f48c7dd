// Package chain runs an ordered list of raster steps and owns the
// intermediate mats between them.
package chain

import (
	"context"
	"fmt"

	"tracing-overlay/internal/models"
	"tracing-overlay/internal/opencv/safe"
)

// Frame is the state a step sees. Source is the untouched input and is never
// closed by the chain; Current is the previous step's output.
type Frame struct {
	Source     *safe.Mat
	Current    *safe.Mat
	Degenerate bool
}

type ProcessingStep interface {
	Apply(ctx context.Context, frame *Frame, params models.Parameters) (*safe.Mat, error)
	Name() string
	ShouldExecute(params models.Parameters) bool
}

// Timer records how long each step took.
type Timer interface {
	StartTiming(operation string) context.Context
	EndTiming(ctx context.Context)
}

type ProcessingChain struct {
	steps []ProcessingStep
	timer Timer
}

func NewProcessingChain(steps []ProcessingStep) *ProcessingChain {
	return &ProcessingChain{
		steps: steps,
	}
}

// SetTimer attaches a timer. A nil timer disables timing.
func (pc *ProcessingChain) SetTimer(timer Timer) {
	pc.timer = timer
}

// Execute runs every step that wants to execute for params, in order. The
// returned frame's Current is a new Mat owned by the caller, or a clone of
// input when no step ran.
func (pc *ProcessingChain) Execute(ctx context.Context, input *safe.Mat, params models.Parameters) (*Frame, error) {
	frame := &Frame{Source: input, Current: input}

	release := func() {
		if frame.Current != input {
			frame.Current.Close()
		}
	}

	for _, step := range pc.steps {
		select {
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		default:
		}

		if !step.ShouldExecute(params) {
			continue
		}

		var timing context.Context
		if pc.timer != nil {
			timing = pc.timer.StartTiming(step.Name())
		}

		result, err := step.Apply(ctx, frame, params)

		if pc.timer != nil {
			pc.timer.EndTiming(timing)
		}

		if err != nil {
			release()
			return nil, fmt.Errorf("step %s failed: %w", step.Name(), err)
		}

		release()
		frame.Current = result
	}

	if frame.Current == input {
		clone, err := input.Clone()
		if err != nil {
			return nil, err
		}
		frame.Current = clone
	}

	return frame, nil
}

func (pc *ProcessingChain) AddStep(step ProcessingStep) {
	pc.steps = append(pc.steps, step)
}

func (pc *ProcessingChain) StepCount() int {
	return len(pc.steps)
}

func (pc *ProcessingChain) GetStepNames() []string {
	names := make([]string, len(pc.steps))
	for i, step := range pc.steps {
		names[i] = step.Name()
	}
	return names
}
