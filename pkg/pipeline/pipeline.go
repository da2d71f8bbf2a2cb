// Package pipeline drives a ring of Intcode machines.
//
// Every stage runs the same program with its own phase setting as first
// input. In serial mode each stage runs once to completion and hands its last
// output to the next stage. In feedback mode the last stage's output loops
// back to the first stage, and the ring is driven round-robin, one output per
// turn, until a stage is found halted at the start of its turn.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/tliron/commonlog"
)

var (
	// ErrUsed is returned when a pipeline is run a second time.
	ErrUsed = errors.New("pipeline already run")
)

// Machine is the part of a VM the orchestrator needs.
type Machine interface {
	Feed(values ...int64)
	RunToHalt() error
	RunToNextOutput() error
	LastOutput() (int64, error)
	OutputCount() int
	Halted() bool
}

// Ensure *intcode.VM implements Machine.
var _ Machine = (*intcode.VM)(nil)

// Pipeline is a fixed ring of machines. A Pipeline is single use.
type Pipeline struct {
	stages []Machine
	rounds int
	used   bool
	log    commonlog.Logger
}

// New creates one VM per phase setting, each over its own copy of image and
// seeded with its phase as the first input. Each stage logs under its own
// name unless opts supply a logger.
func New(image []int64, phases []int64, opts ...intcode.Option) *Pipeline {
	stages := make([]Machine, len(phases))
	for i, phase := range phases {
		stageOpts := append([]intcode.Option{
			intcode.WithLogger(commonlog.GetLogger(fmt.Sprintf("intcode.vm.stage%d", i))),
		}, opts...)
		stages[i] = intcode.New(image, []int64{phase}, stageOpts...)
	}
	return NewFromMachines(stages...)
}

// NewFromMachines wraps already constructed machines.
func NewFromMachines(stages ...Machine) *Pipeline {
	return &Pipeline{
		stages: stages,
		log:    commonlog.GetLogger("intcode.pipeline"),
	}
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Rounds returns how many full or partial trips around the ring the last
// run took. Serial runs count as one round.
func (p *Pipeline) Rounds() int {
	return p.rounds
}

// Run passes feed through every stage once, running each to halt. The last
// stage's last output is the result. An empty pipeline returns feed.
func (p *Pipeline) Run(feed int64) (int64, error) {
	if p.used {
		return 0, ErrUsed
	}
	p.used = true

	value := feed
	if len(p.stages) == 0 {
		return value, nil
	}

	for i, m := range p.stages {
		m.Feed(value)
		if err := m.RunToHalt(); err != nil {
			return value, fmt.Errorf("stage %d: %w", i, err)
		}

		out, err := m.LastOutput()
		if err != nil {
			return value, fmt.Errorf("stage %d: %w", i, err)
		}
		value = out
	}
	p.rounds = 1

	p.log.Debugf("serial pipeline of %d stages produced %d", len(p.stages), value)
	return value, nil
}

// RunFeedback drives the ring until a stage is found halted at the start of
// its turn, and returns the last value passed along the ring. ctx is checked
// between rounds.
func (p *Pipeline) RunFeedback(ctx context.Context, feed int64) (int64, error) {
	if p.used {
		return 0, ErrUsed
	}
	p.used = true

	value := feed
	if len(p.stages) == 0 {
		return value, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return value, err
		}
		p.rounds++

		for i, m := range p.stages {
			if m.Halted() {
				p.log.Debugf("stage %d halted after %d rounds, result %d", i, p.rounds-1, value)
				return value, nil
			}

			before := m.OutputCount()
			m.Feed(value)
			if err := m.RunToNextOutput(); err != nil {
				return value, fmt.Errorf("stage %d round %d: %w", i, p.rounds, err)
			}

			// A stage that halts without emitting leaves the value as is.
			if m.OutputCount() > before {
				value, _ = m.LastOutput()
			}
		}
	}
}

// Run builds a serial pipeline over image and runs it.
func Run(image []int64, phases []int64, feed int64, opts ...intcode.Option) (int64, error) {
	return New(image, phases, opts...).Run(feed)
}

// RunFeedback builds a feedback pipeline over image and runs it.
func RunFeedback(ctx context.Context, image []int64, phases []int64, feed int64, opts ...intcode.Option) (int64, error) {
	return New(image, phases, opts...).RunFeedback(ctx, feed)
}
