package solver

import (
	"context"

	"github.com/ritzau/heatnet/pkg/model"
)

// MockSolver is a mock implementation of Solver for testing
type MockSolver struct {
	MockResults *Results
	MockError   error
	CheckError  error

	Calls       int
	LastOptions Options
	LastNetwork *model.NetworkModel
}

func (m *MockSolver) Check(ctx context.Context) error {
	return m.CheckError
}

func (m *MockSolver) Solve(ctx context.Context, net *model.NetworkModel, opts Options) (*Results, error) {
	m.Calls++
	m.LastOptions = opts
	m.LastNetwork = net
	if m.MockError != nil {
		return nil, m.MockError
	}
	res := Results{Converged: true}
	if m.MockResults != nil {
		res = *m.MockResults
	}
	res.Mode = opts.Mode.Resolve()
	if res.FrictionModel == "" {
		res.FrictionModel = opts.FrictionModel
	}
	return &res, nil
}
