package mocks

import (
	"context"

	model "github.com/sells-group/radreport/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockRenderer is a mock type for the Renderer interface.
type MockRenderer struct {
	mock.Mock
}

// Render provides a mock function with given fields: ctx, report, feedback
func (_m *MockRenderer) Render(ctx context.Context, report *model.ReportJSON, feedback string) (string, error) {
	ret := _m.Called(ctx, report, feedback)

	if len(ret) == 0 {
		panic("no return value specified for Render")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.ReportJSON, string) (string, error)); ok {
		return rf(ctx, report, feedback)
	}
	return ret.String(0), ret.Error(1)
}

// NewMockRenderer creates a new instance of MockRenderer and registers
// cleanup assertions on t.
func NewMockRenderer(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRenderer {
	m := &MockRenderer{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
