// Package mocks provides test doubles for the calculator client.
package mocks

import (
	"context"

	calculator "github.com/sells-group/radreport/pkg/calculator"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Compute provides a mock function with given fields: ctx, reqs
func (_m *MockClient) Compute(ctx context.Context, reqs []calculator.Request) ([]calculator.Result, error) {
	ret := _m.Called(ctx, reqs)

	if len(ret) == 0 {
		panic("no return value specified for Compute")
	}

	var r0 []calculator.Result
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, []calculator.Request) ([]calculator.Result, error)); ok {
		return rf(ctx, reqs)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]calculator.Result)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Health provides a mock function with given fields: ctx
func (_m *MockClient) Health(ctx context.Context) (*calculator.HealthStatus, error) {
	ret := _m.Called(ctx)

	if len(ret) == 0 {
		panic("no return value specified for Health")
	}

	var r0 *calculator.HealthStatus
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*calculator.HealthStatus)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient and registers cleanup
// assertions on t.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
