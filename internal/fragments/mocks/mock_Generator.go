// Package mocks provides test doubles for the fragment generator and renderer.
package mocks

import (
	"context"

	model "github.com/sells-group/radreport/internal/model"
	mock "github.com/stretchr/testify/mock"
)

// MockGenerator is a mock type for the Generator interface.
type MockGenerator struct {
	mock.Mock
}

// Clinical provides a mock function with given fields: ctx, bundle
func (_m *MockGenerator) Clinical(ctx context.Context, bundle model.CaseBundle) (*model.Indication, error) {
	ret := _m.Called(ctx, bundle)

	if len(ret) == 0 {
		panic("no return value specified for Clinical")
	}

	if rf, ok := ret.Get(0).(func(context.Context, model.CaseBundle) (*model.Indication, error)); ok {
		return rf(ctx, bundle)
	}
	var r0 *model.Indication
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Indication)
	}
	return r0, ret.Error(1)
}

// Technical provides a mock function with given fields: ctx, bundle
func (_m *MockGenerator) Technical(ctx context.Context, bundle model.CaseBundle) (*model.Technique, error) {
	ret := _m.Called(ctx, bundle)

	if len(ret) == 0 {
		panic("no return value specified for Technical")
	}

	if rf, ok := ret.Get(0).(func(context.Context, model.CaseBundle) (*model.Technique, error)); ok {
		return rf(ctx, bundle)
	}
	var r0 *model.Technique
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Technique)
	}
	return r0, ret.Error(1)
}

// Findings provides a mock function with given fields: ctx, bundle
func (_m *MockGenerator) Findings(ctx context.Context, bundle model.CaseBundle) (*model.FindingsOutput, error) {
	ret := _m.Called(ctx, bundle)

	if len(ret) == 0 {
		panic("no return value specified for Findings")
	}

	if rf, ok := ret.Get(0).(func(context.Context, model.CaseBundle) (*model.FindingsOutput, error)); ok {
		return rf(ctx, bundle)
	}
	var r0 *model.FindingsOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.FindingsOutput)
	}
	return r0, ret.Error(1)
}

// Comparison provides a mock function with given fields: ctx, report, bundle
func (_m *MockGenerator) Comparison(ctx context.Context, report *model.ReportJSON, bundle model.CaseBundle) (*model.Comparison, error) {
	ret := _m.Called(ctx, report, bundle)

	if len(ret) == 0 {
		panic("no return value specified for Comparison")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.ReportJSON, model.CaseBundle) (*model.Comparison, error)); ok {
		return rf(ctx, report, bundle)
	}
	var r0 *model.Comparison
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Comparison)
	}
	return r0, ret.Error(1)
}

// Impression provides a mock function with given fields: ctx, report, bundle
func (_m *MockGenerator) Impression(ctx context.Context, report *model.ReportJSON, bundle model.CaseBundle) (*model.Impression, error) {
	ret := _m.Called(ctx, report, bundle)

	if len(ret) == 0 {
		panic("no return value specified for Impression")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.ReportJSON, model.CaseBundle) (*model.Impression, error)); ok {
		return rf(ctx, report, bundle)
	}
	var r0 *model.Impression
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Impression)
	}
	return r0, ret.Error(1)
}

// Recommendations provides a mock function with given fields: ctx, report
func (_m *MockGenerator) Recommendations(ctx context.Context, report *model.ReportJSON) (*model.RecommendationsOutput, error) {
	ret := _m.Called(ctx, report)

	if len(ret) == 0 {
		panic("no return value specified for Recommendations")
	}

	if rf, ok := ret.Get(0).(func(context.Context, *model.ReportJSON) (*model.RecommendationsOutput, error)); ok {
		return rf(ctx, report)
	}
	var r0 *model.RecommendationsOutput
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.RecommendationsOutput)
	}
	return r0, ret.Error(1)
}

// NewMockGenerator creates a new instance of MockGenerator and registers
// cleanup assertions on t.
func NewMockGenerator(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockGenerator {
	m := &MockGenerator{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
