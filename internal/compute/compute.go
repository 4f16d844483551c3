// Package compute validates compute requests against the formula registry
// and evaluates them through the calculator service.
package compute

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/formula"
	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/pkg/calculator"
)

// ValidationError aggregates every invalid request in a batch.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "compute: invalid compute requests: " + strings.Join(e.Problems, "; ")
}

// UnmappedFormulaError lists formulas with no calculator function bound.
type UnmappedFormulaError struct {
	Formulas []string
}

func (e *UnmappedFormulaError) Error() string {
	return "compute: formula(s) not wired in calculator service: " + strings.Join(e.Formulas, ", ")
}

// Client validates and evaluates compute requests.
type Client struct {
	registry *formula.Registry
	calc     calculator.Client
}

// New creates a compute Client.
func New(reg *formula.Registry, calc calculator.Client) *Client {
	return &Client{registry: reg, calc: calc}
}

// Validate checks every request and fails the whole batch if any is invalid.
func (c *Client) Validate(reqs []model.ComputeRequest) ([]model.ComputeRequest, error) {
	var problems []string
	seen := make(map[string]bool, len(reqs))
	valid := make([]model.ComputeRequest, 0, len(reqs))

	for _, req := range reqs {
		if _, ok := c.registry.Lookup(req.Formula); !ok {
			problems = append(problems, fmt.Sprintf("Formula invalid: %s", req.Formula))
			continue
		}
		if req.RefID == "" {
			problems = append(problems, fmt.Sprintf("Missing ref_id for %s", req.Formula))
			continue
		}
		if seen[req.RefID] {
			problems = append(problems, fmt.Sprintf("Duplicate ref_id %s", req.RefID))
			continue
		}
		seen[req.RefID] = true
		if inputProblems := c.registry.ValidateInputs(req.Formula, req.Inputs); len(inputProblems) > 0 {
			problems = append(problems, fmt.Sprintf("Inputs invalid for %s (%s)", req.Formula, strings.Join(inputProblems, ", ")))
			continue
		}
		valid = append(valid, req)
	}

	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return valid, nil
}

// MapToExternal rewrites formula ids to calculator function names and
// returns the ref_id -> formula id map needed to restore them.
func (c *Client) MapToExternal(reqs []model.ComputeRequest) ([]calculator.Request, map[string]string, error) {
	mapped := make([]calculator.Request, 0, len(reqs))
	refMap := make(map[string]string, len(reqs))
	unmapped := make(map[string]bool)

	for _, req := range reqs {
		fn, ok := c.registry.FunctionName(req.Formula)
		if !ok {
			unmapped[req.Formula] = true
			continue
		}
		refMap[req.RefID] = req.Formula
		mapped = append(mapped, calculator.Request{Formula: fn, Inputs: req.Inputs, RefID: req.RefID})
	}

	if len(unmapped) > 0 {
		formulas := make([]string, 0, len(unmapped))
		for f := range unmapped {
			formulas = append(formulas, f)
		}
		sort.Strings(formulas)
		return nil, nil, &UnmappedFormulaError{Formulas: formulas}
	}
	return mapped, refMap, nil
}

// Normalize restores internal formula ids on raw results. Results whose
// ref_id was not part of the request batch are dropped.
func Normalize(raw []calculator.Result, refMap map[string]string) []model.ComputeResult {
	out := make([]model.ComputeResult, 0, len(raw))
	for _, r := range raw {
		id, ok := refMap[r.RefID]
		if !ok {
			zap.L().Warn("compute: dropping result for unknown ref_id",
				zap.String("ref_id", r.RefID),
				zap.String("formula", r.Formula),
			)
			continue
		}
		out = append(out, model.ComputeResult{RefID: r.RefID, Formula: id, Result: r.Result, Error: r.Error})
	}
	return out
}

// Compute validates, maps, evaluates and normalizes a batch. An empty
// batch never reaches the service.
func (c *Client) Compute(ctx context.Context, reqs []model.ComputeRequest) ([]model.ComputeResult, error) {
	if len(reqs) == 0 {
		return []model.ComputeResult{}, nil
	}

	valid, err := c.Validate(reqs)
	if err != nil {
		return nil, err
	}
	mapped, refMap, err := c.MapToExternal(valid)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("compute: calling calculator", zap.Int("requests", len(mapped)))

	raw, err := c.calc.Compute(ctx, mapped)
	if err != nil {
		return nil, eris.Wrap(err, "compute: calculator call")
	}
	return Normalize(raw, refMap), nil
}

// Healthy reports whether the calculator service answers its health check.
func (c *Client) Healthy(ctx context.Context) bool {
	status, err := c.calc.Health(ctx)
	if err != nil {
		zap.L().Warn("compute: calculator health check failed", zap.Error(err))
		return false
	}
	return status.Status == "ok"
}
