package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/radreport/internal/model"
)

var (
	batchLimit  int
	batchOutDir string
)

var batchCmd = &cobra.Command{
	Use:   "batch <case.json|dir>...",
	Short: "Run many case bundles concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		paths, err := collectCasePaths(args)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := processBatch(ctx, paths, batchLimit, cfg.Batch.MaxConcurrentCases, batchOutDir, env.Pipeline)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			return eris.Errorf("batch: %d of %d cases failed", summary.Failed, summary.Failed+summary.Succeeded)
		}
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of cases to process")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "", "directory to write <case_id>.json results into")
	rootCmd.AddCommand(batchCmd)
}

// collectCasePaths expands directories into their *.json files.
func collectCasePaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, eris.Wrapf(err, "stat %s", arg)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.json"))
		if err != nil {
			return nil, eris.Wrapf(err, "glob %s", arg)
		}
		sort.Strings(matches)
		paths = append(paths, matches...)
	}
	return paths, nil
}

// batchSummary counts batch outcomes.
type batchSummary struct {
	Succeeded int64
	Failed    int64
	Tiers     map[model.RiskTier]int
}

// processBatch applies limit, then runs cases concurrently. Individual case
// failures are logged and counted without aborting the batch.
func processBatch(ctx context.Context, paths []string, limit, concurrency int, outDir string, runner caseRunner) (*batchSummary, error) {
	summary := &batchSummary{Tiers: make(map[model.RiskTier]int)}
	if len(paths) == 0 {
		zap.L().Info("no case bundles found")
		return summary, nil
	}

	if limit > 0 && len(paths) > limit {
		paths = paths[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "batch: create %s", outDir)
		}
	}

	zap.L().Info("processing batch",
		zap.Int("cases", len(paths)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		succeeded, failed atomic.Int64
		mu                sync.Mutex
	)

	for _, path := range paths {
		g.Go(func() error {
			log := zap.L().With(zap.String("case", path))

			bundle, err := readCase(path)
			if err != nil {
				failed.Add(1)
				log.Error("batch: invalid case bundle", zap.Error(err))
				return nil
			}

			result, err := runner.Run(gctx, bundle)
			if err != nil {
				failed.Add(1)
				log.Error("batch: case failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			if outDir != "" {
				if err := writeResultFile(filepath.Join(outDir, bundle.CaseID+".json"), result); err != nil {
					log.Warn("batch: failed to write result", zap.Error(err))
				}
			}

			succeeded.Add(1)
			mu.Lock()
			summary.Tiers[result.Risk.Level]++
			mu.Unlock()

			log.Info("batch: case complete",
				zap.String("risk", string(result.Risk.Level)),
				zap.Bool("qa_passed", result.QA.Passed),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	summary.Succeeded = succeeded.Load()
	summary.Failed = failed.Load()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", summary.Succeeded),
		zap.Int64("failed", summary.Failed),
		zap.Int("s1", summary.Tiers[model.RiskS1]),
		zap.Int("s2", summary.Tiers[model.RiskS2]),
		zap.Int("s3", summary.Tiers[model.RiskS3]),
	)
	return summary, nil
}

func writeResultFile(path string, result *model.PipelineResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close() //nolint:errcheck
	return writeResult(f, result, false)
}
