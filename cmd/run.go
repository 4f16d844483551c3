package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/radreport/internal/model"
	"github.com/sells-group/radreport/internal/report"
)

var (
	runCasePath string
	runHTMLPath string
	runMarkdown bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Assemble and QA the report for a single case",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		bundle, err := readCase(runCasePath)
		if err != nil {
			return err
		}

		env, err := initPipeline(ctx, "run")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, bundle)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("report complete",
			zap.String("case_id", bundle.CaseID),
			zap.String("run_id", result.RunID),
			zap.String("risk", string(result.Risk.Level)),
			zap.Bool("qa_passed", result.QA.Passed),
			zap.Int("heal_attempts", result.Heal.Attempts),
		)

		if runHTMLPath != "" {
			if err := writeHTML(runHTMLPath, result.Markdown); err != nil {
				return err
			}
		}

		return writeResult(os.Stdout, result, runMarkdown)
	},
}

func init() {
	runCmd.Flags().StringVar(&runCasePath, "case", "", "path to the case bundle JSON file (required)")
	runCmd.Flags().StringVar(&runHTMLPath, "html", "", "also write the rendered report as HTML to this path")
	runCmd.Flags().BoolVar(&runMarkdown, "markdown", false, "print only the report markdown instead of the full result JSON")
	_ = runCmd.MarkFlagRequired("case")
	rootCmd.AddCommand(runCmd)
}

// readCase loads a case bundle from a JSON file. A missing case_id defaults
// to the file name without extension.
func readCase(path string) (model.CaseBundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.CaseBundle{}, eris.Wrapf(err, "open case %s", path)
	}
	defer f.Close() //nolint:errcheck
	return decodeCase(f, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

func decodeCase(r io.Reader, fallbackID string) (model.CaseBundle, error) {
	var bundle model.CaseBundle
	if err := json.NewDecoder(r).Decode(&bundle); err != nil {
		return model.CaseBundle{}, eris.Wrap(err, "decode case bundle")
	}
	if bundle.CaseID == "" {
		bundle.CaseID = fallbackID
	}
	if bundle.CaseID == "" {
		return model.CaseBundle{}, eris.New("case bundle: case_id is required")
	}
	if len(bundle.Fields) == 0 && bundle.Dictation == "" {
		return model.CaseBundle{}, eris.Errorf("case bundle %s: fields or dictation is required", bundle.CaseID)
	}
	return bundle, nil
}

// writeResult prints either the report markdown or the full result JSON.
func writeResult(w io.Writer, result *model.PipelineResult, markdownOnly bool) error {
	if markdownOnly {
		_, err := io.WriteString(w, result.Markdown)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeHTML(path, md string) error {
	html, err := report.ToHTML(md)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return eris.Wrapf(err, "write html %s", path)
	}
	return nil
}

// caseRunner runs one case through the pipeline.
type caseRunner interface {
	Run(ctx context.Context, bundle model.CaseBundle) (*model.PipelineResult, error)
}
