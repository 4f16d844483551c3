package canon

import (
	"regexp"
	"strings"

	"github.com/sells-group/radreport/internal/model"
)

// Result is canonical text plus the blacklist corrections applied to reach it.
type Result struct {
	Text        string                      `json:"text"`
	Corrections []model.BlacklistCorrection `json:"corrections"`
}

// ocrFixes repairs words mangled by an earlier unanchored "RM" expansion.
var ocrFixes = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`(?i)conforessonância magnéticae`), "conforme"},
	{regexp.MustCompile(`(?i)foressonância magnéticaa`), "forma"},
	{regexp.MustCompile(`(?i)noressonância magnéticaais`), "normais"},
	{regexp.MustCompile(`(?i)alaressonância magnéticae`), "alarme"},
	{regexp.MustCompile(`(?i)veressonância magnéticaiforessonância magnéticae`), "vermiforme"},
	{regexp.MustCompile(`(?i)deforessonância magnéticaidade`), "deformidade"},
}

var (
	innerSpaces = regexp.MustCompile(`[ \t]{2,}`)
	leadingWS   = regexp.MustCompile(`^[ \t]*`)
)

// Canonicalize normalizes line endings, repairs OCR glue, tidies whitespace,
// drops consecutive duplicate lines and applies the blacklist. The result ends
// with exactly one newline unless empty, and Canonicalize(Canonicalize(x).Text)
// returns the same text.
func Canonicalize(text string) Result {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	for _, fix := range ocrFixes {
		text = fix.pattern.ReplaceAllString(text, fix.repl)
	}

	text = tidyLines(text)
	bl := ApplyBlacklist(text)
	// Corrections can make neighbouring lines identical.
	text = strings.TrimSpace(tidyLines(bl.Text))

	if text != "" {
		text += "\n"
	}
	return Result{Text: text, Corrections: bl.Corrections}
}

// tidyLines trims trailing whitespace, compacts internal runs of spaces while
// keeping indentation, collapses blank runs to one line, and drops a line that
// repeats the previous non-empty line.
func tidyLines(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	lastNonEmpty := ""
	lastWasEmpty := false

	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			if !lastWasEmpty {
				out = append(out, "")
				lastWasEmpty = true
			}
			continue
		}

		indent := leadingWS.FindString(line)
		line = indent + innerSpaces.ReplaceAllString(line[len(indent):], " ")

		if line == lastNonEmpty {
			continue
		}
		out = append(out, line)
		lastNonEmpty = line
		lastWasEmpty = false
	}
	return strings.Join(out, "\n")
}
