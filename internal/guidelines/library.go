// Package guidelines holds the evidence library that recommendations are
// drawn from and verified against.
package guidelines

import (
	_ "embed"
	"encoding/json"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/radreport/internal/canon"
	"github.com/sells-group/radreport/internal/model"
)

//go:embed guidelines.yaml
var embedded []byte

// Guideline is one library entry.
type Guideline struct {
	ID                 string         `yaml:"id" json:"guideline_id"`
	FindingType        string         `yaml:"finding_type" json:"finding_type"`
	ReferenceKey       string         `yaml:"reference_key" json:"reference_key"`
	Citation           string         `yaml:"citation" json:"citation"`
	Patterns           []string       `yaml:"patterns" json:"-"`
	RecommendationText string         `yaml:"recommendation_text" json:"recommendation_text"`
	Payload            map[string]any `yaml:"payload" json:"payload"`

	matchers []*regexp.Regexp
}

// Source returns the guideline as an evidence source with a JSON payload.
func (g *Guideline) Source() (model.EvidenceSource, error) {
	payload, err := json.Marshal(map[string]any{
		"recommendation_text": g.RecommendationText,
		"payload":             g.Payload,
	})
	if err != nil {
		return model.EvidenceSource{}, eris.Wrapf(err, "guidelines: marshal payload %s", g.ID)
	}
	return model.EvidenceSource{SourceID: g.ID, GuidelineID: g.ID, Payload: payload}, nil
}

// Reference returns the citation entry for the guideline.
func (g *Guideline) Reference() model.Reference {
	return model.Reference{Key: g.ReferenceKey, Citation: g.Citation}
}

type file struct {
	Version    string       `yaml:"version"`
	Guidelines []*Guideline `yaml:"guidelines"`
}

// Library is an immutable set of guidelines.
type Library struct {
	version    string
	guidelines []*Guideline
	byID       map[string]*Guideline
}

var (
	defaultOnce sync.Once
	defaultLib  *Library
)

// Default returns the embedded library. It panics if the embedded file is
// invalid, which only a bad build can cause.
func Default() *Library {
	defaultOnce.Do(func() {
		lib, err := Parse(embedded)
		if err != nil {
			panic(err)
		}
		defaultLib = lib
	})
	return defaultLib
}

// Load reads a library from a YAML file.
func Load(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "guidelines: read %s", path)
	}
	return Parse(data)
}

// Parse decodes and validates a library.
func Parse(data []byte) (*Library, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "guidelines: parse yaml")
	}
	if f.Version == "" {
		return nil, eris.New("guidelines: version is required")
	}

	lib := &Library{version: f.Version, byID: make(map[string]*Guideline, len(f.Guidelines))}
	for i, g := range f.Guidelines {
		if g.ID == "" {
			return nil, eris.Errorf("guidelines: entry %d has no id", i)
		}
		if _, dup := lib.byID[g.ID]; dup {
			return nil, eris.Errorf("guidelines: duplicate id %s", g.ID)
		}
		if g.FindingType == "" || len(g.Patterns) == 0 {
			return nil, eris.Errorf("guidelines: %s needs a finding_type and patterns", g.ID)
		}
		for _, p := range g.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, eris.Wrapf(err, "guidelines: %s pattern %q", g.ID, p)
			}
			g.matchers = append(g.matchers, re)
		}
		lib.byID[g.ID] = g
		lib.guidelines = append(lib.guidelines, g)
	}
	return lib, nil
}

// Version returns the library version.
func (l *Library) Version() string { return l.version }

// Get returns a guideline by id.
func (l *Library) Get(id string) (*Guideline, bool) {
	g, ok := l.byID[id]
	return g, ok
}

// IDs returns every guideline id, sorted.
func (l *Library) IDs() []string {
	ids := make([]string, 0, len(l.byID))
	for id := range l.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ReferenceKeys returns every citation key in the library.
func (l *Library) ReferenceKeys() []string {
	keys := make([]string, 0, len(l.guidelines))
	for _, g := range l.guidelines {
		keys = append(keys, g.ReferenceKey)
	}
	return keys
}

// Match is a finding paired with the guideline that covers it.
type Match struct {
	FindingID string
	Finding   model.Finding
	Guideline *Guideline
}

// Match pairs each finding with the first guideline whose patterns match its
// organ and description. Unmatched findings are skipped.
func (l *Library) Match(findings []model.Finding) []Match {
	var out []Match
	for i, f := range findings {
		text := canon.FoldLower(strings.Join(strings.Fields(f.Organ+" "+f.Description), " "))
		for _, g := range l.guidelines {
			if g.matches(text) {
				id := f.FindingID
				if id == "" {
					id = "f" + strconv.Itoa(i+1)
				}
				out = append(out, Match{FindingID: id, Finding: f, Guideline: g})
				break
			}
		}
	}
	return out
}

func (g *Guideline) matches(text string) bool {
	for _, re := range g.matchers {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
