package guidelines

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/radreport/internal/guard"
	"github.com/sells-group/radreport/internal/model"
)

func TestDefault(t *testing.T) {
	lib := Default()
	assert.Equal(t, "2025.11.1", lib.Version())
	assert.Equal(t, []string{"ACR-ADRENAL-2017", "ACR-TIRADS-2017", "BOSNIAK-2019", "FLEISCHNER-2017", "ORADS-US-2022"}, lib.IDs())
	assert.Len(t, lib.ReferenceKeys(), 5)

	g, ok := lib.Get("BOSNIAK-2019")
	require.True(t, ok)
	assert.Equal(t, "renal_cyst", g.FindingType)

	_, ok = lib.Get("NOPE")
	assert.False(t, ok)
}

func TestMatch(t *testing.T) {
	findings := []model.Finding{
		{FindingID: "rim-1", Organ: "Rins", Description: "Cisto simples cortical no rim direito, medindo 1,2 cm."},
		{Organ: "Fígado", Description: "Dimensões normais."},
		{Organ: "Tireoide", Description: "Nódulo na tireoide com 12 mm, TI-RADS 4."},
		{Organ: "Pulmões", Description: "Nódulo sólido de 7 mm no lobo inferior direito."},
	}

	matches := Default().Match(findings)
	require.Len(t, matches, 3)
	assert.Equal(t, "rim-1", matches[0].FindingID)
	assert.Equal(t, "BOSNIAK-2019", matches[0].Guideline.ID)
	assert.Equal(t, "f3", matches[1].FindingID)
	assert.Equal(t, "ACR-TIRADS-2017", matches[1].Guideline.ID)
	assert.Equal(t, "FLEISCHNER-2017", matches[2].Guideline.ID)
}

func TestSource_PayloadSupportsOwnText(t *testing.T) {
	lib := Default()
	for _, id := range lib.IDs() {
		g, _ := lib.Get(id)
		src, err := g.Source()
		require.NoError(t, err, id)
		assert.Equal(t, id, src.GuidelineID)
		assert.True(t, json.Valid(src.Payload), id)

		p, err := guard.NewPayload(src.Payload)
		require.NoError(t, err)
		for _, n := range guard.ExtractNumbers(g.RecommendationText) {
			assert.True(t, p.Has(n), "%s: %s", id, n)
		}
	}
}

func TestReference(t *testing.T) {
	g, _ := Default().Get("FLEISCHNER-2017")
	ref := g.Reference()
	assert.Equal(t, "fleischner2017", ref.Key)
	assert.Contains(t, ref.Citation, "Fleischner")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad yaml", "version: [", "parse yaml"},
		{"no version", "guidelines: []", "version is required"},
		{"no id", "version: x\nguidelines:\n  - finding_type: a\n    patterns: ['a']", "has no id"},
		{"duplicate", "version: x\nguidelines:\n  - {id: A, finding_type: a, patterns: ['a']}\n  - {id: A, finding_type: a, patterns: ['a']}", "duplicate id A"},
		{"no patterns", "version: x\nguidelines:\n  - {id: A, finding_type: a}", "needs a finding_type and patterns"},
		{"bad regex", "version: x\nguidelines:\n  - {id: A, finding_type: a, patterns: ['(']}", "pattern"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: test\nguidelines:\n  - {id: X, finding_type: x, patterns: ['xyz']}\n"), 0o644))

	lib, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test", lib.Version())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
