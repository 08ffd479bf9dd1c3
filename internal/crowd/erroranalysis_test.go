package crowd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analysisUnits() []UnitResult {
	return []UnitResult{
		{Query: "crime", ResultID: "aaaa-1111", Name: "Good Result", Ratings: []string{"2", "3", "2"}},
		{Query: "crime", ResultID: "bbbb-2222", Name: "Bad Result", Ratings: []string{"0", "0", "1"}},
		{Query: "parks", ResultID: "cccc-3333", Name: "One Zero", Ratings: []string{"0", "2", "3"}},
		{Query: "parks", ResultID: "dddd-4444", Name: "Confusing", Ratings: []string{"-1", "-1", "2"}},
		{Query: "parks", ResultID: "eeee-5555", Name: "Terrible", Ratings: []string{"0", "0", "0"}},
		{Query: "gold", ResultID: "ffff-6666", Name: "Gold", Ratings: []string{"0", "0"}, Golden: true},
	}
}

func TestIrrelevantQRPs(t *testing.T) {
	reports := IrrelevantQRPs(analysisUnits())

	require.Len(t, reports, 2)

	assert.Equal(t, "Bad Result", reports[0].Name)
	assert.Equal(t, 2, reports[0].NumBadJudgments)
	assert.Equal(t, ErrorIrrelevant, reports[0].Kind)

	assert.Equal(t, "Terrible", reports[1].Name)
	assert.Equal(t, 3, reports[1].NumBadJudgments)
}

func TestMissingInfoQRPs(t *testing.T) {
	reports := MissingInfoQRPs(analysisUnits())

	require.Len(t, reports, 1)
	assert.Equal(t, "Confusing", reports[0].Name)
	assert.Equal(t, 2, reports[0].NumBadJudgments)
	assert.Equal(t, ErrorMissingInfo, reports[0].Kind)
}

func TestAnalyzeErrorsSortsByBadJudgments(t *testing.T) {
	reports := AnalyzeErrors(analysisUnits())

	require.Len(t, reports, 3)

	assert.Equal(t, "Terrible", reports[0].Name)

	for i := 1; i < len(reports); i++ {
		assert.GreaterOrEqual(t, reports[i-1].NumBadJudgments, reports[i].NumBadJudgments)
	}
}

func TestAnalyzeErrorsSkipsGold(t *testing.T) {
	for _, r := range AnalyzeErrors(analysisUnits()) {
		assert.NotEqual(t, "Gold", r.Name)
	}
}
