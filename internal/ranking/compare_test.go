package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencatalog/arcs/internal/core/domain"
)

func experimentFixture() (g1, g2 []domain.QueryResultRow, ideals domain.IdealJudgments) {
	g1 = []domain.QueryResultRow{
		judgedRow("crime", "aaaa-0001", 0, 3),
		judgedRow("crime", "aaaa-0002", 1, 2),
		judgedRow("crime", "aaaa-0003", 2, 1),
		judgedRow("parks", "bbbb-0001", 0, 2),
		judgedRow("parks", "bbbb-0002", 1, 2),
	}

	// Group 2 swaps the top two crime results and replaces the second parks
	// result with a different dataset.
	g2 = []domain.QueryResultRow{
		judgedRow("crime", "aaaa-0002", 0, 2),
		judgedRow("crime", "aaaa-0001", 1, 3),
		judgedRow("crime", "aaaa-0003", 2, 1),
		judgedRow("parks", "bbbb-0001", 0, 2),
		judgedRow("parks", "bbbb-0003", 1, 2),
	}

	ideals = domain.IdealJudgments{
		{Query: "crime", Domain: testDomain}: {3, 2, 1},
		{Query: "parks", Domain: testDomain}: {2, 2},
	}

	return g1, g2, ideals
}

func TestCompare(t *testing.T) {
	g1, g2, ideals := experimentFixture()

	result, err := Compare(g1, g2, ideals, DefaultSignificanceLevel)
	require.NoError(t, err)

	// Positions 0 and 1 of "crime" disagree, as does position 1 of "parks".
	assert.Equal(t, 3, result.NumTotalDiffs)

	// "bbbb-0002" appears only in group 1.
	assert.Equal(t, 1, result.NumUniqueQRPs)

	assert.InDelta(t, 1.0, result.Group1.AvgNDCGAt5, floatTolerance)
	assert.InDelta(t, -0.07858586755953101, result.NDCGDelta, floatTolerance)

	// A single differing query out of two is nowhere near significance.
	assert.False(t, result.StatisticallySignificant)
	assert.InDelta(t, 0.31731050786291415, result.PValue, floatTolerance)
}

func TestCompareIdenticalGroups(t *testing.T) {
	g1, _, ideals := experimentFixture()

	result, err := Compare(g1, g1, ideals, DefaultSignificanceLevel)
	require.NoError(t, err)

	assert.Zero(t, result.NumTotalDiffs)
	assert.Zero(t, result.NumUniqueQRPs)
	assert.Zero(t, result.NDCGDelta)
	assert.False(t, result.StatisticallySignificant)
	assert.Equal(t, 1.0, result.PValue)
}

func TestCountPositionDiffsIgnoresZeroResultRows(t *testing.T) {
	g1 := []domain.QueryResultRow{
		{Query: "empty", Domain: testDomain},
		judgedRow("crime", "aaaa-0001", 0, 3),
	}
	g2 := []domain.QueryResultRow{
		{Query: "empty", Domain: testDomain},
		judgedRow("crime", "aaaa-0009", 0, 1),
	}

	assert.Equal(t, 1, countPositionDiffs(g1, g2))
}

func TestCountUniqueQRPsDeduplicates(t *testing.T) {
	g1 := []domain.QueryResultRow{
		judgedRow("crime", "aaaa-0001", 0, 3),
		judgedRow("crime", "aaaa-0001", 1, 3), // same pair at another position
	}

	assert.Equal(t, 1, countUniqueQRPs(g1, nil))
}
