package keywords

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractShortSummaryReturnsNothing(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Extract(""))
	assert.Empty(t, Extract("Too short to extract."))

	// 29 characters is still below the threshold.
	s := strings.Repeat("a", 29)
	require.Len(t, s, 29)
	assert.Empty(t, Extract(s))
}

func TestExtractThresholdIsInclusive(t *testing.T) {
	t.Parallel()

	// Exactly 30 characters triggers extraction.
	s := "wizard school magic dragons aa"
	require.Len(t, s, 30)

	got := Extract(s)
	assert.NotEmpty(t, got)
	assert.Contains(t, got, "wizard")
}

func TestExtractRanksByFrequency(t *testing.T) {
	t.Parallel()

	s := "Compilers translate programs. Compilers optimize programs. Compilers emit machine code."
	got := Extract(s)
	require.NotEmpty(t, got)
	assert.Equal(t, "compilers", got[0])
	assert.Equal(t, "programs", got[1])
}

func TestExtractTiesBreakByFirstOccurrence(t *testing.T) {
	t.Parallel()

	// Every interesting token appears exactly once, so rank order must
	// follow order of appearance.
	s := "ocean voyage whales harpoons obsession narrated aboard whaling ships"
	got := Extract(s)
	require.True(t, len(got) >= 4)
	assert.Equal(t, []string{"ocean", "voyage", "whales", "harpoons"}, got[:4])
}

func TestExtractSkipsStopwordsAndShortTokens(t *testing.T) {
	t.Parallel()

	s := "the and a of to in is it on at detective murder mansion investigation"
	got := Extract(s)
	for _, kw := range got {
		assert.NotContains(t, []string{"the", "and", "of", "to", "in", "is", "it", "on", "at"}, kw)
	}
	assert.Contains(t, got, "detective")
	assert.Contains(t, got, "murder")
}

func TestExtractHonorsLimit(t *testing.T) {
	t.Parallel()

	s := "alpha bravo charlie delta echo foxtrot golf hotel india juliett kilo lima mike november"
	got := ExtractN(s, 5)
	assert.Len(t, got, 5)

	assert.Empty(t, ExtractN(s, 0))
}

func TestExtractIsDeterministic(t *testing.T) {
	t.Parallel()

	s := "A sweeping portrait of software engineering practice inside large organizations, full of war stories about scaling systems and teams."
	first := Extract(s)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Extract(s))
	}
}
