package hoops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func symmetrizerFixture(count int) []*GameFeature {
	games := make([]*GameRecord, 0, count)
	for i := 0; i < count; i++ {
		games = append(games, testGame(2024, i+1, 1, 2, 70+i, 60))
	}
	return NewGameFeatures(games)
}

func TestSymmetrizeOutcomesOneRowPerGame(t *testing.T) {
	features := symmetrizerFixture(10)
	rows := SymmetrizeOutcomes(features, int64Ptr(42))
	require.Len(t, rows, 10, "Exactly one row per game")
}

func TestSymmetrizeOutcomesSwapIsWholesale(t *testing.T) {
	rank := 7.0
	features := symmetrizerFixture(50)
	for _, f := range features {
		f.WRank = &rank
	}

	rows := SymmetrizeOutcomes(features, int64Ptr(42))
	for i, row := range rows {
		winner, loser := row.A, row.B
		if !row.TeamAWins {
			winner, loser = row.B, row.A
		}

		assert.Equal(t, 1, winner.TeamID, "Row %d: the winning slot must hold the winning team", i)
		assert.Equal(t, 2, loser.TeamID)
		assert.Equal(t, 70+i, winner.Line.Score, "Row %d: the winner's stats travel with the winner", i)
		assert.Equal(t, 60, loser.Line.Score)
		require.NotNil(t, winner.Rank, "Row %d: the winner's ranking travels with the winner", i)
		assert.Equal(t, 7.0, *winner.Rank)
		assert.Nil(t, loser.Rank)
		assert.Equal(t, "H", winner.Loc)
		assert.Equal(t, "A", loser.Loc)
	}
}

func TestSymmetrizeOutcomesBalance(t *testing.T) {
	rows := SymmetrizeOutcomes(symmetrizerFixture(2000), int64Ptr(1))

	wins := 0
	for _, row := range rows {
		if row.TeamAWins {
			wins++
		}
	}
	assert.Greater(t, wins, 800, "Label should be roughly balanced")
	assert.Less(t, wins, 1200, "Label should be roughly balanced")
}

func TestSymmetrizeOutcomesSeedReproducibility(t *testing.T) {
	a := SymmetrizeOutcomes(symmetrizerFixture(100), int64Ptr(99))
	b := SymmetrizeOutcomes(symmetrizerFixture(100), int64Ptr(99))

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].TeamAWins, b[i].TeamAWins, "Same seed must give the same assignment")
		assert.Equal(t, a[i].A.TeamID, b[i].A.TeamID)
	}
}

func TestSymmetrizeOutcomesCarriesContext(t *testing.T) {
	features := symmetrizerFixture(1)
	features[0].Game.Tournament = true
	features[0].Round = intPtr(2)
	features[0].Conference = strPtr("W")

	rows := SymmetrizeOutcomes(features, int64Ptr(5))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Tournament)
	require.NotNil(t, rows[0].Round)
	assert.Equal(t, 2, *rows[0].Round)
	require.NotNil(t, rows[0].Conference)
	assert.Equal(t, "W", *rows[0].Conference)
}
