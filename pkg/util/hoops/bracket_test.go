package hoops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tourneyGame(season, day, wTeam, lTeam int) *GameRecord {
	g := testGame(season, day, wTeam, lTeam, 70, 60)
	g.Tournament = true
	return g
}

func testSeeds() []*SeedRecord {
	return []*SeedRecord{
		{Season: 2024, Seed: "W01", TeamID: 1},
		{Season: 2024, Seed: "W16a", TeamID: 2},
		{Season: 2024, Seed: "W16b", TeamID: 3},
		{Season: 2024, Seed: "X01", TeamID: 4},
		{Season: 2024, Seed: "X08", TeamID: 5},
	}
}

func TestResolveBracketFirstFour(t *testing.T) {
	features := NewGameFeatures([]*GameRecord{
		tourneyGame(2024, 134, 2, 3), // 16a v 16b, play-in
	})

	out := ResolveBracket(features, testSeeds())
	require.Len(t, out, 1)

	require.NotNil(t, out[0].Round)
	assert.Equal(t, 0, *out[0].Round, "A game between two play-in seeds is round zero")
	require.NotNil(t, out[0].WSeed)
	assert.Equal(t, "16a", *out[0].WSeed, "Seeds are stored with the region stripped")
	require.NotNil(t, out[0].Conference)
	assert.Equal(t, "W", *out[0].Conference)
}

func TestResolveBracketRoundNumbers(t *testing.T) {
	features := NewGameFeatures([]*GameRecord{
		tourneyGame(2024, 136, 1, 2), // team 1 first win
		tourneyGame(2024, 138, 1, 3), // second win
		tourneyGame(2024, 143, 1, 5), // third win
		tourneyGame(2024, 145, 1, 4), // fourth win
		tourneyGame(2024, 136, 4, 5), // team 4 first win
	})

	out := ResolveBracket(features, testSeeds())
	require.Len(t, out, 5)

	byDayAndWinner := func(day, winner int) *GameFeature {
		for _, f := range out {
			if f.Game.DayNum == day && f.Game.WTeamID == winner {
				return f
			}
		}
		t.Fatalf("no game on day %d won by %d", day, winner)
		return nil
	}

	assert.Equal(t, 1, *byDayAndWinner(136, 1).Round, "A team's first win is a round one game")
	assert.Equal(t, 2, *byDayAndWinner(138, 1).Round)
	assert.Equal(t, 3, *byDayAndWinner(143, 1).Round)
	assert.Equal(t, 4, *byDayAndWinner(145, 1).Round, "A team's fourth win is a round four game")
	assert.Equal(t, 1, *byDayAndWinner(136, 4).Round, "Round counts are per winning team")
}

func TestResolveBracketConference(t *testing.T) {
	features := NewGameFeatures([]*GameRecord{
		tourneyGame(2024, 136, 4, 5), // X01 v X08, same region
		tourneyGame(2024, 152, 1, 4), // W01 v X01, cross region
	})

	out := ResolveBracket(features, testSeeds())
	require.Len(t, out, 2)

	require.NotNil(t, out[0].Conference)
	assert.Equal(t, "X", *out[0].Conference, "Shared region names the conference")
	require.NotNil(t, out[1].Conference)
	assert.Equal(t, FinalFourConference, *out[1].Conference, "Cross region games are Final Four")
}

func TestResolveBracketRegularSeasonPassthrough(t *testing.T) {
	regular := testGame(2024, 50, 1, 2, 70, 60)
	features := NewGameFeatures([]*GameRecord{
		regular,
		tourneyGame(2024, 136, 1, 2),
	})

	out := ResolveBracket(features, testSeeds())
	require.Len(t, out, 2)

	assert.Equal(t, 50, out[0].Game.DayNum, "Output is ordered by day")
	assert.Nil(t, out[0].Round, "Regular season games carry no bracket fields")
	assert.Nil(t, out[0].Conference)
	assert.Nil(t, out[0].WSeed)
	assert.Nil(t, out[0].LSeed)

	assert.NotNil(t, out[1].Round)
}

func TestResolveBracketUnseededTeam(t *testing.T) {
	features := NewGameFeatures([]*GameRecord{
		tourneyGame(2024, 136, 1, 99), // team 99 has no seed
	})

	out := ResolveBracket(features, testSeeds())
	require.Len(t, out, 1)

	assert.NotNil(t, out[0].WSeed)
	assert.Nil(t, out[0].LSeed)
	assert.Nil(t, out[0].Conference, "Conference cannot be resolved without both seeds")
	require.NotNil(t, out[0].Round, "The round still counts the winner's wins")
	assert.Equal(t, 1, *out[0].Round)
}

func TestSeedRecordParts(t *testing.T) {
	s := &SeedRecord{Season: 2024, Seed: "X16a", TeamID: 7}
	require.NoError(t, s.Validate())
	assert.Equal(t, "X", s.Region())
	assert.Equal(t, "16a", s.Portion())

	bad := &SeedRecord{Season: 2024, Seed: "X", TeamID: 7}
	assert.Error(t, bad.Validate())
}
