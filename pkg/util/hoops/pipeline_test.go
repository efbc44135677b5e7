package hoops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipelineFixture() *Dataset {
	ds := NewDataset()
	ds.Games[TableRegularSeasonDetailed] = []*GameRecord{
		testGame(2024, 10, 1, 2, 70, 60),
		testGame(2024, 20, 2, 1, 80, 75),
		testGame(2024, 30, 1, 4, 65, 50),
		testGame(2024, 40, 4, 2, 72, 68),
	}
	ds.Games[TableTourneyDetailed] = []*GameRecord{
		testGame(2024, 136, 1, 4, 66, 60),
		testGame(2024, 138, 1, 2, 71, 70),
	}
	ds.Rankings = []*RankingRecord{
		{Season: 2024, RankingDayNum: 5, SystemName: "POM", TeamID: 1, OrdinalRank: 3},
		{Season: 2024, RankingDayNum: 5, SystemName: "POM", TeamID: 2, OrdinalRank: 12},
		{Season: 2024, RankingDayNum: 25, SystemName: "POM", TeamID: 1, OrdinalRank: 2},
	}
	ds.Seeds = []*SeedRecord{
		{Season: 2024, Seed: "W01", TeamID: 1},
		{Season: 2024, Seed: "W08", TeamID: 2},
		{Season: 2024, Seed: "W04", TeamID: 4},
	}
	return ds
}

func pipelineConfig() *HoopsConfig {
	cfg := DefaultHoopsConfig()
	cfg.Year = 2024
	cfg.RankingSystems = []string{"POM"}
	cfg.WindowSize = 3
	cfg.RandomSeed = int64Ptr(7)
	return cfg
}

func TestProcessDataset(t *testing.T) {
	rows, err := ProcessDataset(pipelineFixture(), pipelineConfig())
	require.NoError(t, err)
	require.Len(t, rows, 6, "One row per game, regular season and tournament")

	tourney := 0
	for _, row := range rows {
		if row.Tournament {
			tourney++
			assert.NotNil(t, row.Round, "Tournament rows carry a round")
		} else {
			assert.Nil(t, row.Round, "Regular season rows carry no bracket fields")
			assert.Nil(t, row.Conference)
		}
	}
	assert.Equal(t, 2, tourney)
}

func TestProcessDatasetRankNullability(t *testing.T) {
	rows, err := ProcessDataset(pipelineFixture(), pipelineConfig())
	require.NoError(t, err)

	// Day 40: team 4 beat team 2; team 4 has no snapshots at all
	for _, row := range rows {
		if row.Season == 2024 && row.DayNum == 40 {
			winner, loser := row.A, row.B
			if !row.TeamAWins {
				winner, loser = row.B, row.A
			}
			assert.Nil(t, winner.Rank, "An unranked team stays null")
			require.NotNil(t, loser.Rank)
			assert.Equal(t, 12.0, *loser.Rank)
		}
	}
}

func TestProcessDatasetReproducible(t *testing.T) {
	a, err := ProcessDataset(pipelineFixture(), pipelineConfig())
	require.NoError(t, err)
	b, err := ProcessDataset(pipelineFixture(), pipelineConfig())
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].TeamAWins, b[i].TeamAWins)
		assert.Equal(t, a[i].A.TeamID, b[i].A.TeamID)
		assert.Equal(t, a[i].DayNum, b[i].DayNum)
	}
}

func TestProcessDatasetInputUntouched(t *testing.T) {
	ds := pipelineFixture()
	_, err := ProcessDataset(ds, pipelineConfig())
	require.NoError(t, err)

	assert.Len(t, ds.Games[TableRegularSeasonDetailed], 4, "The input dataset keeps its raw tables")
	assert.Len(t, ds.Games[TableTourneyDetailed], 2)
	for _, g := range ds.Games[TableTourneyDetailed] {
		assert.False(t, g.Tournament)
	}
}

func TestProcessDatasetMissingPair(t *testing.T) {
	ds := NewDataset()
	ds.Games[TableRegularSeasonDetailed] = []*GameRecord{
		testGame(2024, 10, 1, 2, 70, 60),
	}

	_, err := ProcessDataset(ds, pipelineConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "combined")
}

func TestProcessDatasetUnknownSystem(t *testing.T) {
	cfg := pipelineConfig()
	cfg.RankingSystems = []string{"NOPE"}

	_, err := ProcessDataset(pipelineFixture(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
}

func TestProcessDatasetNoRankings(t *testing.T) {
	ds := pipelineFixture()
	ds.Rankings = nil

	rows, err := ProcessDataset(ds, pipelineConfig())
	require.NoError(t, err, "A dataset without ordinals still processes")
	for _, row := range rows {
		assert.Nil(t, row.A.Rank)
		assert.Nil(t, row.B.Rank)
	}
}
