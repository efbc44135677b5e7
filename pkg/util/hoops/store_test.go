package hoops

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeFixtureRow() *FeatureRow {
	rank := 3.5
	return &FeatureRow{
		Season:     2024,
		DayNum:     10,
		Detailed:   true,
		Tournament: false,
		TeamAWins:  true,
		A: SideFeatures{
			TeamID: 1,
			Loc:    "H",
			Rank:   &rank,
			Line:   TeamLine{Score: 70, FGM: 25, FGA: 60},
			Roll:   RollingLine{Score: 68.5, FGM: 24, FGPct: 0.42},
		},
		B: SideFeatures{
			TeamID: 2,
			Loc:    "A",
			Line:   TeamLine{Score: 60},
			Roll:   RollingLine{Score: 61, FGM: math.NaN(), FGPct: math.NaN()},
		},
	}
}

func storeTourneyRow() *FeatureRow {
	rankA, rankB := 1.0, 16.0
	seedA, seedB := "01", "16a"
	round := 1
	conference := "W"
	return &FeatureRow{
		Season:     2024,
		DayNum:     136,
		Detailed:   true,
		Tournament: true,
		Round:      &round,
		Conference: &conference,
		TeamAWins:  false,
		A: SideFeatures{
			TeamID: 3,
			Loc:    "N",
			Rank:   &rankA,
			Seed:   &seedA,
			Line:   TeamLine{Score: 55},
			Roll:   RollingLine{Score: 70},
		},
		B: SideFeatures{
			TeamID: 4,
			Loc:    "N",
			Rank:   &rankB,
			Seed:   &seedB,
			Line:   TeamLine{Score: 61},
			Roll:   RollingLine{Score: 64},
		},
	}
}

func TestProcessedSetRoundTrip(t *testing.T) {
	t.Log("Setting up in-memory database...")
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	t.Log("Saving a regular season and a tournament row...")
	cfg := pipelineConfig()
	require.NoError(t, SaveProcessedSet(cfg, []*FeatureRow{storeFixtureRow(), storeTourneyRow()}))

	t.Log("Loading them back by set key...")
	rows, err := LoadProcessedSet(cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[0]
	assert.Equal(t, 2024, row.Season)
	assert.Equal(t, 10, row.DayNum)
	assert.True(t, row.TeamAWins)
	assert.True(t, row.Detailed)

	assert.Equal(t, 1, row.A.TeamID)
	assert.Equal(t, "H", row.A.Loc)
	require.NotNil(t, row.A.Rank, "A present ranking survives the round trip")
	assert.Equal(t, 3.5, *row.A.Rank)
	assert.Equal(t, 70, row.A.Line.Score)
	assert.InDelta(t, 0.42, row.A.Roll.FGPct, 1e-9)

	assert.Nil(t, row.B.Rank, "A null ranking stays null")
	assert.Nil(t, row.Round, "A null round stays null")
	assert.Nil(t, row.Conference)
	assert.True(t, math.IsNaN(row.B.Roll.FGM), "NaN rolled stats survive as NaN")

	t.Log("Checking the tournament row keeps its bracket context...")
	tourney := rows[1]
	assert.Equal(t, 136, tourney.DayNum)
	assert.True(t, tourney.Tournament)
	require.NotNil(t, tourney.Round, "A present round survives the round trip")
	assert.Equal(t, 1, *tourney.Round)
	require.NotNil(t, tourney.Conference)
	assert.Equal(t, "W", *tourney.Conference)
	require.NotNil(t, tourney.A.Seed)
	assert.Equal(t, "01", *tourney.A.Seed)
	require.NotNil(t, tourney.B.Seed)
	assert.Equal(t, "16a", *tourney.B.Seed)
	require.NotNil(t, tourney.B.Rank)
	assert.Equal(t, 16.0, *tourney.B.Rank)
	assert.False(t, tourney.TeamAWins)
}

func TestInitDatabaseCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets", "hoops.db")
	require.NoError(t, InitDatabase(path), "A missing parent directory is created on open")
	defer CloseDatabase()

	cfg := pipelineConfig()
	require.NoError(t, SaveProcessedSet(cfg, []*FeatureRow{storeFixtureRow()}))

	rows, err := LoadProcessedSet(cfg)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLoadProcessedSetMiss(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	rows, err := LoadProcessedSet(pipelineConfig())
	require.NoError(t, err)
	assert.Nil(t, rows, "An uncached configuration loads nothing without error")
}

func TestSaveProcessedSetReplaces(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	cfg := pipelineConfig()
	require.NoError(t, SaveProcessedSet(cfg, []*FeatureRow{storeFixtureRow()}))

	// Saving again with one different row must replace, not append
	replacement := storeFixtureRow()
	replacement.DayNum = 99
	require.NoError(t, SaveProcessedSet(cfg, []*FeatureRow{replacement}))

	rows, err := LoadProcessedSet(cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 99, rows[0].DayNum)
}

func TestProcessedSetsAreIsolatedByKey(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	cfg := pipelineConfig()
	require.NoError(t, SaveProcessedSet(cfg, []*FeatureRow{storeFixtureRow()}))

	other := pipelineConfig()
	other.WindowSize = 10
	rows, err := LoadProcessedSet(other)
	require.NoError(t, err)
	assert.Nil(t, rows, "A different window size is a different cached set")
}

func TestExportFilename(t *testing.T) {
	cfg := pipelineConfig()
	assert.Equal(t, "MProcessedTourneyData_2024_POM_3.csv", ExportFilename(cfg))

	cfg.Womens = true
	cfg.RankingSystems = nil
	assert.Equal(t, "WProcessedTourneyData_2024_MEDIAN_3.csv", ExportFilename(cfg))
}

func TestExportCSV(t *testing.T) {
	cfg := pipelineConfig()
	cfg.ProcessedPath = t.TempDir()

	path, err := ExportCSV(cfg, []*FeatureRow{storeFixtureRow()})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.ProcessedPath, ExportFilename(cfg)), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "Header plus one row")
	assert.Contains(t, lines[0], "a_team_id")
	assert.Contains(t, lines[0], "b_roll_fg_pct")
	assert.Contains(t, lines[0], "team_a_wins")

	// NaN and null cells export empty
	header := strings.Split(lines[0], ",")
	cells := strings.Split(lines[1], ",")
	require.Equal(t, len(header), len(cells))
	for i, name := range header {
		switch name {
		case "b_roll_fgm", "round", "conference", "b_rank":
			assert.Empty(t, cells[i], "Column %s should export empty", name)
		case "a_rank":
			assert.Equal(t, "3.5", cells[i])
		}
	}
}
