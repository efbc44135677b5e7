package hoops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureRowColumnFlattening(t *testing.T) {
	columns := columnsOf(&FeatureRow{})

	names := make(map[string]bool, len(columns))
	for _, fc := range columns {
		assert.False(t, names[fc.column], "Column %s must be unique", fc.column)
		names[fc.column] = true
	}

	assert.True(t, names["set_id"])
	assert.True(t, names["a_team_id"], "Side structs flatten under their slot prefix")
	assert.True(t, names["b_team_id"])
	assert.True(t, names["a_score"], "The box line flattens without an extra prefix")
	assert.True(t, names["a_roll_score"], "The rolled line flattens under the roll prefix")
	assert.True(t, names["b_roll_fg_pct"])
	assert.True(t, names["team_a_wins"])
}

func TestGenerateCreateTableSQL(t *testing.T) {
	sql := generateCreateTableSQL(&FeatureRow{}, "ProcessedFeatures")

	assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS ProcessedFeatures")
	assert.Contains(t, sql, "a_roll_score REAL")
	assert.Contains(t, sql, "PRIMARY KEY (set_id, season, day_num, a_team_id, b_team_id)")
}

func TestBindValueNaN(t *testing.T) {
	_, _, values := getInsertData(storeFixtureRow())
	sawNil := false
	for _, v := range values {
		if v == nil {
			sawNil = true
		}
		if f, ok := v.(float64); ok {
			assert.False(t, math.IsNaN(f), "NaN must never reach the driver")
		}
	}
	assert.True(t, sawNil, "NaN columns bind as NULL")
}

func TestSaveAndFindWhere(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	row := storeFixtureRow()
	row.SetID = "test-set"
	require.NoError(t, Save(row))

	// Saving again with the same key replaces rather than duplicating
	row.NumOT = 2
	require.NoError(t, Save(row))

	results, err := FindWhere(&FeatureRow{}, "set_id = ?", "test-set")
	require.NoError(t, err)
	require.Len(t, results, 1)

	loaded, ok := results[0].(*FeatureRow)
	require.True(t, ok)
	assert.Equal(t, 2, loaded.NumOT)
	assert.Equal(t, row.A.TeamID, loaded.A.TeamID)

	exists, err := Exists(row)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, Delete(row))
	exists, err = Exists(row)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSaveRequiresSetID(t *testing.T) {
	require.NoError(t, InitDatabase(":memory:"))
	defer CloseDatabase()

	row := storeFixtureRow()
	row.SetID = ""
	assert.Error(t, Save(row), "The before save hook rejects rows without a set id")
}
