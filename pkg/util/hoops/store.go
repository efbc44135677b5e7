package hoops

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/richard-senior/hoops/internal/logger"
	"github.com/richard-senior/hoops/pkg/util"
)

// ProcessedSet records one cached pipeline output in the database, keyed by
// the inputs that shape it: the season year, the gender, the ranking system
// label and the rolling window size. Its rows live in the ProcessedFeatures
// table under the same set id
type ProcessedSet struct {
	SetID      string `json:"setId" column:"set_id" dbtype:"TEXT NOT NULL" primary:"true"`
	Year       int    `json:"year" column:"year" dbtype:"INTEGER NOT NULL"`
	Gender     string `json:"gender" column:"gender" dbtype:"TEXT NOT NULL"`
	SystemName string `json:"systemName" column:"system_name" dbtype:"TEXT NOT NULL"`
	WindowSize int    `json:"windowSize" column:"window_size" dbtype:"INTEGER NOT NULL"`
	RowCount   int    `json:"rowCount" column:"row_count" dbtype:"INTEGER DEFAULT 0"`
	CreatedAt  string `json:"createdAt" column:"created_at" dbtype:"TEXT"`
}

var _ Persistable = (*ProcessedSet)(nil)

func (p *ProcessedSet) GetTableName() string {
	return "ProcessedSets"
}

func (p *ProcessedSet) GetPrimaryKey() map[string]interface{} {
	return map[string]interface{}{"set_id": p.SetID}
}

func (p *ProcessedSet) BeforeSave() error {
	if p.CreatedAt == "" {
		p.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return nil
}

func (p *ProcessedSet) AfterSave() error {
	return nil
}

// SetKey derives the cache key for a configuration
func SetKey(cfg *HoopsConfig) string {
	return fmt.Sprintf("%s-%d-%s-%d", cfg.GenderPrefix(), cfg.Year, cfg.SystemLabel(), cfg.WindowSize)
}

// NewProcessedSet builds the metadata record for a configuration
func NewProcessedSet(cfg *HoopsConfig, rowCount int) *ProcessedSet {
	return &ProcessedSet{
		SetID:      SetKey(cfg),
		Year:       cfg.Year,
		Gender:     cfg.GenderPrefix(),
		SystemName: cfg.SystemLabel(),
		WindowSize: cfg.WindowSize,
		RowCount:   rowCount,
	}
}

/////////////////////////////////////////////////////////////////////////
////// Processed set persistence
/////////////////////////////////////////////////////////////////////////

// SaveProcessedSet replaces the cached rows for the configuration's set key
// and records the set metadata
func SaveProcessedSet(cfg *HoopsConfig, rows []*FeatureRow) error {
	if err := createTables(); err != nil {
		return err
	}

	setID := SetKey(cfg)
	if err := DeleteWhere(&FeatureRow{}, "set_id = ?", setID); err != nil {
		return err
	}

	persistables := make([]Persistable, 0, len(rows))
	for _, row := range rows {
		row.SetID = setID
		persistables = append(persistables, row)
	}
	if err := BulkSave(persistables); err != nil {
		return fmt.Errorf("failed to save feature rows: %w", err)
	}

	if err := Save(NewProcessedSet(cfg, len(rows))); err != nil {
		return fmt.Errorf("failed to save set metadata: %w", err)
	}
	logger.Info("Cached", len(rows), "feature rows under set", setID)
	return nil
}

// LoadProcessedSet returns the cached rows for the configuration's set key,
// nil without error when nothing has been cached yet
func LoadProcessedSet(cfg *HoopsConfig) ([]*FeatureRow, error) {
	if err := createTables(); err != nil {
		return nil, err
	}

	setID := SetKey(cfg)
	meta := &ProcessedSet{SetID: setID}
	found, err := Exists(meta)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	results, err := FindWhere(&FeatureRow{}, "set_id = ? ORDER BY season, day_num", setID)
	if err != nil {
		return nil, err
	}

	rows := make([]*FeatureRow, 0, len(results))
	for _, r := range results {
		row, ok := r.(*FeatureRow)
		if !ok {
			return nil, fmt.Errorf("unexpected row type %T", r)
		}
		rows = append(rows, row)
	}
	logger.Info("Loaded", len(rows), "cached feature rows for set", setID)
	return rows, nil
}

// GetProcessedDataset is the main entry point: it returns the training rows
// for the configuration, from the cache when present, otherwise by loading
// the raw csv files, running the pipeline and caching the result. Force
// skips the cache read and recomputes
func GetProcessedDataset(cfg *HoopsConfig, force bool) ([]*FeatureRow, error) {
	if cfg == nil {
		cfg = Config
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	if !force {
		rows, err := LoadProcessedSet(cfg)
		if err != nil {
			logger.Warn("Failed to read processed cache, recomputing", err)
		} else if rows != nil {
			return rows, nil
		}
	}

	d := GetDatasourceInstance()
	ds, err := d.LoadRawDataset(cfg)
	if err != nil {
		return nil, err
	}

	// No ordinals file in the raw directory: fall back to scraping the
	// composite rankings page, labelled so the configured selector finds it
	if len(ds.Rankings) == 0 && cfg.OrdinalsURL != "" && len(ds.Teams) > 0 && cfg.Year != 0 {
		ranks, err := d.FetchOrdinalRankings(cfg.Year, cfg.SystemLabel(), ds.Teams)
		if err != nil {
			logger.Warn("Ordinal rankings fallback failed", err)
		} else {
			ds.Rankings = ranks
		}
	}

	rows, err := ProcessDataset(ds, cfg)
	if err != nil {
		return nil, err
	}
	if err := SaveProcessedSet(cfg, rows); err != nil {
		logger.Warn("Failed to cache processed rows", err)
	}
	return rows, nil
}

/////////////////////////////////////////////////////////////////////////
////// CSV export
/////////////////////////////////////////////////////////////////////////

// ExportFilename is the conventional name for an exported set, for example
// MProcessedTourneyData_2024_MEDIAN_5.csv
func ExportFilename(cfg *HoopsConfig) string {
	return fmt.Sprintf("%sProcessedTourneyData_%d_%s_%d.csv",
		cfg.GenderPrefix(), cfg.Year, cfg.SystemLabel(), cfg.WindowSize)
}

// ExportCSV writes the rows to the processed directory under the
// conventional name and returns the full path. Null and NaN cells are
// written empty
func ExportCSV(cfg *HoopsConfig, rows []*FeatureRow) (string, error) {
	if err := os.MkdirAll(cfg.ProcessedPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create processed directory: %w", err)
	}
	path := filepath.Join(cfg.ProcessedPath, ExportFilename(cfg))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if len(rows) == 0 {
		return path, nil
	}

	var header []string
	for _, fc := range columnsOf(rows[0]) {
		header = append(header, fc.column)
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write header: %w", err)
	}

	for _, row := range rows {
		record := make([]string, 0, len(header))
		for _, fc := range columnsOf(row) {
			record = append(record, formatCell(fc.value))
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush export: %w", err)
	}
	logger.Info("Exported", len(rows), "rows to", path)
	return path, nil
}

// formatCell renders one flattened field as csv text
func formatCell(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) {
			return ""
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case reflect.Bool:
		if v.Bool() {
			return "1"
		}
		return "0"
	default:
		s, err := util.GetAsString(v.Interface())
		if err != nil {
			return ""
		}
		return s
	}
}
