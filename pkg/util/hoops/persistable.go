package hoops

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/richard-senior/hoops/internal/logger"
	_ "modernc.org/sqlite"
)

var db *sql.DB

// Persistable interface defines methods that persistent objects must implement
type Persistable interface {
	GetTableName() string
	GetPrimaryKey() map[string]interface{}
	BeforeSave() error
	AfterSave() error
}

// InitDatabase opens the database at the given path, replacing any open
// connection, and creates the tables. Tests pass ":memory:"
func InitDatabase(path string) error {
	if db != nil {
		if err := CloseDatabase(); err != nil {
			logger.Warn("Failed to close previous database connection", err)
		}
	}

	if err := ensureDatabaseDir(path); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}

	var err error
	db, err = sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return createTables()
}

// ensureDatabaseDir creates the directory holding the database file so a
// fresh install can open it. In memory databases need no directory
func ensureDatabaseDir(path string) error {
	if path == ":memory:" || strings.Contains(path, "mode=memory") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0755)
}

// CloseDatabase closes the database connection
func CloseDatabase() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// GetDB returns the database connection, opening it on first use
func GetDB() (*sql.DB, error) {
	if db == nil {
		if err := ensureDatabaseDir(Config.HoopsDbPath); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}

		var err error
		db, err = sql.Open("sqlite", Config.HoopsDbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		// Test the connection
		if err = db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}

		logger.Info("Database initialized successfully", Config.HoopsDbPath)
	}
	return db, nil
}

// createTables creates all necessary database tables
func createTables() error {
	logger.Info("Creating database tables")

	if err := CreateTable(&ProcessedSet{}); err != nil {
		return fmt.Errorf("failed to create processed set table: %w", err)
	}

	if err := CreateTable(&FeatureRow{}); err != nil {
		return fmt.Errorf("failed to create feature row table: %w", err)
	}

	logger.Info("Database tables created successfully")
	return nil
}

// fieldColumn is one flattened database column of a persistable struct.
// Nested structs carrying a prefix tag contribute their own columns with
// the prefix prepended, so both sides of a feature row land in one table
type fieldColumn struct {
	column  string
	dbType  string
	primary bool
	index   bool
	value   reflect.Value
}

// walkColumns flattens a struct value into its database columns, descending
// into nested structs tagged with a prefix
func walkColumns(objValue reflect.Value, prefix string, out *[]fieldColumn) {
	objType := objValue.Type()
	for i := 0; i < objType.NumField(); i++ {
		field := objType.Field(i)
		fieldValue := objValue.Field(i)

		if !field.IsExported() {
			continue
		}
		if field.Tag.Get("persist") == "false" || field.Tag.Get("db") == "-" {
			continue
		}

		if p, ok := field.Tag.Lookup("prefix"); ok && field.Type.Kind() == reflect.Struct {
			walkColumns(fieldValue, prefix+p, out)
			continue
		}

		dbType := field.Tag.Get("dbtype")
		if dbType == "" {
			continue
		}

		columnName := field.Tag.Get("column")
		if columnName == "" {
			columnName = strings.ToLower(field.Name)
		}

		*out = append(*out, fieldColumn{
			column:  prefix + columnName,
			dbType:  dbType,
			primary: field.Tag.Get("primary") == "true",
			index:   field.Tag.Get("index") != "",
			value:   fieldValue,
		})
	}
}

// columnsOf flattens a persistable into its column list
func columnsOf(obj interface{}) []fieldColumn {
	objValue := reflect.ValueOf(obj)
	if objValue.Kind() == reflect.Ptr {
		objValue = objValue.Elem()
	}
	var out []fieldColumn
	walkColumns(objValue, "", &out)
	return out
}

// CreateTable creates a table for the given persistable object using struct tags
func CreateTable(obj Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	createSQL := generateCreateTableSQL(obj, tableName)

	logger.Debug("Creating table with SQL", createSQL)

	_, err = d.Exec(createSQL)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}

	// Create indexes
	for _, query := range generateIndexSQL(obj, tableName) {
		logger.Debug("Creating index with SQL", query)
		if _, err := d.Exec(query); err != nil {
			logger.Warn("Failed to create index", err)
		}
	}

	return nil
}

// generateCreateTableSQL generates CREATE TABLE SQL from struct tags
func generateCreateTableSQL(obj interface{}, tableName string) string {
	var columns []string
	var primaryKeys []string

	for _, fc := range columnsOf(obj) {
		dbType := fc.dbType
		if fc.primary {
			primaryKeys = append(primaryKeys, fc.column)
			dbType = strings.TrimSpace(strings.ReplaceAll(dbType, "PRIMARY KEY", ""))
		}
		columns = append(columns, fmt.Sprintf("%s %s", fc.column, dbType))
	}

	if len(primaryKeys) > 0 {
		columns = append(columns, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", tableName, strings.Join(columns, ", "))
}

// generateIndexSQL generates index creation SQL from struct tags
func generateIndexSQL(obj interface{}, tableName string) []string {
	var indexSQL []string
	for _, fc := range columnsOf(obj) {
		if !fc.index {
			continue
		}
		indexName := fmt.Sprintf("idx_%s_%s", tableName, fc.column)
		query := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, fc.column)
		indexSQL = append(indexSQL, query)
	}
	return indexSQL
}

// bindValue converts a field value to a driver argument. NaN floats are
// stored as NULL, nil pointer scalars bind as NULL via database/sql
func bindValue(v reflect.Value) interface{} {
	if v.Kind() == reflect.Float64 && math.IsNaN(v.Float()) {
		return nil
	}
	return v.Interface()
}

// getInsertData extracts column names, placeholders, and values for INSERT
func getInsertData(obj interface{}) ([]string, []string, []interface{}) {
	var columns []string
	var placeholders []string
	var values []interface{}

	for _, fc := range columnsOf(obj) {
		columns = append(columns, fc.column)
		placeholders = append(placeholders, "?")
		values = append(values, bindValue(fc.value))
	}

	return columns, placeholders, values
}

// getSelectData extracts column names, scan destinations and post scan
// fixups for SELECT. Float columns scan through a null proxy so a NULL
// cell comes back as NaN instead of a scan error. Pointer scalar fields
// scan directly, database/sql leaves them nil on NULL
func getSelectData(obj interface{}) ([]string, []interface{}, []func()) {
	var columns []string
	var destinations []interface{}
	var fixups []func()

	for _, fc := range columnsOf(obj) {
		columns = append(columns, fc.column)
		if fc.value.Kind() == reflect.Float64 {
			proxy := &sql.NullFloat64{}
			target := fc.value
			destinations = append(destinations, proxy)
			fixups = append(fixups, func() {
				if proxy.Valid {
					target.SetFloat(proxy.Float64)
				} else {
					target.SetFloat(math.NaN())
				}
			})
		} else {
			destinations = append(destinations, fc.value.Addr().Interface())
		}
	}

	return columns, destinations, fixups
}

// Save persists the object to the database, replacing any row sharing its
// primary key
func Save(obj Persistable) error {
	if err := obj.BeforeSave(); err != nil {
		return fmt.Errorf("before save hook failed: %w", err)
	}

	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	columns, placeholders, values := getInsertData(obj)

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	logger.Debug("Save SQL", query)

	_, err = d.Exec(query, values...)
	if err != nil {
		return fmt.Errorf("failed to save into %s: %w", tableName, err)
	}

	if err := obj.AfterSave(); err != nil {
		return fmt.Errorf("after save hook failed: %w", err)
	}

	return nil
}

// BulkSave saves multiple objects of one table in a single transaction with
// one prepared statement
func BulkSave(objects []Persistable) error {
	if len(objects) == 0 {
		return nil
	}

	d, err := GetDB()
	if err != nil {
		return err
	}

	tx, err := d.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	tableName := objects[0].GetTableName()
	columns, placeholders, _ := getInsertData(objects[0])
	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tableName, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare bulk save: %w", err)
	}
	defer stmt.Close()

	for _, obj := range objects {
		if err := obj.BeforeSave(); err != nil {
			return fmt.Errorf("before save hook failed: %w", err)
		}
		_, _, values := getInsertData(obj)
		if _, err := stmt.Exec(values...); err != nil {
			return fmt.Errorf("failed to save into %s: %w", tableName, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Exists checks if the object exists in the database
func Exists(obj Persistable) (bool, error) {
	d, err := GetDB()
	if err != nil {
		return false, err
	}

	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", tableName, whereClause)

	var count int
	err = d.QueryRow(query, values...).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", tableName, err)
	}

	return count > 0, nil
}

// Delete removes the object from the database
func Delete(obj Persistable) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	whereClause, values := buildWhereClause(obj.GetPrimaryKey())

	query := fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, whereClause)

	_, err = d.Exec(query, values...)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}

	return nil
}

// DeleteWhere removes all rows matching a custom WHERE clause
func DeleteWhere(obj Persistable, whereClause string, args ...interface{}) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	query := fmt.Sprintf("DELETE FROM %s WHERE %s", tableName, whereClause)

	_, err = d.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", tableName, err)
	}
	return nil
}

// FindByPrimaryKey retrieves a single record into obj by its primary key
func FindByPrimaryKey(obj Persistable, primaryKey map[string]interface{}) error {
	d, err := GetDB()
	if err != nil {
		return err
	}

	tableName := obj.GetTableName()
	columns, destinations, fixups := getSelectData(obj)
	whereClause, values := buildWhereClause(primaryKey)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), tableName, whereClause)

	logger.Debug("FindByPrimaryKey SQL", query)

	row := d.QueryRow(query, values...)
	err = row.Scan(destinations...)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("record not found in %s", tableName)
		}
		return fmt.Errorf("failed to scan row from %s: %w", tableName, err)
	}
	for _, fix := range fixups {
		fix()
	}

	return nil
}

// FindWhere executes a custom WHERE query, returning new instances of the
// given persistable's type
func FindWhere(obj Persistable, whereClause string, args ...interface{}) ([]interface{}, error) {
	d, err := GetDB()
	if err != nil {
		return nil, err
	}

	tableName := obj.GetTableName()
	columns, _, _ := getSelectData(obj)

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s", strings.Join(columns, ", "), tableName, whereClause)

	logger.Debug("FindWhere SQL", query)

	rows, err := d.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", tableName, err)
	}
	defer rows.Close()

	var results []interface{}
	objType := reflect.TypeOf(obj)
	if objType.Kind() == reflect.Ptr {
		objType = objType.Elem()
	}

	for rows.Next() {
		newObj := reflect.New(objType).Interface()
		_, destinations, fixups := getSelectData(newObj)

		if err := rows.Scan(destinations...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", tableName, err)
		}
		for _, fix := range fixups {
			fix()
		}

		results = append(results, newObj)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", tableName, err)
	}

	return results, nil
}

// buildWhereClause builds a WHERE clause from a primary key map
func buildWhereClause(primaryKey map[string]interface{}) (string, []interface{}) {
	var conditions []string
	var values []interface{}

	for column, value := range primaryKey {
		conditions = append(conditions, fmt.Sprintf("%s = ?", column))
		values = append(values, value)
	}

	return strings.Join(conditions, " AND "), values
}
