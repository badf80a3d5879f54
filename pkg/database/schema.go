package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records/pkg/config"
	appErrors "github.com/noah-isme/student-records/pkg/errors"
)

const createStudentsTable = `CREATE TABLE IF NOT EXISTS students (
    id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    dob DATE NOT NULL,
    student_group TEXT NOT NULL DEFAULT ''
)`

const dropStudentsTable = `DROP TABLE IF EXISTS students`

// studentColumns is the schema the entity definitions expect, keyed by
// column name with the information_schema data type as value.
var studentColumns = map[string]string{
	"id":            "bigint",
	"name":          "text",
	"dob":           "date",
	"student_group": "text",
}

// columnDDL maps expected columns to the clause used when migrate mode adds
// them. Additive only; existing columns are never altered or dropped.
var columnDDL = map[string]string{
	"id":            "id BIGSERIAL PRIMARY KEY",
	"name":          "name TEXT NOT NULL DEFAULT ''",
	"dob":           "dob DATE NOT NULL DEFAULT CURRENT_DATE",
	"student_group": "student_group TEXT NOT NULL DEFAULT ''",
}

func applySchema(db *sqlx.DB, mode config.SchemaMode) error {
	switch mode {
	case config.SchemaRecreate, config.SchemaRecreatePersistent:
		if _, err := db.Exec(dropStudentsTable); err != nil {
			return appErrors.Wrap(err, appErrors.CodeConfiguration, "drop schema")
		}
		if _, err := db.Exec(createStudentsTable); err != nil {
			return appErrors.Wrap(err, appErrors.CodeConfiguration, "create schema")
		}
	case config.SchemaValidateOnly:
		return validateSchema(db)
	case config.SchemaMigrate:
		return migrateSchema(db)
	case config.SchemaNone:
	}
	return nil
}

func dropSchema(db *sqlx.DB) error {
	if _, err := db.Exec(dropStudentsTable); err != nil {
		return appErrors.Wrap(err, appErrors.CodeConfiguration, "drop schema")
	}
	return nil
}

type columnInfo struct {
	Name     string `db:"column_name"`
	DataType string `db:"data_type"`
}

func storedColumns(db *sqlx.DB) (map[string]string, error) {
	const query = `SELECT column_name, data_type FROM information_schema.columns WHERE table_name = 'students'`
	var cols []columnInfo
	if err := db.Select(&cols, query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.CodeConfiguration, "inspect schema")
	}
	stored := make(map[string]string, len(cols))
	for _, c := range cols {
		stored[c.Name] = c.DataType
	}
	return stored, nil
}

func validateSchema(db *sqlx.DB) error {
	stored, err := storedColumns(db)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return appErrors.New(appErrors.CodeConfiguration, "schema validation failed: students table missing")
	}
	for name, wantType := range studentColumns {
		gotType, ok := stored[name]
		if !ok {
			return appErrors.New(appErrors.CodeConfiguration, fmt.Sprintf("schema validation failed: column %s missing", name))
		}
		if gotType != wantType {
			return appErrors.New(appErrors.CodeConfiguration,
				fmt.Sprintf("schema validation failed: column %s is %s, want %s", name, gotType, wantType))
		}
	}
	return nil
}

func migrateSchema(db *sqlx.DB) error {
	if _, err := db.Exec(createStudentsTable); err != nil {
		return appErrors.Wrap(err, appErrors.CodeConfiguration, "create schema")
	}
	stored, err := storedColumns(db)
	if err != nil {
		return err
	}
	for _, name := range []string{"id", "name", "dob", "student_group"} {
		if _, ok := stored[name]; ok {
			continue
		}
		ddl := fmt.Sprintf("ALTER TABLE students ADD COLUMN %s", columnDDL[name])
		if _, err := db.Exec(ddl); err != nil {
			return appErrors.Wrap(err, appErrors.CodeConfiguration, fmt.Sprintf("add column %s", name))
		}
	}
	return nil
}
