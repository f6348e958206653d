package recon

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ConnectToDatabase opens the calibration database. The mysql driver uses
// the server settings, sqlite the file path.
func ConnectToDatabase(driver, user, pass, host, dbname, path string) (*sqlx.DB, error) {
	switch driver {
	case "mysql", "":
		port := "3306"
		dbURI := fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", user, pass, host, port, dbname)
		return sqlx.Connect("mysql", dbURI)
	case "sqlite":
		return sqlx.Connect("sqlite", path)
	}
	return nil, &ErrInvalidOption{Name: "db_driver", Value: driver}
}

type moduleRow struct {
	ModuleID int     `db:"ModuleID"`
	Sector   int     `db:"Sector"`
	GridRow  int     `db:"GridRow"`
	GridCol  int     `db:"GridCol"`
	X        float64 `db:"X"`
	Y        float64 `db:"Y"`
	SizeX    float64 `db:"SizeX"`
	SizeY    float64 `db:"SizeY"`
	Type     string  `db:"Type"`
}

type calibRow struct {
	ModuleID    int     `db:"ModuleID"`
	Factor      float64 `db:"Factor"`
	CalibEnergy float64 `db:"CalibEnergy"`
}

// LoadGeometryFromDB reads the module layout, dead modules and
// non-linearity constants valid for a run.
func LoadGeometryFromDB(db *sqlx.DB, runNumber int) (*Geometry, error) {
	modules, err := getModulesFromDB(db, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error getting module geometry from database: %w", err)
	}
	dead, err := getDeadModulesFromDB(db, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error getting dead modules from database: %w", err)
	}
	consts, err := getCalibrationFromDB(db, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error getting non-linearity constants from database: %w", err)
	}

	for i := range modules {
		if dead[modules[i].ID] {
			modules[i].Status = Dead
		}
	}
	return NewGeometry(modules, consts)
}

func runQuery(db *sqlx.DB, query string, runNumber int, what string) (*sqlx.Rows, error) {
	if verbosity > 0 {
		logger.Info(fmt.Sprintf("Reading %s from database", what), "database")
	}
	if verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s (run %d)", query, runNumber), "database")
	}
	rows, err := db.Queryx(query, runNumber, runNumber)
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	return rows, nil
}

func getModulesFromDB(db *sqlx.DB, runNumber int) ([]Module, error) {
	query := "SELECT ModuleID, Sector, GridRow, GridCol, X, Y, SizeX, SizeY, Type FROM ModuleGeometry WHERE MinRun <= ? and MaxRun >= ? ORDER BY ModuleID"
	rows, err := runQuery(db, query, runNumber, "module geometry")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var modules []Module
	for rows.Next() {
		var r moduleRow
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		t, err := ParseModuleType(r.Type)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", r.ModuleID, err)
		}
		modules = append(modules, Module{
			ID:     r.ModuleID,
			Sector: r.Sector,
			Row:    r.GridRow,
			Col:    r.GridCol,
			X:      r.X,
			Y:      r.Y,
			SizeX:  r.SizeX,
			SizeY:  r.SizeY,
			Type:   t,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(modules) == 0 {
		return nil, &ErrGeometry{Reason: fmt.Sprintf("no modules for run %d", runNumber)}
	}
	return modules, nil
}

func getDeadModulesFromDB(db *sqlx.DB, runNumber int) (map[int]bool, error) {
	query := "SELECT ModuleID FROM DeadModules WHERE MinRun <= ? and MaxRun >= ?"
	rows, err := runQuery(db, query, runNumber, "dead modules")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dead := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		dead[id] = true
	}
	return dead, rows.Err()
}

func getCalibrationFromDB(db *sqlx.DB, runNumber int) ([]CalibConst, error) {
	query := "SELECT ModuleID, Factor, CalibEnergy FROM NonLinearity WHERE MinRun <= ? and MaxRun >= ? ORDER BY ModuleID"
	rows, err := runQuery(db, query, runNumber, "non-linearity constants")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consts []CalibConst
	for rows.Next() {
		var r calibRow
		if err := rows.StructScan(&r); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		consts = append(consts, CalibConst{ModuleID: r.ModuleID, NonLinearFactor: r.Factor, CalibEnergy: r.CalibEnergy})
	}
	return consts, rows.Err()
}
