package recon

import (
	"path/filepath"
	"testing"

	sqlx "github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = []string{
	`CREATE TABLE ModuleGeometry (
		ModuleID INTEGER, Sector INTEGER, GridRow INTEGER, GridCol INTEGER,
		X REAL, Y REAL, SizeX REAL, SizeY REAL, Type TEXT,
		MinRun INTEGER, MaxRun INTEGER)`,
	`CREATE TABLE DeadModules (ModuleID INTEGER, MinRun INTEGER, MaxRun INTEGER)`,
	`CREATE TABLE NonLinearity (ModuleID INTEGER, Factor REAL, CalibEnergy REAL, MinRun INTEGER, MaxRun INTEGER)`,
}

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := ConnectToDatabase("sqlite", "", "", "", "", filepath.Join(t.TempDir(), "calib.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	for _, stmt := range testSchema {
		db.MustExec(stmt)
	}
	insert := "INSERT INTO ModuleGeometry VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
	db.MustExec(insert, 1001, 0, 0, 0, -1.01, 0.0, 2.02, 2.02, "crystal", 1000, 2000)
	db.MustExec(insert, 1002, 0, 0, 1, 1.01, 0.0, 2.02, 2.02, "crystal", 1000, 2000)
	db.MustExec(insert, 1, 1, 0, 0, -3.9175, 0.0, 3.815, 3.815, "glass", 1000, 2000)
	// superseded layout
	db.MustExec(insert, 1003, 0, 0, 2, 3.03, 0.0, 2.02, 2.02, "crystal", 1, 999)
	db.MustExec("INSERT INTO DeadModules VALUES (?, ?, ?)", 1002, 1000, 2000)
	db.MustExec("INSERT INTO DeadModules VALUES (?, ?, ?)", 1001, 1, 999)
	db.MustExec("INSERT INTO NonLinearity VALUES (?, ?, ?, ?, ?)", 1001, 0.05, 1100.0, 1000, 2000)
	return db
}

func TestLoadGeometryFromDB(t *testing.T) {
	db := testDB(t)

	geo, err := LoadGeometryFromDB(db, 1500)

	require.NoError(t, err)
	modules := geo.Modules()
	require.Len(t, modules, 3)
	assert.Equal(t, []int{1, 1001, 1002}, []int{modules[0].ID, modules[1].ID, modules[2].ID})
	assert.Equal(t, LeadGlass, modules[0].Type)
	assert.Equal(t, 1, modules[0].Sector)

	m, ok := geo.Module(1002)
	require.True(t, ok)
	assert.Equal(t, Dead, m.Status)
	assert.Equal(t, 1, m.Col)
	m, _ = geo.Module(1001)
	assert.Equal(t, Alive, m.Status)

	assert.Equal(t, CalibConst{ModuleID: 1001, NonLinearFactor: 0.05, CalibEnergy: 1100}, geo.Calib(1001))
	assert.Equal(t, 0., geo.Calib(1002).NonLinearFactor)
}

func TestLoadGeometryFromDBUnknownRun(t *testing.T) {
	db := testDB(t)

	_, err := LoadGeometryFromDB(db, 5000)

	var geoErr *ErrGeometry
	assert.ErrorAs(t, err, &geoErr)
}

func TestConnectToDatabaseUnknownDriver(t *testing.T) {
	_, err := ConnectToDatabase("postgres", "u", "p", "h", "d", "")

	var invalid *ErrInvalidOption
	assert.ErrorAs(t, err, &invalid)
}
