package sdexport

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	sqlx "github.com/jmoiron/sqlx" //make alias name the package to sqlx
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const moduleDatabase = "database"

// ConnectToDatabase opens the station database. Supported drivers are
// mysql, postgres and sqlite (DBName is then the database file).
func ConnectToDatabase(config Configuration) (*sqlx.DB, error) {
	var dbURI string
	switch config.DBDriver {
	case "mysql", "":
		port := config.Port
		if port == "" {
			port = "3306"
		}
		dbURI = fmt.Sprintf("%s:%s@(%s:%s)/%s?parseTime=true", config.User, config.Passwd, config.Host, port, config.DBName)
		return sqlx.Connect("mysql", dbURI)
	case "postgres":
		port := config.Port
		if port == "" {
			port = "5432"
		}
		dbURI = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			config.Host, port, config.User, config.Passwd, config.DBName)
		return sqlx.Connect("postgres", dbURI)
	case "sqlite":
		db, err := sqlx.Connect("sqlite", config.DBName)
		if err != nil {
			return nil, err
		}
		// a single connection keeps in-memory databases alive
		db.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", config.DBDriver)
	}
}

type LegacyStationEntry struct {
	StationID int `db:"StationID"`
}

type UUBStationEntry struct {
	StationID    int `db:"StationID"`
	FirstGPS     int `db:"FirstGPS"`
	FirstEventID int `db:"FirstEventID"`
}

// LoadLegacyStations returns the legacy stations valid at the given GPS
// second, ordered by id.
func LoadLegacyStations(db *sqlx.DB, gpsSecond uint32, verbosity int) ([]uint32, error) {
	query := db.Rebind("SELECT StationID FROM LegacyStations WHERE MinGPS <= ? AND MaxGPS >= ? ORDER BY StationID")
	if verbosity > 0 {
		logger.Info("Legacy stations read from DB", moduleDatabase)
	}
	if verbosity > 2 {
		logger.Info(fmt.Sprintf("Query: %s", query), moduleDatabase)
	}

	rows, err := db.Queryx(query, int64(gpsSecond), int64(gpsSecond))
	if err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	defer rows.Close()

	stations := make([]uint32, 0)
	for rows.Next() {
		result := LegacyStationEntry{}
		if err := rows.StructScan(&result); err != nil {
			return nil, fmt.Errorf("error scanning DB row: %w", err)
		}
		stations = append(stations, uint32(result.StationID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading DB rows: %w", err)
	}
	return stations, nil
}

const uubStationsSchema = `CREATE TABLE IF NOT EXISTS UUBStations (
	StationID INTEGER NOT NULL,
	FirstGPS INTEGER NOT NULL,
	FirstEventID INTEGER NOT NULL
)`

func EnsureStationSchema(db *sqlx.DB) error {
	if _, err := db.Exec(uubStationsSchema); err != nil {
		return fmt.Errorf("error creating UUBStations table: %w", err)
	}
	return nil
}

// RecordUUBStations stores the UUB stations found in a run, labelled with
// the first event of the run.
func RecordUUBStations(db *sqlx.DB, firstGPS uint32, firstEventID uint32, stations []uint32) error {
	tx, err := db.Beginx()
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	query := "INSERT INTO UUBStations (StationID, FirstGPS, FirstEventID) VALUES (:StationID, :FirstGPS, :FirstEventID)"
	for _, id := range stations {
		entry := UUBStationEntry{StationID: int(id), FirstGPS: int(firstGPS), FirstEventID: int(firstEventID)}
		if _, err := tx.NamedExec(query, entry); err != nil {
			tx.Rollback()
			return fmt.Errorf("error inserting UUB station %d: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing UUB stations: %w", err)
	}
	return nil
}

func LoadUUBStations(db *sqlx.DB, firstGPS uint32, firstEventID uint32) ([]UUBStationEntry, error) {
	var entries []UUBStationEntry
	query := db.Rebind("SELECT StationID, FirstGPS, FirstEventID FROM UUBStations WHERE FirstGPS = ? AND FirstEventID = ? ORDER BY StationID")
	if err := db.Select(&entries, query, int64(firstGPS), int64(firstEventID)); err != nil {
		return nil, fmt.Errorf("error querying database: %w", err)
	}
	return entries, nil
}
