// Package datastore persists detections and serves the aggregation
// queries behind the HTTP API. All writes go through a single goroutine;
// reads may come from any number of API handlers.
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/magpi/listener/internal/conf"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error
	Save(detection *Detection) error
	GetDetections(limit, offset int, species string) ([]Detection, error)
	GetStats(days int) (Stats, error)
	GetSpeciesCounts(days int) ([]SpeciesCount, error)
	GetHourlyHeatmap(days int) ([]HourlyCount, error)
	GetDailyTrends(days int) ([]DailyTrend, error)
	LastSeenBySpecies() (map[string]time.Time, error)
}

// DataStore implements Interface on top of a GORM database.
type DataStore struct {
	DB *gorm.DB
}

// New creates a store for the configured database path.
func New(settings *conf.Settings) Interface {
	return &SQLiteStore{Settings: settings}
}

// Save inserts a new detection record.
func (ds *DataStore) Save(detection *Detection) error {
	if err := ds.DB.Create(detection).Error; err != nil {
		return fmt.Errorf("saving detection: %w", err)
	}
	return nil
}

// GetDetections returns recent detections, newest first, optionally
// filtered to a single species.
func (ds *DataStore) GetDetections(limit, offset int, species string) ([]Detection, error) {
	query := ds.DB.Order("time DESC").Limit(limit).Offset(offset)
	if species != "" {
		query = query.Where("species = ?", species)
	}

	var detections []Detection
	if err := query.Find(&detections).Error; err != nil {
		return nil, fmt.Errorf("getting detections: %w", err)
	}
	return detections, nil
}

// LastSeenBySpecies returns the most recent detection time per species,
// used to prime the duplicate filter at startup.
func (ds *DataStore) LastSeenBySpecies() (map[string]time.Time, error) {
	// MAX(time) loses the column's datetime affinity, so the driver hands
	// the value back as text
	var rows []struct {
		Species  string
		LastSeen string
	}
	err := ds.DB.Model(&Detection{}).
		Select("species, MAX(time) AS last_seen").
		Group("species").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("getting last seen per species: %w", err)
	}

	lastSeen := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		ts, err := parseStoredTime(row.LastSeen)
		if err != nil {
			return nil, fmt.Errorf("parsing last seen time for %s: %w", row.Species, err)
		}
		lastSeen[row.Species] = ts
	}
	return lastSeen, nil
}

// storedTimeLayouts are the timestamp formats the SQLite driver writes.
var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// periodStart returns the cutoff timestamp for a trailing period of days.
func periodStart(days int) time.Time {
	return time.Now().AddDate(0, 0, -days)
}
