package datastore

import (
	"fmt"
)

// Stats summarizes detection activity over a trailing period.
type Stats struct {
	TotalDetections int64   `json:"total_detections"`
	UniqueSpecies   int64   `json:"unique_species"`
	AvgConfidence   float64 `json:"avg_confidence"`
	PeriodDays      int     `json:"period_days"`
}

// SpeciesCount is one row of the species ranking.
type SpeciesCount struct {
	Species       string  `json:"species"`
	Count         int64   `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
	LastSeen      string  `json:"last_seen"`
}

// HourlyCount is the average number of detections for one hour of the
// day across the period.
type HourlyCount struct {
	Hour  int     `json:"hour"`
	Count float64 `json:"count"`
}

// DailyTrend is detection activity for one calendar day.
type DailyTrend struct {
	Date          string `json:"date"`
	Count         int64  `json:"count"`
	UniqueSpecies int64  `json:"unique_species"`
}

// GetStats returns aggregate counts for the trailing period.
func (ds *DataStore) GetStats(days int) (Stats, error) {
	stats := Stats{PeriodDays: days}

	err := ds.DB.Model(&Detection{}).
		Select("COUNT(*) AS total_detections, COUNT(DISTINCT species) AS unique_species, COALESCE(AVG(confidence), 0) AS avg_confidence").
		Where("time >= ?", periodStart(days)).
		Scan(&stats).Error
	if err != nil {
		return Stats{}, fmt.Errorf("getting stats: %w", err)
	}
	return stats, nil
}

// GetSpeciesCounts ranks species by detection count over the period.
func (ds *DataStore) GetSpeciesCounts(days int) ([]SpeciesCount, error) {
	var counts []SpeciesCount
	err := ds.DB.Model(&Detection{}).
		Select("species, COUNT(*) AS count, AVG(confidence) AS avg_confidence, MAX(time) AS last_seen").
		Where("time >= ?", periodStart(days)).
		Group("species").
		Order("count DESC").
		Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("getting species counts: %w", err)
	}
	return counts, nil
}

// GetHourlyHeatmap returns the average detections per hour of day across
// the period. Hours with no detections are present with a zero count, so
// the result always has 24 entries.
func (ds *DataStore) GetHourlyHeatmap(days int) ([]HourlyCount, error) {
	if days < 1 {
		return nil, fmt.Errorf("heatmap period must be at least 1 day, got %d", days)
	}

	var rows []struct {
		Hour  int
		Count int64
	}
	err := ds.DB.Model(&Detection{}).
		Select("CAST(strftime('%H', time) AS INTEGER) AS hour, COUNT(*) AS count").
		Where("time >= ?", periodStart(days)).
		Group("hour").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("getting hourly heatmap: %w", err)
	}

	heatmap := make([]HourlyCount, 24)
	for i := range heatmap {
		heatmap[i].Hour = i
	}
	for _, row := range rows {
		if row.Hour >= 0 && row.Hour < 24 {
			heatmap[row.Hour].Count = float64(row.Count) / float64(days)
		}
	}
	return heatmap, nil
}

// GetDailyTrends returns per-day detection counts for the period, oldest
// day first. Days with no detections are omitted.
func (ds *DataStore) GetDailyTrends(days int) ([]DailyTrend, error) {
	var trends []DailyTrend
	err := ds.DB.Model(&Detection{}).
		Select("date(time) AS date, COUNT(*) AS count, COUNT(DISTINCT species) AS unique_species").
		Where("time >= ?", periodStart(days)).
		Group("date").
		Order("date ASC").
		Scan(&trends).Error
	if err != nil {
		return nil, fmt.Errorf("getting daily trends: %w", err)
	}
	return trends, nil
}
