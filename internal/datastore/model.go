package datastore

import "time"

// Detection is a single confirmed bird detection. One row per accepted
// classification; duplicates within the suppression window never reach
// the store.
type Detection struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Species    string    `gorm:"index;index:idx_species_time" json:"species"`
	Confidence float64   `json:"confidence"`
	Time       time.Time `gorm:"index;index:idx_species_time" json:"time"`
	ClipName   string    `json:"clip_name,omitempty"`
	CreatedAt  time.Time `json:"-"`
}
