package models

import "time"

// NCFSequence tracks the next fiscal number per series (B01, B02, B14, B15,
// E31). Next is the value the upcoming allocation will take; End is the last
// number DGII authorized for the series. Allocation must happen under a row
// lock so numbers are never reused.
type NCFSequence struct {
	Series    string    `gorm:"column:series;primaryKey"`
	Next      int64     `gorm:"column:next;not null;default:1"`
	End       int64     `gorm:"column:end;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Remaining reports how many numbers the series can still issue.
func (s NCFSequence) Remaining() int64 {
	if s.Next > s.End {
		return 0
	}
	return s.End - s.Next + 1
}
