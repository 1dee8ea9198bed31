package core

import "time"

// NewDate builds a UTC midnight time for the given calendar day.
func NewDate(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// YearMonth is a (year, month) pair used by summary and transaction filters.
type YearMonth struct {
	Year  int
	Month int
}

func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 || ym.Month == 0
}

func (ym YearMonth) String() string {
	if ym.IsZero() {
		return ""
	}
	return time.Date(ym.Year, time.Month(ym.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-1")
}

// CurrentYearMonth returns the pair for the wall clock now.
func CurrentYearMonth() YearMonth {
	now := time.Now()
	return YearMonth{Year: now.Year(), Month: int(now.Month())}
}
