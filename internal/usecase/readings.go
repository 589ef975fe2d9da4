package usecase

import (
	"fmt"

	"AirPulse/internal/domain/models"
	"AirPulse/pkg/util"
)

// ReadingsToSeries converts wire records into hour-aligned series points.
// A null value becomes an explicit missing marker, never a dropped row.
func ReadingsToSeries(records []models.Reading) ([]models.SeriesPoint, error) {
	points := make([]models.SeriesPoint, 0, len(records))
	for i, r := range records {
		ts, ok := util.ParseTime(r.Datetime)
		if !ok {
			return nil, fmt.Errorf("record %d: unparsable datetime %q", i, r.Datetime)
		}
		p := models.SeriesPoint{Timestamp: util.AlignHour(ts)}
		if r.Value == nil {
			p.Missing = true
		} else {
			p.Value = *r.Value
		}
		points = append(points, p)
	}
	return points, nil
}
