// Package stats turns flat portal record lists into cross-tabulated count
// statistics keyed by area, site, and shift.
package stats

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
)

// AggregateStudents cross-tabulates enrolled-student records. Every record
// contributes exactly 1 to each applicable counter and the total is the
// record count. The function is pure: re-running it on the same input
// yields the same breakdown.
func AggregateStudents(records []models.Record, logger *logrus.Logger) *models.AggregatedStats {
	result := models.NewEmptyStats()
	result.Total = len(records)
	result.LastUpdated = time.Now().Format(time.RFC3339)

	logger.WithField("records", len(records)).Info("Aggregating student records")

	for _, record := range records {
		area := record.Area()
		site := record.Site()
		shift := record.Shift()

		result.ByArea[area]++
		result.BySite[site]++
		result.ByShift[shift]++
		result.BySiteShift[site+" - "+shift]++
		detailCell(result.Detail, area, site)[shift]++
	}

	return result
}

// AggregateSeats cross-tabulates seat-allocation records. Each record
// contributes its own quantity; records without a positive quantity are
// skipped entirely. The area/site/shift counters accumulate, but the
// three-level detail cell is overwritten per record: the last record seen
// for a given (area, site, shift) triple wins. That asymmetry matches the
// portal dashboard's observed behavior and is kept on purpose.
func AggregateSeats(records []models.Record, logger *logrus.Logger) *models.AggregatedStats {
	result := models.NewEmptyStats()
	result.LastUpdated = time.Now().Format(time.RFC3339)

	logger.WithField("records", len(records)).Info("Aggregating seat records")

	for _, record := range records {
		quantity := record.Quantity()
		if quantity <= 0 {
			continue
		}

		area := record.Area()
		site := record.Site()
		shift := record.Shift()

		result.Total += quantity
		result.ByArea[area] += quantity
		result.BySite[site] += quantity
		result.ByShift[shift] += quantity
		result.BySiteShift[site+" - "+shift] += quantity
		detailCell(result.Detail, area, site)[shift] = quantity
	}

	logger.WithFields(logrus.Fields{
		"total":   result.Total,
		"by_area": result.ByArea,
		"by_site": result.BySite,
	}).Debug("Seat aggregation complete")

	return result
}

// detailCell returns the shift->count map for an (area, site) pair,
// allocating intermediate levels as needed.
func detailCell(detail map[string]map[string]map[string]int, area, site string) map[string]int {
	sites, ok := detail[area]
	if !ok {
		sites = map[string]map[string]int{}
		detail[area] = sites
	}
	shifts, ok := sites[site]
	if !ok {
		shifts = map[string]int{}
		sites[site] = shifts
	}
	return shifts
}
