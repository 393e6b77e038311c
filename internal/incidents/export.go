package incidents

import (
	"strconv"
	"strings"
	"time"

	"github.com/fleetops/fleetwatch/internal/domain"
)

// csvHeader is the fixed export column layout. Consumers of the export
// parse by position, so the order and count must not change.
var csvHeader = []string{
	"ID",
	"Title",
	"Description",
	"Status",
	"Severity",
	"Type",
	"Vehicle",
	"License Plate",
	"Reported By",
	"Assigned To",
	"Location",
	"Occurred At",
	"Reported At",
	"Estimated Cost",
	"Actual Cost",
	"Resolution Notes",
	"Resolved At",
}

// RenderCSV renders incidents as CSV. Free-text columns (title,
// description, resolution notes) are always wrapped in quotes with inner
// quotes doubled, whether or not they contain the delimiter; every other
// column is emitted bare. Missing optional values render as empty strings.
func RenderCSV(incidents []*domain.Incident) string {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))

	for _, inc := range incidents {
		row := []string{
			strconv.FormatInt(inc.ID, 10),
			quote(inc.Title),
			quote(inc.Description),
			string(inc.Status),
			string(inc.Severity),
			string(inc.Type),
			vehicleName(inc.Car),
			licensePlate(inc.Car),
			userName(inc.ReportedBy),
			userName(inc.AssignedTo),
			stringOrEmpty(inc.Location),
			isoTime(inc.OccurredAt),
			isoTime(inc.ReportedAt),
			costOrEmpty(inc.EstimatedCost),
			costOrEmpty(inc.ActualCost),
			notesOrEmpty(inc.ResolutionNotes),
			isoTimeOrEmpty(inc.ResolvedAt),
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(row, ","))
	}

	return b.String()
}

// quote doubles embedded quote characters and wraps the field.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func vehicleName(v *domain.Vehicle) string {
	if v == nil {
		return ""
	}
	return v.Make + " " + v.Model
}

func licensePlate(v *domain.Vehicle) string {
	if v == nil {
		return ""
	}
	return v.LicensePlate
}

func userName(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.Name
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func costOrEmpty(c *float64) string {
	if c == nil {
		return ""
	}
	return strconv.FormatFloat(*c, 'f', -1, 64)
}

func notesOrEmpty(s *string) string {
	if s == nil || *s == "" {
		return ""
	}
	return quote(*s)
}

func isoTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

func isoTimeOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return isoTime(*t)
}
