package schema

// Labels shared by filters and groupings. The snapshot stores French labels,
// so these are data values and not display strings.
const (
	NotFilledLabel = "Non renseigné" // sentinel for null or absent values
	YesLabel       = "Oui"
	NoLabel        = "Non"
)

// HasConsultationFilterID is the special filter id accepted without a catalog entry.
const HasConsultationFilterID = "hasAtLeastOneConsultation"

// TimestampFormat is the canonical representation of every stored timestamp.
// Lexical order of values in this format equals chronological order.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// DayFormat is the calendar-day prefix of TimestampFormat.
const DayFormat = "2006-01-02"
