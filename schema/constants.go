package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database engine holding the snapshot.
	DatabaseBackend string

	// Population selects one of the cohorts a statistic is computed over.
	Population string

	// FieldType is the type of a filterable person field.
	FieldType string

	// Comparator is the comparison applied by a date filter.
	Comparator string

	// ActivityKind names a table of records linked to a person.
	ActivityKind string

	// Grouping names a grouped aggregation and its drill-down companion.
	Grouping string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All snapshot backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// All populations supported.
const (
	CreatedPopulation  Population = "created"
	FollowedPopulation Population = "followed" // default
	AllPopulation      Population = "all"
)

// All filterable field types.
const (
	TextField         FieldType = "text"
	TextareaField     FieldType = "textarea"
	EnumField         FieldType = "enum"
	DateField         FieldType = "date"
	DateWithTimeField FieldType = "date-with-time"
	DurationField     FieldType = "duration"
	BooleanField      FieldType = "boolean"
	YesNoField        FieldType = "yes-no"
	NumberField       FieldType = "number"
	MultiChoiceField  FieldType = "multi-choice"
)

// All date comparators.
const (
	UnfilledComparator Comparator = "unfilled"
	BeforeComparator   Comparator = "before"
	AfterComparator    Comparator = "after"
	EqualsComparator   Comparator = "equals"
)

// All activity kinds.
const (
	ActionActivity       ActivityKind = "action"
	ConsultationActivity ActivityKind = "consultation"
	PassageActivity      ActivityKind = "passage"
	EncounterActivity    ActivityKind = "encounter"
	TreatmentActivity    ActivityKind = "treatment"
	PlaceActivity        ActivityKind = "person_place"
	CommentActivity      ActivityKind = "comment"
)

// All groupings.
const (
	AgeGrouping                  Grouping = "age"
	FollowDurationGrouping       Grouping = "follow-duration"
	WanderingDurationGrouping    Grouping = "wandering-duration"
	FieldGrouping                Grouping = "field"
	OutReasonGrouping            Grouping = "out-reason"
	ActionCategoryGrouping       Grouping = "action-category"
	PersonActionCategoryGrouping Grouping = "person-action-category"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid snapshot backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}

// ValidPopulations lists all valid populations.
var ValidPopulations = map[Population]struct{}{
	CreatedPopulation:  {},
	FollowedPopulation: {},
	AllPopulation:      {},
}

// ValidGroupings lists all valid groupings.
var ValidGroupings = map[Grouping]struct{}{
	AgeGrouping:                  {},
	FollowDurationGrouping:       {},
	WanderingDurationGrouping:    {},
	FieldGrouping:                {},
	OutReasonGrouping:            {},
	ActionCategoryGrouping:       {},
	PersonActionCategoryGrouping: {},
}

// AllActivityKinds returns every activity kind in a stable order.
var AllActivityKinds = []ActivityKind{
	ActionActivity,
	ConsultationActivity,
	PassageActivity,
	EncounterActivity,
	TreatmentActivity,
	PlaceActivity,
	CommentActivity,
}

// Measure names an averaged quantity.
type Measure string

// All measures supported.
const (
	FollowDurationMeasure    Measure = "follow-duration"
	WanderingDurationMeasure Measure = "wandering-duration"
	DateFieldMeasure         Measure = "date-field"
	NumberFieldMeasure       Measure = "number-field"
)

// ValidMeasures lists all valid measures.
var ValidMeasures = map[Measure]struct{}{
	FollowDurationMeasure:    {},
	WanderingDurationMeasure: {},
	DateFieldMeasure:         {},
	NumberFieldMeasure:       {},
}

// AllRowsGrouping selects the whole filtered population in a drill-down.
const AllRowsGrouping Grouping = "all"
