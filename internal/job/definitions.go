package job

import "github.com/dyluth/micra/pkg/store"

// Keys of the job queues.
const (
	ActiveKey       = "active_jobs"
	ReadyKey        = "ready_jobs"
	ScoredKey       = "scored_jobs"
	AppointmentsKey = "almacen_ready_jobs"
)

var tags = []string{"job"}

var (
	IdentifierType = &store.ContentType{
		Element:   store.Element{Identifier: "job_identifier", Title: "Job Identifier", Description: "Unique identifier for a job.", Tags: tags},
		Converter: store.ConverterString,
	}

	VersionType = &store.ContentType{
		Element:   store.Element{Identifier: "job_version", Title: "Job Version", Description: "Unique version of a job, representing a specific set of execution parameters.", Tags: tags},
		Converter: store.ConverterString,
	}

	InstanceType = &store.ContentType{
		Element:   store.Element{Identifier: "job_instance", Title: "Job Instance", Description: "Unique instance of a job, representing a specific time the job was performed.", Tags: tags},
		Converter: store.ConverterString,
	}

	AppointmentType = &store.ContentType{
		Element:    store.Element{Identifier: "job_appointment", Title: "Job Appointment", Description: "Information indicating a job that a worker can claim.", Tags: tags},
		Converter:  store.ConverterDictionary,
		Properties: map[string]string{"job": "job_instance"},
	}

	RecordType = &store.ContentType{
		Element:   store.Element{Identifier: "job", Title: "Job", Description: "A job record.", Tags: tags},
		Converter: store.ConverterResource,
	}
)

var (
	Active = store.NewSet(
		store.Element{Identifier: "jobs_active", Title: "Active Jobs", Description: "All jobs that are scored, enqueued, or currently running.", Tags: tags},
		ActiveKey, IdentifierType.Identifier,
	)

	Ready = store.NewSet(
		store.Element{Identifier: "jobs_ready", Title: "Ready Jobs", Description: "All jobs that are enqueued or currently running.", Tags: tags},
		ReadyKey, IdentifierType.Identifier,
	)

	Appointments = store.NewStream(
		store.Element{Identifier: "jobs_ready_almacen", Title: "Jobs for Almacén", Description: "All jobs sent to Almacén workers.", Tags: tags},
		AppointmentsKey, AppointmentType.Identifier,
	)

	Scored = store.NewOrderedSet(
		store.Element{Identifier: "jobs_scored", Title: "Scored Jobs", Description: "All jobs that have been assigned a run priority score.", Tags: tags},
		ScoredKey, IdentifierType.Identifier,
	)

	// Records resolves a job instance name to its record.
	Records = store.NewHash(
		store.Element{Identifier: "job_records", Title: "Job Records", Description: "Job records keyed by instance name.", Tags: tags},
		"{}", RecordType.Identifier, "job",
	)

	// Ranked lists scored jobs, highest score first, with their realm and action.
	Ranked = &store.Structure{
		Element:       store.Element{Identifier: "jobs_ranked", Title: "Ranked Jobs", Description: "Scored jobs by descending score with record details.", Tags: tags},
		StructureType: store.StructureOrderedSet,
		ContentType:   IdentifierType.Identifier,
		KeyTokens:     []string{},
		Joins: []store.Join{
			{
				Structure: Scored.Identifier,
				Sort:      []store.SortKey{{Column: store.ColumnOrderedSetScore, Ascending: false}},
			},
			{
				Structure: Records.Identifier,
				KeyOn:     []string{IdentifierType.Identifier},
				On:        map[string]string{IdentifierType.Identifier: store.ColumnKey},
				Select:    []string{"job.realm", "job.action", "job.host"},
			},
		},
	}
)

// ContentTypes returns the job content types in registration order.
func ContentTypes() []*store.ContentType {
	return []*store.ContentType{IdentifierType, VersionType, InstanceType, AppointmentType, RecordType}
}

// Structures returns the job structures in registration order.
func Structures() []*store.Structure {
	return []*store.Structure{Active, Ready, Appointments, Scored, Records, Ranked}
}
