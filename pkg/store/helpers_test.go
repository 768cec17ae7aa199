package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Shared fixtures for view and join tests.
var (
	testJobIdentifier = &ContentType{
		Element:   Element{Identifier: "job_identifier", Title: "Job Identifier", Description: "Unique identifier for a job.", Tags: []string{"job"}},
		Converter: ConverterString,
	}

	testJobRecord = &ContentType{
		Element:   Element{Identifier: "job", Title: "Job", Description: "A job record."},
		Converter: ConverterResource,
	}

	testAppointment = &ContentType{
		Element:   Element{Identifier: "job_appointment", Title: "Job Appointment", Description: "A claimable job."},
		Converter: ConverterDictionary,
	}

	testScoredJobs = NewOrderedSet(Element{Identifier: "jobs_scored", Title: "Scored Jobs"}, "scored_jobs", "job_identifier")

	testJobRecords = NewHash(Element{Identifier: "job_records", Title: "Job Records"}, "{}", "job", "job")
)

// define registers content types and structures, failing the test on error.
func define(t *testing.T, c *Client, defs ...any) {
	t.Helper()
	ctx := context.Background()
	for _, d := range defs {
		switch v := d.(type) {
		case *ContentType:
			require.NoError(t, c.DefineContentType(ctx, v))
		case *Structure:
			require.NoError(t, c.DefineStructure(ctx, v))
		default:
			t.Fatalf("unsupported definition %T", d)
		}
	}
}
