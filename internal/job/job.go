// Package job is a typed view over job records and the structures that queue them.
package job

import (
	"context"
	"fmt"
	"time"

	"github.com/dyluth/micra/pkg/store"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/oj"
)

// Field names of a job record.
const (
	FieldSource        = "source"
	FieldRealm         = "realm"
	FieldCompany       = "company"
	FieldAction        = "action"
	FieldTarget        = "target"
	FieldObjective     = "objective"
	FieldVersion       = "version"
	FieldConfiguration = "configuration"
	FieldCreated       = "created"
	FieldRan           = "ran"
	FieldFinished      = "finished"
	FieldResult        = "result"
	FieldHost          = "host"
)

// RequiredFields must be present on every job record.
var RequiredFields = []string{
	FieldSource, FieldRealm, FieldCompany, FieldAction, FieldTarget, FieldObjective, FieldVersion,
}

// Job wraps a record named "<job components>:<version>:<instance>".
type Job struct {
	*store.Record
}

// Wrap types an already loaded record.
func Wrap(r *store.Record) *Job {
	return &Job{Record: r}
}

// NewInstance creates an unsaved job instance under jobName and version. The
// instance component is a fresh UUID.
func NewInstance(jobName, version string, fields map[string]string) *Job {
	components := append(store.DecodeName(jobName), version, uuid.NewString())
	r := store.NewRecord(store.EncodeName(components...), fields)
	r.Set(FieldVersion, version)
	return Wrap(r)
}

// Load reads a job record.
func Load(ctx context.Context, client *store.Client, name string) (*Job, error) {
	r, err := client.LoadRecord(ctx, name)
	if err != nil {
		return nil, err
	}
	return Wrap(r), nil
}

// Validate reports the first missing required field.
func (j *Job) Validate() error {
	for _, f := range RequiredFields {
		if _, err := j.Get(f); err != nil {
			return fmt.Errorf("job %s: %w", j.Name(), err)
		}
	}
	return nil
}

// VersionName drops the instance component from the record name.
func (j *Job) VersionName() string {
	return trimComponents(j.Name(), 1)
}

// JobName drops the version and instance components from the record name.
func (j *Job) JobName() string {
	return trimComponents(j.Name(), 2)
}

func trimComponents(name string, n int) string {
	components := store.DecodeName(name)
	if len(components) <= n {
		return ""
	}
	return store.EncodeName(components[:len(components)-n]...)
}

func (j *Job) Source() (string, error)    { return j.Get(FieldSource) }
func (j *Job) Realm() (string, error)     { return j.Get(FieldRealm) }
func (j *Job) Company() (string, error)   { return j.Get(FieldCompany) }
func (j *Job) Action() (string, error)    { return j.Get(FieldAction) }
func (j *Job) Target() (string, error)    { return j.Get(FieldTarget) }
func (j *Job) Objective() (string, error) { return j.Get(FieldObjective) }
func (j *Job) Version() (string, error)   { return j.Get(FieldVersion) }

// SetRealm moves the job to another realm.
func (j *Job) SetRealm(realm string) { j.Set(FieldRealm, realm) }

// Configuration decodes the optional JSON configuration, nil when absent.
func (j *Job) Configuration() (any, error) {
	raw := j.Optional(FieldConfiguration)
	if raw == nil {
		return nil, nil
	}
	v, err := oj.ParseString(*raw)
	if err != nil {
		return nil, fmt.Errorf("job %s configuration: %w", j.Name(), err)
	}
	return v, nil
}

// SetConfiguration stores v as JSON. A nil v removes the field.
func (j *Job) SetConfiguration(v any) error {
	if v == nil {
		return j.SetField(FieldConfiguration, nil, true)
	}
	text, err := store.CanonicalJSON(v)
	if err != nil {
		return fmt.Errorf("job %s configuration: %w", j.Name(), err)
	}
	j.Set(FieldConfiguration, text)
	return nil
}

func (j *Job) Created() (time.Time, error)  { return j.timestamp(FieldCreated) }
func (j *Job) Ran() (time.Time, error)      { return j.timestamp(FieldRan) }
func (j *Job) Finished() (time.Time, error) { return j.timestamp(FieldFinished) }

func (j *Job) SetCreated(t time.Time)  { j.setTimestamp(FieldCreated, t) }
func (j *Job) SetRan(t time.Time)      { j.setTimestamp(FieldRan, t) }
func (j *Job) SetFinished(t time.Time) { j.setTimestamp(FieldFinished, t) }

// timestamp returns the zero time when the field is absent or empty.
func (j *Job) timestamp(field string) (time.Time, error) {
	raw := j.Optional(field)
	if raw == nil || *raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("job %s %s: %w", j.Name(), field, err)
	}
	return t, nil
}

func (j *Job) setTimestamp(field string, t time.Time) {
	j.Set(field, t.UTC().Format(time.RFC3339Nano))
}

// Result is nil until the job finished.
func (j *Job) Result() *string { return j.Optional(FieldResult) }

// SetResult stores the outcome; nil removes it.
func (j *Job) SetResult(result *string) error { return j.SetField(FieldResult, result, true) }

// Host is the worker currently or last running the job.
func (j *Job) Host() *string { return j.Optional(FieldHost) }

// SetHost records the worker; nil removes it.
func (j *Job) SetHost(host *string) error { return j.SetField(FieldHost, host, true) }
