package store

import (
	"errors"
	"strings"
	"time"

	"mercator-hq/csmlog/pkg/csm/logline"
	"mercator-hq/csmlog/pkg/csm/policytype"
)

// Filter selects stored records. Zero fields do not constrain the query.
type Filter struct {
	// Source matches the input name exactly.
	Source string

	// Process matches the process type; logline.Unknown matches any.
	Process logline.ProcessTag

	// ExternalTypes matches any of the listed external policy types.
	ExternalTypes []policytype.Type

	// ChannelURIPrefix matches channel URIs starting with the prefix.
	ChannelURIPrefix string

	// Since and Until bound the recorded time, inclusive and exclusive.
	Since *time.Time
	Until *time.Time

	// Limit caps the number of returned records; 0 means no limit.
	Limit int

	// Offset skips records; it requires Limit.
	Offset int
}

// Validate checks the filter for contradictions.
func (f *Filter) Validate() error {
	if f.Limit < 0 {
		return errors.New("limit must be non-negative")
	}
	if f.Offset < 0 {
		return errors.New("offset must be non-negative")
	}
	if f.Offset > 0 && f.Limit == 0 {
		return errors.New("offset requires a limit")
	}
	if f.Since != nil && f.Until != nil && !f.Since.Before(*f.Until) {
		return errors.New("since must be before until")
	}
	return nil
}

// whereClause builds a SQL WHERE clause from the filter.
// Returns the WHERE clause (without "WHERE" keyword) and the query arguments.
func (f *Filter) whereClause() (string, []any) {
	var conditions []string
	var args []any

	if f.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, f.Source)
	}
	if f.Process != logline.Unknown {
		conditions = append(conditions, "process_type = ?")
		args = append(args, f.Process.String())
	}
	if len(f.ExternalTypes) > 0 {
		placeholders := make([]string, len(f.ExternalTypes))
		for i, t := range f.ExternalTypes {
			placeholders[i] = "?"
			args = append(args, t.String())
		}
		conditions = append(conditions,
			"external_content_policy_type IN ("+strings.Join(placeholders, ", ")+")")
	}
	if f.ChannelURIPrefix != "" {
		conditions = append(conditions, "instr(channel_uri, ?) = 1")
		args = append(args, f.ChannelURIPrefix)
	}
	if f.Since != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if f.Until != nil {
		conditions = append(conditions, "recorded_at < ?")
		args = append(args, f.Until.UnixNano())
	}

	return strings.Join(conditions, " AND "), args
}
