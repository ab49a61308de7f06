// Package filter selects content security checks with composable
// predicates.
//
// The "system-data" filter flags scripts and stylesheets that privileged
// code loads from data: URIs:
//
//	keep := filter.SystemPrincipalDataLoad([]string{"data:text/css,body"})
//	suspicious := filter.Apply(result.Checks, keep)
//
// Predicates combine with All, Any and Not. CLI flags resolve through
// ByName and FromNames.
package filter
