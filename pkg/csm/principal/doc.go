// Package principal parses and formats the principal values found in
// content security check blocks.
//
// A principal is one of the literals SystemPrincipal, NullPrincipal or
// nullptr, an absolute URL (content principal), or an expanded principal
// grouping other principals:
//
//	[Expanded Principal [moz-extension://.../ https://example.com/]]
//
// Parse and Format are exact inverses. Children of expanded principals keep
// their order, and expanded principals may nest.
package principal
