// Package policytype is the registry of nsIContentPolicy content policy types.
//
// The registry is a fixed table of canonical TYPE_* names bound to their
// legacy integer codes. Codes 8 and 9 are retired and resolve to Unknown.
//
//	policytype.ByCode(11)             // TYPE_XMLHTTPREQUEST
//	policytype.ByName("TYPE_SCRIPT")  // TYPE_SCRIPT
//	policytype.Parse("blergh")        // TYPE_UNKNOWN
//
// Lookups never fail. Invalid (code 0) is the default for absent fields and
// Unknown marks values the registry does not recognise.
package policytype
