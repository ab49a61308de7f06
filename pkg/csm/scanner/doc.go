// Package scanner finds content security check blocks in a Firefox debug log.
//
// The scanner is a two-state machine. Outside a block every line is ignored
// until a begin marker. Inside a block, lines carrying the CSMLog tag are
// collected and any other line is dropped with a diagnostic. The end marker
// hands the block to a BlockDecoder. Markers are recognised both as bare
// lines and as CSMLog payloads:
//
//	[Parent 4242: Main Thread]: V/CSMLog #DebugDoContentSecurityCheck Begin
//	[Parent 4242: Main Thread]: V/CSMLog doContentSecurityCheck:
//	[Parent 4242: Main Thread]: V/CSMLog   - channelURI: https://example.com/
//	...
//	[Parent 4242: Main Thread]: V/CSMLog #DebugDoContentSecurityCheck End
//
// A block that fails to decode, or is still open when the input ends or a
// new block begins, is recorded as a diagnostic and skipped. Only a read
// error ends the scan early.
package scanner
