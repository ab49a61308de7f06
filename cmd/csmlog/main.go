// csmlog extracts content security checks from Firefox CSMLog output.
//
// Firefox writes one block per doContentSecurityCheck call when started with
// MOZ_LOG=CSMLog:5. csmlog finds those blocks, decodes them into typed
// records and renders, stores or publishes them.
//
// Usage:
//
//	# Extract every check from a log file as JSON
//	csmlog extract firefox.log
//
//	# Flag data: scripts and stylesheets loaded by the system principal
//	csmlog extract --filter system-data --format text logs/
//
//	# Persist checks while Firefox is running
//	csmlog watch --store data/csmlog.db /tmp/moz-logs
//
//	# Query stored checks
//	csmlog query --store data/csmlog.db --process child --format csv
//
//	# List content policy types
//	csmlog policytypes
package main

func main() {
	Execute()
}
