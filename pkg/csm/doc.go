// Package csm extracts content security checks from Firefox CSMLog output.
//
// Firefox logs every doContentSecurityCheck call when started with
// MOZ_LOG=CSMLog:5. Each call is written as a block of tagged lines between
// "#DebugDoContentSecurityCheck Begin" and "#DebugDoContentSecurityCheck End"
// markers, interleaved with unrelated output from other modules and
// processes.
//
// # Packages
//
//   - logline: classifies raw lines and strips the process tag
//   - principal: parses principal descriptions (system, null, content, expanded)
//   - policytype: content policy type names and codes
//   - check: decodes one block into a ContentSecurityCheck
//   - scanner: finds blocks in a stream and collects diagnostics
//   - errors: diagnostic types with source locations and suggestions
//
// # Usage
//
// One-off extraction from a string:
//
//	checks := csm.Extract(logText)
//
// Streaming extraction with telemetry:
//
//	ex := csm.NewExtractor(csm.Options{
//		Logger:  logger.Slog(),
//		Metrics: collector,
//		Tracer:  tracer,
//	})
//	result, err := ex.ExtractFile(ctx, "firefox.log")
//	if err != nil {
//		return err
//	}
//	for _, e := range result.Diagnostics.Errors {
//		fmt.Fprint(os.Stderr, e.Error())
//	}
//
// Malformed blocks never abort a scan; they are reported in
// Result.Diagnostics and counted in Result.Stats.
package csm
