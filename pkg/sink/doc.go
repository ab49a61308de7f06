// Package sink forwards extracted checks to external systems.
//
// KafkaSink publishes each check as a JSON message on the configured topic.
// The message key is the channel URI, and headers carry the source name,
// the begin-marker line and the W3C trace context of the extraction.
//
//	s, err := sink.NewKafkaSink(&cfg.Kafka, sink.WithMetrics(collector))
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	err = s.Publish(ctx, "firefox.log", result.Checks)
package sink
