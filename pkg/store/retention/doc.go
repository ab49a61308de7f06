// Package retention prunes stored checks by age and by count.
//
// A Pruner deletes records older than RetentionConfig.Days and then trims
// the oldest records until at most RetentionConfig.MaxRecords remain. When
// ArchivePath is set, every pruned batch is first written there as a JSON
// export.
//
// Watch mode runs the pruner on a cron schedule:
//
//	pruner := retention.NewPruner(st, &cfg.Store.Retention, collector)
//	if err := pruner.Start(ctx); err != nil {
//	    return err
//	}
//	defer pruner.Stop()
package retention
