// Package watch reports log files that change on disk.
//
// A FileWatcher follows files and directories with fsnotify, keeps only
// writes and creations of files with a watched extension, and debounces
// events per file so that a burst of appends triggers one callback:
//
//	fw, err := watch.New(&watch.Config{
//	    Paths:      []string{"/var/log/firefox"},
//	    Extensions: []string{".log"},
//	    Debounce:   500 * time.Millisecond,
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	defer fw.Stop()
//
//	err = fw.Watch(ctx, func(ctx context.Context, path string) error {
//	    _, err := extractor.ExtractFile(ctx, path)
//	    return err
//	})
package watch
