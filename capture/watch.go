package capture

import (
	"context"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/fsnotify/fsnotify"
	"go.viam.com/utils"
)

// Watch observes a capture log and invokes onChange whenever the file is rewritten,
// so callers can recompute poses without restarting. The containing directory is
// watched rather than the file itself since most tools replace the file on save.
// The watcher runs until ctx is done.
func Watch(ctx context.Context, path string, logger golog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}

	utils.PanicCapturingGo(func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				eventPath, err := filepath.Abs(event.Name)
				if err != nil || eventPath != absPath {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Debugw("capture log changed", "path", path, "op", event.Op.String())
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Errorw("capture log watch error", "error", err)
			}
		}
	})
	return nil
}
