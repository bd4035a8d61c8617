package assets

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/anima-baker/engine/containers"
	"github.com/spaghettifunk/anima-baker/engine/core"
)

const (
	// settleDelay is how long a changed file must stay quiet before it is baked.
	settleDelay = 250 * time.Millisecond
	// maxPendingFiles bounds the changed files waiting to be baked.
	maxPendingFiles = 256
)

// pendingFiles collects changed files so that the burst of events produced
// by a single save bakes the file once.
type pendingFiles struct {
	queue  *containers.RingQueue[string]
	queued map[string]struct{}
}

func newPendingFiles() *pendingFiles {
	return &pendingFiles{
		queue:  containers.NewRingQueue[string](maxPendingFiles),
		queued: make(map[string]struct{}),
	}
}

// add queues path and reports false when the queue is full.
func (p *pendingFiles) add(path string) bool {
	if _, ok := p.queued[path]; ok {
		return true
	}
	if err := p.queue.Enqueue(path); err != nil {
		return false
	}
	p.queued[path] = struct{}{}
	return true
}

func (p *pendingFiles) drain(visit func(path string)) {
	for !p.queue.IsEmpty() {
		path, _ := p.queue.Dequeue()
		delete(p.queued, path)
		visit(path)
	}
}

// Watch keeps the export tree in sync with the source tree until ctx is
// done. Created or written files are baked again and removed files have
// their outputs deleted. A fatal error on one file is logged and the watch
// goes on, since the file may still be in the middle of being saved.
func (b *Baker) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := b.watchRecursive(watcher, b.sourceDir, false); err != nil {
		return err
	}
	core.LogInfo("watching %s for changes", b.sourceDir)

	pending := newPendingFiles()
	settle := time.NewTimer(settleDelay)
	settle.Stop()

	for {
		select {
		case e, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if path, changed := b.handleEvent(watcher, e); changed {
				if !pending.add(path) {
					pending.drain(b.rebake)
					pending.add(path)
				}
				settle.Reset(settleDelay)
			}

		case <-settle.C:
			pending.drain(b.rebake)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			core.LogError(err.Error())

		case <-ctx.Done():
			settle.Stop()
			return nil
		}
	}
}

// handleEvent reports the file to bake again, if the event changed one.
func (b *Baker) handleEvent(watcher *fsnotify.Watcher, e fsnotify.Event) (string, bool) {
	s, err := os.Stat(e.Name)
	if err == nil && s != nil && s.IsDir() {
		if e.Op&fsnotify.Create != 0 {
			if err := b.watchRecursive(watcher, e.Name, true); err != nil {
				core.LogError("watching %s: %v", e.Name, err)
			}
		}
		return "", false
	}
	// Can't stat a deleted path, so drop whatever was baked from it.
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		b.removeOutputs(e.Name)
		watcher.Remove(e.Name)
		return "", false
	}
	// Handle create or modify events
	if err == nil && e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
		return e.Name, true
	}
	return "", false
}

func (b *Baker) rebake(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := b.BakeFile(path); err != nil {
		core.LogError(err.Error())
	}
}

func (b *Baker) removeOutputs(path string) {
	info, ok := b.removeAsset(path)
	if !ok {
		return
	}
	for _, out := range info.Outputs {
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			core.LogWarn("removing %s: %v", out, err)
			continue
		}
		core.LogInfo("removed %s", out)
	}
}

// watchRecursive adds all directories under the given one to the watch list.
// When bake is set, the files found are baked as well, which catches files
// written into a new directory before its watch was added.
func (b *Baker) watchRecursive(watcher *fsnotify.Watcher, path string, bake bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return b.walkError(walkPath, fi, err)
		}
		if fi.IsDir() {
			if walkPath == b.exportDir {
				return filepath.SkipDir
			}
			return watcher.Add(walkPath)
		}
		if bake {
			b.rebake(walkPath)
		}
		return nil
	})
}
