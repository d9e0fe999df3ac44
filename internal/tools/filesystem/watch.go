package filesystem

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches every directory under a jail root for changes and
// publishes the changed path (relative to root) on Events. Adapted from
// the teacher's indexer.FileWatcher: the recursive-add-on-create behavior
// is kept, but the debounce/batch machinery and language detection are
// dropped — the Memory Store only needs to know *that* a path changed, not
// what kind of source change it was.
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	events  chan string
	closeMu sync.Mutex
	closed  bool
}

// NewWatcher starts watching root and every existing subdirectory under
// it. New directories created later are added automatically as their
// parent's create event arrives.
func NewWatcher(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{root: root, fsw: fsw, events: make(chan string, 64)}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				close(w.events)
				return
			}
			rel, err := filepath.Rel(w.root, event.Name)
			if err != nil {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				_ = w.addTree(event.Name)
			}
			select {
			case w.events <- rel:
			default:
				// Events is a best-effort invalidation signal; drop on
				// backpressure rather than block the notify loop.
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Events yields the relative path of every file or directory fsnotify
// reports as changed under root, until Close is called.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Close stops the underlying fsnotify watcher. Safe to call more than
// once.
func (w *Watcher) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}
