// Package watch turns folder changes on the project drive into rescan
// signals.
//
// Only the drive roots and the grouping folders the project scan descends
// into are watched, non-recursively: a project appearing, vanishing or being
// renamed is a directory event in one of those folders. Bursts of events are
// debounced into one Change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/harrison/projdock/internal/logger"
	"github.com/harrison/projdock/internal/naming"
	"github.com/harrison/projdock/internal/scanner"
)

// DefaultDebounceDelay is how long the drive must stay quiet before a Change
// is emitted
const DefaultDebounceDelay = 2 * time.Second

// Change is a debounced batch of folder events
type Change struct {
	Paths []string  // Affected paths, sorted
	At    time.Time // When the batch was emitted
}

// Watcher watches the drive roots for project folder changes
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan Change
	errors  chan error
	done    chan struct{}
	depth   int
	log     logger.Logger

	mu      sync.Mutex
	levels  map[string]int // watched dir -> grouping level (root = 0)
	delay   time.Duration
	timer   *time.Timer
	pending map[string]bool
	closed  bool
}

// New starts watching roots and their grouping folders up to depth levels
func New(roots []string, depth int, log logger.Logger) (*Watcher, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no project roots configured")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher: fsw,
		changes: make(chan Change, 1),
		errors:  make(chan error, 10),
		done:    make(chan struct{}),
		depth:   depth,
		log:     logger.OrNoOp(log),
		levels:  make(map[string]int),
		delay:   DefaultDebounceDelay,
		pending: make(map[string]bool),
	}

	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		if err := fsw.Add(abs); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch root %s: %w", abs, err)
		}
		w.levels[abs] = 0
		w.addGroupings(abs, 0)
	}

	go w.processEvents()
	return w, nil
}

// addGroupings watches the grouping folders below dir, which sits at level
func (w *Watcher) addGroupings(dir string, level int) {
	if level >= w.depth {
		return
	}
	dirs, errs := scanner.GroupingDirs([]string{dir}, w.depth-level)
	for _, err := range errs {
		w.log.LogWarn(fmt.Sprintf("watch: %v", err))
	}
	for _, d := range dirs {
		if d == dir {
			continue
		}
		rel, err := filepath.Rel(dir, d)
		if err != nil {
			continue
		}
		w.add(d, level+depthOf(rel))
	}
}

func (w *Watcher) add(dir string, level int) {
	w.mu.Lock()
	_, known := w.levels[dir]
	w.mu.Unlock()
	if known {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		if os.IsPermission(err) || os.IsNotExist(err) {
			w.log.LogDebug(fmt.Sprintf("watch: skip %s: %v", dir, err))
			return
		}
		w.sendError(fmt.Errorf("watch %s: %w", dir, err))
		return
	}
	w.mu.Lock()
	w.levels[dir] = level
	w.mu.Unlock()
	w.log.LogTrace(fmt.Sprintf("watch: added %s (level %d)", dir, level))
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	path := filepath.Clean(event.Name)
	name := filepath.Base(path)
	if !scanner.IsGroupingDir(name) && !naming.Matches(name) {
		return
	}
	var info os.FileInfo
	if event.Has(fsnotify.Create) {
		var err error
		if info, err = os.Stat(path); err != nil || !info.IsDir() {
			return
		}
	}

	w.mu.Lock()
	parentLevel, parentWatched := w.levels[filepath.Dir(path)]
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// fsnotify drops the watch itself; forget the descendants too
		for dir := range w.levels {
			if dir == path || strings.HasPrefix(dir, path+string(filepath.Separator)) {
				delete(w.levels, dir)
			}
		}
	}
	w.mu.Unlock()

	if info != nil && parentWatched && parentLevel < w.depth && scanner.IsGroupingDir(name) {
		w.add(path, parentLevel+1)
		w.addGroupings(path, parentLevel+1)
	}

	w.debounce(path)
}

// debounce restarts the quiet period and remembers path for the next Change
func (w *Watcher) debounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.pending[path] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.closed || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.timer = nil
	w.mu.Unlock()

	sort.Strings(paths)
	select {
	case w.changes <- Change{Paths: paths, At: time.Now()}:
	case <-w.done:
	default:
		// A Change is already queued; the rescan it triggers covers these
		w.log.LogDebug(fmt.Sprintf("watch: coalesced %d path(s) into queued change", len(paths)))
	}
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Changes delivers debounced change batches
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

// Errors delivers watcher errors
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Watched returns the watched directories, sorted
func (w *Watcher) Watched() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	dirs := make([]string, 0, len(w.levels))
	for d := range w.levels {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// SetDebounceDelay sets the quiet period. Call before events arrive.
func (w *Watcher) SetDebounceDelay(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.delay = delay
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}

// ScanFunc rescans after a change
type ScanFunc func(ctx context.Context, c Change) error

// Rescanner runs at most one scan at a time. Callers that ask while a scan
// is running share its result.
type Rescanner struct {
	group singleflight.Group
	scan  ScanFunc
}

// NewRescanner wraps scan
func NewRescanner(scan ScanFunc) *Rescanner {
	return &Rescanner{scan: scan}
}

// Rescan starts a scan, or joins the one in flight
func (r *Rescanner) Rescan(ctx context.Context, c Change) <-chan singleflight.Result {
	return r.group.DoChan("rescan", func() (interface{}, error) {
		return nil, r.scan(ctx, c)
	})
}

// Run rescans on every change until ctx is done or changes closes. Changes
// that arrive during a scan are merged and trigger exactly one follow-up
// scan once it finishes.
func Run(ctx context.Context, changes <-chan Change, errs <-chan error, r *Rescanner, log logger.Logger) error {
	log = logger.OrNoOp(log)

	var (
		inflight <-chan singleflight.Result
		queued   *Change
	)
	start := func(c Change) {
		log.LogInfo(fmt.Sprintf("watch: %d change(s), rescanning", len(c.Paths)))
		inflight = r.Rescan(ctx, c)
	}

	for {
		select {
		case <-ctx.Done():
			if inflight != nil {
				<-inflight
			}
			return nil

		case c, ok := <-changes:
			if !ok {
				if inflight != nil {
					<-inflight
				}
				return nil
			}
			if inflight == nil {
				start(c)
				continue
			}
			if queued == nil {
				queued = &Change{}
			}
			queued.Paths = mergePaths(queued.Paths, c.Paths)
			queued.At = c.At

		case res := <-inflight:
			inflight = nil
			if res.Err != nil && ctx.Err() == nil {
				log.LogError(fmt.Sprintf("watch: rescan failed: %v", res.Err))
			}
			if queued != nil {
				c := *queued
				queued = nil
				start(c)
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.LogWarn(fmt.Sprintf("watch: %v", err))
		}
	}
}

func mergePaths(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, p := range append(append([]string{}, a...), b...) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func depthOf(rel string) int {
	n := 1
	for _, r := range rel {
		if r == filepath.Separator {
			n++
		}
	}
	return n
}
