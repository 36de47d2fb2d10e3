package compact

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sdejongh/mediacompact/pkg/config"
	"github.com/sdejongh/mediacompact/pkg/encoder"
	"github.com/sdejongh/mediacompact/pkg/models"
	"github.com/sdejongh/mediacompact/pkg/output"
	"github.com/sdejongh/mediacompact/pkg/storage"
)

// TestHelper provides a batch root and its folder triple
type TestHelper struct {
	t       *testing.T
	root    string
	triple  models.DirectoryTriple
	backend *storage.Local
	cfg     *config.Config
}

// NewTestHelper creates a new test helper. The root directory is named
// Album so derived folders read Album_compressed and so on.
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "mediacompact-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	root := filepath.Join(tempDir, "Album")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatalf("failed to create root: %v", err)
	}

	backend, err := storage.NewLocal(root)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}

	cfg := config.Default()
	cfg.Performance.MaxWorkers = 4

	return &TestHelper{
		t:       t,
		root:    backend.Root(),
		triple:  models.NewDirectoryTriple(backend.Root()),
		backend: backend,
		cfg:     cfg,
	}
}

// CreateFile writes size bytes at a path relative to the root
func (h *TestHelper) CreateFile(name string, size int) string {
	h.t.Helper()
	path := filepath.Join(h.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		h.t.Fatalf("failed to create parent dir: %v", err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		h.t.Fatalf("failed to create file: %v", err)
	}
	return path
}

// Exists reports whether a path relative to the root exists
func (h *TestHelper) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(h.root, name))
	return err == nil
}

// Names lists the regular files of a directory, sorted
func (h *TestHelper) Names(dir string) []string {
	h.t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		h.t.Fatalf("failed to read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// BaseNames returns the base name set of a directory's regular files
func (h *TestHelper) BaseNames(dir string) map[string]bool {
	set := make(map[string]bool)
	for _, n := range h.Names(dir) {
		set[models.BaseName(n)] = true
	}
	return set
}

// Item builds a media item for a file under the root
func (h *TestHelper) Item(name string) models.MediaItem {
	h.t.Helper()
	path := filepath.Join(h.root, name)
	info, err := os.Stat(path)
	if err != nil {
		h.t.Fatalf("failed to stat %s: %v", name, err)
	}
	return models.NewMediaItem(path, info.Size(), h.cfg.Classify(filepath.Ext(name)), models.NewDirectoryTriple(filepath.Dir(path)))
}

// Resolver builds a resolver over the helper backend with the default
// artifact extensions
func (h *TestHelper) Resolver() *Resolver {
	exts := []string{h.cfg.Image.OutputExt, h.cfg.Video.OutputExt}
	exts = append(exts, h.cfg.Image.Extensions...)
	return NewResolver(h.backend, append(exts, h.cfg.Video.Extensions...))
}

// Engine builds an engine over fakes
func (h *TestHelper) Engine(a Adapters, f output.Formatter) *Engine {
	return NewEngine(h.cfg, a, f, nil)
}

// ============== Fakes ==============

// fakeImageEncoder writes an artifact whose size depends on the base name
type fakeImageEncoder struct {
	mu       sync.Mutex
	sizes    map[string]int  // base -> encoded size, default 100
	fail     map[string]bool // base -> encoder failure
	partial  bool            // leave junk behind on failure
	noOutput map[string]bool // base -> report success but write nothing
	onEncode func(src string)

	calls  atomic.Int32
	active atomic.Int32
	peak   atomic.Int32
}

func (f *fakeImageEncoder) EncodeImage(ctx context.Context, src, dst string, quality int) encoder.Result {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.onEncode != nil {
		f.onEncode(src)
	}

	base := models.BaseName(src)
	f.mu.Lock()
	fail, noOutput := f.fail[base], f.noOutput[base]
	size, ok := f.sizes[base]
	f.mu.Unlock()

	if fail {
		if f.partial {
			os.WriteFile(dst, []byte("partial"), 0644)
		}
		return encoder.Failure(errors.New("cwebp: exit status 255"))
	}
	if noOutput {
		return encoder.Result{}
	}
	if !ok {
		size = 100
	}
	if err := os.WriteFile(dst, make([]byte, size), 0644); err != nil {
		return encoder.Failure(err)
	}
	return encoder.Result{}
}

// fakeVideoEncoder returns fixed dimensions and records encode params
type fakeVideoEncoder struct {
	mu       sync.Mutex
	dims     encoder.Dimensions
	probeErr error
	size     int
	fail     bool
	params   []encoder.VideoParams
	encodes  int
}

func (f *fakeVideoEncoder) ProbeDimensions(ctx context.Context, src string) (encoder.Dimensions, error) {
	if f.probeErr != nil {
		return encoder.Dimensions{}, f.probeErr
	}
	if f.dims == (encoder.Dimensions{}) {
		return encoder.Dimensions{Width: 1920, Height: 1080}, nil
	}
	return f.dims, nil
}

func (f *fakeVideoEncoder) EncodeVideo(ctx context.Context, src, dst string, p encoder.VideoParams) encoder.Result {
	f.mu.Lock()
	f.params = append(f.params, p)
	f.encodes++
	f.mu.Unlock()

	if f.fail {
		return encoder.Failure(errors.New("ffmpeg: exit status 1"))
	}
	size := f.size
	if size == 0 {
		size = 100
	}
	if err := os.WriteFile(dst, make([]byte, size), 0644); err != nil {
		return encoder.Failure(err)
	}
	return encoder.Result{}
}

// fakeMetadata returns fixed fields and records writes
type fakeMetadata struct {
	mu       sync.Mutex
	fields   map[string]string
	readErr  error
	writeErr error
	written  map[string]map[string]string
}

func (f *fakeMetadata) ReadTextFields(ctx context.Context, src string) (map[string]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.fields, nil
}

func (f *fakeMetadata) WriteTextFields(ctx context.Context, dst string, fields map[string]string) encoder.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.written == nil {
		f.written = make(map[string]map[string]string)
	}
	f.written[dst] = fields
	if f.writeErr != nil {
		return encoder.Failure(f.writeErr)
	}
	return encoder.Result{}
}

// recordingFormatter captures progress updates
type recordingFormatter struct {
	mu       sync.Mutex
	started  int
	updates  []output.ProgressUpdate
	complete *models.BatchReport
}

func (f *recordingFormatter) Start(totalItems int, workers int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = totalItems
	return nil
}

func (f *recordingFormatter) Progress(update output.ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update)
	return nil
}

func (f *recordingFormatter) Complete(report *models.BatchReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.complete = report
	return nil
}

func (f *recordingFormatter) Error(err error) error { return nil }
func (f *recordingFormatter) Name() string          { return "recording" }

// failingMove wraps a backend and refuses to move one path
type failingMove struct {
	storage.Backend
	path string
}

func (f *failingMove) Move(ctx context.Context, src, dst string) error {
	if src == f.path {
		return errors.New("permission denied")
	}
	return f.Backend.Move(ctx, src, dst)
}
