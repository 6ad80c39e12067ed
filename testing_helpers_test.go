// testing_helpers_test.go: Recording extensions and fake collaborators for tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package pluginhost

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	goerrors "github.com/agilira/go-errors"
)

// journal records hook calls across extensions in call order.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(identifier string, event HookEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, identifier+":"+string(event))
}

func (j *journal) all() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = nil
}

// count returns how many times identifier received event.
func (j *journal) count(identifier string, event HookEvent) int {
	want := identifier + ":" + string(event)
	n := 0
	for _, e := range j.all() {
		if e == want {
			n++
		}
	}
	return n
}

// of returns the identifiers that received event, in order.
func (j *journal) of(event HookEvent) []string {
	var ids []string
	suffix := ":" + string(event)
	for _, e := range j.all() {
		if len(e) > len(suffix) && e[len(e)-len(suffix):] == suffix {
			ids = append(ids, e[:len(e)-len(suffix)])
		}
	}
	return ids
}

// recordingExtension journals every hook and fails or panics on demand.
type recordingExtension struct {
	id      string
	journal *journal

	failOn  map[HookEvent]error
	panicOn map[HookEvent]bool

	// onHook runs after the hook is journaled.
	onHook func(event HookEvent)
}

func newRecording(id string, j *journal) *recordingExtension {
	return &recordingExtension{
		id:      id,
		journal: j,
		failOn:  make(map[HookEvent]error),
		panicOn: make(map[HookEvent]bool),
	}
}

func (r *recordingExtension) Identifier() string { return r.id }

func (r *recordingExtension) hook(event HookEvent) error {
	r.journal.add(r.id, event)
	if r.onHook != nil {
		r.onHook(event)
	}
	if r.panicOn[event] {
		panic(fmt.Sprintf("%s exploded in %s", r.id, event))
	}
	return r.failOn[event]
}

func (r *recordingExtension) EarlyInit() error { return r.hook(EventEarlyInit) }
func (r *recordingExtension) Init() error { return r.hook(EventInit) }
func (r *recordingExtension) Update() error { return r.hook(EventUpdate) }
func (r *recordingExtension) FixedUpdate() error { return r.hook(EventFixedUpdate) }
func (r *recordingExtension) Tick(int) error { return r.hook(EventTick) }
func (r *recordingExtension) OnGUI() error { return r.hook(EventOnGUI) }
func (r *recordingExtension) SettingsChanged() error { return r.hook(EventSettingsChanged) }
func (r *recordingExtension) DefsLoaded() error { return r.hook(EventDefsLoaded) }
func (r *recordingExtension) SceneLoaded(Scene) error {
	return r.hook(EventSceneLoaded)
}
func (r *recordingExtension) WorldLoaded() error { return r.hook(EventWorldLoaded) }
func (r *recordingExtension) MapGenerated(Map) error {
	return r.hook(EventMapGenerated)
}
func (r *recordingExtension) MapComponentsInitializing(Map) error {
	return r.hook(EventMapComponentsInitializing)
}
func (r *recordingExtension) MapLoaded(Map) error { return r.hook(EventMapLoaded) }
func (r *recordingExtension) MapDiscarded(Map) error { return r.hook(EventMapDiscarded) }

// fatalT is the part of *testing.T and *rapid.T the fixture needs.
type fatalT interface {
	Helper()
	Fatalf(format string, args ...any)
}

// fixture builds catalogs and controllers around recording extensions.
type fixture struct {
	t         fatalT
	journal   *journal
	catalog   *Catalog
	units     *StaticUnitSource
	queue     *ContinuationQueue
	logger    *TestLogger
	metrics   *DefaultMetricsCollector
	patcher   *countingPatcher
	updates   *MemoryUpdateManager
	instances map[string]*recordingExtension
	created   map[string]int

	// hooks and failures are installed on instances as they are created.
	hooks    map[string]func(HookEvent)
	failures map[string]map[HookEvent]error
	panics   map[string]map[HookEvent]bool
}

func newFixture(t fatalT) *fixture {
	t.Helper()
	logger := NewTestLogger()
	return &fixture{
		t:         t,
		journal:   &journal{},
		catalog:   NewCatalog(),
		units:     NewStaticUnitSource(),
		queue:     NewContinuationQueue(logger),
		logger:    logger,
		metrics:   NewDefaultMetricsCollector(),
		patcher:   &countingPatcher{applied: make(map[string]int)},
		updates:   NewMemoryUpdateManager(),
		instances: make(map[string]*recordingExtension),
		created:   make(map[string]int),
		hooks:     make(map[string]func(HookEvent)),
		failures:  make(map[string]map[HookEvent]error),
		panics:    make(map[string]map[HookEvent]bool),
	}
}

// failOn makes every instance named id return err from event.
func (f *fixture) failOn(id string, event HookEvent, err error) {
	if f.failures[id] == nil {
		f.failures[id] = make(map[HookEvent]error)
	}
	f.failures[id][event] = err
}

// panicOn makes every instance named id panic in event.
func (f *fixture) panicOn(id string, event HookEvent) {
	if f.panics[id] == nil {
		f.panics[id] = make(map[HookEvent]bool)
	}
	f.panics[id][event] = true
}

// factory returns a factory whose instances are recording extensions named id.
func (f *fixture) factory(typeName, id string, early bool) ExtensionFactory {
	return ExtensionFactory{
		TypeName:  typeName,
		EarlyInit: early,
		New: func() (Extension, error) {
			ext := newRecording(id, f.journal)
			ext.onHook = f.hooks[id]
			for event, err := range f.failures[id] {
				ext.failOn[event] = err
			}
			for event := range f.panics[id] {
				ext.panicOn[event] = true
			}
			f.created[typeName]++
			if _, exists := f.instances[id]; !exists {
				f.instances[id] = ext
			}
			return ext, nil
		},
	}
}

// codeUnit registers a code unit with the given factories.
func (f *fixture) codeUnit(name string, factories ...ExtensionFactory) {
	f.t.Helper()
	if err := f.catalog.Register(CodeUnit{Name: name, Version: "1.0.0", Factories: factories}); err != nil {
		f.t.Fatalf("register %s: %v", name, err)
	}
}

// unit builds a deployable unit shipping the given code units.
func unit(packageID string, loadOrder int, codeUnits ...string) DeployableUnit {
	return DeployableUnit{PackageID: packageID, Name: packageID, LoadOrder: loadOrder, CodeUnits: codeUnits}
}

func (f *fixture) controller(opts ...func(*Options)) *Controller {
	options := Options{
		Catalog: f.catalog,
		Units:   f.units,
		Host:    f.queue,
		Logger:  f.logger,
		Metrics: f.metrics,
		Patcher: f.patcher,
		NewUpdateManager: func() (UpdateManager, error) {
			return f.updates, nil
		},
	}
	for _, opt := range opts {
		opt(&options)
	}
	return NewController(options)
}

// boot runs EarlyInit, LateInit and the first load pass.
func (f *fixture) boot(c *Controller) {
	f.t.Helper()
	c.EarlyInit()
	c.LateInit()
	if ran := f.queue.FinishLongEvent(); ran != 1 {
		f.t.Fatalf("expected the first load pass to be queued, ran %d continuations", ran)
	}
}

// countingPatcher counts Apply calls per code unit.
type countingPatcher struct {
	mu      sync.Mutex
	applied map[string]int
	fail    map[string]error
}

func (p *countingPatcher) Apply(codeUnit string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied[codeUnit]++
	return p.fail[codeUnit]
}

func (p *countingPatcher) count(codeUnit string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied[codeUnit]
}

// mapResolver resolves versions from a map; unknown units fail.
type mapResolver struct {
	versions map[string]string
	calls    map[string]int
}

func (r *mapResolver) ResolveVersion(codeUnit string) (string, error) {
	if r.calls == nil {
		r.calls = make(map[string]int)
	}
	r.calls[codeUnit]++
	if v, ok := r.versions[codeUnit]; ok {
		return v, nil
	}
	return "", errors.New("no version for " + codeUnit)
}

// failingUpdates fails inspection for the listed identifiers.
type failingUpdates struct {
	MemoryUpdateManager
	failFor map[string]bool
}

func (u *failingUpdates) InspectActiveExtension(identifier, version string) error {
	if u.failFor[identifier] {
		return errors.New("inspection rejected " + identifier)
	}
	return u.MemoryUpdateManager.InspectActiveExtension(identifier, version)
}

// countingWorld counts world-object manager notifications.
type countingWorld struct {
	worldLoaded int
	defsLoaded  int
	err         error
}

func (w *countingWorld) OnWorldLoaded() error { w.worldLoaded++; return w.err }
func (w *countingWorld) OnDefsLoaded() error { w.defsLoaded++; return w.err }

// ids returns the identifiers of descriptors in order.
func ids(descriptors []*PluginDescriptor) []string {
	out := make([]string, len(descriptors))
	for i, d := range descriptors {
		out[i] = d.Identifier()
	}
	return out
}

// seqIDs returns "prefix0".."prefix<n-1>".
func seqIDs(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = prefix + strconv.Itoa(i)
	}
	return out
}

// causeOf follows the causes of structured errors to the innermost error.
func causeOf(err error) error {
	for {
		var structured *goerrors.Error
		if !errors.As(err, &structured) || structured.Cause == nil {
			return err
		}
		err = structured.Cause
	}
}
