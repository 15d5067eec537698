package index

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kailas-cloud/indexer/internal/coord"
	"github.com/kailas-cloud/indexer/internal/domain/index/field"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/topology"
)

// --- Mocks ---

type mockEngine struct {
	listCollectionsFn  func() ([]string, error)
	listAliasesFn      func() (map[string][]string, error)
	listCoresFn        func() ([]string, error)
	deleteAliasFn      func(name string) error
	createCollectionFn func(name, configSet string) error
	addFieldsFn        func(name string, fields []solr.FieldDefinition) error
	createCoreFn       func(name, instanceDir string) (bool, error)
	deleteCollectionFn func(name string) (solr.DeleteResult, error)
	addCollectionFn    func(name string) error
	selectFn           func(name string, rows int) (json.RawMessage, error)
	updateFn           func(name string, req solr.UpdateRequest) (json.RawMessage, error)
	listConfigSetsFn   func() ([]string, error)
	getSchemaFn        func(name string) (json.RawMessage, error)

	calls []string
}

func (m *mockEngine) record(call string) { m.calls = append(m.calls, call) }

func (m *mockEngine) called(call string) bool {
	for _, c := range m.calls {
		if c == call {
			return true
		}
	}
	return false
}

func (m *mockEngine) ListCollections(context.Context) ([]string, error) {
	m.record("ListCollections")
	if m.listCollectionsFn == nil {
		return nil, nil
	}
	return m.listCollectionsFn()
}

func (m *mockEngine) ListAliases(context.Context) (map[string][]string, error) {
	m.record("ListAliases")
	if m.listAliasesFn == nil {
		return nil, nil
	}
	return m.listAliasesFn()
}

func (m *mockEngine) ListCores(context.Context) ([]string, error) {
	m.record("ListCores")
	if m.listCoresFn == nil {
		return nil, nil
	}
	return m.listCoresFn()
}

func (m *mockEngine) DeleteAlias(_ context.Context, name string) error {
	m.record("DeleteAlias")
	if m.deleteAliasFn == nil {
		return nil
	}
	return m.deleteAliasFn(name)
}

func (m *mockEngine) CreateCollection(_ context.Context, name, configSet string) error {
	m.record("CreateCollection")
	if m.createCollectionFn == nil {
		return nil
	}
	return m.createCollectionFn(name, configSet)
}

func (m *mockEngine) AddFields(_ context.Context, name string, fields []solr.FieldDefinition) error {
	m.record("AddFields")
	if m.addFieldsFn == nil {
		return nil
	}
	return m.addFieldsFn(name, fields)
}

func (m *mockEngine) CreateCore(_ context.Context, name, instanceDir string) (bool, error) {
	m.record("CreateCore")
	if m.createCoreFn == nil {
		return true, nil
	}
	return m.createCoreFn(name, instanceDir)
}

func (m *mockEngine) DeleteCollection(_ context.Context, name string) (solr.DeleteResult, error) {
	m.record("DeleteCollection")
	if m.deleteCollectionFn == nil {
		return solr.DeleteResult{}, nil
	}
	return m.deleteCollectionFn(name)
}

func (m *mockEngine) AddCollection(_ context.Context, name string) error {
	m.record("AddCollection")
	if m.addCollectionFn == nil {
		return nil
	}
	return m.addCollectionFn(name)
}

func (m *mockEngine) Select(_ context.Context, name string, rows int) (json.RawMessage, error) {
	m.record("Select")
	if m.selectFn == nil {
		return json.RawMessage(`{"numFound":0,"docs":[]}`), nil
	}
	return m.selectFn(name, rows)
}

func (m *mockEngine) Update(_ context.Context, name string, req solr.UpdateRequest) (json.RawMessage, error) {
	m.record("Update")
	if m.updateFn == nil {
		return json.RawMessage(`{"status":0}`), nil
	}
	return m.updateFn(name, req)
}

func (m *mockEngine) ListConfigSets(context.Context) ([]string, error) {
	m.record("ListConfigSets")
	if m.listConfigSetsFn == nil {
		return nil, nil
	}
	return m.listConfigSetsFn()
}

func (m *mockEngine) GetSchema(_ context.Context, name string) (json.RawMessage, error) {
	m.record("GetSchema")
	if m.getSchemaFn == nil {
		return json.RawMessage(`{"name":"x"}`), nil
	}
	return m.getSchemaFn(name)
}

type mockDetector struct {
	mode topology.Mode
	err  error
}

func (m *mockDetector) Mode(context.Context) (topology.Mode, error) { return m.mode, m.err }

// memCoord is an in-memory coordination service.
type memCoord struct {
	mu       sync.Mutex
	paths    map[string][]byte
	opened   int
	closed   int
	openErr  error
	copyFn   func(m *memCoord, dest, src string) error
	deleteFn func(m *memCoord, path string) error
}

func newMemCoord() *memCoord {
	return &memCoord{paths: map[string][]byte{}}
}

func (m *memCoord) Open(context.Context) (coord.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openErr != nil {
		return nil, m.openErr
	}
	m.opened++
	return &memSession{m: m}, nil
}

func (m *memCoord) has(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.paths[path]
	return ok
}

func (m *memCoord) get(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.paths[path]
	return data, ok
}

func (m *memCoord) put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths[path] = data
}

func (m *memCoord) removeTree(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p := range m.paths {
		if p == path || strings.HasPrefix(p, path+"/") {
			delete(m.paths, p)
		}
	}
}

type memSession struct {
	m *memCoord
}

func (s *memSession) PathExists(_ context.Context, path string) (bool, error) {
	return s.m.has(path), nil
}

func (s *memSession) CopyPath(_ context.Context, dest, src string) error {
	if s.m.copyFn != nil {
		return s.m.copyFn(s.m, dest, src)
	}
	if s.m.has(dest) {
		return &coord.Error{Op: coord.OpCopy, Path: dest, Err: coord.ErrNodeExists}
	}
	nodes, err := coord.LocalTree(dest, src)
	if err != nil {
		return err
	}
	s.m.put(dest, nil)
	for _, n := range nodes {
		s.m.put(n.Path, n.Data)
	}
	return nil
}

func (s *memSession) DeletePath(_ context.Context, path string) error {
	if s.m.deleteFn != nil {
		return s.m.deleteFn(s.m, path)
	}
	if !s.m.has(path) {
		return &coord.Error{Op: coord.OpDelete, Path: path, Err: coord.ErrNoNode}
	}
	s.m.removeTree(path)
	return nil
}

func (s *memSession) Close() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	s.m.closed++
	return nil
}

// mockStager writes a minimal bundle under a test temp dir and remembers every temp root.
type mockStager struct {
	t         *testing.T
	err       error
	tempRoots []string
	cloud     []bool
	// lostConfigRoot reports a config root that is not on disk.
	lostConfigRoot bool
}

func (m *mockStager) Stage(_ []field.Field, _, _ string, cloud bool) (string, string, error) {
	m.cloud = append(m.cloud, cloud)
	if m.err != nil {
		return "", "", m.err
	}
	tempRoot, err := os.MkdirTemp(m.t.TempDir(), "stage-")
	if err != nil {
		m.t.Fatalf("MkdirTemp: %v", err)
	}
	configRoot := filepath.Join(tempRoot, "solr_configs")
	if err := os.MkdirAll(filepath.Join(configRoot, "conf"), 0o755); err != nil {
		m.t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configRoot, "conf", "schema.xml"), []byte("<schema/>"), 0o600); err != nil {
		m.t.Fatalf("WriteFile: %v", err)
	}
	m.tempRoots = append(m.tempRoots, tempRoot)
	if m.lostConfigRoot {
		return tempRoot, filepath.Join(tempRoot, "missing"), nil
	}
	return tempRoot, configRoot, nil
}

func (m *mockStager) assertReleased(t *testing.T) {
	t.Helper()
	for _, root := range m.tempRoots {
		if _, err := os.Stat(root); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("staging root %s still exists", root)
		}
	}
}

// --- Helpers ---

type fixture struct {
	engine *mockEngine
	coord  *memCoord
	stager *mockStager
	svc    *Service
}

func newFixture(t *testing.T, mode topology.Mode) *fixture {
	t.Helper()
	f := &fixture{
		engine: &mockEngine{},
		coord:  newMemCoord(),
		stager: &mockStager{t: t},
	}
	f.svc = New(f.engine, &mockDetector{mode: mode}, f.coord, f.stager, Config{
		CoreInstanceDir: filepath.Join(t.TempDir(), "cores"),
	})
	return f
}

func makeField(t *testing.T, name, typ string, opts ...field.Option) field.Field {
	t.Helper()
	f, err := field.New(name, typ, opts...)
	if err != nil {
		t.Fatalf("field.New: %v", err)
	}
	return f
}
