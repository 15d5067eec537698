package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/indexer/internal/coord"
	"github.com/kailas-cloud/indexer/internal/domain"
	"github.com/kailas-cloud/indexer/internal/domain/index/field"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/topology"
)

// --- cloud ---

func TestCreateIndex_CloudPublishesConfig(t *testing.T) {
	f := newFixture(t, topology.Cloud)

	var createdName, createdConfig string
	f.engine.createCollectionFn = func(name, configSet string) error {
		createdName, createdConfig = name, configSet
		if !f.coord.has("configs/logs") {
			t.Error("config set must be published before the collection is created")
		}
		return nil
	}
	var applied []solr.FieldDefinition
	f.engine.addFieldsFn = func(_ string, fields []solr.FieldDefinition) error {
		applied = fields
		return nil
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{
		Name:      "logs",
		Fields:    []field.Field{makeField(t, "ts", "date"), makeField(t, "msg", "text")},
		UniqueKey: "id",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !f.coord.has("configs/logs") || !f.coord.has("configs/logs/schema.xml") {
		t.Error("expected config set published under configs/logs")
	}
	if createdName != "logs" || createdConfig != "logs" {
		t.Errorf("expected collection logs with config logs, got %q/%q", createdName, createdConfig)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 fields applied, got %d", len(applied))
	}
	for i, want := range []string{"ts", "msg"} {
		if applied[i].Name != want || !applied[i].Stored {
			t.Errorf("field %d: got %+v, want %s stored", i, applied[i], want)
		}
	}
	if len(f.stager.cloud) != 1 || !f.stager.cloud[0] {
		t.Error("expected one cloud staging")
	}
	f.stager.assertReleased(t)
	if f.coord.opened != f.coord.closed {
		t.Errorf("sessions leaked: opened %d closed %d", f.coord.opened, f.coord.closed)
	}
}

func TestCreateIndex_CloudStoredFalseForwarded(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	var applied []solr.FieldDefinition
	f.engine.addFieldsFn = func(_ string, fields []solr.FieldDefinition) error {
		applied = fields
		return nil
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{
		Name:   "logs",
		Fields: []field.Field{makeField(t, "body", "text", field.WithStored(false), field.WithMultiValued(true))},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(applied) != 1 || applied[0].Stored {
		t.Errorf("expected stored=false, got %+v", applied)
	}
}

func TestCreateIndex_CloudExistingConfigSet(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	var createdConfig string
	f.engine.createCollectionFn = func(_, configSet string) error {
		createdConfig = configSet
		return nil
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs", ConfigSet: "shared"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if createdConfig != "shared" {
		t.Errorf("expected config set 'shared', got %q", createdConfig)
	}
	if len(f.stager.cloud) != 0 {
		t.Error("staging must be skipped for an existing config set")
	}
	if f.coord.opened != 0 {
		t.Error("coordination service must not be contacted for an existing config set")
	}
}

func TestCreateIndex_CloudConfigAlreadyPublished(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.coord.put("configs/logs", nil)
	f.coord.put("configs/logs/schema.xml", []byte("foreign"))

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if !f.coord.has("configs/logs/schema.xml") {
		t.Error("existing config set must not be touched")
	}
	if f.engine.called("CreateCollection") {
		t.Error("collection must not be created")
	}
	if len(f.stager.cloud) != 0 {
		t.Error("nothing should be staged when the config set exists")
	}
}

func TestCreateIndex_CloudPublishFailureRemovesPartialEntry(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	writeErr := errors.New("connection loss")
	f.coord.copyFn = func(m *memCoord, dest, _ string) error {
		m.put(dest, nil)
		m.put(dest+"/schema.xml", []byte("<schema/>"))
		return &coord.Error{Op: coord.OpCopy, Path: dest + "/solrconfig.xml", Err: writeErr}
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	de := asDomainError(t, err)
	if !errors.Is(err, domain.ErrCreateFailed) || !errors.Is(err, writeErr) {
		t.Fatalf("expected ErrCreateFailed wrapping the cause, got %v", err)
	}
	if de.Detail == "" {
		t.Error("expected detail")
	}
	if f.coord.has("configs/logs") || f.coord.has("configs/logs/schema.xml") {
		t.Error("partial config set must be removed")
	}
	if f.engine.called("CreateCollection") {
		t.Error("collection must not be created")
	}
	f.stager.assertReleased(t)
	if f.coord.opened != f.coord.closed {
		t.Errorf("sessions leaked: opened %d closed %d", f.coord.opened, f.coord.closed)
	}
}

func TestCreateIndex_CloudConcurrentPublisherKeepsForeignEntry(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.coord.copyFn = func(m *memCoord, dest, _ string) error {
		m.put(dest, []byte("other creator"))
		return &coord.Error{Op: coord.OpCopy, Path: dest, Err: coord.ErrNodeExists}
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	if !f.coord.has("configs/logs") {
		t.Error("entry written by another creator must not be removed")
	}
	f.stager.assertReleased(t)
}

func TestCreateIndex_CloudStagingFailure(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.stager.err = errors.New("template error")

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if f.coord.has("configs/logs") {
		t.Error("nothing must be published")
	}
}

func TestCreateIndex_CloudCoordinationUnavailable(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.coord.openErr = errors.New("no ensemble")

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	asDomainError(t, err)
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
}

func TestCreateIndex_CloudCollectionFailureRemovesConfig(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.engine.createCollectionFn = func(string, string) error {
		return &solr.Error{Op: solr.OpCreateCollection, Status: 400, Body: "bad shards"}
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if f.coord.has("configs/logs") {
		t.Error("published config set must be removed when the collection cannot be created")
	}
	if f.engine.called("AddFields") {
		t.Error("fields must not be applied")
	}
}

func TestCreateIndex_CloudFieldFailureKeepsCollection(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.engine.addFieldsFn = func(string, []solr.FieldDefinition) error {
		return errors.New("unknown field type")
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{
		Name:   "logs",
		Fields: []field.Field{makeField(t, "ts", "nope")},
	})
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if f.engine.called("DeleteCollection") {
		t.Error("collection must not be deleted on field failure")
	}
	if !f.coord.has("configs/logs") {
		t.Error("config set of the created collection must stay")
	}
}

func TestCreateIndex_InvalidRequest(t *testing.T) {
	f := newFixture(t, topology.Cloud)

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "bad name!"})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema for name, got %v", err)
	}

	err = f.svc.CreateIndex(context.Background(), CreateRequest{
		Name:   "logs",
		Fields: []field.Field{makeField(t, "a", "string"), makeField(t, "a", "text")},
	})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema for duplicate fields, got %v", err)
	}
	if len(f.engine.calls) != 0 {
		t.Errorf("expected no engine calls, got %v", f.engine.calls)
	}
}

// --- standalone ---

func TestCreateIndex_StandaloneCreatesCore(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	instanceDir := filepath.Join(f.svc.cfg.CoreInstanceDir, "logs")

	f.engine.createCoreFn = func(name, dir string) (bool, error) {
		if name != "logs" || dir != instanceDir {
			t.Errorf("unexpected core %q at %q", name, dir)
		}
		if _, err := os.Stat(filepath.Join(dir, "conf", "schema.xml")); err != nil {
			t.Errorf("expected installed config at core creation: %v", err)
		}
		return true, nil
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{
		Name:   "logs",
		Fields: []field.Field{makeField(t, "id", "string")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(instanceDir); !errors.Is(err, os.ErrNotExist) {
		t.Error("instance directory must be removed after core creation")
	}
	if len(f.stager.cloud) != 1 || f.stager.cloud[0] {
		t.Error("expected one standalone staging")
	}
	f.stager.assertReleased(t)
	if f.coord.opened != 0 {
		t.Error("coordination service must not be used in standalone mode")
	}
	if _, err := os.Stat(filepath.Join(f.svc.cfg.CoreInstanceDir, ".logs.lock")); err != nil {
		t.Errorf("lock file must stay in place: %v", err)
	}
}

func TestCreateIndex_StandaloneLockReusable(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	f.engine.createCoreFn = func(string, string) (bool, error) { return true, nil }

	for i := range 2 {
		if err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"}); err != nil {
			t.Fatalf("create %d: unexpected error: %v", i, err)
		}
	}
	unlock, err := lockInstanceDir(f.svc.cfg.CoreInstanceDir, "logs")
	if err != nil {
		t.Fatalf("lock must be free after create: %v", err)
	}
	unlock()
}

func TestCreateIndex_StandaloneNeverOverwrites(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	instanceDir := filepath.Join(f.svc.cfg.CoreInstanceDir, "logs")
	if err := os.MkdirAll(instanceDir, 0o755); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(instanceDir, "core.properties")
	if err := os.WriteFile(marker, []byte("name=logs"), 0o600); err != nil {
		t.Fatal(err)
	}

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	b, err := os.ReadFile(marker)
	if err != nil || string(b) != "name=logs" {
		t.Errorf("existing instance directory was modified: %v %q", err, b)
	}
	if f.engine.called("CreateCore") || len(f.stager.cloud) != 0 {
		t.Error("nothing must be staged or created")
	}
}

func TestCreateIndex_StandaloneCoreRejected(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	f.engine.createCoreFn = func(string, string) (bool, error) { return false, nil }

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	de := asDomainError(t, err)
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if de.Detail != "failed to create core: logs" {
		t.Errorf("unexpected detail %q", de.Detail)
	}
	if _, err := os.Stat(filepath.Join(f.svc.cfg.CoreInstanceDir, "logs")); !errors.Is(err, os.ErrNotExist) {
		t.Error("instance directory must be removed on failure")
	}
	f.stager.assertReleased(t)
}

func TestCreateIndex_StandaloneEngineError(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	f.engine.createCoreFn = func(string, string) (bool, error) { return false, errors.New("connection refused") }

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(f.svc.cfg.CoreInstanceDir, "logs")); !errors.Is(err, os.ErrNotExist) {
		t.Error("instance directory must be removed on failure")
	}
}

func TestCreateIndex_StandaloneStagingFailure(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	f.stager.err = errors.New("disk full")

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if f.engine.called("CreateCore") {
		t.Error("core must not be created")
	}
}

func TestCreateIndex_StandaloneInstallFailure(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	f.stager.lostConfigRoot = true

	err := f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrCreateFailed) {
		t.Fatalf("expected ErrCreateFailed, got %v", err)
	}
	if f.engine.called("CreateCore") {
		t.Error("core must not be created without an installed config")
	}
	f.stager.assertReleased(t)
	if _, err := os.Stat(filepath.Join(f.svc.cfg.CoreInstanceDir, "logs")); !errors.Is(err, os.ErrNotExist) {
		t.Error("instance directory must be removed on failure")
	}
}

func TestCreateIndex_StandaloneLocked(t *testing.T) {
	f := newFixture(t, topology.Standalone)
	unlock, err := lockInstanceDir(f.svc.cfg.CoreInstanceDir, "logs")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	err = f.svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists while another creator holds the lock, got %v", err)
	}
}

func TestCreateIndex_StandaloneWithoutInstanceRoot(t *testing.T) {
	svc := New(&mockEngine{}, &mockDetector{mode: topology.Standalone}, newMemCoord(), &mockStager{t: t}, Config{})

	err := svc.CreateIndex(context.Background(), CreateRequest{Name: "logs"})
	if !errors.Is(err, domain.ErrUnsupportedMode) {
		t.Fatalf("expected ErrUnsupportedMode, got %v", err)
	}
}

func TestFieldDefinitions(t *testing.T) {
	fields := []field.Field{
		makeField(t, "id", "string"),
		makeField(t, "tags", "string", field.WithMultiValued(true), field.WithStored(false)),
	}

	staged := fieldDefinitions(fields, "id")
	if len(staged) != 1 || staged[0].Name != "tags" {
		t.Fatalf("declared unique key must be skipped, got %+v", staged)
	}
	if !staged[0].Indexed || staged[0].Stored || !staged[0].MultiValued {
		t.Errorf("attributes not carried over: %+v", staged[0])
	}

	if shared := fieldDefinitions(fields, ""); len(shared) != 2 {
		t.Errorf("every field must be sent for a named config set, got %+v", shared)
	}
}
