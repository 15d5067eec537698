package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/indexer/internal/domain"
	"github.com/kailas-cloud/indexer/internal/solr"
	"github.com/kailas-cloud/indexer/internal/topology"
)

func TestDeleteIndex_StandaloneRejected(t *testing.T) {
	f := newFixture(t, topology.Standalone)

	err := f.svc.DeleteIndex(context.Background(), "logs", true)
	if !errors.Is(err, domain.ErrUnsupportedMode) {
		t.Fatalf("expected ErrUnsupportedMode, got %v", err)
	}
	if len(f.engine.calls) != 0 {
		t.Errorf("expected no engine calls, got %v", f.engine.calls)
	}
}

func TestDeleteIndex_MissingIsSuccess(t *testing.T) {
	for _, raw := range []string{
		`{"responseHeader":{"status":400},"error":{"msg":"Could not find collection : logs"}}`,
		`{"responseHeader":{"status":500},"failure":{"node1":"Cannot unload non-existent core [logs]"}}`,
	} {
		f := newFixture(t, topology.Cloud)
		f.engine.deleteCollectionFn = func(string) (solr.DeleteResult, error) {
			return solr.DeleteResult{Status: 400, Message: "gone", Raw: raw}, nil
		}

		if err := f.svc.DeleteIndex(context.Background(), "logs", false); err != nil {
			t.Fatalf("expected success for %s, got %v", raw, err)
		}
		if f.coord.opened != 0 {
			t.Error("config set must not be touched for a missing collection")
		}
	}
}

func TestDeleteIndex_EngineRejects(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	raw := `{"responseHeader":{"status":500},"error":{"msg":"timeout"}}`
	f.engine.deleteCollectionFn = func(string) (solr.DeleteResult, error) {
		return solr.DeleteResult{Status: 500, Message: "timeout", Raw: raw}, nil
	}

	err := f.svc.DeleteIndex(context.Background(), "logs", false)
	de := asDomainError(t, err)
	if !errors.Is(err, domain.ErrDeleteFailed) {
		t.Fatalf("expected ErrDeleteFailed, got %v", err)
	}
	if de.Message != "Could not remove collection: timeout" {
		t.Errorf("unexpected message %q", de.Message)
	}
	if de.Detail != raw {
		t.Errorf("expected engine payload as detail, got %q", de.Detail)
	}
}

func TestDeleteIndex_TransportFailure(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.engine.deleteCollectionFn = func(string) (solr.DeleteResult, error) {
		return solr.DeleteResult{}, errors.New("connection refused")
	}

	err := f.svc.DeleteIndex(context.Background(), "logs", false)
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestDeleteIndex_RemovesConfig(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.coord.put("configs/logs", nil)
	f.coord.put("configs/logs/schema.xml", []byte("<schema/>"))

	if err := f.svc.DeleteIndex(context.Background(), "logs", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.engine.called("DeleteCollection") {
		t.Error("expected the collection to be deleted")
	}
	if f.coord.has("configs/logs") || f.coord.has("configs/logs/schema.xml") {
		t.Error("expected config set removed")
	}
	if f.engine.called("AddCollection") {
		t.Error("no compensation expected")
	}
	if f.coord.opened != 1 || f.coord.closed != 1 {
		t.Errorf("expected one scoped session, opened %d closed %d", f.coord.opened, f.coord.closed)
	}
}

func TestDeleteIndex_KeepConfig(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.coord.put("configs/logs", nil)

	if err := f.svc.DeleteIndex(context.Background(), "logs", true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.coord.has("configs/logs") {
		t.Error("config set must be kept")
	}
	if f.coord.opened != 0 {
		t.Error("coordination service must not be contacted")
	}
}

func TestDeleteIndex_ConfigFailureCompensates(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.coord.put("configs/logs", nil)
	removeErr := errors.New("session expired")
	f.coord.deleteFn = func(*memCoord, string) error { return removeErr }
	var readded string
	f.engine.addCollectionFn = func(name string) error {
		readded = name
		return nil
	}

	err := f.svc.DeleteIndex(context.Background(), "logs", false)
	if !errors.Is(err, domain.ErrDeleteFailed) || !errors.Is(err, removeErr) {
		t.Fatalf("expected ErrDeleteFailed wrapping the cause, got %v", err)
	}
	if readded != "logs" {
		t.Errorf("expected collection logs re-created, got %q", readded)
	}
	if f.coord.opened != f.coord.closed {
		t.Errorf("sessions leaked: opened %d closed %d", f.coord.opened, f.coord.closed)
	}
}

func TestDeleteIndex_CompensationFailureIsReported(t *testing.T) {
	f := newFixture(t, topology.Cloud)
	f.coord.deleteFn = func(*memCoord, string) error { return errors.New("session expired") }
	addErr := errors.New("config missing")
	f.engine.addCollectionFn = func(string) error { return addErr }

	err := f.svc.DeleteIndex(context.Background(), "logs", false)
	if !errors.Is(err, addErr) {
		t.Fatalf("expected compensation failure in chain, got %v", err)
	}
}

func TestDeleteIndex_NoConfigToRemove(t *testing.T) {
	f := newFixture(t, topology.Cloud)

	if err := f.svc.DeleteIndex(context.Background(), "logs", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.engine.called("AddCollection") {
		t.Error("no compensation expected when there is no config set")
	}
}
