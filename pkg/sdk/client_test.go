package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_NoSolr(t *testing.T) {
	_, err := New(context.Background(), WithZooKeeper("localhost:2181"))
	if err == nil {
		t.Fatal("expected error when no solr url provided")
	}
}

func TestNew_NoCoordination(t *testing.T) {
	_, err := New(context.Background(), WithSolr("http://localhost:8983/solr/"))
	if err == nil {
		t.Fatal("expected error when no coordination service provided")
	}
}

func TestCreateOpener_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "etcd", addrs: []string{"localhost:2379"}}
	_, err := createOpener(cfg)
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestCreateOpener_Drivers(t *testing.T) {
	for _, opt := range []Option{
		WithZooKeeper("zk1:2181", "zk2:2181/solr"),
		WithRedis("localhost:6379", ""),
		WithValkey("localhost:6379", ""),
	} {
		cfg := &clientConfig{}
		opt.apply(cfg)
		o, err := createOpener(cfg)
		if err != nil {
			t.Fatalf("driver %s: %v", cfg.driver, err)
		}
		if o == nil {
			t.Fatalf("driver %s: nil opener", cfg.driver)
		}
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}

	WithSolr("http://solr:8983/solr/").apply(cfg)
	WithSolrAuth("admin", "pw").apply(cfg)
	if cfg.solrURL != "http://solr:8983/solr/" || cfg.solrUsername != "admin" || cfg.solrPassword != "pw" {
		t.Errorf("solr = (%q, %q, %q)", cfg.solrURL, cfg.solrUsername, cfg.solrPassword)
	}

	WithCollectionLayout(2, 3).apply(cfg)
	if cfg.numShards != 2 || cfg.replicationFactor != 3 {
		t.Errorf("layout = (%d, %d), want (2, 3)", cfg.numShards, cfg.replicationFactor)
	}

	WithValkey("localhost:6379", "secret").apply(cfg)
	if cfg.driver != "valkey" {
		t.Errorf("driver = %q, want valkey", cfg.driver)
	}
	if cfg.addrs[0] != "localhost:6379" {
		t.Errorf("addr = %q, want localhost:6379", cfg.addrs[0])
	}
	if cfg.password != "secret" {
		t.Errorf("password = %q, want secret", cfg.password)
	}

	WithZooKeeper("zk1:2181", "zk2:2181").apply(cfg)
	if cfg.driver != "zookeeper" || len(cfg.addrs) != 2 {
		t.Errorf("zookeeper = (%q, %v)", cfg.driver, cfg.addrs)
	}

	WithTimeout(5 * time.Second).apply(cfg)
	if cfg.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", cfg.timeout)
	}

	WithCoreInstanceDir("/var/solr/data").apply(cfg)
	if cfg.coreInstanceDir != "/var/solr/data" {
		t.Errorf("coreInstanceDir = %q", cfg.coreInstanceDir)
	}

	logger := slog.Default()
	WithLogger(logger).apply(cfg)
	if cfg.logger != logger {
		t.Error("expected logger to be set")
	}

	reg := prometheus.NewRegistry()
	WithPrometheus(reg).apply(cfg)
	if cfg.metricsReg != reg {
		t.Error("expected metricsReg to be set")
	}
}

func TestObserver_NilSafe(t *testing.T) {
	var obs *observer
	obs.observe("test", time.Now(), nil)
	obs.observe("test", time.Now(), errors.New("err"))
}

func TestObserver_WithPrometheus(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("create_index", time.Now().Add(-10*time.Millisecond), nil)
	obs.observe("create_index", time.Now(), errors.New("fail"))

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	found := false
	for _, f := range families {
		if f.GetName() == "indexer_sdk_operations_total" {
			found = true
			if len(f.GetMetric()) != 2 {
				t.Errorf("expected 2 metric samples, got %d", len(f.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("indexer_sdk_operations_total not found")
	}
}

func TestObserver_OutcomeLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := newObserver(nil, reg)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}

	obs.observe("delete_index", time.Now(), fmt.Errorf("wrapped: %w", ErrNotFound))
	obs.observe("create_index", time.Now(), &Error{Message: "exists", Err: ErrAlreadyExists})
	obs.observe("upload", time.Now(), ErrPayloadTooLarge)
	obs.observe("health", time.Now(), ErrEngineUnavailable)
	obs.observe("sample", time.Now(), errors.New("boom"))

	for _, tt := range []struct{ op, status string }{
		{"delete_index", "not_found"},
		{"create_index", "conflict"},
		{"upload", "invalid"},
		{"health", "unavailable"},
		{"sample", "error"},
	} {
		got := testutil.ToFloat64(obs.metrics.operations.WithLabelValues(tt.op, tt.status))
		if got != 1 {
			t.Errorf("%s/%s = %v, want 1", tt.op, tt.status, got)
		}
	}
}

func TestObserver_ReusesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("first observer: %v", err)
	}
	if _, err := newObserver(nil, reg); err != nil {
		t.Fatalf("second observer on same registry: %v", err)
	}
}

func TestObserver_WithLogger(t *testing.T) {
	obs, err := newObserver(slog.Default(), nil)
	if err != nil {
		t.Fatalf("newObserver: %v", err)
	}
	obs.observe("sample", time.Now(), nil)
	obs.observe("sample", time.Now(), errors.New("test error"))
}
