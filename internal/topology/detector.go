// Package topology detects whether the search cluster runs in SolrCloud
// (distributed) or standalone mode.
//
// The mode cannot change while the process is running, so it is probed once
// and memoized. Concurrent first calls share a single probe.
package topology

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Mode is the detected cluster topology.
type Mode int32

const (
	// Unknown means the mode has not been detected yet.
	Unknown Mode = iota
	// Cloud is SolrCloud: collections, aliases and config sets in the coordination service.
	Cloud
	// Standalone is a single node with cores configured on local disk.
	Standalone
)

func (m Mode) String() string {
	switch m {
	case Cloud:
		return "cloud"
	case Standalone:
		return "standalone"
	default:
		return "unknown"
	}
}

// cloudModeName is the value the engine reports for distributed mode.
const cloudModeName = "solrcloud"

// ModeSource reports the raw mode string from the engine's system info.
// An empty string means the engine did not report one.
type ModeSource interface {
	SystemMode(ctx context.Context) (string, error)
}

// Detector memoizes the cluster mode for its lifetime.
type Detector struct {
	src    ModeSource
	group  singleflight.Group
	mode   atomic.Int32
	probes atomic.Int64
}

// NewDetector creates a Detector backed by src.
func NewDetector(src ModeSource) *Detector {
	return &Detector{src: src}
}

// Mode returns the cached mode, probing the engine on first use.
// A probe failure is not cached; the next call probes again.
func (d *Detector) Mode(ctx context.Context) (Mode, error) {
	if m := Mode(d.mode.Load()); m != Unknown {
		return m, nil
	}

	v, err, _ := d.group.Do("mode", func() (any, error) {
		if m := Mode(d.mode.Load()); m != Unknown {
			return m, nil
		}
		d.probes.Add(1)
		raw, err := d.src.SystemMode(context.WithoutCancel(ctx))
		if err != nil {
			return Unknown, fmt.Errorf("probe system info: %w", err)
		}
		m := Standalone
		if raw == "" || raw == cloudModeName {
			m = Cloud
		}
		d.mode.Store(int32(m))
		return m, nil
	})
	if err != nil {
		return Unknown, err
	}
	return v.(Mode), nil
}

// IsDistributed reports whether the cluster runs in SolrCloud mode.
func (d *Detector) IsDistributed(ctx context.Context) (bool, error) {
	m, err := d.Mode(ctx)
	if err != nil {
		return false, err
	}
	return m == Cloud, nil
}

// Probes returns how many times the engine has been asked for its mode.
func (d *Detector) Probes() int64 { return d.probes.Load() }

// Reset forgets the cached mode. Intended for tests.
func (d *Detector) Reset() {
	d.mode.Store(int32(Unknown))
}
