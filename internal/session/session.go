// Package session implements the session registry component (spec.md
// §4.F, component F): a process-wide map from session id to session
// record, protected by a single mutex, grounded on the teacher's
// internal/auth.RateLimiter map-plus-mutex shape.
package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/thewisecoder/dbrief/internal/objectstore"
	"github.com/thewisecoder/dbrief/internal/rdbms"
)

// State is a session's lifecycle state (spec §4.F).
type State string

const (
	StateActive    State = "active"
	StateInactive  State = "inactive"
	StateMigrating State = "migrating"
	StateAborting  State = "aborting"
	StateAborted   State = "aborted"
	StateFinished  State = "finished"
)

// Metrics holds the six bounded tunables (spec §3 "Metrics"). Defaults
// come from DefaultMetrics and bounds are enforced by Clamp, not by the
// zero value.
type Metrics struct {
	BatchSizeIn      int64
	BatchSizeOut     int64
	ChunkSize        int64
	IncrementalSize  int64
	LobdataChannels  int
	PlaindataChannels int
}

// metricBounds pairs a (min, max, default) triple for one Metrics field
// (spec §3: "batch_size_in [1e3..1e6]" etc; defaults per spec §6).
type metricBounds struct {
	min, max, def int64
}

var bounds = map[string]metricBounds{
	"batch_size_in":      {1e3, 1e6, 1e6},
	"batch_size_out":     {1e3, 1e6, 1e6},
	"chunk_size":         {1024, 16 << 20, 1 << 20},
	"incremental_size":   {1e3, 1e7, 1e5},
	"lobdata_channels":   {1, 32, 1},
	"plaindata_channels": {1, 32, 1},
}

// DefaultMetrics returns the spec §6 defaults: batch_size_in=1e6,
// batch_size_out=1e6, chunk_size=1 MiB, incremental_size=1e5,
// lobdata_channels=1, plaindata_channels=1.
func DefaultMetrics() Metrics {
	return Metrics{
		BatchSizeIn:       bounds["batch_size_in"].def,
		BatchSizeOut:      bounds["batch_size_out"].def,
		ChunkSize:         bounds["chunk_size"].def,
		IncrementalSize:   bounds["incremental_size"].def,
		LobdataChannels:   int(bounds["lobdata_channels"].def),
		PlaindataChannels: int(bounds["plaindata_channels"].def),
	}
}

// Clamp clips each field into its spec-defined bound, returning the
// adjusted copy. An incremental_size of -1 or 0 means no limit and is
// kept as 0.
func (m Metrics) Clamp() Metrics {
	clamp := func(v int64, b metricBounds) int64 {
		if v < b.min {
			return b.min
		}
		if v > b.max {
			return b.max
		}
		return v
	}
	m.BatchSizeIn = clamp(m.BatchSizeIn, bounds["batch_size_in"])
	m.BatchSizeOut = clamp(m.BatchSizeOut, bounds["batch_size_out"])
	m.ChunkSize = clamp(m.ChunkSize, bounds["chunk_size"])
	if m.IncrementalSize == -1 || m.IncrementalSize == 0 {
		m.IncrementalSize = 0
	} else {
		m.IncrementalSize = clamp(m.IncrementalSize, bounds["incremental_size"])
	}
	m.LobdataChannels = int(clamp(int64(m.LobdataChannels), bounds["lobdata_channels"]))
	m.PlaindataChannels = int(clamp(int64(m.PlaindataChannels), bounds["plaindata_channels"]))
	return m
}

// Spots names the source RDBMS, target RDBMS and optional target S3
// kind a session is configured for (spec §3 "spots").
type Spots struct {
	SourceRDBMS rdbms.Dialect
	TargetRDBMS rdbms.Dialect
	TargetS3Set bool
}

// Steps are the boolean flags selecting which migrator phases run
// (spec §3 "steps").
type Steps struct {
	MigrateMetadata      bool
	MigratePlaindata     bool
	MigrateLobdata       bool
	SynchronizePlaindata bool
}

// Specs carries the table/column selection knobs a migration run is
// configured with (spec §3 "specs": include/exclude, overrides,
// named_lobdata, remove_nulls, skip_nonempty, flatten_storage,
// migration_badge).
type Specs struct {
	FromSchema       string
	ToSchema         string
	Include          []string
	Exclude          []string
	Overrides        map[string]string
	NamedLobdata     map[string]rdbms.RefSpec // key "table.column"
	RemoveNulls      []string
	SkipNonempty     bool
	FlattenStorage   bool
	MigrationBadge   string
	ProcessIndexes   bool
	ProcessViews     bool
	RelaxReflection  bool
}

// Session is one client's migration-configuration-and-lifecycle record
// (spec §3 "Session").
type Session struct {
	ID       string
	ClientID string
	State    State
	Spots    Spots
	Steps    Steps
	Metrics  Metrics
	Specs    Specs

	Connections map[rdbms.Dialect]rdbms.ConnConfig
	S3Config    *objectstore.Config

	Errors []string
}

// AssertAbort reports whether the session is in Aborting state
// (spec §4.F "assert_abort"); called by workers as the cooperative
// cancellation probe.
func (s *Session) AssertAbort() bool {
	return s.State == StateAborting
}

// Registry is the process-wide, mutex-protected session map (spec
// §4.F: "A process-wide mapping from session id to a session record,
// protected by a single mutex").
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create implements spec §4.F "create": demotes any previous Active
// session of clientID to Inactive, then inserts a new Active session
// under a freshly generated UUID.
func (r *Registry) Create(clientID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.ClientID == clientID && s.State == StateActive {
			s.State = StateInactive
		}
	}

	id := uuid.NewString()
	s := &Session{
		ID:          id,
		ClientID:    clientID,
		State:       StateActive,
		Metrics:     DefaultMetrics(),
		Connections: make(map[rdbms.Dialect]rdbms.ConnConfig),
	}
	r.sessions[id] = s
	return s, nil
}

// Get returns the session by id, or false if absent.
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// Delete implements spec §4.F "delete": allowed only from
// {Active, Inactive, Aborted, Finished}.
func (r *Registry) Delete(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if !deletable(s.State) {
		return fmt.Errorf("session %s: cannot delete from state %s", sessionID, s.State)
	}
	delete(r.sessions, sessionID)
	return nil
}

func deletable(st State) bool {
	switch st {
	case StateActive, StateInactive, StateAborted, StateFinished:
		return true
	default:
		return false
	}
}

// SetActive implements spec §4.F "set_active": when active is true,
// demotes any sibling Active session of the same client and promotes
// this one; when false, demotes this session to Inactive. Allowed
// only from {Active, Inactive, Aborted, Finished}.
func (r *Registry) SetActive(sessionID string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if !deletable(s.State) {
		return fmt.Errorf("session %s: cannot set_active from state %s", sessionID, s.State)
	}
	if active {
		for id, other := range r.sessions {
			if id != sessionID && other.ClientID == s.ClientID && other.State == StateActive {
				other.State = StateInactive
			}
		}
		s.State = StateActive
	} else {
		s.State = StateInactive
	}
	return nil
}

// Abort implements spec §4.F "abort": allowed only from Migrating,
// transitions to Aborting; workers observe the flag on their next
// AssertAbort probe.
func (r *Registry) Abort(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	if s.State != StateMigrating {
		return fmt.Errorf("session %s: cannot abort from state %s", sessionID, s.State)
	}
	s.State = StateAborting
	return nil
}

// AssertAbort implements spec §4.F "assert_abort": returns true iff the
// session is Aborting, and in that case records an error entry on the
// session.
func (r *Registry) AssertAbort(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	aborting := s.State == StateAborting
	if aborting {
		s.Errors = append(s.Errors, "migration aborted by client request")
	}
	return aborting
}

// GetActive implements spec §4.F "get_active".
func (r *Registry) GetActive(clientID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ClientID == clientID && s.State == StateActive {
			return s, true
		}
	}
	return nil, false
}

// SetState directly transitions a session (used by the migrator
// orchestrator to move Migrating -> Finished/Aborted, spec §4.G).
func (r *Registry) SetState(sessionID string, st State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	s.State = st
	return nil
}
