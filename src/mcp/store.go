package mcp

import (
	"sync"

	"azdo-monitor/src/logger"
	"azdo-monitor/src/monitor"
)

// DefaultMonitorCapacity is how many builds the server keeps loaded.
const DefaultMonitorCapacity = 16

type buildKey struct {
	project string
	buildID int
}

// MonitorStore keeps one monitor per build so repeated tool calls for the same
// build share its record tree and log cache. The oldest build is dropped once
// capacity is reached.
type MonitorStore struct {
	src      monitor.Source
	log      logger.Logger
	capacity int

	mu       sync.Mutex
	monitors map[buildKey]*monitor.Monitor
	order    []buildKey
}

// NewMonitorStore creates a store. capacity <= 0 uses DefaultMonitorCapacity.
func NewMonitorStore(src monitor.Source, log logger.Logger, capacity int) *MonitorStore {
	if capacity <= 0 {
		capacity = DefaultMonitorCapacity
	}
	return &MonitorStore{
		src:      src,
		log:      log,
		capacity: capacity,
		monitors: make(map[buildKey]*monitor.Monitor),
	}
}

// Get returns the monitor of a build, creating it when absent. A new monitor
// has not been refreshed yet.
func (s *MonitorStore) Get(project string, buildID int) *monitor.Monitor {
	key := buildKey{project, buildID}

	s.mu.Lock()
	defer s.mu.Unlock()

	if mon, ok := s.monitors[key]; ok {
		return mon
	}

	if len(s.order) >= s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.monitors, oldest)
	}
	mon := monitor.New(s.src, project, buildID, s.log)
	s.monitors[key] = mon
	s.order = append(s.order, key)
	return mon
}

// Len returns the number of builds held.
func (s *MonitorStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.monitors)
}
