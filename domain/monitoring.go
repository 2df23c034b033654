package domain

import (
	"sync"
	"time"
)

type NodeStatus string

const (
	ALIVE NodeStatus = "ALIVE"
	GHOST NodeStatus = "GHOST"
)

// ProcessHealth is the last sample of the relay process resources.
type ProcessHealth struct {
	PID      int32      `json:"pid"`
	Status   NodeStatus `json:"status"`
	CPU      float64    `json:"cpu"`
	RAM      float32    `json:"ram"`
	RSS      uint64     `json:"rss"`
	Threads  int32      `json:"threads"`
	LastSeen time.Time  `json:"lastSeen"`
}

// GlobalMonitoring keeps the latest ProcessHealth, written by the health worker
// and read by the stats endpoint.
type GlobalMonitoring struct {
	mu        sync.RWMutex
	health    ProcessHealth
	ghostTime time.Duration
	startedAt time.Time
}

func NewGlobalMonitoring(ghostTime time.Duration) *GlobalMonitoring {
	return &GlobalMonitoring{ghostTime: ghostTime, startedAt: time.Now().UTC()}
}

func (m *GlobalMonitoring) Update(h ProcessHealth) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h.LastSeen = time.Now().UTC()
	h.Status = ALIVE
	m.health = h
}

// GetSnapshot returns the last sample, flagged GHOST when it is too old.
func (m *GlobalMonitoring) GetSnapshot() ProcessHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h := m.health
	if h.LastSeen.IsZero() || time.Since(h.LastSeen) > m.ghostTime {
		h.Status = GHOST
	}
	return h
}

func (m *GlobalMonitoring) Uptime() time.Duration {
	return time.Since(m.startedAt)
}
