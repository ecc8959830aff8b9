package room

import (
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrRoomNotFound is returned when a room id does not resolve.
var ErrRoomNotFound = errors.New("room not found")

const roomCodeLength = 6

// Manager owns the live room registry. Rooms remove themselves on close
// through the onClose callback.
type Manager struct {
	logger   *zap.Logger
	opts     Options
	recorder Recorder
	verifier IdentityVerifier
	rng      *rand.Rand

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewManager creates an empty registry.
func NewManager(opts Options, recorder Recorder, verifier IdentityVerifier, logger *zap.Logger) *Manager {
	return &Manager{
		logger:   logger,
		opts:     opts,
		recorder: recorder,
		verifier: verifier,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		rooms:    make(map[string]*Room),
	}
}

// Create registers a new room under a fresh code and starts its actor.
func (m *Manager) Create() *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	var code string
	for {
		code = m.newCode()
		if _, taken := m.rooms[code]; !taken {
			break
		}
	}
	r := New(code, m.opts, m.recorder, m.verifier, m.remove, m.logger)
	m.rooms[code] = r
	go r.Run()
	m.logger.Info("room created", zap.String("room_id", code))
	return r
}

// Get resolves a room code, case-insensitively.
func (m *Manager) Get(code string) (*Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[strings.ToUpper(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Count returns the number of live rooms.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}

// Shutdown closes every room, typically during server drain.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.Unlock()
	for _, r := range rooms {
		r.post(event{kind: evShutdown})
	}
}

func (m *Manager) remove(code string) {
	m.mu.Lock()
	delete(m.rooms, code)
	m.mu.Unlock()
}

// newCode produces a short join code. Ambiguous characters are excluded.
func (m *Manager) newCode() string {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	b := make([]byte, roomCodeLength)
	for i := range b {
		b[i] = alphabet[m.rng.Intn(len(alphabet))]
	}
	return string(b)
}
