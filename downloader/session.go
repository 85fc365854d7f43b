package downloader

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// CancelPrefix marks callback payloads that request cancellation of a session
const CancelPrefix = "cancel_"

// TransferSession is one in-flight transfer. Its cancellation flag is the only
// state shared between the transfer and the cancel callback.
type TransferSession struct {
	ID          string
	Destination MessageHandle
	CreatedAt   time.Time

	cancelled atomic.Bool
}

// IsCancelled reports whether cancellation was requested
func (s *TransferSession) IsCancelled() bool {
	return s.cancelled.Load()
}

// Cancel requests cancellation; the transfer observes it at its next chunk boundary
func (s *TransferSession) Cancel() {
	s.cancelled.Store(true)
}

// SessionInfo is a read-only view of a registered session
type SessionInfo struct {
	ID        string        `json:"id"`
	ChatID    int64         `json:"chat_id"`
	MessageID int           `json:"message_id"`
	Cancelled bool          `json:"cancelled"`
	Age       time.Duration `json:"age"`
}

// SessionRegistry tracks active transfer sessions. Safe for concurrent use.
type SessionRegistry struct {
	mu         sync.RWMutex
	sessions   map[string]*TransferSession
	maxPerChat int
	now        func() time.Time
}

// NewSessionRegistry creates an empty registry. maxPerChat limits concurrent
// sessions per chat; zero means unlimited.
func NewSessionRegistry(maxPerChat int) *SessionRegistry {
	return &SessionRegistry{
		sessions:   make(map[string]*TransferSession),
		maxPerChat: maxPerChat,
		now:        time.Now,
	}
}

// Create registers a new, non-cancelled session
func (r *SessionRegistry) Create(id string, dest MessageHandle) (*TransferSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[id]; exists {
		return nil, NewDownloadError(ErrorDuplicateSession, "session already exists").WithContext("session_id", id)
	}
	if r.maxPerChat > 0 && r.countForChatLocked(dest.ChatID) >= r.maxPerChat {
		return nil, NewDownloadError(ErrorBusy, "too many active transfers for chat").
			WithContext("chat_id", dest.ChatID).
			WithContext("limit", r.maxPerChat)
	}

	session := &TransferSession{
		ID:          id,
		Destination: dest,
		CreatedAt:   r.now(),
	}
	r.sessions[id] = session
	return session, nil
}

// Cancel sets the cancellation flag of a session. It returns false when the id is unknown.
func (r *SessionRegistry) Cancel(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return false
	}
	session.Cancel()
	return true
}

// IsCancelled reports the cancellation flag of a session; unknown ids are not cancelled
func (r *SessionRegistry) IsCancelled(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	return ok && session.IsCancelled()
}

// Remove deletes a session. Removing an unknown id is a no-op.
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get returns the session registered under id
func (r *SessionRegistry) Get(id string) (*TransferSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	return session, ok
}

// Len returns the number of registered sessions
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CountForChat returns the number of sessions whose destination is chatID
func (r *SessionRegistry) CountForChat(chatID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.countForChatLocked(chatID)
}

func (r *SessionRegistry) countForChatLocked(chatID int64) int {
	count := 0
	for _, session := range r.sessions {
		if session.Destination.ChatID == chatID {
			count++
		}
	}
	return count
}

// Snapshot returns the registered sessions ordered by creation time
func (r *SessionRegistry) Snapshot() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := r.now()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, session := range r.sessions {
		infos = append(infos, SessionInfo{
			ID:        session.ID,
			ChatID:    session.Destination.ChatID,
			MessageID: session.Destination.MessageID,
			Cancelled: session.IsCancelled(),
			Age:       now.Sub(session.CreatedAt),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Age == infos[j].Age {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Age > infos[j].Age
	})
	return infos
}

// NewSessionID derives a session id from the destination chat and the request time
func NewSessionID(chatID int64, at time.Time) string {
	return fmt.Sprintf("%d_%d", chatID, at.UnixNano())
}

// CancelPayload returns the callback payload that cancels the session
func CancelPayload(sessionID string) string {
	return CancelPrefix + sessionID
}

// ParseCancelPayload extracts the session id from a cancel callback payload
func ParseCancelPayload(data string) (string, bool) {
	if !strings.HasPrefix(data, CancelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(data, CancelPrefix)
	return id, id != ""
}

// CancelKeyboard returns the inline keyboard holding the cancel button for a session
func CancelKeyboard(sessionID string) Keyboard {
	return Keyboard{{Text: "❌ Cancel Download", Data: CancelPayload(sessionID)}}
}
