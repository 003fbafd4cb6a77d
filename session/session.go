// Package session manages the lifecycle of a ritual vault session: a
// TTL-bounded window during which a derived master key lives in
// process memory alongside an ephemeral on-disk working directory.
// Built around a mutex-protected map keyed by session id, re-targeted
// from message-counted protocol sessions to TTL-bounded ritual
// sessions with on-disk ephemeral directories. Working directories are
// claimed through a UUID-qualified temporary name before being renamed
// to their final, session-id-addressed path.
package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrimshawlife-ctrl/Echotome/errs"
	"github.com/scrimshawlife-ctrl/Echotome/profile"
)

const sessionsRootMode = 0700
const sessionDirMode = 0700

// Session is a live ritual vault session.
type Session struct {
	ID            string
	VaultID       string
	ProfileName   string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	LastActivity  time.Time
	Dir           string
	secureDelete  bool
	masterKey     []byte
}

// MasterKey returns the session's master key. It is zeroized the
// moment the session ends or expires, so callers must not retain the
// returned slice beyond the session's lifetime.
func (s *Session) MasterKey() []byte {
	return s.masterKey
}

// Manager owns every live session for one process. A single mutex
// protects the session map; it is never held across file I/O larger
// than the directory walk performed when ending one session.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string]*Session
	sessionsRoot string
}

// NewManager roots a session manager at sessionsRoot, creating it with
// mode 0700 and purging any subdirectories left behind by a prior,
// crashed process.
func NewManager(sessionsRoot string) (*Manager, error) {
	if err := os.MkdirAll(sessionsRoot, sessionsRootMode); err != nil {
		return nil, errs.New(errs.ErrResource, "creating sessions root: "+err.Error())
	}
	if err := os.Chmod(sessionsRoot, sessionsRootMode); err != nil {
		return nil, errs.New(errs.ErrResource, "chmod sessions root: "+err.Error())
	}

	m := &Manager{
		sessions:     make(map[string]*Session),
		sessionsRoot: sessionsRoot,
	}

	if err := m.cleanupStaleSessionDirs(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) cleanupStaleSessionDirs() error {
	entries, err := os.ReadDir(m.sessionsRoot)
	if err != nil {
		return errs.New(errs.ErrResource, "scanning sessions root: "+err.Error())
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		path := filepath.Join(m.sessionsRoot, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return errs.New(errs.ErrResource, "purging stale session dir: "+err.Error())
		}
	}
	return nil
}

// Create starts a new session bound to vaultID under p, with a
// TTL clamped to p.SessionTTLMaxS. requestedTTL of zero uses the
// profile's default TTL.
func (m *Manager) Create(vaultID string, p *profile.PrivacyProfile, masterKey []byte, requestedTTL time.Duration) (*Session, error) {
	id, err := newSessionID(vaultID)
	if err != nil {
		return nil, err
	}

	ttl := requestedTTL
	if ttl <= 0 {
		ttl = time.Duration(p.SessionTTLDefaultS) * time.Second
	}
	maxTTL := time.Duration(p.SessionTTLMaxS) * time.Second
	if ttl > maxTTL {
		ttl = maxTTL
	}

	dir, err := m.claimSessionDir(id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		VaultID:      vaultID,
		ProfileName:  p.Name,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
		LastActivity: now,
		Dir:          dir,
		secureDelete: p.SecureDelete,
		masterKey:    append([]byte(nil), masterKey...),
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	return sess, nil
}

// claimSessionDir creates the on-disk working directory for session
// id. The directory is first created under a v4-UUID-qualified
// temporary name and then renamed into its final, id-addressed path.
// Distinct sessions already get distinct ids, since newSessionID mixes
// 16 random bytes into every id.
func (m *Manager) claimSessionDir(id string) (string, error) {
	tmp := filepath.Join(m.sessionsRoot, "tmp-"+uuid.NewString())
	if err := os.MkdirAll(tmp, sessionDirMode); err != nil {
		return "", errs.New(errs.ErrResource, "creating session dir: "+err.Error())
	}

	dir := filepath.Join(m.sessionsRoot, id)
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		return "", errs.New(errs.ErrResource, "claiming session dir: "+err.Error())
	}
	return dir, nil
}

// Get returns the session for id if it is still active, touching its
// last-activity timestamp. A session found to be expired is ended as
// a side effect of the lookup and Get reports it as absent.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}

	if time.Now().After(sess.ExpiresAt) {
		delete(m.sessions, id)
		m.mu.Unlock()
		endSessionFiles(sess)
		return nil, false
	}

	sess.LastActivity = time.Now()
	m.mu.Unlock()
	return sess, true
}

// Extend adds seconds to id's expiry, re-clamping the total remaining
// TTL against the profile's max.
func (m *Manager) Extend(id string, add time.Duration, p *profile.PrivacyProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return errs.New(errs.ErrNotFound, "unknown session "+id)
	}

	newExpiry := sess.ExpiresAt.Add(add)
	maxExpiry := sess.CreatedAt.Add(time.Duration(p.SessionTTLMaxS) * time.Second)
	if newExpiry.After(maxExpiry) {
		newExpiry = maxExpiry
	}
	sess.ExpiresAt = newExpiry
	sess.LastActivity = time.Now()
	return nil
}

// End terminates id explicitly: the master key is zeroized, its
// working directory is torn down (securely if the session requires
// it), and the session is dropped from the live map.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return errs.New(errs.ErrNotFound, "unknown session "+id)
	}
	delete(m.sessions, id)
	m.mu.Unlock()

	endSessionFiles(sess)
	return nil
}

// CleanupExpired ends every session whose TTL has already elapsed.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	var expired []*Session
	for id, sess := range m.sessions {
		if time.Now().After(sess.ExpiresAt) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		endSessionFiles(sess)
	}
}

// List returns the ids of every currently active session.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	ids := make([]string, 0, len(m.sessions))
	for id, sess := range m.sessions {
		if now.After(sess.ExpiresAt) {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func endSessionFiles(sess *Session) {
	zero(sess.masterKey)

	if sess.secureDelete {
		secureDeleteTree(sess.Dir)
	} else {
		os.RemoveAll(sess.Dir)
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// secureDeleteTree overwrites every regular file under root with
// cryptographically random data of the same length before unlinking
// it, then removes the (now-empty) directory tree.
func secureDeleteTree(root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if err := overwriteWithRandom(path, info.Size()); err != nil {
			return err
		}
		return os.Remove(path)
	})
	if err != nil {
		return errs.New(errs.ErrResource, "secure delete: "+err.Error())
	}
	return os.RemoveAll(root)
}

func overwriteWithRandom(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	garbage := make([]byte, size)
	if _, err := rand.Read(garbage); err != nil {
		return err
	}
	if _, err := f.WriteAt(garbage, 0); err != nil {
		return err
	}
	return f.Sync()
}

// newSessionID derives a session id as
// SHA-256(vault_id || now || 16 random bytes), hex-encoded.
func newSessionID(vaultID string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", errs.New(errs.ErrResource, "generating session id entropy: "+err.Error())
	}

	h := sha256.New()
	h.Write([]byte(vaultID))
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	h.Write(nonce)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ValidSessionID reports whether id is safe to join onto the sessions
// root: exactly 64 hex characters (either case), the length produced by
// newSessionID. Callers MUST validate any caller-supplied session id
// against this before treating it as a path component.
func ValidSessionID(id string) bool {
	if len(id) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
