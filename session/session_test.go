package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrimshawlife-ctrl/Echotome/profile"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "sessions"))
	require.NoError(t, err)
	return m
}

func TestNewManagerPurgesStaleDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "sessions")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "leftover-from-crash"), 0700))

	m, err := NewManager(root)
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
	assert.NotNil(t, m)
}

func TestCreateClampsTTLToMax(t *testing.T) {
	m := newTestManager(t)
	ritualLock, _ := profile.Get("ritual lock")

	sess, err := m.Create("vault-1", ritualLock, []byte("master-key-material"), 10*time.Hour)
	require.NoError(t, err)

	maxExpiry := sess.CreatedAt.Add(time.Duration(ritualLock.SessionTTLMaxS) * time.Second)
	assert.WithinDuration(t, maxExpiry, sess.ExpiresAt, time.Second)
}

func TestCreateUsesDefaultTTLWhenUnspecified(t *testing.T) {
	m := newTestManager(t)
	quick, _ := profile.Get("quick")

	sess, err := m.Create("vault-2", quick, []byte("key"), 0)
	require.NoError(t, err)

	expected := sess.CreatedAt.Add(time.Duration(quick.SessionTTLDefaultS) * time.Second)
	assert.WithinDuration(t, expected, sess.ExpiresAt, time.Second)
}

func TestGetReturnsActiveSession(t *testing.T) {
	m := newTestManager(t)
	quick, _ := profile.Get("quick")

	created, err := m.Create("vault-3", quick, []byte("key"), time.Minute)
	require.NoError(t, err)

	got, ok := m.Get(created.ID)
	require.True(t, ok)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetExpiresSessionPastTTL(t *testing.T) {
	m := newTestManager(t)
	quick, _ := profile.Get("quick")

	created, err := m.Create("vault-4", quick, []byte("key"), time.Millisecond)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	_, ok := m.Get(created.ID)
	assert.False(t, ok)

	_, stillThere := m.Get(created.ID)
	assert.False(t, stillThere)
}

func TestEndZeroizesMasterKeyAndRemovesDir(t *testing.T) {
	m := newTestManager(t)
	quick, _ := profile.Get("quick")

	created, err := m.Create("vault-5", quick, []byte("super-secret-key"), time.Minute)
	require.NoError(t, err)

	dir := created.Dir
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, m.End(created.ID))

	assert.Equal(t, make([]byte, len("super-secret-key")), created.MasterKey())

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	_, ok := m.Get(created.ID)
	assert.False(t, ok)
}

func TestEndSecureDeletesFilesForRitualLock(t *testing.T) {
	m := newTestManager(t)
	ritual, _ := profile.Get("ritual")

	created, err := m.Create("vault-6", ritual, []byte("key"), time.Minute)
	require.NoError(t, err)

	filePath := filepath.Join(created.Dir, "scratch.bin")
	require.NoError(t, os.WriteFile(filePath, []byte("sensitive plaintext material"), 0600))

	require.NoError(t, m.End(created.ID))

	_, err = os.Stat(created.Dir)
	assert.True(t, os.IsNotExist(err))
}

func TestExtendReclampsAgainstMax(t *testing.T) {
	m := newTestManager(t)
	quick, _ := profile.Get("quick")

	created, err := m.Create("vault-7", quick, []byte("key"), time.Minute)
	require.NoError(t, err)

	err = m.Extend(created.ID, 100*time.Hour, quick)
	require.NoError(t, err)

	got, ok := m.Get(created.ID)
	require.True(t, ok)

	maxExpiry := created.CreatedAt.Add(time.Duration(quick.SessionTTLMaxS) * time.Second)
	assert.WithinDuration(t, maxExpiry, got.ExpiresAt, time.Second)
}

func TestListReflectsActiveSessions(t *testing.T) {
	m := newTestManager(t)
	quick, _ := profile.Get("quick")

	a, err := m.Create("vault-8", quick, []byte("key"), time.Minute)
	require.NoError(t, err)
	b, err := m.Create("vault-9", quick, []byte("key"), time.Minute)
	require.NoError(t, err)

	ids := m.List()
	assert.Contains(t, ids, a.ID)
	assert.Contains(t, ids, b.ID)
}

func TestClaimSessionDirLeavesNoTempDirBehind(t *testing.T) {
	m := newTestManager(t)
	quick, _ := profile.Get("quick")

	created, err := m.Create("vault-10", quick, []byte("key"), time.Minute)
	require.NoError(t, err)

	entries, err := os.ReadDir(m.sessionsRoot)
	require.NoError(t, err)

	assert.Len(t, entries, 1)
	assert.Equal(t, created.ID, entries[0].Name())
}

func TestValidSessionID(t *testing.T) {
	id, err := newSessionID("vault")
	require.NoError(t, err)
	assert.True(t, ValidSessionID(id))

	assert.False(t, ValidSessionID("not-hex!!"))
	assert.False(t, ValidSessionID("abcd"))
}
