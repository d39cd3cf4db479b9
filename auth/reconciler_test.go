package auth_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldcollect/go-session-server/auth"
	fakedirectory "github.com/fieldcollect/go-session-server/directory/repofakes"
	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/principals"
	fakesessionstore "github.com/fieldcollect/go-session-server/sessions/repofakes"
)

// seedActiveDirectory registers 3 active owners, 5 active collectors and no
// delegates, as the directory would look after a process crash.
func seedActiveDirectory(dir *fakedirectory.FakeDirectory) []string {
	usernames := make([]string, 0, 8)

	add := func(kind principals.Kind, n int) {
		for i := 0; i < n; i++ {
			username := fmt.Sprintf("%s-%d", kind, i)
			dir.AddActivePrincipal(principals.Info{
				ID:           int64(len(usernames) + 1),
				Kind:         kind,
				Username:     username,
				TenantHost:   "tenant.db.internal",
				TenantDBName: fmt.Sprintf("tenant_%d", i),
				TenantUser:   "tenant_app",
			}, fmt.Sprintf("token-%s-%d", kind, i))
			usernames = append(usernames, username)
		}
	}

	add(principals.KindOwner, 3)
	add(principals.KindCollector, 5)
	return usernames
}

func TestRunOnceRestoresOneSessionPerActivePrincipal(t *testing.T) {
	dir := fakedirectory.NewFakeDirectory()
	store := fakesessionstore.NewFakeSessionStore()
	usernames := seedActiveDirectory(dir)

	reconciler, err := auth.NewReconciler(dir, store)
	require.NoError(t, err)
	require.NoError(t, reconciler.RunOnce(context.Background()))

	restored, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, restored, 8)

	seen := make(map[string]int)
	for _, session := range restored {
		seen[session.Username]++
	}
	for _, username := range usernames {
		require.Equal(t, 1, seen[username], "username %s", username)
	}
}

func TestRunOnceSkipsFailedRecordsAndKeepsGoing(t *testing.T) {
	dir := fakedirectory.NewFakeDirectory()
	store := fakesessionstore.NewFakeSessionStore()
	seedActiveDirectory(dir)

	// One collector's record can't be written; the rest of the batch lands.
	store.FailUpsertFor("collector-2", autherrors.ErrStoreUnavailable)

	reconciler, err := auth.NewReconciler(dir, store)
	require.NoError(t, err)
	require.NoError(t, reconciler.RunOnce(context.Background()))

	restored, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, restored, 7)
	require.Equal(t, 0, store.CountForUsername("collector-2"))
}

func TestRunOnceAbortsWhenDirectoryUnreachable(t *testing.T) {
	dir := fakedirectory.NewFakeDirectory()
	store := fakesessionstore.NewFakeSessionStore()
	seedActiveDirectory(dir)
	dir.FailListActive(autherrors.ErrStoreUnavailable)

	reconciler, err := auth.NewReconciler(dir, store)
	require.NoError(t, err)

	err = reconciler.RunOnce(context.Background())
	require.ErrorIs(t, err, autherrors.ErrStoreUnavailable)

	restored, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, restored)
}

func TestRunOnceReplacesStaleCacheEntries(t *testing.T) {
	dir := fakedirectory.NewFakeDirectory()
	store := fakesessionstore.NewFakeSessionStore()
	seedActiveDirectory(dir)

	reconciler, err := auth.NewReconciler(dir, store)
	require.NoError(t, err)

	// Two consecutive runs must not duplicate anything.
	require.NoError(t, reconciler.RunOnce(context.Background()))
	require.NoError(t, reconciler.RunOnce(context.Background()))

	restored, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, restored, 8)
}
