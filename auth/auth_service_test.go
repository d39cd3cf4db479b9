package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fieldcollect/go-session-server/auth"
	fakedirectory "github.com/fieldcollect/go-session-server/directory/repofakes"
	fakeexporter "github.com/fieldcollect/go-session-server/exporter/exporterfakes"
	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/principals"
	fakesessionstore "github.com/fieldcollect/go-session-server/sessions/repofakes"
	"github.com/fieldcollect/go-session-server/token"
)

const (
	testOwnerUsername     = "maria.owner"
	testOwnerPassword     = "owner-password-1"
	testCollectorUsername = "jorge.collector"
	testCollectorPassword = "collector-password-1"
	testRecoveryCode      = "RESCUE-0042"
	testTenantHost        = "tenant-7.db.internal"
	testTenantDBName      = "tenant_7"
	testTenantUser        = "tenant_7_app"
	testTenantPassword    = "tenant-7-secret"
)

// testFixture holds all test dependencies
type testFixture struct {
	directory    *fakedirectory.FakeDirectory
	store        *fakesessionstore.FakeSessionStore
	datasetCalls *fakeexporter.FakeExporter
	service      *auth.Orchestrator
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	dir := fakedirectory.NewFakeDirectory()
	store := fakesessionstore.NewFakeSessionStore()
	datasetExporter := fakeexporter.NewFakeExporter()

	dir.AddPrincipal(principals.Info{
		ID:             1,
		Kind:           principals.KindOwner,
		Username:       testOwnerUsername,
		TenantHost:     testTenantHost,
		TenantDBName:   testTenantDBName,
		TenantUser:     testTenantUser,
		TenantPassword: testTenantPassword,
	}, testOwnerPassword, testRecoveryCode)

	dir.AddPrincipal(principals.Info{
		ID:             2,
		Kind:           principals.KindCollector,
		Username:       testCollectorUsername,
		TenantHost:     testTenantHost,
		TenantDBName:   testTenantDBName,
		TenantUser:     testTenantUser,
		TenantPassword: testTenantPassword,
	}, testCollectorPassword, "")

	service, err := auth.NewOrchestrator(
		auth.Repos{Directory: dir, Sessions: store},
		token.NewIssuer(),
		datasetExporter,
	)
	require.NoError(t, err)

	return &testFixture{
		directory:    dir,
		store:        store,
		datasetCalls: datasetExporter,
		service:      service,
	}
}

func TestLoginReturnsSessionAndMarksDirectoryActive(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)

	require.NotEmpty(t, result.Token)
	require.Equal(t, int64(1), result.PrincipalID)
	require.Equal(t, principals.KindOwner, result.Kind)
	require.Equal(t, testTenantHost, result.TenantHost)
	require.Equal(t, testTenantDBName, result.TenantDBName)
	require.Equal(t, testTenantUser, result.TenantUser)
	require.False(t, result.ExportTriggered)

	require.True(t, f.directory.IsActive(testOwnerUsername))
	require.Equal(t, 1, f.store.CountForUsername(testOwnerUsername))
}

func TestLoginWithBadPasswordFails(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testOwnerUsername, "wrong-password", "")
	require.ErrorIs(t, err, autherrors.ErrAuthFailed)
	require.False(t, f.directory.IsActive(testOwnerUsername))
}

func TestSecondLoginLeavesExactlyOneSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	first, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)
	second, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	require.Equal(t, 1, f.store.CountForUsername(testOwnerUsername))

	// The superseded token no longer validates; the new one does.
	_, err = f.service.Validate(ctx, first.Token)
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
	session, err := f.service.Validate(ctx, second.Token)
	require.NoError(t, err)
	require.Equal(t, testOwnerUsername, session.Username)
}

func TestValidateReturnsIdenticalPrincipalAndTenantFields(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)

	session, err := f.service.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, result.PrincipalID, session.PrincipalID)
	require.Equal(t, result.Kind, session.PrincipalKind)
	require.Equal(t, result.TenantHost, session.TenantHost)
	require.Equal(t, result.TenantDBName, session.TenantDBName)
	require.Equal(t, result.TenantUser, session.TenantUser)
	require.Equal(t, testTenantPassword, session.TenantPassword)
}

func TestLogoutThenValidateReturnsNotFound(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(ctx, result.Token, result.Kind))

	_, err = f.service.Validate(ctx, result.Token)
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
	require.False(t, f.directory.IsActive(testOwnerUsername))
}

func TestLogoutSucceedsWhenDirectoryClearFails(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	result, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)

	// Cache is authoritative for reads: the caller still sees a clean logout
	// and the directory flag drifts until the next reconcile or login.
	f.directory.FailClearActive(autherrors.ErrStoreUnavailable)
	require.NoError(t, f.service.Logout(ctx, result.Token, result.Kind))

	_, err = f.service.Validate(ctx, result.Token)
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
	require.True(t, f.directory.IsActive(testOwnerUsername))
}

func TestLogoutRejectsUnknownKind(t *testing.T) {
	f := setupTestFixture(t)

	err := f.service.Logout(context.Background(), "any-token", principals.Kind("supervisor"))
	require.ErrorIs(t, err, autherrors.ErrInvalidKind)
}

func TestCollectorLoginTriggersDatasetExport(t *testing.T) {
	f := setupTestFixture(t)

	result, err := f.service.Login(context.Background(), testCollectorUsername, testCollectorPassword, "")
	require.NoError(t, err)
	require.True(t, result.ExportTriggered)

	calls := f.datasetCalls.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, testCollectorUsername, calls[0].Principal.Username)
	require.Equal(t, result.Token, calls[0].Token)
}

func TestOwnerLoginDoesNotTriggerExport(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Login(context.Background(), testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)
	require.Empty(t, f.datasetCalls.Calls())
}

func TestFailedExportOrphansSessionUntilNextLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.datasetCalls.FailWith(autherrors.ErrStoreUnavailable)
	_, err := f.service.Login(ctx, testCollectorUsername, testCollectorPassword, "")
	require.ErrorIs(t, err, autherrors.ErrStoreUnavailable)

	// The session went live before the export failed, but its token never
	// reached the caller.
	require.Equal(t, 1, f.store.CountForUsername(testCollectorUsername))

	// The next login displaces the orphan: exactly one session, and its
	// token is the one the caller received.
	f.datasetCalls.FailWith(nil)
	result, err := f.service.Login(ctx, testCollectorUsername, testCollectorPassword, "")
	require.NoError(t, err)
	require.Equal(t, 1, f.store.CountForUsername(testCollectorUsername))

	session, err := f.service.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, result.Token, session.Token)
}

func TestRecoveryCodeDisplacesStuckSession(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	// A device that logged in and never logged out.
	stuck, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)

	result, err := f.service.Login(ctx, testOwnerUsername, "forgotten-password", testRecoveryCode)
	require.NoError(t, err)
	require.NotEqual(t, stuck.Token, result.Token)

	require.Equal(t, 1, f.store.CountForUsername(testOwnerUsername))
	_, err = f.service.Validate(ctx, stuck.Token)
	require.ErrorIs(t, err, autherrors.ErrSessionNotFound)
}

func TestLoginCacheFailureHealsOnNextLogin(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.store.FailUpsertFor(testOwnerUsername, autherrors.ErrStoreUnavailable)
	_, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.ErrorIs(t, err, autherrors.ErrStoreUnavailable)

	// Directory is left active with no cache entry, which reads as logged
	// out. The next login's delete-then-insert repairs the pair.
	require.True(t, f.directory.IsActive(testOwnerUsername))
	require.Equal(t, 0, f.store.CountForUsername(testOwnerUsername))

	f.store.FailUpsertFor(testOwnerUsername, nil)
	result, err := f.service.Login(ctx, testOwnerUsername, testOwnerPassword, "")
	require.NoError(t, err)
	require.Equal(t, 1, f.store.CountForUsername(testOwnerUsername))

	session, err := f.service.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.Equal(t, result.Token, session.Token)
}
