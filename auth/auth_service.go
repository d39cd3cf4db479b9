package auth

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/fieldcollect/go-session-server/directory"
	"github.com/fieldcollect/go-session-server/exporter"
	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/principals"
	"github.com/fieldcollect/go-session-server/sessions"
	"github.com/fieldcollect/go-session-server/token"
)

// Repos holds the two stores the orchestrator composes. The directory is the
// system-of-record for active flags; the session store is the sole read path
// for token validation.
type Repos struct {
	Directory directory.CredentialDirectory
	Sessions  sessions.Store
}

// LoginResult is what a successful login hands back to the transport layer.
// ExportTriggered is set for collectors, whose login response is the tenant
// dataset export rather than a bare token.
type LoginResult struct {
	Token           string
	PrincipalID     int64
	Kind            principals.Kind
	Username        string
	TenantHost      string
	TenantDBName    string
	TenantUser      string
	ExportTriggered bool
}

// Orchestrator drives the login/logout/validate state machine:
// Anonymous -> Authenticated -> ActiveSession -> Anonymous.
//
// Login's directory write and cache write are deliberately not transactional.
// A cache failure after MarkActive leaves the directory active with no cache
// entry, which reads as logged-out; the next login's delete-then-insert or the
// next reconciliation run heals it.
type Orchestrator struct {
	repos           Repos
	issuer          *token.Issuer
	datasetExporter exporter.DatasetExporter
}

func NewOrchestrator(repos Repos, issuer *token.Issuer, datasetExporter exporter.DatasetExporter) (*Orchestrator, error) {
	if repos.Directory == nil {
		return nil, errors.New("[NewOrchestrator] Directory repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewOrchestrator] Sessions repo is required")
	}
	if issuer == nil {
		return nil, errors.New("[NewOrchestrator] issuer is required")
	}
	if datasetExporter == nil {
		return nil, errors.New("[NewOrchestrator] datasetExporter is required")
	}

	return &Orchestrator{
		repos:           repos,
		issuer:          issuer,
		datasetExporter: datasetExporter,
	}, nil
}

// Login authenticates a credential, issues a fresh token, flags the principal
// active in the directory and replaces its cache session. A repeated login for
// the same username supersedes the previous session.
func (o *Orchestrator) Login(ctx context.Context, username, password, recoveryCode string) (*LoginResult, error) {
	info, err := o.repos.Directory.Authenticate(ctx, username, password, recoveryCode)
	if err != nil {
		return nil, errors.Wrap(err, "[Orchestrator.Login] authenticate")
	}

	sessionToken := o.issuer.Issue(username)

	if err := o.repos.Directory.MarkActive(ctx, username, sessionToken, info.Kind); err != nil {
		return nil, errors.Wrap(err, "[Orchestrator.Login] mark active")
	}

	if err := o.repos.Sessions.UpsertForPrincipal(ctx, sessions.FromPrincipal(*info, sessionToken)); err != nil {
		// Directory is now active with no cache entry; heals on the next
		// login or reconciliation run.
		return nil, errors.Wrap(err, "[Orchestrator.Login] upsert session")
	}

	result := &LoginResult{
		Token:        sessionToken,
		PrincipalID:  info.ID,
		Kind:         info.Kind,
		Username:     info.Username,
		TenantHost:   info.TenantHost,
		TenantDBName: info.TenantDBName,
		TenantUser:   info.TenantUser,
	}

	desc, _ := principals.Lookup(info.Kind)
	if desc.ExportOnLogin {
		// An export failure fails the login after the session is already
		// live; the token never reaches the caller, so the orphaned session
		// reads as logged-in-nowhere until the collector's next login
		// delete-then-inserts over it.
		if err := o.datasetExporter.ExportTenantDataset(ctx, *info, sessionToken); err != nil {
			return nil, errors.Wrap(err, "[Orchestrator.Login] export tenant dataset")
		}
		result.ExportTriggered = true
	}

	return result, nil
}

// Logout deletes the cache session first, then clears the directory flag. A
// directory failure after the cache delete is logged and still reported as
// success: the cache is authoritative for the read path, and the lingering
// directory flag is healed by the next reconciliation pass or next login.
func (o *Orchestrator) Logout(ctx context.Context, sessionToken string, kind principals.Kind) error {
	if !kind.Valid() {
		return autherrors.ErrInvalidKind
	}

	if err := o.repos.Sessions.DeleteByToken(ctx, sessionToken); err != nil {
		return errors.Wrap(err, "[Orchestrator.Logout] delete session")
	}

	if err := o.repos.Directory.ClearActive(ctx, sessionToken, kind); err != nil {
		log.Warn().Err(err).Str("kind", string(kind)).
			Msg("directory clear failed after cache delete; flag will drift until next reconcile or login")
	}
	return nil
}

// Validate resolves a token through the session cache alone; the directory is
// never consulted on the hot path.
func (o *Orchestrator) Validate(ctx context.Context, sessionToken string) (*sessions.Session, error) {
	session, err := o.repos.Sessions.GetByToken(ctx, sessionToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Orchestrator.Validate] get by token")
	}
	return session, nil
}

// ListSessions enumerates the cache for diagnostics.
func (o *Orchestrator) ListSessions(ctx context.Context) ([]*sessions.Session, error) {
	sessionList, err := o.repos.Sessions.ListAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Orchestrator.ListSessions] list all")
	}
	return sessionList, nil
}
