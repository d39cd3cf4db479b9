package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldcollect/go-session-server/directory"
	autherrors "github.com/fieldcollect/go-session-server/internal/errors"
	"github.com/fieldcollect/go-session-server/principals"
)

var _ directory.CredentialDirectory = (*Directory)(nil)

// Directory is the pgx-backed adapter over the relational system-of-record.
// All SQL is generated once at construction from the principals descriptor
// table, so the three kinds share one code path per operation. Owners carry
// their tenant routing columns on their own rows; collectors and delegates
// join their owner's row for routing.
type Directory struct {
	pool       *pgxpool.Pool
	statements map[principals.Kind]kindStatements
}

type kindStatements struct {
	authenticate string
	markActive   string
	clearActive  string
	forceClear   string
	listActive   string
}

func New(pool *pgxpool.Pool) (*Directory, error) {
	if pool == nil {
		return nil, errors.New("[postgres.New] pool is required")
	}

	statements := make(map[principals.Kind]kindStatements, len(principals.Kinds()))
	for _, kind := range principals.Kinds() {
		desc, _ := principals.Lookup(kind)
		statements[kind] = statementsFor(desc)
	}
	return &Directory{pool: pool, statements: statements}, nil
}

// statementsFor builds the kind's SQL from its descriptor. The routing columns
// come from the principal's own row for owners and from the joined owners row
// for the other two kinds.
func statementsFor(desc principals.Descriptor) kindStatements {
	routing := "t.tenant_host, t.tenant_db_name, t.tenant_db_user, t.tenant_db_password"
	from := fmt.Sprintf("%s t", desc.Table)
	if desc.Kind != principals.KindOwner {
		routing = "o.tenant_host, o.tenant_db_name, o.tenant_db_user, o.tenant_db_password"
		from = fmt.Sprintf("%s t JOIN owners o ON o.id = t.owner_id", desc.Table)
	}

	return kindStatements{
		authenticate: fmt.Sprintf(
			`SELECT t.id, t.%s, t.password_hash, t.recovery_code_hash, %s FROM %s WHERE t.%s = $1`,
			desc.UsernameColumn, routing, from, desc.UsernameColumn),
		markActive: fmt.Sprintf(
			`UPDATE %s SET is_active = TRUE, token = $2 WHERE %s = $1`,
			desc.Table, desc.UsernameColumn),
		clearActive: fmt.Sprintf(
			`UPDATE %s SET is_active = FALSE, token = NULL WHERE token = $1`,
			desc.Table),
		forceClear: fmt.Sprintf(
			`UPDATE %s SET is_active = FALSE, token = NULL WHERE id = $1`,
			desc.Table),
		listActive: fmt.Sprintf(
			`SELECT t.id, t.%s, t.token, %s FROM %s WHERE t.is_active = TRUE AND t.token IS NOT NULL`,
			desc.UsernameColumn, routing, from),
	}
}

func (d *Directory) Authenticate(ctx context.Context, username, password, recoveryCode string) (*principals.Info, error) {
	for _, kind := range principals.Kinds() {
		statements := d.statements[kind]

		var (
			info         principals.Info
			passwordHash string
			recoveryHash *string
		)
		err := d.pool.QueryRow(ctx, statements.authenticate, username).Scan(
			&info.ID,
			&info.Username,
			&passwordHash,
			&recoveryHash,
			&info.TenantHost,
			&info.TenantDBName,
			&info.TenantUser,
			&info.TenantPassword,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			continue // username belongs to another kind, or nobody
		}
		if err != nil {
			return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Directory.Authenticate] %v", err)
		}
		info.Kind = kind

		if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) == nil {
			return &info, nil
		}

		if recoveryCode != "" && recoveryHash != nil &&
			bcrypt.CompareHashAndPassword([]byte(*recoveryHash), []byte(recoveryCode)) == nil {
			// Recovery acceptance force-closes the stale active flag so the
			// subsequent MarkActive starts from a clean slate.
			if _, err := d.pool.Exec(ctx, statements.forceClear, info.ID); err != nil {
				return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Directory.Authenticate] force clear: %v", err)
			}
			return &info, nil
		}

		return nil, autherrors.ErrAuthFailed
	}
	return nil, autherrors.ErrAuthFailed
}

func (d *Directory) MarkActive(ctx context.Context, username, token string, kind principals.Kind) error {
	statements, ok := d.statements[kind]
	if !ok {
		return autherrors.ErrInvalidKind
	}
	tag, err := d.pool.Exec(ctx, statements.markActive, username, token)
	if err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Directory.MarkActive] %v", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(autherrors.ErrNotFound, "[Directory.MarkActive] no %s named %q", kind, username)
	}
	return nil
}

func (d *Directory) ClearActive(ctx context.Context, token string, kind principals.Kind) error {
	statements, ok := d.statements[kind]
	if !ok {
		return autherrors.ErrInvalidKind
	}
	// Idempotent: clearing a token nobody holds is not an error.
	if _, err := d.pool.Exec(ctx, statements.clearActive, token); err != nil {
		return errors.Wrapf(autherrors.ErrStoreUnavailable, "[Directory.ClearActive] %v", err)
	}
	return nil
}

func (d *Directory) ListActive(ctx context.Context, kind principals.Kind) ([]principals.Info, error) {
	statements, ok := d.statements[kind]
	if !ok {
		return nil, autherrors.ErrInvalidKind
	}

	rows, err := d.pool.Query(ctx, statements.listActive)
	if err != nil {
		return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Directory.ListActive] %v", err)
	}
	defer rows.Close()

	active := make([]principals.Info, 0)
	for rows.Next() {
		info := principals.Info{Kind: kind}
		if err := rows.Scan(
			&info.ID,
			&info.Username,
			&info.Token,
			&info.TenantHost,
			&info.TenantDBName,
			&info.TenantUser,
			&info.TenantPassword,
		); err != nil {
			return nil, errors.Wrap(err, "[Directory.ListActive] scan")
		}
		active = append(active, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(autherrors.ErrStoreUnavailable, "[Directory.ListActive] rows: %v", err)
	}
	return active, nil
}
