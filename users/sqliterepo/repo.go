package sqliterepo

import (
	"database/sql"
	"path/filepath"
	"strings"
	"time"

	"github.com/amazingshop/user-service/users"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id                   TEXT PRIMARY KEY,
	username             TEXT NOT NULL UNIQUE,
	email                TEXT NOT NULL UNIQUE,
	password_hash        TEXT,
	role                 TEXT NOT NULL DEFAULT 'USER',
	oauth_provider       TEXT,
	oauth_id             TEXT,
	profile_picture_url  TEXT,
	created_at           INTEGER NOT NULL,
	refresh_token        TEXT,
	refresh_token_expiry INTEGER,
	UNIQUE (oauth_provider, oauth_id)
);
`

var _ users.Repo = (*Repo)(nil)

// Repo implements users.Repo over a single SQLite file. Refresh-token
// rotation is a conditional single-row update, so concurrent rotations of the
// same token resolve to exactly one winner.
type Repo struct {
	db *sqlx.DB
}

// Open opens the store and bootstraps the schema.
func Open(path string) (*Repo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("[sqliterepo.Open] storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "[sqliterepo.Open] sqlx.Connect")
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "[sqliterepo.Open] schema bootstrap")
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() error {
	return r.db.Close()
}

// userRow is the storage projection of users.User. Timestamps are stored as
// millisecond UTC integers.
type userRow struct {
	ID                 string         `db:"id"`
	Username           string         `db:"username"`
	Email              string         `db:"email"`
	PasswordHash       sql.NullString `db:"password_hash"`
	Role               string         `db:"role"`
	OAuthProvider      sql.NullString `db:"oauth_provider"`
	OAuthID            sql.NullString `db:"oauth_id"`
	ProfilePictureURL  sql.NullString `db:"profile_picture_url"`
	CreatedAt          int64          `db:"created_at"`
	RefreshToken       sql.NullString `db:"refresh_token"`
	RefreshTokenExpiry sql.NullInt64  `db:"refresh_token_expiry"`
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func toRow(u *users.User) userRow {
	row := userRow{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: toMillis(u.CreatedAt),
	}
	if u.PasswordHash != nil {
		row.PasswordHash = sql.NullString{String: *u.PasswordHash, Valid: true}
	}
	if u.OAuthProvider != nil {
		row.OAuthProvider = sql.NullString{String: *u.OAuthProvider, Valid: true}
	}
	if u.OAuthID != nil {
		row.OAuthID = sql.NullString{String: *u.OAuthID, Valid: true}
	}
	if u.ProfilePictureURL != nil {
		row.ProfilePictureURL = sql.NullString{String: *u.ProfilePictureURL, Valid: true}
	}
	if u.RefreshToken != nil {
		row.RefreshToken = sql.NullString{String: *u.RefreshToken, Valid: true}
	}
	if u.RefreshTokenExpiry != nil {
		row.RefreshTokenExpiry = sql.NullInt64{Int64: toMillis(*u.RefreshTokenExpiry), Valid: true}
	}
	return row
}

func toDomain(row userRow) *users.User {
	u := &users.User{
		ID:        row.ID,
		Username:  row.Username,
		Email:     row.Email,
		Role:      users.Role(row.Role),
		CreatedAt: fromMillis(row.CreatedAt),
	}
	if row.PasswordHash.Valid {
		u.PasswordHash = &row.PasswordHash.String
	}
	if row.OAuthProvider.Valid {
		u.OAuthProvider = &row.OAuthProvider.String
	}
	if row.OAuthID.Valid {
		u.OAuthID = &row.OAuthID.String
	}
	if row.ProfilePictureURL.Valid {
		u.ProfilePictureURL = &row.ProfilePictureURL.String
	}
	if row.RefreshToken.Valid {
		u.RefreshToken = &row.RefreshToken.String
	}
	if row.RefreshTokenExpiry.Valid {
		expiry := fromMillis(row.RefreshTokenExpiry.Int64)
		u.RefreshTokenExpiry = &expiry
	}
	return u
}

const insertUserQuery = `
INSERT INTO users (id, username, email, password_hash, role, oauth_provider, oauth_id,
	profile_picture_url, created_at, refresh_token, refresh_token_expiry)
VALUES (:id, :username, :email, :password_hash, :role, :oauth_provider, :oauth_id,
	:profile_picture_url, :created_at, :refresh_token, :refresh_token_expiry)`

func (r *Repo) Create(user *users.User) error {
	if _, err := r.db.NamedExec(insertUserQuery, toRow(user)); err != nil {
		return translateConstraintErr(err, "[Repo.Create] NamedExec")
	}
	return nil
}

const updateUserQuery = `
UPDATE users SET username = :username, email = :email, password_hash = :password_hash,
	role = :role, oauth_provider = :oauth_provider, oauth_id = :oauth_id,
	profile_picture_url = :profile_picture_url
WHERE id = :id`

// Save updates every profile column except the refresh-token pair, which only
// the dedicated slot operations may touch.
func (r *Repo) Save(user *users.User) error {
	res, err := r.db.NamedExec(updateUserQuery, toRow(user))
	if err != nil {
		return translateConstraintErr(err, "[Repo.Save] NamedExec")
	}
	return requireRow(res, "[Repo.Save]")
}

func (r *Repo) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "[Repo.Delete] Exec")
	}
	return requireRow(res, "[Repo.Delete]")
}

func (r *Repo) GetByID(id string) (*users.User, error) {
	return r.getBy(`SELECT * FROM users WHERE id = ?`, id)
}

func (r *Repo) GetByUsername(username string) (*users.User, error) {
	return r.getBy(`SELECT * FROM users WHERE username = ?`, username)
}

func (r *Repo) GetByEmail(email string) (*users.User, error) {
	return r.getBy(`SELECT * FROM users WHERE email = ?`, email)
}

func (r *Repo) GetByOAuthIdentity(provider, oauthID string) (*users.User, error) {
	return r.getBy(`SELECT * FROM users WHERE oauth_provider = ? AND oauth_id = ?`, provider, oauthID)
}

func (r *Repo) getBy(query string, args ...any) (*users.User, error) {
	var row userRow
	if err := r.db.Get(&row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, errors.Wrap(err, "[Repo.getBy] Get")
	}
	return toDomain(row), nil
}

func (r *Repo) ExistsByUsername(username string) (bool, error) {
	var count int
	if err := r.db.Get(&count, `SELECT COUNT(*) FROM users WHERE username = ?`, username); err != nil {
		return false, errors.Wrap(err, "[Repo.ExistsByUsername] Get")
	}
	return count > 0, nil
}

func (r *Repo) List(offset, limit int) ([]*users.User, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []userRow
	if err := r.db.Select(&rows, `SELECT * FROM users ORDER BY username LIMIT ? OFFSET ?`, limit, offset); err != nil {
		return nil, errors.Wrap(err, "[Repo.List] Select")
	}
	userList := make([]*users.User, 0, len(rows))
	for _, row := range rows {
		userList = append(userList, toDomain(row))
	}
	return userList, nil
}

func (r *Repo) SetRefreshToken(username, token string, expiry time.Time) error {
	res, err := r.db.Exec(
		`UPDATE users SET refresh_token = ?, refresh_token_expiry = ? WHERE username = ?`,
		token, toMillis(expiry), username,
	)
	if err != nil {
		return errors.Wrap(err, "[Repo.SetRefreshToken] Exec")
	}
	return requireRow(res, "[Repo.SetRefreshToken]")
}

// RotateRefreshToken replaces the stored refresh token only if it still holds
// the expected current value. The conditional WHERE clause is the store-side
// guarantee that at most one concurrent rotation wins.
func (r *Repo) RotateRefreshToken(username, current, next string, expiry time.Time) error {
	res, err := r.db.Exec(
		`UPDATE users SET refresh_token = ?, refresh_token_expiry = ? WHERE username = ? AND refresh_token = ?`,
		next, toMillis(expiry), username, current,
	)
	if err != nil {
		return errors.Wrap(err, "[Repo.RotateRefreshToken] Exec")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "[Repo.RotateRefreshToken] RowsAffected")
	}
	if affected == 0 {
		return users.ErrTokenMismatch
	}
	return nil
}

func (r *Repo) ClearRefreshToken(username string) error {
	res, err := r.db.Exec(
		`UPDATE users SET refresh_token = NULL, refresh_token_expiry = NULL WHERE username = ?`,
		username,
	)
	if err != nil {
		return errors.Wrap(err, "[Repo.ClearRefreshToken] Exec")
	}
	return requireRow(res, "[Repo.ClearRefreshToken]")
}

func requireRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, op+" RowsAffected")
	}
	if affected == 0 {
		return users.ErrNotFound
	}
	return nil
}

func translateConstraintErr(err error, op string) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "users.username"):
		return users.ErrUsernameTaken
	case strings.Contains(msg, "users.email"):
		return users.ErrEmailTaken
	}
	return errors.Wrap(err, op)
}
