package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vpsdash/vpsdash/internal/api"
	"github.com/vpsdash/vpsdash/internal/core"
)

// ErrDuplicateKey is returned when the API key is already stored under
// another account.
var ErrDuplicateKey = errors.New("api key is already registered")

// ErrAccountNotFound is returned when no account matches the reference.
var ErrAccountNotFound = errors.New("account not found")

// AddAccount stores a new named account. The key format is validated
// locally and the key is encrypted before insertion. The first account
// added becomes the active one.
func (s *Store) AddAccount(ctx context.Context, name, apiKey string) (*core.Account, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if s.cipher == nil {
		return nil, errors.New("store has no encryption key configured")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("account name is required")
	}
	if !api.ValidKeyFormat(apiKey) {
		return nil, errors.New("invalid api key format")
	}

	sealed, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt api key: %w", err)
	}

	digest := keyDigest(apiKey)

	var existing int
	row := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE key_digest = ?`, digest)
	if err := row.Scan(&existing); err != nil {
		return nil, fmt.Errorf("check api key: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateKey
	}

	var total int
	row = s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`)
	if err := row.Scan(&total); err != nil {
		return nil, fmt.Errorf("count accounts: %w", err)
	}

	account := &core.Account{
		ID:     uuid.NewString(),
		Name:   name,
		APIKey: apiKey,
		Status: core.AccountPending,
	}

	isActive := 0
	if total == 0 {
		isActive = 1
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO accounts (id, name, api_key, key_digest, status, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, account.ID, account.Name, sealed, digest, string(account.Status), isActive, time.Now().UTC().Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("account name %q is already taken", name)
		}
		return nil, fmt.Errorf("store account: %w", err)
	}

	return account, nil
}

// GetAccount returns the account matching the given id or name.
func (s *Store) GetAccount(ctx context.Context, ref string) (*core.Account, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, errors.New("account reference is required")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, api_key, status, last_checked, last_error
		FROM accounts
		WHERE id = ? OR name = ?
	`, ref, ref)

	account, err := s.scanAccount(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("fetch account: %w", err)
	}

	return account, nil
}

// ListAccounts returns all stored accounts ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, api_key, status, last_checked, last_error
		FROM accounts
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var accounts []core.Account
	for rows.Next() {
		account, err := s.scanAccount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list accounts: %w", err)
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	return accounts, nil
}

// RemoveAccount deletes the account matching the given id or name. If the
// removed account was active, the remaining account with the earliest
// creation time becomes active.
func (s *Store) RemoveAccount(ctx context.Context, ref string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return errors.New("account reference is required")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	var (
		id       string
		isActive int
	)
	row := tx.QueryRowContext(ctx, `SELECT id, is_active FROM accounts WHERE id = ? OR name = ?`, ref, ref)
	if err := row.Scan(&id, &isActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("remove account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove account: %w", err)
	}

	if isActive == 1 {
		_, err := tx.ExecContext(ctx, `
			UPDATE accounts SET is_active = 1
			WHERE id = (SELECT id FROM accounts ORDER BY created_at LIMIT 1)
		`)
		if err != nil {
			return fmt.Errorf("promote account: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("remove account: %w", err)
	}
	return nil
}

// UseAccount marks the account matching the given id or name as the
// single active account.
func (s *Store) UseAccount(ctx context.Context, ref string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return errors.New("account reference is required")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("switch account: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck // no-op after commit

	var id string
	row := tx.QueryRowContext(ctx, `SELECT id FROM accounts WHERE id = ? OR name = ?`, ref, ref)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("switch account: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_active = 0 WHERE is_active = 1`); err != nil {
		return fmt.Errorf("switch account: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET is_active = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("switch account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("switch account: %w", err)
	}
	return nil
}

// MarkAccountStatus records the result of validating an account's key.
func (s *Store) MarkAccountStatus(ctx context.Context, id string, status core.AccountStatus, lastError string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE accounts SET status = ?, last_checked = ?, last_error = ?
		WHERE id = ?
	`, string(status), time.Now().UTC().Unix(), lastError, id)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// ActiveAccount returns the currently selected account, if any. Errors
// are treated as absence so callers can use it as a cheap lookup.
func (s *Store) ActiveAccount() (*core.Account, bool) {
	if s == nil || s.DB == nil {
		return nil, false
	}

	row := s.DB.QueryRow(`
		SELECT id, name, api_key, status, last_checked, last_error
		FROM accounts
		WHERE is_active = 1
	`)

	account, err := s.scanAccount(row.Scan)
	if err != nil {
		return nil, false
	}
	return account, true
}

func (s *Store) scanAccount(scan func(dest ...any) error) (*core.Account, error) {
	var (
		account     core.Account
		sealed      string
		status      string
		lastChecked sql.NullInt64
		lastError   sql.NullString
	)

	if err := scan(&account.ID, &account.Name, &sealed, &status, &lastChecked, &lastError); err != nil {
		return nil, err
	}

	if s.cipher != nil {
		plaintext, err := s.cipher.Decrypt(sealed)
		if err != nil {
			return nil, fmt.Errorf("decrypt api key: %w", err)
		}
		account.APIKey = plaintext
	}

	account.Status = core.AccountStatus(status)
	if lastChecked.Valid {
		account.LastChecked = time.Unix(lastChecked.Int64, 0).UTC()
	}
	if lastError.Valid {
		account.LastError = lastError.String
	}

	return &account, nil
}

func keyDigest(apiKey string) string {
	sum := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(sum[:])
}
