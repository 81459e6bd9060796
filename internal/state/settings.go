package state

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrSettingsNotFound = errors.New("provider settings not found")

// ProviderSettings is the non-secret per-provider configuration. Enabled marks
// a local provider as configured, since those carry no credential.
type ProviderSettings struct {
	Name      string
	Model     string
	BaseURL   string
	Enabled   bool
	UpdatedAt time.Time
}

func (db *DB) SaveProviderSettings(ctx context.Context, s ProviderSettings) error {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return errors.New("provider name is empty")
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO provider_settings (name, model, base_url, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			model = excluded.model,
			base_url = excluded.base_url,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`, name, strings.TrimSpace(s.Model), strings.TrimSpace(s.BaseURL), s.Enabled, time.Now().UTC())
	return err
}

func (db *DB) GetProviderSettings(ctx context.Context, name string) (ProviderSettings, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT name, model, base_url, enabled, updated_at
		FROM provider_settings
		WHERE name = ?
	`, strings.TrimSpace(name))

	var s ProviderSettings
	if err := row.Scan(&s.Name, &s.Model, &s.BaseURL, &s.Enabled, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ProviderSettings{}, ErrSettingsNotFound
		}
		return ProviderSettings{}, err
	}
	return s, nil
}

func (db *DB) ListProviderSettings(ctx context.Context) (map[string]ProviderSettings, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT name, model, base_url, enabled, updated_at
		FROM provider_settings
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]ProviderSettings)
	for rows.Next() {
		var s ProviderSettings
		if err := rows.Scan(&s.Name, &s.Model, &s.BaseURL, &s.Enabled, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out[s.Name] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteProviderSettings reports whether a row was removed.
func (db *DB) DeleteProviderSettings(ctx context.Context, name string) (bool, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM provider_settings WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
