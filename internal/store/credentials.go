package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"studioops/internal/domain"
	"studioops/internal/infra"
	"studioops/internal/sqlinline"
)

// Credentials persists per-tenant storage-provider OAuth tokens. The access
// token is rewritten in place when the provider rejects it and the refresh
// exchange succeeds.
type Credentials struct {
	sql infra.SQLExecutor
}

func NewCredentials(sql infra.SQLExecutor) *Credentials {
	return &Credentials{sql: sql}
}

func (s *Credentials) Credential(ctx context.Context, tenantID, provider string) (*domain.StorageCredential, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectStorageCredential, tenantID, provider)
	cred := domain.StorageCredential{TenantID: tenantID}
	if err := row.Scan(&cred.Provider, &cred.AccessToken, &cred.RefreshToken); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoProviderToken
		}
		return nil, err
	}
	cred.AccessToken = strings.TrimSpace(cred.AccessToken)
	cred.RefreshToken = strings.TrimSpace(cred.RefreshToken)
	if cred.AccessToken == "" {
		return nil, domain.ErrNoProviderToken
	}
	return &cred, nil
}

func (s *Credentials) UpdateAccessToken(ctx context.Context, tenantID, provider, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("access token is required")
	}
	_, err := s.sql.Exec(ctx, sqlinline.QUpdateStorageAccessToken, tenantID, provider, token)
	return err
}
