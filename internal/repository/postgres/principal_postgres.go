package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cloudcentinel/principal-service/internal/domain"
	"github.com/cloudcentinel/principal-service/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// principalRow is the flat representation of the principals table. The four
// variants share one table; variant-specific columns are nullable and the
// converter functions fold them back into the tagged Principal struct.
type principalRow struct {
	ID              uuid.UUID              `db:"id"`
	Type            domain.PrincipalType   `db:"type"`
	Username        string                 `db:"username"`
	Email           *string                `db:"email"`
	PrimaryTenantID uuid.UUID              `db:"primary_tenant_id"`
	Status          domain.PrincipalStatus `db:"status"`
	ContextTags     domain.ContextTags     `db:"context_tags"`
	SyncStatus      domain.SyncStatus      `db:"sync_status"`
	SyncRetryCount  int                    `db:"sync_retry_count"`
	CreatedAt       time.Time              `db:"created_at"`
	UpdatedAt       time.Time              `db:"updated_at"`
	CreatedBy       string                 `db:"created_by"`

	DisplayName   *string `db:"display_name"`
	EmailVerified *bool   `db:"email_verified"`
	MFAEnabled    *bool   `db:"mfa_enabled"`
	PhoneNumber   *string `db:"phone_number"`
	Locale        *string `db:"locale"`
	Timezone      *string `db:"timezone"`
	IdPUserID     *string `db:"idp_user_id"`

	ServiceName            *string        `db:"service_name"`
	AllowedScopes          pq.StringArray `db:"allowed_scopes"`
	APIKeyHash             *string        `db:"api_key_hash"`
	CredentialRotationDate *time.Time     `db:"credential_rotation_date"`
	RotatedAt              *time.Time     `db:"rotated_at"`

	SystemIdentifier      *string        `db:"system_identifier"`
	IntegrationType       *string        `db:"integration_type"`
	CertificateThumbprint *string        `db:"certificate_thumbprint"`
	AllowedOperations     pq.StringArray `db:"allowed_operations"`

	DeviceIdentifier *string    `db:"device_identifier"`
	DeviceType       *string    `db:"device_type"`
	FirmwareVersion  *string    `db:"firmware_version"`
	LocationInfo     *string    `db:"location_info"`
	LastHeartbeatAt  *time.Time `db:"last_heartbeat_at"`

	IdPClientID *string `db:"idp_client_id"`
}

const principalColumns = `id, type, username, email, primary_tenant_id, status, context_tags,
	sync_status, sync_retry_count, created_at, updated_at, created_by,
	display_name, email_verified, mfa_enabled, phone_number, locale, timezone, idp_user_id,
	service_name, allowed_scopes, api_key_hash, credential_rotation_date, rotated_at,
	system_identifier, integration_type, certificate_thumbprint, allowed_operations,
	device_identifier, device_type, firmware_version, location_info, last_heartbeat_at,
	idp_client_id`

func toRow(p *domain.Principal) *principalRow {
	row := &principalRow{
		ID:              p.ID,
		Type:            p.Type,
		Username:        p.Username,
		Email:           p.Email,
		PrimaryTenantID: p.PrimaryTenantID,
		Status:          p.Status,
		ContextTags:     p.ContextTags,
		SyncStatus:      p.SyncStatus,
		SyncRetryCount:  p.SyncRetryCount,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
		CreatedBy:       p.CreatedBy,
	}

	switch p.Type {
	case domain.PrincipalTypeHuman:
		if h := p.Human; h != nil {
			row.DisplayName = &h.DisplayName
			row.EmailVerified = &h.EmailVerified
			row.MFAEnabled = &h.MFAEnabled
			row.PhoneNumber = h.PhoneNumber
			row.Locale = h.Locale
			row.Timezone = h.Timezone
			row.IdPUserID = h.IdPUserID
		}
	case domain.PrincipalTypeService:
		if s := p.Service; s != nil {
			row.ServiceName = &s.ServiceName
			row.AllowedScopes = pq.StringArray(s.AllowedScopes)
			row.APIKeyHash = &s.APIKeyHash
			row.CredentialRotationDate = &s.CredentialRotationDate
			row.RotatedAt = s.RotatedAt
			row.IdPClientID = s.IdPClientID
		}
	case domain.PrincipalTypeSystem:
		if s := p.System; s != nil {
			row.SystemIdentifier = &s.SystemIdentifier
			row.IntegrationType = &s.IntegrationType
			row.CertificateThumbprint = &s.CertificateThumbprint
			row.AllowedOperations = pq.StringArray(s.AllowedOperations)
			row.IdPClientID = s.IdPClientID
		}
	case domain.PrincipalTypeDevice:
		if d := p.Device; d != nil {
			row.DeviceIdentifier = &d.DeviceIdentifier
			row.DeviceType = &d.DeviceType
			row.CertificateThumbprint = &d.CertificateThumbprint
			row.FirmwareVersion = d.FirmwareVersion
			row.LocationInfo = d.LocationInfo
			row.LastHeartbeatAt = d.LastHeartbeatAt
			row.IdPClientID = d.IdPClientID
		}
	}

	return row
}

func fromRow(row *principalRow) *domain.Principal {
	p := &domain.Principal{
		ID:              row.ID,
		Type:            row.Type,
		Username:        row.Username,
		Email:           row.Email,
		PrimaryTenantID: row.PrimaryTenantID,
		Status:          row.Status,
		ContextTags:     row.ContextTags,
		SyncStatus:      row.SyncStatus,
		SyncRetryCount:  row.SyncRetryCount,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
		CreatedBy:       row.CreatedBy,
	}

	switch row.Type {
	case domain.PrincipalTypeHuman:
		p.Human = &domain.HumanProfile{
			DisplayName:   derefString(row.DisplayName),
			EmailVerified: derefBool(row.EmailVerified),
			MFAEnabled:    derefBool(row.MFAEnabled),
			PhoneNumber:   row.PhoneNumber,
			Locale:        row.Locale,
			Timezone:      row.Timezone,
			IdPUserID:     row.IdPUserID,
		}
	case domain.PrincipalTypeService:
		p.Service = &domain.ServiceProfile{
			ServiceName:            derefString(row.ServiceName),
			AllowedScopes:          []string(row.AllowedScopes),
			APIKeyHash:             derefString(row.APIKeyHash),
			CredentialRotationDate: derefTime(row.CredentialRotationDate),
			RotatedAt:              row.RotatedAt,
			IdPClientID:            row.IdPClientID,
		}
	case domain.PrincipalTypeSystem:
		p.System = &domain.SystemProfile{
			SystemIdentifier:      derefString(row.SystemIdentifier),
			IntegrationType:       derefString(row.IntegrationType),
			CertificateThumbprint: derefString(row.CertificateThumbprint),
			AllowedOperations:     []string(row.AllowedOperations),
			IdPClientID:           row.IdPClientID,
		}
	case domain.PrincipalTypeDevice:
		p.Device = &domain.DeviceProfile{
			DeviceIdentifier:      derefString(row.DeviceIdentifier),
			DeviceType:            derefString(row.DeviceType),
			CertificateThumbprint: derefString(row.CertificateThumbprint),
			FirmwareVersion:       row.FirmwareVersion,
			LocationInfo:          row.LocationInfo,
			LastHeartbeatAt:       row.LastHeartbeatAt,
			IdPClientID:           row.IdPClientID,
		}
	}

	return p
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

type principalRepository struct {
	db *sqlx.DB
}

// NewPrincipalRepository creates a new PostgreSQL principal repository
func NewPrincipalRepository(db *sqlx.DB) repository.PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) Create(ctx context.Context, p *domain.Principal) error {
	query := `
		INSERT INTO principals (
			id, type, username, email, primary_tenant_id, status, context_tags,
			sync_status, sync_retry_count, created_at, updated_at, created_by,
			display_name, email_verified, mfa_enabled, phone_number, locale, timezone, idp_user_id,
			service_name, allowed_scopes, api_key_hash, credential_rotation_date, rotated_at,
			system_identifier, integration_type, certificate_thumbprint, allowed_operations,
			device_identifier, device_type, firmware_version, location_info, last_heartbeat_at,
			idp_client_id
		) VALUES (
			:id, :type, :username, :email, :primary_tenant_id, :status, :context_tags,
			:sync_status, :sync_retry_count, :created_at, :updated_at, :created_by,
			:display_name, :email_verified, :mfa_enabled, :phone_number, :locale, :timezone, :idp_user_id,
			:service_name, :allowed_scopes, :api_key_hash, :credential_rotation_date, :rotated_at,
			:system_identifier, :integration_type, :certificate_thumbprint, :allowed_operations,
			:device_identifier, :device_type, :firmware_version, :location_info, :last_heartbeat_at,
			:idp_client_id
		)`

	_, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, toRow(p))
	if err != nil {
		return translateUniqueViolation(err)
	}

	return nil
}

func (r *principalRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM principals WHERE id = $1`, principalColumns)

	var row principalRow
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &row, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("failed to get principal by id: %w", err)
	}

	return fromRow(&row), nil
}

func (r *principalRepository) Update(ctx context.Context, p *domain.Principal) error {
	query := `
		UPDATE principals
		SET username = :username,
			email = :email,
			status = :status,
			context_tags = :context_tags,
			sync_status = :sync_status,
			sync_retry_count = :sync_retry_count,
			updated_at = :updated_at,
			display_name = :display_name,
			email_verified = :email_verified,
			mfa_enabled = :mfa_enabled,
			phone_number = :phone_number,
			locale = :locale,
			timezone = :timezone,
			idp_user_id = :idp_user_id,
			allowed_scopes = :allowed_scopes,
			api_key_hash = :api_key_hash,
			credential_rotation_date = :credential_rotation_date,
			rotated_at = :rotated_at,
			integration_type = :integration_type,
			certificate_thumbprint = :certificate_thumbprint,
			allowed_operations = :allowed_operations,
			device_type = :device_type,
			firmware_version = :firmware_version,
			location_info = :location_info,
			last_heartbeat_at = :last_heartbeat_at,
			idp_client_id = :idp_client_id
		WHERE id = :id`

	result, err := sqlx.NamedExecContext(ctx, ext(ctx, r.db), query, toRow(p))
	if err != nil {
		return translateUniqueViolation(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return domain.ErrPrincipalNotFound
	}

	return nil
}

func (r *principalRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM principals WHERE username = $1)`, username)
}

func (r *principalRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM principals WHERE email = $1)`, email)
}

func (r *principalRepository) ExistsByServiceName(ctx context.Context, serviceName string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM principals WHERE service_name = $1)`, serviceName)
}

func (r *principalRepository) ExistsBySystemIdentifier(ctx context.Context, systemIdentifier string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM principals WHERE system_identifier = $1)`, systemIdentifier)
}

func (r *principalRepository) ExistsByDeviceIdentifier(ctx context.Context, deviceIdentifier string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS(SELECT 1 FROM principals WHERE device_identifier = $1)`, deviceIdentifier)
}

func (r *principalRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var found bool
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &found, query, arg); err != nil {
		return false, fmt.Errorf("failed to run existence check: %w", err)
	}
	return found, nil
}

func (r *principalRepository) FindInactiveByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	query := fmt.Sprintf(`SELECT %s FROM principals WHERE email = $1 AND status = $2`, principalColumns)

	var row principalRow
	err := sqlx.GetContext(ctx, ext(ctx, r.db), &row, query, email, domain.PrincipalStatusInactive)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inactive principal by email: %w", err)
	}

	return fromRow(&row), nil
}

func (r *principalRepository) List(ctx context.Context, limit, offset int) ([]*domain.Principal, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM principals`
	if err := sqlx.GetContext(ctx, ext(ctx, r.db), &total, countQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to count principals: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM principals
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, principalColumns)

	var rows []principalRow
	if err := sqlx.SelectContext(ctx, ext(ctx, r.db), &rows, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list principals: %w", err)
	}

	principals := make([]*domain.Principal, len(rows))
	for i := range rows {
		principals[i] = fromRow(&rows[i])
	}

	return principals, total, nil
}
