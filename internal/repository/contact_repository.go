package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vaktsms/vaktsms-backend/internal/model"
)

type ContactRepositoryInterface interface {
	FindByPhone(ctx context.Context, tenantID int, phone string) (*model.Contact, error)
	FindOrCreate(ctx context.Context, tenantID int, phone string) (*model.Contact, error)
}

type ContactRepository struct {
	DB *sql.DB
}

// FindByPhone returns (nil, nil) when no contact exists for the number.
func (r *ContactRepository) FindByPhone(ctx context.Context, tenantID int, phone string) (*model.Contact, error) {
	query := `
        SELECT id, tenant_id, phone, name, default_group_id, created_at
        FROM contacts
        WHERE tenant_id = $1 AND phone = $2
    `
	var c model.Contact
	err := r.DB.QueryRowContext(ctx, query, tenantID, phone).Scan(
		&c.ID, &c.TenantID, &c.Phone, &c.Name, &c.DefaultGroupID, &c.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find contact: %w", err)
	}
	return &c, nil
}

// FindOrCreate lazily creates the contact on first inbound message from an
// unknown number. Concurrent callers are safe: the insert is a no-op on
// conflict and the winner's row is read back.
func (r *ContactRepository) FindOrCreate(ctx context.Context, tenantID int, phone string) (*model.Contact, error) {
	contact, err := r.FindByPhone(ctx, tenantID, phone)
	if err != nil {
		return nil, err
	}
	if contact != nil {
		return contact, nil
	}

	_, err = r.DB.ExecContext(ctx, `
        INSERT INTO contacts (tenant_id, phone, name, created_at)
        VALUES ($1, $2, '', $3)
        ON CONFLICT (tenant_id, phone) DO NOTHING
    `, tenantID, phone, time.Now())
	if err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}

	contact, err = r.FindByPhone(ctx, tenantID, phone)
	if err != nil {
		return nil, err
	}
	if contact == nil {
		return nil, fmt.Errorf("contact %q vanished after insert", phone)
	}
	return contact, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
