package primary

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aide/internal/models"
)

// --- Contact Store Implementation ---

const contactColumns = `id, phone_number, display_name, trust_level, command_permissions, created_at, updated_at`

func scanContact(row rowScanner) (*models.Contact, error) {
	var (
		contact     models.Contact
		displayName sql.NullString
		permissions string
	)
	err := row.Scan(
		&contact.ID, &contact.PhoneNumber, &displayName, &contact.TrustLevel,
		&permissions, &contact.CreatedAt, &contact.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if displayName.Valid {
		contact.DisplayName = &displayName.String
	}
	contact.CommandPermissions = json.RawMessage(permissions)
	return &contact, nil
}

// GetContactByPhone returns the contact for phoneNumber, or models.ErrNotFound.
func (s *StoreImpl) GetContactByPhone(ctx context.Context, phoneNumber string) (*models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE phone_number = ?`
	contact, err := scanContact(s.db.QueryRowContext(ctx, query, phoneNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get contact %s: %w", phoneNumber, err)
	}
	return contact, nil
}

// ResolveOrCreateContact returns the existing contact for phoneNumber, or
// creates one with the default unknown trust level and no permissions.
func (s *StoreImpl) ResolveOrCreateContact(ctx context.Context, phoneNumber string) (*models.Contact, error) {
	if phoneNumber == "" {
		return nil, fmt.Errorf("phone number is required: %w", models.ErrValidation)
	}

	contact, err := s.GetContactByPhone(ctx, phoneNumber)
	if err == nil {
		return contact, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO contacts (phone_number, trust_level, command_permissions, created_at, updated_at)
		VALUES (?, 'unknown', '[]', ?, ?)
		ON CONFLICT (phone_number) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, query, phoneNumber, now, now); err != nil {
		return nil, fmt.Errorf("failed to create contact %s: %w", phoneNumber, err)
	}
	return s.GetContactByPhone(ctx, phoneNumber)
}
