package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/safarinet/billing-portal/internal/models"
)

type ProvisionLogRepository struct {
	pool *pgxpool.Pool
}

func NewProvisionLogRepository(pool *pgxpool.Pool) *ProvisionLogRepository {
	return &ProvisionLogRepository{pool: pool}
}

// Create inserts a provisioning audit entry
func (r *ProvisionLogRepository) Create(ctx context.Context, entry *models.ProvisionLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO portal.provision_logs (id, subscription_id, username, action, status, message, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.SubscriptionID, entry.Username, entry.Action, entry.Status, entry.Message, entry.Metadata,
	)
	if err != nil {
		return fmt.Errorf("insert provision log: %w", err)
	}

	return nil
}

// GetByUsername retrieves audit entries for a router account
func (r *ProvisionLogRepository) GetByUsername(ctx context.Context, username string, limit int) ([]*models.ProvisionLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, subscription_id, username, action, status, message, metadata, created_at
		FROM portal.provision_logs
		WHERE username = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, username, limit)
	if err != nil {
		return nil, fmt.Errorf("query provision logs: %w", err)
	}
	defer rows.Close()

	var entries []*models.ProvisionLog
	for rows.Next() {
		entry := &models.ProvisionLog{}
		err := rows.Scan(
			&entry.ID, &entry.SubscriptionID, &entry.Username, &entry.Action,
			&entry.Status, &entry.Message, &entry.Metadata, &entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan provision log: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// LogAction is a helper to record an action
func (r *ProvisionLogRepository) LogAction(ctx context.Context, subscriptionID, username, action, status, message string) error {
	return r.Create(ctx, &models.ProvisionLog{
		SubscriptionID: subscriptionID,
		Username:       username,
		Action:         action,
		Status:         status,
		Message:        message,
	})
}

// LogActionWithMetadata is a helper to record an action with metadata
func (r *ProvisionLogRepository) LogActionWithMetadata(ctx context.Context, subscriptionID, username, action, status, message string, metadata map[string]interface{}) error {
	return r.Create(ctx, &models.ProvisionLog{
		SubscriptionID: subscriptionID,
		Username:       username,
		Action:         action,
		Status:         status,
		Message:        message,
		Metadata:       metadata,
	})
}
