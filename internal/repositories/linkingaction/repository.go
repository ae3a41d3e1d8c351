// Package linkingaction persists the append-only audit trail of linking
// operations.
package linkingaction

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/tendril/internal/database"
	"github.com/Ramsey-B/tendril/pkg/models"
	"github.com/Ramsey-B/tendril/pkg/tracing"
)

// Repository handles linking action persistence. Records are append-only:
// there is no update or delete path.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new linking action repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append records one linking action. It joins any transaction carried by
// the context so a caller can tie the audit write to other work.
func (r *Repository) Append(ctx context.Context, action *models.LinkingAction) error {
	ctx, span := tracing.StartSpan(ctx, "linkingaction.Repository.Append")
	defer span.End()

	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.CreatedAt.IsZero() {
		action.CreatedAt = time.Now().UTC()
	}

	var details any
	if len(action.Details) > 0 {
		details = string(action.Details)
	}

	sb := sqlbuilder.PostgreSQL.NewInsertBuilder()
	sb.InsertInto("linking_actions")
	sb.Cols("id", "action_type", "entity_id", "target_id", "actor", "reason", "confidence", "details", "created_at")
	sb.Values(action.ID, action.ActionType, action.EntityID, action.TargetID, action.Actor, action.Reason, action.Confidence, details, action.CreatedAt)

	query, args := sb.Build()

	if tx, ok := database.TxFromContext(ctx); ok {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"action_id": action.ID}).Error("Failed to append linking action")
			return httperror.NewHTTPError(http.StatusInternalServerError, "failed to append linking action")
		}
		return nil
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"action_id": action.ID}).Error("Failed to append linking action")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to append linking action")
	}

	return nil
}

// ListByEntity pages through the audit trail touching an entity (as either
// subject or target), newest first, optionally filtered by action type.
func (r *Repository) ListByEntity(ctx context.Context, entityID string, query models.HistoryQuery) ([]*models.LinkingAction, error) {
	ctx, span := tracing.StartSpan(ctx, "linkingaction.Repository.ListByEntity")
	defer span.End()

	limit := query.Limit
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "action_type", "entity_id", "target_id", "actor", "reason", "confidence", "details", "created_at")
	sb.From("linking_actions")
	sb.Where(sb.Or(
		sb.Equal("entity_id", entityID),
		sb.Equal("target_id", entityID),
	))
	if query.ActionType != "" {
		sb.Where(sb.Equal("action_type", query.ActionType))
	}
	sb.OrderBy("created_at DESC", "id DESC")
	sb.Limit(limit)
	sb.Offset(offset)

	sql, args := sb.Build()
	var actions []*models.LinkingAction
	if err := r.db.SelectContext(ctx, &actions, sql, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"entity_id": entityID}).Error("Failed to list linking actions")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list linking actions")
	}

	return actions, nil
}
