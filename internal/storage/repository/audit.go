package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// InsertAuditEntry добавляет запись в журнал аудита. Журнал только пополняется.
func (s *Storage) InsertAuditEntry(ctx context.Context, e *models.AuditEntry) error {
	const op = "storage.InsertAuditEntry"

	var (
		actorID                 sql.NullInt64
		actorName, targetTable  sql.NullString
		ip, userAgent           sql.NullString
		targetID                sql.NullInt64
		beforeValue, afterValue any
	)
	if e.Actor != nil {
		actorID = sql.NullInt64{Int64: e.Actor.UserID, Valid: true}
		actorName = sql.NullString{String: e.Actor.Username, Valid: true}
	}
	if e.Target != nil {
		targetTable = sql.NullString{String: e.Target.Table, Valid: true}
		targetID = sql.NullInt64{Int64: e.Target.RecordID, Valid: true}
	}
	if e.Client != nil {
		ip = sql.NullString{String: e.Client.IP, Valid: e.Client.IP != ""}
		userAgent = sql.NullString{String: e.Client.UserAgent, Valid: e.Client.UserAgent != ""}
	}
	if len(e.Before) > 0 {
		beforeValue = []byte(e.Before)
	}
	if len(e.After) > 0 {
		afterValue = []byte(e.After)
	}

	query := `INSERT INTO audit_logs (actor_user_id, actor_username, action, target_table,
			      target_id, description, before_value, after_value, ip_address, user_agent)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id, created_at`
	if err := s.DB.QueryRowContext(ctx, query,
		actorID, actorName, e.Action, targetTable, targetID, e.Description,
		beforeValue, afterValue, ip, userAgent,
	).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
