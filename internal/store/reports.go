package store

import (
	"context"
	"time"
)

// RevenueByPeriod aggregates completed appointments against the procedure
// catalog for the given window.
func (s *Store) RevenueByPeriod(ctx context.Context, userID string, from, to time.Time) ([]RevenueRow, error) {
	q := `SELECT p.id, p.name, COUNT(a.id), COALESCE(SUM(p.price_cents), 0)
	      FROM appointments a
	      JOIN procedures p ON p.id = a.procedure_id
	      WHERE a.user_id=$1 AND a.status='completed' AND a.scheduled_at >= $2 AND a.scheduled_at < $3
	      GROUP BY p.id, p.name
	      ORDER BY SUM(p.price_cents) DESC`
	rows, err := s.DB.Query(ctx, q, userID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RevenueRow
	for rows.Next() {
		var r RevenueRow
		if err := rows.Scan(&r.ProcedureID, &r.ProcedureName, &r.Completed, &r.RevenueCents); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
