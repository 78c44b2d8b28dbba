package store

import (
	"context"
	"time"
)

func (s *Store) InsertProcedure(ctx context.Context, p *Procedure) error {
	now := time.Now().UTC()
	q := `INSERT INTO procedures (id, user_id, name, description, duration_minutes, price_cents, created_at, updated_at)
	      VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $6) RETURNING id`
	err := s.DB.QueryRow(ctx, q, p.UserID, p.Name, p.Description, p.DurationMins, p.PriceCents, now).Scan(&p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *Store) GetProcedure(ctx context.Context, id string) (*Procedure, error) {
	q := `SELECT id, user_id, name, COALESCE(description,''), duration_minutes, price_cents, created_at, updated_at
	      FROM procedures WHERE id=$1`
	var p Procedure
	err := s.DB.QueryRow(ctx, q, id).Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.DurationMins, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "procedure")
	}
	return &p, nil
}

func (s *Store) ListProcedures(ctx context.Context, userID string) ([]Procedure, error) {
	q := `SELECT id, user_id, name, COALESCE(description,''), duration_minutes, price_cents, created_at, updated_at
	      FROM procedures WHERE user_id=$1 ORDER BY name`
	rows, err := s.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Procedure
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.DurationMins, &p.PriceCents, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) UpdateProcedure(ctx context.Context, p *Procedure) error {
	now := time.Now().UTC()
	q := `UPDATE procedures SET name=$1, description=$2, duration_minutes=$3, price_cents=$4, updated_at=$5
	      WHERE id=$6 AND user_id=$7`
	res, err := s.DB.Exec(ctx, q, p.Name, p.Description, p.DurationMins, p.PriceCents, now, p.ID, p.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = now
	return nil
}

func (s *Store) DeleteProcedure(ctx context.Context, userID, id string) error {
	res, err := s.DB.Exec(ctx, `DELETE FROM procedures WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
