package store

import (
	"context"
	"time"
)

func (s *Store) InsertClient(ctx context.Context, c *Client) error {
	now := time.Now().UTC()
	q := `INSERT INTO clients (id, user_id, name, email, phone, address, notes, created_at, updated_at)
	      VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $7) RETURNING id`
	err := s.DB.QueryRow(ctx, q, c.UserID, c.Name, c.Email, c.Phone, c.Address, c.Notes, now).Scan(&c.ID)
	if err != nil {
		return err
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (s *Store) GetClient(ctx context.Context, id string) (*Client, error) {
	q := `SELECT id, user_id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), COALESCE(notes,''), created_at, updated_at
	      FROM clients WHERE id=$1`
	var c Client
	err := s.DB.QueryRow(ctx, q, id).Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "client")
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context, userID string) ([]Client, error) {
	q := `SELECT id, user_id, name, COALESCE(email,''), COALESCE(phone,''), COALESCE(address,''), COALESCE(notes,''), created_at, updated_at
	      FROM clients WHERE user_id=$1 ORDER BY name`
	rows, err := s.DB.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Client
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateClient(ctx context.Context, c *Client) error {
	now := time.Now().UTC()
	q := `UPDATE clients SET name=$1, email=$2, phone=$3, address=$4, notes=$5, updated_at=$6
	      WHERE id=$7 AND user_id=$8`
	res, err := s.DB.Exec(ctx, q, c.Name, c.Email, c.Phone, c.Address, c.Notes, now, c.ID, c.UserID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	c.UpdatedAt = now
	return nil
}

func (s *Store) DeleteClient(ctx context.Context, userID, id string) error {
	res, err := s.DB.Exec(ctx, `DELETE FROM clients WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
