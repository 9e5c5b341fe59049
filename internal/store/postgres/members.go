package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fundhub/backend/internal/models"
)

func (s *Store) CreateMember(ctx context.Context, m *models.Member) error {
	const q = `INSERT INTO members (collective_id, member_collective_id, role, tier_id, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := s.db(ctx).QueryRow(ctx, q, m.CollectiveID, m.MemberCollectiveID, m.Role, m.TierID, m.CreatedByUserID).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, f models.MemberFilter) ([]models.Member, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+" = $"+strconv.Itoa(len(args)))
	}
	if f.CollectiveID != 0 {
		add("collective_id", f.CollectiveID)
	}
	if f.MemberCollectiveID != 0 {
		add("member_collective_id", f.MemberCollectiveID)
	}
	if f.Role != "" {
		add("role", f.Role)
	}
	if f.TierID != nil {
		add("tier_id", *f.TierID)
	}
	q := `SELECT id, collective_id, member_collective_id, role, tier_id, created_by_user_id, created_at FROM members`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := s.db(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	var list []models.Member
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.CollectiveID, &m.MemberCollectiveID, &m.Role, &m.TierID, &m.CreatedByUserID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (s *Store) DeleteMember(ctx context.Context, id int64) error {
	tag, err := s.db(ctx).Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	return mustAffect(tag.RowsAffected(), err, "delete member")
}

func (s *Store) CountMembers(ctx context.Context) (int, error) {
	var n int
	if err := s.db(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM members`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}
