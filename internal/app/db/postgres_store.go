package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"linkchat/internal/pkg/randx"
)

// PostgresStore is the Store backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps a migrated connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const userColumns = `id, username, password_hash, avatar, tag, created_at, last_login_at`

const groupColumns = `g.id, g.name, g.avatar, g.announcement, g.creator_id, g.is_default, g.created_at,
	ARRAY(SELECT m.user_id FROM group_members m WHERE m.group_id = g.id ORDER BY m.position)`

const messageColumns = `id, from_id, to_id, type, content, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Avatar, &u.Tag, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func scanGroup(row pgx.Row) (*Group, error) {
	var g Group
	var creator *string
	err := row.Scan(&g.ID, &g.Name, &g.Avatar, &g.Announcement, &creator, &g.IsDefault, &g.CreatedAt, &g.Members)
	if err != nil {
		return nil, notFound(err)
	}
	if creator != nil {
		g.Creator = *creator
	}
	return &g, nil
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.From, &m.To, &m.Type, &m.Content, &m.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]*T, error) {
	defer rows.Close()

	var result []*T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// likePattern builds an ILIKE substring pattern with the wildcards in keyword escaped.
func likePattern(keyword string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(keyword)
	return "%" + escaped + "%"
}

func searchLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// execOne runs a single-row update and maps zero affected rows to ErrNotFound.
func (s *PostgresStore) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *User) error {
	username, err := NormalizeUsername(u.Username)
	if err != nil {
		return err
	}
	tag, err := NormalizeTag(u.Tag)
	if err != nil {
		return err
	}

	u.Username, u.Tag = username, tag
	if u.ID == "" {
		u.ID = randx.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.LastLoginAt.IsZero() {
		u.LastLoginAt = u.CreatedAt
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.PasswordHash, u.Avatar, u.Tag, u.CreatedAt, u.LastLoginAt,
	)
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *PostgresStore) RegisterUser(ctx context.Context, u *User, groupID string) (*Group, error) {
	username, err := NormalizeUsername(u.Username)
	if err != nil {
		return nil, err
	}
	tag, err := NormalizeTag(u.Tag)
	if err != nil {
		return nil, err
	}

	u.Username, u.Tag = username, tag
	if u.ID == "" {
		u.ID = randx.NewID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	if u.LastLoginAt.IsZero() {
		u.LastLoginAt = u.CreatedAt
	}

	var g *Group
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// locking the group row orders concurrent creator claims
		var locked string
		if err := tx.QueryRow(ctx,
			`SELECT id FROM chat_groups WHERE id = $1 FOR UPDATE`, groupID,
		).Scan(&locked); err != nil {
			return notFound(err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Username, u.PasswordHash, u.Avatar, u.Tag, u.CreatedAt, u.LastLoginAt,
		); err != nil {
			if IsUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE chat_groups SET creator_id = $2 WHERE id = $1 AND creator_id IS NULL`, groupID, u.ID,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, groupID, u.ID,
		); err != nil {
			return err
		}

		var err error
		g, err = scanGroup(tx.QueryRow(ctx, `SELECT `+groupColumns+` FROM chat_groups g WHERE g.id = $1`, groupID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username)))
}

func (s *PostgresStore) GetUsers(ctx context.Context, ids []string) (map[string]*User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, err
	}

	result := make(map[string]*User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *PostgresStore) UpdateUsername(ctx context.Context, id, username string) error {
	username, err := NormalizeUsername(username)
	if err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE users SET username = $2 WHERE id = $1`, id, username)
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.execOne(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (s *PostgresStore) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return s.execOne(ctx, `UPDATE users SET avatar = $2 WHERE id = $1`, id, avatar)
}

func (s *PostgresStore) UpdateTag(ctx context.Context, id, tag string) error {
	tag, err := NormalizeTag(tag)
	if err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE users SET tag = $2 WHERE id = $1`, id, tag)
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, id string) error {
	return s.execOne(ctx, `UPDATE users SET last_login_at = now() WHERE id = $1`, id)
}

func (s *PostgresStore) SearchUsers(ctx context.Context, keyword string, limit int) ([]*User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users WHERE username ILIKE $1 ORDER BY username LIMIT $2`,
		likePattern(keyword), searchLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanUser)
}

// --- groups ---

func (s *PostgresStore) CreateGroup(ctx context.Context, g *Group, maxPerCreator int) error {
	name, err := NormalizeGroupName(g.Name)
	if err != nil {
		return err
	}

	g.Name = name
	if g.ID == "" {
		g.ID = randx.NewID()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	g.Members = nil
	if g.Creator != "" {
		g.Members = []string{g.Creator}
	}

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if g.Creator != "" && maxPerCreator >= 0 {
			// the creator row lock serializes concurrent creations by the same user
			if _, err := tx.Exec(ctx, `SELECT 1 FROM users WHERE id = $1 FOR UPDATE`, g.Creator); err != nil {
				return err
			}

			var owned int
			if err := tx.QueryRow(ctx,
				`SELECT count(*) FROM chat_groups WHERE creator_id = $1`, g.Creator,
			).Scan(&owned); err != nil {
				return err
			}
			if owned >= maxPerCreator {
				return ErrGroupLimit
			}
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_groups (id, name, avatar, announcement, creator_id, is_default, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			g.ID, g.Name, g.Avatar, g.Announcement, nullable(g.Creator), g.IsDefault, g.CreatedAt,
		); err != nil {
			return err
		}

		if g.Creator != "" {
			if _, err := tx.Exec(ctx,
				`INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, g.ID, g.Creator,
			); err != nil {
				return err
			}
		}
		return nil
	})

	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (s *PostgresStore) GetGroup(ctx context.Context, id string) (*Group, error) {
	return scanGroup(s.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM chat_groups g WHERE g.id = $1`, id))
}

func (s *PostgresStore) GetGroupByName(ctx context.Context, name string) (*Group, error) {
	return scanGroup(s.pool.QueryRow(ctx,
		`SELECT `+groupColumns+` FROM chat_groups g WHERE g.name = $1`, strings.TrimSpace(name)))
}

func (s *PostgresStore) GetDefaultGroup(ctx context.Context) (*Group, error) {
	return scanGroup(s.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM chat_groups g WHERE g.is_default`))
}

func (s *PostgresStore) ListGroupsByMember(ctx context.Context, userID string) ([]*Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+groupColumns+`
		 FROM chat_groups g
		 JOIN group_members gm ON gm.group_id = g.id
		 WHERE gm.user_id = $1
		 ORDER BY g.created_at, g.id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanGroup)
}

func (s *PostgresStore) groupExists(ctx context.Context, groupID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM chat_groups WHERE id = $1)`, groupID).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) AddGroupMember(ctx context.Context, groupID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, user_id)
		 SELECT id, $2 FROM chat_groups WHERE id = $1
		 ON CONFLICT (group_id, user_id) DO NOTHING`,
		groupID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := s.groupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyMember
}

func (s *PostgresStore) RemoveGroupMember(ctx context.Context, groupID, userID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND user_id = $2`, groupID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	exists, err := s.groupExists(ctx, groupID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNotMember
}

func (s *PostgresStore) UpdateGroupName(ctx context.Context, id, name string) error {
	name, err := NormalizeGroupName(name)
	if err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE chat_groups SET name = $2 WHERE id = $1`, id, name)
}

func (s *PostgresStore) UpdateGroupAvatar(ctx context.Context, id, avatar string) error {
	return s.execOne(ctx, `UPDATE chat_groups SET avatar = $2 WHERE id = $1`, id, avatar)
}

func (s *PostgresStore) UpdateGroupAnnouncement(ctx context.Context, id, announcement string) error {
	return s.execOne(ctx, `UPDATE chat_groups SET announcement = $2 WHERE id = $1`, id, announcement)
}

func (s *PostgresStore) DeleteGroup(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM chat_groups WHERE id = $1`, id)
}

func (s *PostgresStore) SearchGroups(ctx context.Context, keyword string, limit int) ([]*Group, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+groupColumns+` FROM chat_groups g WHERE g.name ILIKE $1 ORDER BY g.name LIMIT $2`,
		likePattern(keyword), searchLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanGroup)
}

// --- friends ---

func (s *PostgresStore) AddFriend(ctx context.Context, from, to string) (*Friend, error) {
	f := &Friend{From: from, To: to}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO friends (from_id, to_id) VALUES ($1, $2) RETURNING created_at`, from, to,
	).Scan(&f.CreatedAt)
	if IsUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *PostgresStore) DeleteFriend(ctx context.Context, from, to string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM friends WHERE from_id = $1 AND to_id = $2`, from, to)
	return err
}

func (s *PostgresStore) ListFriends(ctx context.Context, from string) ([]*Friend, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT from_id, to_id, created_at FROM friends WHERE from_id = $1 ORDER BY created_at`, from)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*Friend, error) {
		var f Friend
		if err := row.Scan(&f.From, &f.To, &f.CreatedAt); err != nil {
			return nil, err
		}
		return &f, nil
	})
}

// --- messages ---

func (s *PostgresStore) CreateMessage(ctx context.Context, m *Message) error {
	if m.ID == "" {
		m.ID = randx.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO messages (`+messageColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.From, m.To, m.Type, m.Content, m.CreatedAt,
	)
	if IsUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(ctx context.Context, id string) (*Message, error) {
	return scanMessage(s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
}

func (s *PostgresStore) ListMessages(ctx context.Context, to string, limit, offset int) ([]*Message, error) {
	if limit <= 0 {
		return []*Message{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE to_id = $1 ORDER BY seq DESC LIMIT $2 OFFSET $3`,
		to, limit, max(offset, 0),
	)
	if err != nil {
		return nil, err
	}

	messages, err := collect(rows, scanMessage)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []*Message{}
	}
	return messages, nil
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, id string) error {
	return s.execOne(ctx, `DELETE FROM messages WHERE id = $1`, id)
}
