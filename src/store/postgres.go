package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/arafat2020/feedwire/src/types"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	reactionLike    = int16(1)
	reactionDislike = int16(-1)
)

// schema is applied at startup. Reactions use a composite primary key, so
// a user holds at most one reaction per entity; the like/dislike mutual
// exclusion invariant is enforced by the table itself.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id              TEXT PRIMARY KEY,
	content         TEXT NOT NULL,
	image_url       TEXT NOT NULL DEFAULT '',
	author_id       TEXT NOT NULL,
	author_username TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS post_reactions (
	post_id  TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	user_id  TEXT NOT NULL,
	reaction SMALLINT NOT NULL,
	PRIMARY KEY (post_id, user_id)
);

CREATE TABLE IF NOT EXISTS comments (
	id              TEXT PRIMARY KEY,
	post_id         TEXT NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	parent_id       TEXT REFERENCES comments(id) ON DELETE CASCADE,
	content         TEXT NOT NULL,
	author_id       TEXT NOT NULL,
	author_username TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS comment_reactions (
	comment_id TEXT NOT NULL REFERENCES comments(id) ON DELETE CASCADE,
	user_id    TEXT NOT NULL,
	reaction   SMALLINT NOT NULL,
	PRIMARY KEY (comment_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(post_id);
CREATE INDEX IF NOT EXISTS idx_comments_parent ON comments(parent_id);
`

const postColumns = `
	p.id, p.content, p.image_url, p.author_id, p.author_username, p.created_at,
	COALESCE(array_agg(r.user_id) FILTER (WHERE r.reaction = 1), '{}'),
	COALESCE(array_agg(r.user_id) FILTER (WHERE r.reaction = -1), '{}')`

const commentColumns = `
	c.id, c.post_id, COALESCE(c.parent_id, ''), c.content, c.author_id, c.author_username, c.created_at,
	COALESCE(array_agg(r.user_id) FILTER (WHERE r.reaction = 1), '{}'),
	COALESCE(array_agg(r.user_id) FILTER (WHERE r.reaction = -1), '{}')`

// Postgres is the pgx-backed Store.
type Postgres struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgres connects a pool, verifies connectivity, and applies the schema.
func NewPostgres(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info().Msg("database connected")
	return &Postgres{pool: pool, logger: logger.With().Str("component", "postgres").Logger()}, nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

func (s *Postgres) CreatePost(ctx context.Context, in NewPost) (*types.Post, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO posts (id, content, image_url, author_id, author_username) VALUES ($1, $2, $3, $4, $5)`,
		id, in.Content, in.ImageURL, in.Author.ID, in.Author.Username)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return s.GetPost(ctx, id)
}

func (s *Postgres) GetPost(ctx context.Context, id string) (*types.Post, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN post_reactions r ON r.post_id = p.id
		WHERE p.id = $1
		GROUP BY p.id`, id)
	p, err := scanPost(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *Postgres) ListPosts(ctx context.Context) ([]*types.Post, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN post_reactions r ON r.post_id = p.id
		GROUP BY p.id
		ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Post, 0)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdatePost(ctx context.Context, id, userID, content string) (*types.Post, error) {
	if err := s.checkPostAuthor(ctx, id, userID); err != nil {
		return nil, err
	}
	if _, err := s.pool.Exec(ctx, `UPDATE posts SET content = $2 WHERE id = $1`, id, content); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return s.GetPost(ctx, id)
}

func (s *Postgres) DeletePost(ctx context.Context, id, userID string) error {
	if err := s.checkPostAuthor(ctx, id, userID); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *Postgres) TogglePostLike(ctx context.Context, id, userID string) (*types.Post, error) {
	if err := s.toggleReaction(ctx, "post_reactions", "post_id", id, userID, reactionLike); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, id)
}

func (s *Postgres) TogglePostDislike(ctx context.Context, id, userID string) (*types.Post, error) {
	if err := s.toggleReaction(ctx, "post_reactions", "post_id", id, userID, reactionDislike); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, id)
}

func (s *Postgres) CreateComment(ctx context.Context, in NewComment) (*types.Comment, error) {
	id := uuid.New().String()
	var parent any
	if in.ParentID != "" {
		parent = in.ParentID
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO comments (id, post_id, parent_id, content, author_id, author_username)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, in.PostID, parent, in.Content, in.Author.ID, in.Author.Username)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return s.GetComment(ctx, id)
}

func (s *Postgres) GetComment(ctx context.Context, id string) (*types.Comment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		LEFT JOIN comment_reactions r ON r.comment_id = c.id
		WHERE c.id = $1
		GROUP BY c.id`, id)
	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

func (s *Postgres) ListComments(ctx context.Context, postID string) ([]*types.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+commentColumns+`
		FROM comments c
		LEFT JOIN comment_reactions r ON r.comment_id = c.id
		WHERE c.post_id = $1
		GROUP BY c.id
		ORDER BY c.created_at DESC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Comment, 0)
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) UpdateComment(ctx context.Context, id, userID, content string) (*types.Comment, error) {
	if err := s.checkCommentAuthor(ctx, id, userID); err != nil {
		return nil, err
	}
	if _, err := s.pool.Exec(ctx, `UPDATE comments SET content = $2 WHERE id = $1`, id, content); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return s.GetComment(ctx, id)
}

// DeleteComment removes the comment and its reply subtree in a single
// statement: a recursive CTE collects every descendant before the batch
// delete, so no partially-deleted thread is ever visible.
func (s *Postgres) DeleteComment(ctx context.Context, id, userID string) (string, []string, error) {
	var postID, author string
	err := s.pool.QueryRow(ctx, `SELECT post_id, author_id FROM comments WHERE id = $1`, id).
		Scan(&postID, &author)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, ErrNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("load comment: %w", err)
	}
	if author != userID {
		return "", nil, ErrForbidden
	}

	rows, err := s.pool.Query(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM comments WHERE id = $1
			UNION ALL
			SELECT c.id FROM comments c JOIN subtree s ON c.parent_id = s.id
		)
		DELETE FROM comments WHERE id IN (SELECT id FROM subtree)
		RETURNING id`, id)
	if err != nil {
		return "", nil, fmt.Errorf("delete comment subtree: %w", err)
	}
	defer rows.Close()

	removed := []string{}
	for rows.Next() {
		var cid string
		if err := rows.Scan(&cid); err != nil {
			return "", nil, fmt.Errorf("scan removed id: %w", err)
		}
		if cid == id {
			removed = append([]string{cid}, removed...)
		} else {
			removed = append(removed, cid)
		}
	}
	return postID, removed, rows.Err()
}

func (s *Postgres) ToggleCommentLike(ctx context.Context, id, userID string) (*types.Comment, error) {
	if err := s.toggleReaction(ctx, "comment_reactions", "comment_id", id, userID, reactionLike); err != nil {
		return nil, err
	}
	return s.GetComment(ctx, id)
}

func (s *Postgres) ToggleCommentDislike(ctx context.Context, id, userID string) (*types.Comment, error) {
	if err := s.toggleReaction(ctx, "comment_reactions", "comment_id", id, userID, reactionDislike); err != nil {
		return nil, err
	}
	return s.GetComment(ctx, id)
}

// toggleReaction flips a user's reaction inside a transaction: same
// reaction again removes it, the opposite reaction replaces it.
func (s *Postgres) toggleReaction(ctx context.Context, table, keyCol, id, userID string, want int16) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing int16
	err = tx.QueryRow(ctx,
		`SELECT reaction FROM `+table+` WHERE `+keyCol+` = $1 AND user_id = $2`,
		id, userID).Scan(&existing)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx,
			`INSERT INTO `+table+` (`+keyCol+`, user_id, reaction) VALUES ($1, $2, $3)`,
			id, userID, want)
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
	case err != nil:
		return fmt.Errorf("load reaction: %w", err)
	case existing == want:
		_, err = tx.Exec(ctx,
			`DELETE FROM `+table+` WHERE `+keyCol+` = $1 AND user_id = $2`, id, userID)
	default:
		_, err = tx.Exec(ctx,
			`UPDATE `+table+` SET reaction = $3 WHERE `+keyCol+` = $1 AND user_id = $2`,
			id, userID, want)
	}
	if err != nil {
		return fmt.Errorf("toggle reaction: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Postgres) checkPostAuthor(ctx context.Context, id, userID string) error {
	var author string
	err := s.pool.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1`, id).Scan(&author)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load post author: %w", err)
	}
	if author != userID {
		return ErrForbidden
	}
	return nil
}

func (s *Postgres) checkCommentAuthor(ctx context.Context, id, userID string) error {
	var author string
	err := s.pool.QueryRow(ctx, `SELECT author_id FROM comments WHERE id = $1`, id).Scan(&author)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load comment author: %w", err)
	}
	if author != userID {
		return ErrForbidden
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func scanPost(row pgx.Row) (*types.Post, error) {
	p := &types.Post{}
	err := row.Scan(&p.ID, &p.Content, &p.ImageURL, &p.Author.ID, &p.Author.Username,
		&p.CreatedAt, &p.Likes, &p.Dislikes)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanComment(row pgx.Row) (*types.Comment, error) {
	c := &types.Comment{}
	err := row.Scan(&c.ID, &c.PostID, &c.ParentID, &c.Content, &c.Author.ID, &c.Author.Username,
		&c.CreatedAt, &c.Likes, &c.Dislikes)
	if err != nil {
		return nil, err
	}
	return c, nil
}
