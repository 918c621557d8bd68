package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout はSQLiteにTEXTで保存する日時の形式。固定長にして文字列順と時刻順を一致させる。
const timeLayout = "2006-01-02T15:04:05.000000Z"

// dialect はSQL方言の差分。
type dialect struct {
	// name は方言名。
	name string
	// numbered はプレースホルダーを $1, $2... 形式にするかどうか。
	numbered bool
	// timeAsText は日時をTEXTとして保存するかどうか。
	timeAsText bool
}

var (
	dialectSQLite   = dialect{name: "sqlite", timeAsText: true}
	dialectPostgres = dialect{name: "postgres", numbered: true}
)

// rebind は ? プレースホルダーを方言に合わせて書き換える。
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// timeArg は日時を方言に合わせたバインド値に変換する。
func (d dialect) timeArg(t time.Time) any {
	if d.timeAsText {
		return t.UTC().Format(timeLayout)
	}
	return t.UTC()
}

// SQLStore はSQLデータベースに直接投稿を保存するストア。
type SQLStore struct {
	// db はデータベース接続。
	db *sql.DB
	// dialect はSQL方言。
	dialect dialect
	// now は現在時刻を返す関数。
	now func() time.Time
	// newID は新しい投稿IDを返す関数。
	newID func() string
}

// newSQLStore は方言を指定してSQLStoreを生成する。
func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{
		db:      db,
		dialect: d,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// selectPosts は投稿の列を取得するSELECT句。
const selectPosts = `SELECT id, title, content, user_id, created_at FROM posts`

// List は投稿を作成日時の降順で返す。
func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]Post, error) {
	query := selectPosts
	var args []any
	if opts.UserID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, opts.UserID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("投稿の読み取りに失敗: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	return posts, nil
}

// Get は投稿を1件返す。
func (s *SQLStore) Get(ctx context.Context, id string) (*Post, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(selectPosts+` WHERE id = ?`), id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("投稿の取得に失敗: %w", err)
	}
	return p, nil
}

// Create は投稿を作成する。IDと作成日時はストアが採番する。
func (s *SQLStore) Create(ctx context.Context, in NewPost) (*Post, error) {
	p := &Post{
		ID:        ID(s.newID()),
		Title:     in.Title,
		Content:   in.Content,
		UserID:    in.UserID,
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	_, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO posts (id, title, content, user_id, created_at) VALUES (?, ?, ?, ?, ?)`),
		string(p.ID), p.Title, p.Content, p.UserID, s.dialect.timeArg(p.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("投稿の作成に失敗: %w", err)
	}
	return p, nil
}

// Update はIDと所有者IDの両方に一致する投稿を更新する。
func (s *SQLStore) Update(ctx context.Context, id, ownerID string, changes Changes) (int64, error) {
	if changes.Empty() {
		return 0, nil
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE posts SET title = COALESCE(?, title), content = COALESCE(?, content) WHERE id = ? AND user_id = ?`),
		nullable(changes.Title), nullable(changes.Content), id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("投稿の更新に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	return n, nil
}

// Delete はIDと所有者IDの両方に一致する投稿を削除する。
func (s *SQLStore) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`DELETE FROM posts WHERE id = ? AND user_id = ?`), id, ownerID)
	if err != nil {
		return 0, fmt.Errorf("投稿の削除に失敗: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗: %w", err)
	}
	return n, nil
}

// rowScanner は *sql.Row と *sql.Rows の共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPost は1行を投稿に変換する。
func scanPost(row rowScanner) (*Post, error) {
	var (
		p         Post
		id        string
		createdAt timeValue
	)
	if err := row.Scan(&id, &p.Title, &p.Content, &p.UserID, &createdAt); err != nil {
		return nil, err
	}
	p.ID = ID(id)
	p.CreatedAt = createdAt.Time
	return &p, nil
}

// nullable はnilポインターをNULLとしてバインドする値に変換する。
func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// timeValue はドライバーごとに異なる日時の表現（time.Time / TEXT）を読み取る。
type timeValue struct {
	time.Time
}

// Scan はsql.Scannerの実装。
func (t *timeValue) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("日時として読み取れない型です: %T", src)
	}
}

// parse は保存形式またはRFC3339の日時文字列を読み取る。
func (t *timeValue) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("日時の形式が不正です: %q", s)
}
