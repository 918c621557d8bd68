package identity

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sudo-paras-shah/blog-test/pkg/migration"
)

//go:embed migrations/*.sql
var migrations embed.FS

// localIssuer はローカル認証が発行するトークンのissuer。
const localIssuer = "blog-local"

// LocalClaims はローカル認証で発行するJWTのクレーム。
// Subject にユーザーIDを格納する。
type LocalClaims struct {
	jwt.RegisteredClaims
	// Email はユーザーのメールアドレス。
	Email string `json:"email"`
}

// LocalProvider はSQLiteのユーザーテーブルとHS256署名のJWTで動作する認証プロバイダー。
// ホスト型バックエンドを使わない開発環境やセルフホスト向け。
type LocalProvider struct {
	// db はユーザーテーブルを持つSQLiteデータベース。
	db *sql.DB
	// secret はJWT署名用の秘密鍵。
	secret []byte
	// ttl はアクセストークンの有効期間。
	ttl time.Duration
	// hashCost はbcryptのコスト。
	hashCost int
	// now は現在時刻を返す関数。
	now func() time.Time
}

// NewLocalProvider は新しいLocalProviderを生成し、ユーザーテーブルのマイグレーションを適用する。
func NewLocalProvider(db *sql.DB, secret string, ttl time.Duration) (*LocalProvider, error) {
	if secret == "" {
		return nil, errors.New("JWTの秘密鍵が空です")
	}
	if err := migration.Run(db, migrations, "migrations", "identity"); err != nil {
		return nil, fmt.Errorf("ユーザーテーブルの初期化に失敗: %w", err)
	}
	return &LocalProvider{
		db:       db,
		secret:   []byte(secret),
		ttl:      ttl,
		hashCost: bcrypt.DefaultCost,
		now:      time.Now,
	}, nil
}

// CreateUser はユーザーを作成する。メールアドレスは小文字に正規化して保存する。
func (p *LocalProvider) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, errors.New("メールアドレスとパスワードは必須です")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.hashCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	user := &User{ID: uuid.New().String(), Email: email}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES (?, ?, ?)`,
		user.ID, user.Email, string(hash))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}
	return user, nil
}

// SignInWithPassword はパスワードを検証してアクセストークンを発行する。
func (p *LocalProvider) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var (
		user User
		hash string
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash FROM users WHERE email = ?`,
		normalizeEmail(email)).Scan(&user.ID, &user.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := p.now()
	expiresAt := now.Add(p.ttl)
	claims := LocalClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    localIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return nil, fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}

	return &Session{AccessToken: signed, ExpiresAt: expiresAt, User: user}, nil
}

// GetUser はJWTを検証し、ユーザーが現在も存在することを確認して返す。
func (p *LocalProvider) GetUser(ctx context.Context, accessToken string) (*User, error) {
	claims := &LocalClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(_ *jwt.Token) (any, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(localIssuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	var user User
	err = p.db.QueryRowContext(ctx,
		`SELECT id, email FROM users WHERE id = ?`, claims.Subject).Scan(&user.ID, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return &user, nil
}

// normalizeEmail はメールアドレスを比較用に正規化する。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isUniqueViolation はSQLiteの一意制約違反かどうかを返す。
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
