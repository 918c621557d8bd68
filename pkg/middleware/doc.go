// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// セッションCookieによる認証ゲート、ログイン状態の判定、パニックリカバリ、
// CORS設定など、ブログAPIの全ルートで共通して使用するミドルウェアを含む。
package middleware
