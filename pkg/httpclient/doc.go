// Package httpclient はホスト型バックエンドとのHTTP通信を行うクライアントを提供する。
//
// データAPI（posts テーブル）と認証API（パスワード認証、トークン検証）の
// 呼び出しで共通して使用する。apikey 等の共通ヘッダーと、
// コンテキスト経由で伝播する呼び出し元のアクセストークンを付与する。
package httpclient
