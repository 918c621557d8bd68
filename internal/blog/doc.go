// Package blog はブログサーバーの内部実装を提供する。
//
// 投稿（posts）の一覧・作成・更新・削除と、Cookieベースのセッション認証
// （ログイン・ログアウト・ログイン状態の確認）を担当する。
// 投稿の永続化は store、資格情報の検証は identity に委譲し、
// 更新と削除は常にセッションゲートが解決したユーザーIDで絞り込む。
package blog
