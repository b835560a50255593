// Package domain はドメイン層で共有するエラーを定義する
package domain

import "errors"

// ErrInvalidArgument は不正な入力を表す。各ドメインの検証エラーはこのエラーをラップする
var ErrInvalidArgument = errors.New("不正な引数です")
