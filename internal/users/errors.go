package users

import (
	"errors"
	"fmt"
)

// Kind はエラーの種別です。HTTP ステータスの選択に使います。
type Kind int

const (
	KindUnknown Kind = iota
	KindDB
	KindNotFound
	KindUnauthorized
	KindInvalidData
	KindDuplicated
)

func (k Kind) String() string {
	switch k {
	case KindDB:
		return "DbError"
	case KindNotFound:
		return "UserNotFound"
	case KindUnauthorized:
		return "Unauthorized"
	case KindInvalidData:
		return "InvalidData"
	case KindDuplicated:
		return "DuplicatedData"
	default:
		return "Unexpected"
	}
}

// Code はレスポンスボディの code に使う文字列です。
func (k Kind) Code() string {
	switch k {
	case KindDB:
		return "DB_ERROR"
	case KindNotFound:
		return "USER_NOT_FOUND"
	case KindUnauthorized:
		return "UNAUTHORIZED"
	case KindInvalidData:
		return "INVALID_DATA"
	case KindDuplicated:
		return "DUPLICATED_DATA"
	default:
		return "INTERNAL_ERROR"
	}
}

// Error は種別付きのエラーです。
// Message はクライアントに返してよい文言で、Err は内部の原因です（ログ専用）。
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf は err の種別を返します。種別付きでなければ KindUnknown です。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind は err が指定した種別かどうかを返します。
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf はクライアントに返すメッセージを取り出します。
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "unexpected server error"
}

// DBError はストレージ障害を表すエラーを作ります。
func DBError(op string, err error) error {
	return &Error{Kind: KindDB, Message: "database error during " + op, Err: err}
}

// NotFound はユーザーが存在しないことを表すエラーを作ります。
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized は資格情報の不一致を表すエラーを作ります。
func Unauthorized(message string) error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

// InvalidData は入力の検証エラーを作ります。
func InvalidData(format string, args ...any) error {
	return &Error{Kind: KindInvalidData, Message: fmt.Sprintf(format, args...)}
}

// Duplicated は一意制約違反を表すエラーを作ります。
func Duplicated(message string, err error) error {
	return &Error{Kind: KindDuplicated, Message: message, Err: err}
}

// Unexpected は分類できない内部エラーを作ります。
func Unexpected(message string, err error) error {
	return &Error{Kind: KindUnknown, Message: message, Err: err}
}
