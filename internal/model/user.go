package model

import "time"

// User はログイン履歴の1レコードを表す。
// 追記専用で、認可には使用しない。
type User struct {
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	LoginTime time.Time `json:"loginTime"`
}
