package models

import (
	"database/sql"
	"time"
)

// User описывает профиль пользователя платформы. Телефон меняется только через
// процедуру подтверждения по SMS, дата рождения записывается один раз.
type User struct {
	ID         int64         `json:"-"`
	TelegramID int64         `json:"telegram_id"`
	Name       string        `json:"name"`
	Nickname   string        `json:"nickname,omitempty"`
	AvatarURL  string        `json:"avatar_url,omitempty"`
	Birthday   sql.NullTime  `json:"-"`
	CityID     sql.NullInt64 `json:"-"`
	CityName   string        `json:"city,omitempty"`
	Phone      *Phone        `json:"phone,omitempty"`
	CreatedAt  time.Time     `json:"-"`
	UpdatedAt  time.Time     `json:"-"`
}

// Phone хранит код страны/оператора и сам номер.
type Phone struct {
	Code   int   `json:"code"`
	Number int64 `json:"number"`
}

type City struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MessageLog хранит последнее входящее сообщение чата. Одна строка на чат,
// каждое новое сообщение перезаписывает предыдущее.
type MessageLog struct {
	ChatID int64     `json:"chat_id"`
	Text   string    `json:"text"`
	SentAt time.Time `json:"sent_at"`
}

// PendingVerification связывает пользователя, кандидатный номер и выданный
// код. Живёт в хранилище с TTL, новая заявка вытесняет предыдущую.
type PendingVerification struct {
	TelegramID int64     `json:"telegram_id"`
	OTP        string    `json:"otp"`
	Phone      Phone     `json:"phone"`
	IssuedAt   time.Time `json:"issued_at"`
}
