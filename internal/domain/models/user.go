package models

import "github.com/google/uuid"

// User представляет покупателя
type User struct {
	ID       uuid.UUID
	Email    string
	Name     string
	PassHash []byte
}

// DisplayName возвращает имя для платёжного шлюза, если имя не задано – общее обозначение
func (u *User) DisplayName() string {
	if u == nil || u.Name == "" {
		return "Customer"
	}
	return u.Name
}

// ContactEmail возвращает email или пустую строку, если пользователя нет
func (u *User) ContactEmail() string {
	if u == nil {
		return ""
	}
	return u.Email
}
