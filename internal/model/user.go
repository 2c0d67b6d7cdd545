package model

// User is the shared identity record behind both patients and doctors.
type User struct {
	Base
	Email        string `db:"email" json:"email"`
	Name         string `db:"name" json:"name"`
	Kana         string `db:"kana" json:"kana,omitempty"`
	Phone        string `db:"phone" json:"phone,omitempty"`
	PasswordHash string `db:"password_hash" json:"-"`
}

// UserChangeSet enumerates the identity fields mutable through the
// reservation and profile flows. Nil fields are left untouched.
type UserChangeSet struct {
	Name  *string
	Kana  *string
	Phone *string
	Email *string
}

func (cs UserChangeSet) Empty() bool {
	return cs.Name == nil && cs.Kana == nil && cs.Phone == nil && cs.Email == nil
}
