package domain

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID             int64  `db:"id"`
	Username       string `db:"username"`
	HashedPassword string `db:"password"`
	PhoneNumber    int64  `db:"phone_number"`
	Email          string `db:"email"`
	Role           string `db:"role"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
