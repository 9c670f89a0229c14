package domain

type Product struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Price       int64  `db:"price" json:"price"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
}
