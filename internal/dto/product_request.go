package dto

type ProductRequest struct {
	ID          *int64 `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
	Category    string `json:"category" validate:"required"`
}

// ProductUpdateRequest carries a partial update; nil fields are left unchanged.
type ProductUpdateRequest struct {
	ID          int64   `json:"-"`
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Price       *int64  `json:"price"`
	Description *string `json:"description"`
	Category    *string `json:"category" validate:"omitempty,min=1"`
}
