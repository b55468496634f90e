package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint       `gorm:"primaryKey;autoIncrement"         json:"id"`
	Email        string     `gorm:"uniqueIndex;size:100;not null"    json:"email"`
	PasswordHash string     `gorm:"not null"                         json:"-"`
	Name         string     `gorm:"size:100;not null"                json:"name"`
	Role         string     `gorm:"size:16;not null;default:user"    json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	Products     []Product  `gorm:"foreignKey:UserID"                json:"-"`
	CartItems    []CartItem `gorm:"foreignKey:UserID"                json:"-"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Product prices are integer minor units (cents).
type Product struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"             json:"id"`
	Title      string    `gorm:"uniqueIndex;size:250;not null"        json:"title"`
	PriceCents int64     `gorm:"not null;check:price_cents>=0"        json:"price_cents"`
	Delivery   string    `gorm:"size:250;not null"                    json:"delivery"`
	ImagePath  string    `gorm:"size:500;not null"                    json:"image_path"`
	UserID     uint      `gorm:"index;not null"                       json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type CartItem struct {
	ID        uint    `gorm:"primaryKey"                                json:"id"`
	UserID    uint    `gorm:"uniqueIndex:idx_user_product;not null"     json:"user_id"`
	ProductID uint    `gorm:"uniqueIndex:idx_user_product;not null"     json:"product_id"`
	Quantity  int     `gorm:"not null;default:1;check:quantity>0"       json:"quantity"`
	Product   Product `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"product"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func All() []any {
	return []any{&User{}, &Product{}, &CartItem{}}
}
