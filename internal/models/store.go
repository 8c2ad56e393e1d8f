package models

// User is the body of POST /users.
type User struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Category is the body of POST /categories.
type Category struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
}

// Product is the body of POST /products.
type Product struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	UserID      ID      `json:"userId"`
	CategoryIDs []ID    `json:"categoryIds"`
}

// Created is the part of a creation response the seeder relies on.
type Created struct {
	ID ID `json:"id"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token issued by POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	ID    ID     `json:"id"`
	Email string `json:"email"`
}
