// Package models holds the user record entity and its input validation.
package models

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// UserRecord is the single entity both stores persist. Id is opaque: a decimal
// auto-increment value in MySQL, a generated uuid token in Redis.
type UserRecord struct {
	Id        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// UserInput is the mutable subset accepted on create and update.
type UserInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

var validate = validator.New()

// Validate checks the required fields and returns a ValidationError
// naming the first offending field.
func (in *UserInput) Validate() error {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			reason := "is required"
			if fe.Tag() == "email" {
				reason = "must be a valid email address"
			}
			return &ValidationError{
				Field:  strings.ToLower(fe.Field()),
				Reason: reason,
			}
		}
		return &ValidationError{Reason: err.Error()}
	}
	return nil
}

// Record materializes the input into a fresh record. CreatedAt is set once
// here and never rewritten by updates.
func (in *UserInput) Record() UserRecord {
	return UserRecord{
		Name:      in.Name,
		Email:     in.Email,
		Phone:     in.Phone,
		Address:   in.Address,
		CreatedAt: time.Now().UTC(),
	}
}
