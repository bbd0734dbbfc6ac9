package portal

import (
	"strconv"
	"strings"

	"github.com/nanacaring/cmsportal/internal/api"
)

type loginInput struct {
	Username string `form:"username" validate:"notblank"`
	Password string `form:"password" validate:"required"`
}

type productInput struct {
	Name     string `form:"name" validate:"notblank,max=120"`
	Category string `form:"category" validate:"max=60"`
	Price    string `form:"price" validate:"required,numeric,excludes=-"`
	Stock    string `form:"stock" validate:"omitempty,numeric,excludes=-"`
}

func productInputFrom(v map[string]string) productInput {
	return productInput{Name: v["name"], Category: v["category"], Price: v["price"], Stock: v["stock"]}
}

func productFromValues(v map[string]string) api.Product {
	price, _ := strconv.ParseFloat(v["price"], 64)
	stock, _ := strconv.ParseInt(v["stock"], 10, 64)
	return api.Product{
		Name:        v["name"],
		Description: v["description"],
		Category:    v["category"],
		Price:       api.FlexFloat(price),
		Stock:       api.FlexInt(stock),
		IsActive:    true,
	}
}

type userInput struct {
	Username string `form:"username" validate:"notblank,max=60"`
	Email    string `form:"email" validate:"required,email"`
	FullName string `form:"full_name" validate:"max=120"`
	Role     string `form:"role" validate:"required,oneof=superadmin admin caregiver member"`
	Password string `form:"password" validate:"required,min=8"`
}

func userInputFrom(v map[string]string) userInput {
	return userInput{
		Username: v["username"],
		Email:    v["email"],
		FullName: v["full_name"],
		Role:     v["role"],
		Password: v["password"],
	}
}

func (u userInput) NewUser() api.NewUser {
	return api.NewUser{
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     api.Role(u.Role),
		Password: u.Password,
	}
}

type statusInput struct {
	ID     string `form:"id" validate:"required,numeric"`
	Status string `form:"status" validate:"required,oneof=active suspended closed"`
}

type filterInput struct {
	AccountID string `form:"account_id" validate:"omitempty,numeric"`
	Type      string `form:"type" validate:"omitempty,oneof=credit debit"`
}

// trimValues trims every value except passwords.
func trimValues(v map[string]string) map[string]string {
	for k, s := range v {
		if k != "password" {
			v[k] = strings.TrimSpace(s)
		}
	}
	return v
}
