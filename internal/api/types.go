package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Role is a portal user role.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleCaregiver  Role = "caregiver"
	RoleMember     Role = "member"
)

// AllRoles lists the roles in decreasing order of privilege.
var AllRoles = []Role{RoleSuperadmin, RoleAdmin, RoleCaregiver, RoleMember}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       FlexFloat `json:"price"`
	Stock       FlexInt   `json:"stock"`
	Category    string    `json:"category"`
	IsActive    bool      `json:"is_active"`
}

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountClosed    AccountStatus = "closed"
)

type Account struct {
	ID          int64         `json:"id"`
	OwnerID     int64         `json:"owner_id"`
	CaregiverID int64         `json:"caregiver_id"`
	Name        string        `json:"name"`
	Balance     FlexFloat     `json:"balance"`
	Currency    string        `json:"currency"`
	Status      AccountStatus `json:"status"`
}

type Transaction struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	Amount      FlexFloat `json:"amount"`
	Currency    string    `json:"currency"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TransactionQuery filters ListTransactions. Zero fields are not sent.
type TransactionQuery struct {
	AccountID int64
	Type      string
}

// FlexInt decodes integers sent either as JSON numbers or strings.
// null and "" decode to zero; fractional values are truncated.
type FlexInt int64

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	v, err := flexNumber(data)
	if err != nil {
		return fmt.Errorf("flex int: %w", err)
	}
	*f = FlexInt(math.Trunc(v))
	return nil
}

// FlexFloat decodes decimals sent either as JSON numbers or strings.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	v, err := flexNumber(data)
	if err != nil {
		return fmt.Errorf("flex float: %w", err)
	}
	*f = FlexFloat(v)
	return nil
}

func flexNumber(data []byte) (float64, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return 0, err
	}
	return n, nil
}
