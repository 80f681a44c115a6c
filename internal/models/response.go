package models

import "time"

type ProjectResponse struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	ClientName  string          `json:"client_name,omitempty"`
	ClientEmail string          `json:"client_email,omitempty"`
	Deadline    string          `json:"deadline,omitempty"`
	AccessToken string          `json:"access_token,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProjectDetailResponse is a project with all of its orders. Orders is an
// empty array, never absent, when the project has none.
type ProjectDetailResponse struct {
	ProjectResponse
	Orders []OrderResponse `json:"orders"`
}

type ProjectListResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type OrderResponse struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Title         string    `json:"title"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	FilePath      string    `json:"file_path,omitempty"`
	FileURL       string    `json:"file_url,omitempty"`
	ClientComment string    `json:"client_comment,omitempty"`
	CanComment    bool      `json:"can_comment"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
}

type TokenResponse struct {
	ProjectID   string `json:"project_id"`
	AccessToken string `json:"access_token,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
