package handler

import "github.com/locvowork/employee_directory/internal/domain"

// ListEmployeesResponse is one page of the employee list
type ListEmployeesResponse struct {
	Employees  []domain.Employee `json:"employees"`
	Pagination Pagination        `json:"pagination"`
}

// Pagination describes where a page sits in the filtered set
type Pagination struct {
	CurrentPage    int   `json:"currentPage"`
	TotalPages     int   `json:"totalPages"`
	TotalEmployees int64 `json:"totalEmployees"`
	HasNext        bool  `json:"hasNext"`
	HasPrev        bool  `json:"hasPrev"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}
