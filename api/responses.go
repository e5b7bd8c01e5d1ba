package api

import "github.com/xraph/herald/role"

// RoleResponse is a role with the number of instances holding it.
type RoleResponse struct {
	*role.Role
	InstancesCount int64 `json:"instances_count" description:"Number of instances the role is assigned to"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
