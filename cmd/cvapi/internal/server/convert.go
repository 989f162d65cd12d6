package server

import (
	"github.com/duongduc025/CV-Management-sub000/cmd/cvapi/internal/db/models"
	"github.com/duongduc025/CV-Management-sub000/pkg/sdk"
)

func toSDKUser(u *models.User) sdk.User {
	out := sdk.User{
		ID:           u.ID,
		EmployeeCode: u.EmployeeCode,
		FullName:     u.FullName,
		Email:        u.Email,
		Roles:        toSDKRoles(u.Roles),
	}
	if u.DepartmentID != nil {
		out.DepartmentID = *u.DepartmentID
	}
	if u.Department != nil && u.Department.ID != "" {
		out.Department = &sdk.Department{ID: u.Department.ID, Name: u.Department.Name}
	}
	return out
}

func toSDKRoles(roles []models.Role) []sdk.Role {
	out := make([]sdk.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, sdk.Role{ID: r.ID, Name: r.Name})
	}
	return out
}

func toSDKDepartments(depts []models.Department) []sdk.Department {
	out := make([]sdk.Department, 0, len(depts))
	for _, d := range depts {
		out = append(out, sdk.Department{ID: d.ID, Name: d.Name})
	}
	return out
}
