package auth

import (
	"errors"
	"testing"

	"zenflow/internal/domain"
)

func TestRequire(t *testing.T) {
	cases := []struct {
		role domain.Role
		perm string
		ok   bool
	}{
		{domain.RoleAdmin, PermUserDelete, true},
		{domain.RoleManager, PermUserDelete, false},
		{domain.RoleManager, PermTaskCreate, true},
		{domain.RoleManager, PermProjectDelete, false},
		{domain.RoleSeniorPerformer, PermTaskCreate, false},
		{domain.RolePerformer, PermLeadRead, false},
		{domain.Role("GUEST"), PermUserList, false},
	}
	for _, tc := range cases {
		err := Require(tc.role, tc.perm)
		if tc.ok && err != nil {
			t.Fatalf("%s/%s: unexpected error %v", tc.role, tc.perm, err)
		}
		if !tc.ok {
			var fe ForbiddenError
			if !errors.As(err, &fe) || fe.Permission != tc.perm {
				t.Fatalf("%s/%s: expected ForbiddenError, got %v", tc.role, tc.perm, err)
			}
		}
	}
}

func TestPermissionsSortedCopy(t *testing.T) {
	perms := Permissions(domain.RoleManager)
	for i := 1; i < len(perms); i++ {
		if perms[i-1] > perms[i] {
			t.Fatalf("permissions not sorted: %v", perms)
		}
	}
	perms[0] = "mutated"
	if Permissions(domain.RoleManager)[0] == "mutated" {
		t.Fatalf("Permissions must return a copy")
	}
	if len(Permissions(domain.RolePerformer)) != 0 {
		t.Fatalf("performers have no permissions")
	}
}
