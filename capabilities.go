package access

// HasPermission reports whether the profile grants the permission key.
// Super admins pass every check; an absent profile grants nothing.
func HasPermission(p *Profile, key string) bool {
	if p == nil {
		return false
	}
	if p.IsSuperAdmin {
		return true
	}
	for _, k := range p.Permissions {
		if k == key {
			return true
		}
	}
	return false
}

// HasRole reports whether the profile holds the role name. Unlike
// permissions, the super-admin flag does not imply role membership.
func HasRole(p *Profile, role string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports the profile's super-admin flag.
func IsSuperAdmin(p *Profile) bool {
	return p != nil && p.IsSuperAdmin
}
