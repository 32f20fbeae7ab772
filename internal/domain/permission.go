package domain

import "slices"

type Permission string

const (
	PermissionView         Permission = "TEAMCALENDAR_VIEW"
	PermissionUpdateOwn    Permission = "TEAMCALENDAR_UPDATE_OWN"
	PermissionUpdateOthers Permission = "TEAMCALENDAR_UPDATE_OTHERS"
)

// Principal 是当前请求者，权限由签发令牌的系统决定
type Principal struct {
	Username    string       `json:"username"`
	Permissions []Permission `json:"permissions"`
}

func (p *Principal) Can(perm Permission) bool {
	return slices.Contains(p.Permissions, perm)
}

func (p *Principal) CanAny(perms ...Permission) bool {
	for _, perm := range perms {
		if p.Can(perm) {
			return true
		}
	}
	return false
}
