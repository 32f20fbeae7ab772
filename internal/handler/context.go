package handler

type ContextKey string

var (
	PrincipalCtx ContextKey = "principal"
	ProjectCtx   ContextKey = "project"
	MembersCtx   ContextKey = "members"
	SettingsCtx  ContextKey = "calendarSettings"
)
