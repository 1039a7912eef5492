package authz

const (
	Superuser = "superuser"

	JobsManage        = "jobs:manage"
	DispatchRun       = "dispatch:run"
	TechniciansTrack  = "technicians:track"
	CommissionsView   = "commissions:view"
	CommissionsManage = "commissions:manage"
	CommissionsExport = "commissions:export"
	RosterSync        = "roster:sync"
)

const (
	RoleAdmin      = "admin"
	RoleDispatcher = "dispatcher"
	RoleTechnician = "technician"
	RoleManager    = "manager"
	RoleHR         = "hr"
)

// defaultRolePermissions is the built-in grant table. Tokens carry only the role name.
var defaultRolePermissions = map[string][]string{
	RoleAdmin:      {Superuser},
	RoleDispatcher: {JobsManage, DispatchRun, TechniciansTrack, CommissionsView},
	RoleTechnician: {JobsManage, TechniciansTrack},
	RoleManager:    {JobsManage, CommissionsView, CommissionsManage, CommissionsExport},
	RoleHR:         {RosterSync},
}
