package permissions

import "github.com/atelier-works/atelier/internal/users"

// Role default templates, kept as one auditable table per role. Buyer is the
// admin-equivalent role: it is the only role with user management and the
// buyer sign-off enabled by default. Constructor is the only role with the
// constructor sign-off enabled by default. Every other approval or admin
// capability starts false for every role and must be granted per user.
var roleDefaults = map[users.Role]PermissionSet{
	users.RoleDesigner: {
		CanViewModels:      true,
		CanCreateModels:    true,
		CanEditModels:      true,
		CanUploadFiles:     true,
		CanDownloadFiles:   true,
		CanCreateMaterials: true,
		CanEditMaterials:   true,
		CanAddComments:     true,

		CanCreateCollections: true,
		CanEditCollections:   true,
		CanCreateSeasons:     true,
		CanEditSeasons:       true,
	},
	users.RoleConstructor: {
		CanViewModels:    true,
		CanEditModels:    true,
		CanUploadFiles:   true,
		CanDownloadFiles: true,
		CanEditMaterials: true,
		CanAddComments:   true,

		CanApproveAsConstructor: true,
	},
	users.RoleBuyer: {
		CanViewModels:      true,
		CanEditModelStatus: true,
		CanDownloadFiles:   true,
		CanAddComments:     true,

		CanViewUsers:   true,
		CanCreateUsers: true,
		CanEditUsers:   true,
		CanDeleteUsers: true,

		CanApproveAsBuyer: true,
	},
	users.RoleChinaOffice: {
		CanViewModels:      true,
		CanEditModelStatus: true,
		CanUploadFiles:     true,
		CanDownloadFiles:   true,
		CanAddComments:     true,
		CanAssignFactories: true,
	},
	users.RoleFactory: {
		CanViewModels:    true,
		CanDownloadFiles: true,
		CanAddComments:   true,
	},
}

// RoleDefaults returns the default capability template for a role. Unknown
// roles get the zero set, which denies everything.
func RoleDefaults(role users.Role) PermissionSet {
	return roleDefaults[role]
}
