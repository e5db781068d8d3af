// Package permissions defines the closed capability vocabulary and the
// deny-by-default resolution of role templates with per-user overrides.
package permissions

import (
	"errors"

	"github.com/atelier-works/atelier/internal/users"
)

// Capability names a single permission bit. The set is closed: anything not
// listed here is rejected at the edge instead of being silently ignored.
type Capability string

const (
	// Models.
	CapViewModels      Capability = "can_view_models"
	CapCreateModels    Capability = "can_create_models"
	CapEditModels      Capability = "can_edit_models"
	CapDeleteModels    Capability = "can_delete_models"
	CapEditModelStatus Capability = "can_edit_model_status"

	// Files.
	CapUploadFiles   Capability = "can_upload_files"
	CapDownloadFiles Capability = "can_download_files"
	CapDeleteFiles   Capability = "can_delete_files"

	// Materials.
	CapCreateMaterials Capability = "can_create_materials"
	CapEditMaterials   Capability = "can_edit_materials"
	CapDeleteMaterials Capability = "can_delete_materials"

	// Comments.
	CapAddComments    Capability = "can_add_comments"
	CapDeleteComments Capability = "can_delete_comments"

	// Collections and seasons.
	CapCreateCollections Capability = "can_create_collections"
	CapEditCollections   Capability = "can_edit_collections"
	CapDeleteCollections Capability = "can_delete_collections"
	CapCreateSeasons     Capability = "can_create_seasons"
	CapEditSeasons       Capability = "can_edit_seasons"
	CapDeleteSeasons     Capability = "can_delete_seasons"

	// Users.
	CapViewUsers       Capability = "can_view_users"
	CapCreateUsers     Capability = "can_create_users"
	CapEditUsers       Capability = "can_edit_users"
	CapDeleteUsers     Capability = "can_delete_users"
	CapAssignFactories Capability = "can_assign_factories"

	// Approvals.
	CapApproveAsBuyer       Capability = "can_approve_as_buyer"
	CapApproveAsConstructor Capability = "can_approve_as_constructor"
)

var (
	// ErrUnknownCapability indicates a capability name outside the closed set.
	ErrUnknownCapability = errors.New("permissions: unknown capability")
	// ErrValidation indicates a malformed override request.
	ErrValidation = errors.New("permissions: invalid input")
)

// AllCapabilities returns every capability in declaration order.
func AllCapabilities() []Capability {
	return []Capability{
		CapViewModels, CapCreateModels, CapEditModels, CapDeleteModels, CapEditModelStatus,
		CapUploadFiles, CapDownloadFiles, CapDeleteFiles,
		CapCreateMaterials, CapEditMaterials, CapDeleteMaterials,
		CapAddComments, CapDeleteComments,
		CapCreateCollections, CapEditCollections, CapDeleteCollections,
		CapCreateSeasons, CapEditSeasons, CapDeleteSeasons,
		CapViewUsers, CapCreateUsers, CapEditUsers, CapDeleteUsers, CapAssignFactories,
		CapApproveAsBuyer, CapApproveAsConstructor,
	}
}

// ParseCapability validates a capability name received from the outside.
func ParseCapability(raw string) (Capability, error) {
	c := Capability(raw)
	if _, ok := capabilityIndex[c]; !ok {
		return "", ErrUnknownCapability
	}
	return c, nil
}

var capabilityIndex = func() map[Capability]struct{} {
	idx := make(map[Capability]struct{})
	for _, c := range AllCapabilities() {
		idx[c] = struct{}{}
	}
	return idx
}()

// PermissionSet is the fully resolved capability map for one actor. One
// field per capability keeps the set exhaustive at compile time.
type PermissionSet struct {
	CanViewModels      bool `json:"can_view_models"`
	CanCreateModels    bool `json:"can_create_models"`
	CanEditModels      bool `json:"can_edit_models"`
	CanDeleteModels    bool `json:"can_delete_models"`
	CanEditModelStatus bool `json:"can_edit_model_status"`

	CanUploadFiles   bool `json:"can_upload_files"`
	CanDownloadFiles bool `json:"can_download_files"`
	CanDeleteFiles   bool `json:"can_delete_files"`

	CanCreateMaterials bool `json:"can_create_materials"`
	CanEditMaterials   bool `json:"can_edit_materials"`
	CanDeleteMaterials bool `json:"can_delete_materials"`

	CanAddComments    bool `json:"can_add_comments"`
	CanDeleteComments bool `json:"can_delete_comments"`

	CanCreateCollections bool `json:"can_create_collections"`
	CanEditCollections   bool `json:"can_edit_collections"`
	CanDeleteCollections bool `json:"can_delete_collections"`
	CanCreateSeasons     bool `json:"can_create_seasons"`
	CanEditSeasons       bool `json:"can_edit_seasons"`
	CanDeleteSeasons     bool `json:"can_delete_seasons"`

	CanViewUsers       bool `json:"can_view_users"`
	CanCreateUsers     bool `json:"can_create_users"`
	CanEditUsers       bool `json:"can_edit_users"`
	CanDeleteUsers     bool `json:"can_delete_users"`
	CanAssignFactories bool `json:"can_assign_factories"`

	CanApproveAsBuyer       bool `json:"can_approve_as_buyer"`
	CanApproveAsConstructor bool `json:"can_approve_as_constructor"`
}

// Get reports whether the set grants the capability. Unknown names deny.
func (p PermissionSet) Get(c Capability) bool {
	switch c {
	case CapViewModels:
		return p.CanViewModels
	case CapCreateModels:
		return p.CanCreateModels
	case CapEditModels:
		return p.CanEditModels
	case CapDeleteModels:
		return p.CanDeleteModels
	case CapEditModelStatus:
		return p.CanEditModelStatus
	case CapUploadFiles:
		return p.CanUploadFiles
	case CapDownloadFiles:
		return p.CanDownloadFiles
	case CapDeleteFiles:
		return p.CanDeleteFiles
	case CapCreateMaterials:
		return p.CanCreateMaterials
	case CapEditMaterials:
		return p.CanEditMaterials
	case CapDeleteMaterials:
		return p.CanDeleteMaterials
	case CapAddComments:
		return p.CanAddComments
	case CapDeleteComments:
		return p.CanDeleteComments
	case CapCreateCollections:
		return p.CanCreateCollections
	case CapEditCollections:
		return p.CanEditCollections
	case CapDeleteCollections:
		return p.CanDeleteCollections
	case CapCreateSeasons:
		return p.CanCreateSeasons
	case CapEditSeasons:
		return p.CanEditSeasons
	case CapDeleteSeasons:
		return p.CanDeleteSeasons
	case CapViewUsers:
		return p.CanViewUsers
	case CapCreateUsers:
		return p.CanCreateUsers
	case CapEditUsers:
		return p.CanEditUsers
	case CapDeleteUsers:
		return p.CanDeleteUsers
	case CapAssignFactories:
		return p.CanAssignFactories
	case CapApproveAsBuyer:
		return p.CanApproveAsBuyer
	case CapApproveAsConstructor:
		return p.CanApproveAsConstructor
	}
	return false
}

func (p *PermissionSet) set(c Capability, value bool) {
	switch c {
	case CapViewModels:
		p.CanViewModels = value
	case CapCreateModels:
		p.CanCreateModels = value
	case CapEditModels:
		p.CanEditModels = value
	case CapDeleteModels:
		p.CanDeleteModels = value
	case CapEditModelStatus:
		p.CanEditModelStatus = value
	case CapUploadFiles:
		p.CanUploadFiles = value
	case CapDownloadFiles:
		p.CanDownloadFiles = value
	case CapDeleteFiles:
		p.CanDeleteFiles = value
	case CapCreateMaterials:
		p.CanCreateMaterials = value
	case CapEditMaterials:
		p.CanEditMaterials = value
	case CapDeleteMaterials:
		p.CanDeleteMaterials = value
	case CapAddComments:
		p.CanAddComments = value
	case CapDeleteComments:
		p.CanDeleteComments = value
	case CapCreateCollections:
		p.CanCreateCollections = value
	case CapEditCollections:
		p.CanEditCollections = value
	case CapDeleteCollections:
		p.CanDeleteCollections = value
	case CapCreateSeasons:
		p.CanCreateSeasons = value
	case CapEditSeasons:
		p.CanEditSeasons = value
	case CapDeleteSeasons:
		p.CanDeleteSeasons = value
	case CapViewUsers:
		p.CanViewUsers = value
	case CapCreateUsers:
		p.CanCreateUsers = value
	case CapEditUsers:
		p.CanEditUsers = value
	case CapDeleteUsers:
		p.CanDeleteUsers = value
	case CapAssignFactories:
		p.CanAssignFactories = value
	case CapApproveAsBuyer:
		p.CanApproveAsBuyer = value
	case CapApproveAsConstructor:
		p.CanApproveAsConstructor = value
	}
}

// Overrides is the sparse per-user exception record: only capabilities
// explicitly set differ from the role default.
type Overrides map[Capability]bool

// Resolve merges the role default with the override record. Override keys
// always win; absent keys fall back to the role default; a capability absent
// from both is false. Resolve is total: missing data degrades to deny,
// never to an error.
func Resolve(role users.Role, overrides Overrides) PermissionSet {
	set := RoleDefaults(role)
	for c, value := range overrides {
		if _, ok := capabilityIndex[c]; !ok {
			continue
		}
		set.set(c, value)
	}
	return set
}
