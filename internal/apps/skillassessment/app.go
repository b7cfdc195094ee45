// Package skillassessment registers the skill assessment app. It is the
// reference consumer of the app registry: admin standing is decided by the
// enterprise's app profile, not by tenant roles.
package skillassessment

import (
	"context"
	"errors"

	"github.com/oaklinehq/workplace/internal/apps"
	"github.com/oaklinehq/workplace/internal/models"
	"github.com/oaklinehq/workplace/internal/store"
)

// AppCode is the registry key for the skill assessment app.
const AppCode = "skill_assessment"

// OrgTypeManagement marks the enterprises that run assessments for others.
const OrgTypeManagement = "management"

// Descriptor builds the registry descriptor. A user administers the app
// when the resolved enterprise's skill assessment profile has the
// management org type; enterprises without a profile, and requests without
// tenant context, get nothing.
func Descriptor(enterprises store.EnterpriseStore) apps.Descriptor {
	return apps.Descriptor{
		Code:         AppCode,
		Name:         "Skill Assessment",
		Description:  "Workforce skill evaluation and certification tracking",
		Version:      "1.0.0",
		Capabilities: []string{"assessments", "certifications", "reports"},
		AdminPredicate: func(ctx context.Context, user *models.User, enterprise *models.Enterprise) (bool, error) {
			if enterprise == nil {
				return false, nil
			}

			profile, err := enterprises.GetAppProfile(ctx, enterprise.EnterpriseID, AppCode)
			if errors.Is(err, store.ErrAppProfileNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}

			return profile.OrgType == OrgTypeManagement, nil
		},
	}
}
