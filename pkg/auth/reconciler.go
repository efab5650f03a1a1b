package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/usos-inventory/server/pkg/apperr"
	"github.com/usos-inventory/server/pkg/usos"
)

// Reconciler maps an external profile onto a local principal: it creates
// the account on first login and reconciles attribute drift on repeat
// logins. A login that changes nothing performs no write.
type Reconciler struct {
	store *PrincipalStore
}

// NewReconciler creates a new reconciler
func NewReconciler(store *PrincipalStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile finds or creates the principal for a provider profile.
// Returns the principal and whether it was created on this call.
func (r *Reconciler) Reconcile(ctx context.Context, profile *usos.Profile) (*Principal, bool, error) {
	if profile == nil || profile.ID == "" {
		// A profile without an id is a provider-integrity failure; never
		// create a principal for it.
		return nil, false, apperr.New(apperr.KindMissingExternalID,
			"provider user id not found in profile response")
	}

	username := UsernamePrefix + profile.ID

	existing, err := r.store.GetByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		principal := &Principal{
			Username:  username,
			FirstName: profile.FirstName,
			LastName:  profile.LastName,
			Email:     profile.Email,
			IsActive:  true,
			IsStaff:   profile.IsStaff(),
		}
		if err := r.store.Create(ctx, principal); err != nil {
			return nil, false, apperr.Wrap(apperr.KindProvisioningError, err,
				"database error during user provisioning for %s", username)
		}
		return principal, true, nil
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindProvisioningError, err,
			"failed to look up principal %s", username)
	}

	changes := principalChanges(existing, profile)
	if len(changes) > 0 {
		if err := r.store.ApplyChanges(ctx, existing.ID, changes); err != nil {
			return nil, false, apperr.Wrap(apperr.KindProvisioningError, err,
				"database error during user provisioning for %s", username)
		}
	}

	return existing, false, nil
}

// principalChanges computes the ordered change set between a stored
// principal and a freshly fetched profile. The comparison is pure; the
// caller decides whether to persist. The active flag is always forced
// back to true for a principal that managed to log in.
func principalChanges(p *Principal, profile *usos.Profile) []Change {
	var changes []Change

	if p.FirstName != profile.FirstName {
		p.FirstName = profile.FirstName
		changes = append(changes, Change{Column: "first_name", Value: profile.FirstName})
	}
	if p.LastName != profile.LastName {
		p.LastName = profile.LastName
		changes = append(changes, Change{Column: "last_name", Value: profile.LastName})
	}
	if p.Email != profile.Email {
		p.Email = profile.Email
		changes = append(changes, Change{Column: "email", Value: profile.Email})
	}
	if isStaff := profile.IsStaff(); p.IsStaff != isStaff {
		p.IsStaff = isStaff
		changes = append(changes, Change{Column: "is_staff", Value: isStaff})
	}
	if !p.IsActive {
		p.IsActive = true
		changes = append(changes, Change{Column: "is_active", Value: true})
	}

	return changes
}
