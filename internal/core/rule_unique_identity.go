package core

import (
	"clinicstaff/pkg/domain"
	"context"
	"strings"
)

// NewUniqueIdentityRule keeps natural keys unique: specialty names after
// synonym normalization, doctor CRMs and usernames (case-insensitive).
func NewUniqueIdentityRule() domain.Rule {
	return uniqueIdentityRule{}
}

type uniqueIdentityRule struct{}

func (uniqueIdentityRule) Name() string { return "unique_identity" }

func (r uniqueIdentityRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	if ids := changedIDs(changes, domain.EntitySpecialty); len(ids) > 0 {
		owners := make(map[string][]domain.Specialty)
		for _, s := range view.ListSpecialties() {
			key := s.NormalizedName()
			owners[key] = append(owners[key], s)
		}
		for id := range ids {
			s, ok := view.FindSpecialty(id)
			if !ok {
				continue
			}
			for _, other := range owners[s.NormalizedName()] {
				if other.ID != s.ID {
					res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntitySpecialty, s.ID,
						"specialty %q duplicates existing specialty %q", s.Name, other.Name))
					break
				}
			}
		}
	}
	if ids := changedIDs(changes, domain.EntityDoctor); len(ids) > 0 {
		doctors := view.ListDoctors()
		for id := range ids {
			d, ok := view.FindDoctor(id)
			if !ok {
				continue
			}
			for _, other := range doctors {
				if other.ID != d.ID && normalizeCRM(other.CRM) == normalizeCRM(d.CRM) {
					res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityDoctor, d.ID,
						"CRM %s already registered for doctor %s", d.CRM, other.ID))
					break
				}
			}
		}
	}
	if ids := changedIDs(changes, domain.EntityUser); len(ids) > 0 {
		users := view.ListUsers()
		for id := range ids {
			u, ok := view.FindUser(id)
			if !ok {
				continue
			}
			for _, other := range users {
				if other.ID != u.ID && strings.EqualFold(other.Username, u.Username) {
					res.Violations = append(res.Violations, violation(r.Name(), domain.SeverityBlock, domain.EntityUser, u.ID,
						"username %q already taken", u.Username))
					break
				}
			}
		}
	}
	return res, nil
}

// normalizeCRM ignores case, spaces and punctuation so "CRM-SP 12.345" and
// "crmsp12345" collide.
func normalizeCRM(crm string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(crm) {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
