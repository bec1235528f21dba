package service

import "turfmania-backend/internal/domain"

// WasEdited reports whether the organization an admin is about to create
// deviates from what the requester originally submitted. Facility comparison
// is set equality, so reordering ids is not an edit.
func (s *organizationRequestService) WasEdited(original *domain.OrganizationRequest, candidate OrganizationData) bool {
	if original.OrganizationName != candidate.Name {
		return true
	}
	if !sameFacilitySet(original.Facilities, candidate.Facilities) {
		return true
	}

	ol, cl := original.Location, candidate.Location
	if ol.PlaceID != cl.PlaceID || ol.Address != cl.Address || ol.City != cl.City {
		return true
	}
	if ol.Coordinates.Longitude != cl.Coordinates.Longitude || ol.Coordinates.Latitude != cl.Coordinates.Latitude {
		return true
	}

	if original.OrgContactPhone != candidate.OrgContactPhone {
		return true
	}
	if original.OrgContactEmail != candidate.OrgContactEmail {
		return true
	}
	return false
}

func sameFacilitySet(a, b []int32) bool {
	setA := make(map[int32]bool, len(a))
	for _, id := range a {
		setA[id] = true
	}
	setB := make(map[int32]bool, len(b))
	for _, id := range b {
		setB[id] = true
	}
	if len(setA) != len(setB) {
		return false
	}
	for id := range setA {
		if !setB[id] {
			return false
		}
	}
	return true
}
