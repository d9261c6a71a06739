package order

// ValidateTransition is the single source of truth for the order state
// machine. It decides whether an actor with the given role may move an order
// from current to requested; no other code re-implements these rules.
//
//	confirmed -> in_progress            (freelancer)
//	in_progress -> submitted_for_review (freelancer)
//	submitted_for_review | delivered -> completed           (client)
//	submitted_for_review | delivered -> revision_requested  (client)
//	confirmed -> cancelled              (either party)
//
// Everything else is denied.
func ValidateTransition(current, requested Status, role Role) error {
	switch requested {
	case StatusInProgress:
		if role == RoleFreelancer && current == StatusConfirmed {
			return nil
		}
	case StatusSubmittedForReview:
		if role == RoleFreelancer && current == StatusInProgress {
			return nil
		}
	case StatusCompleted:
		if role == RoleClient && (current == StatusSubmittedForReview || current == StatusDelivered) {
			return nil
		}
	case StatusRevisionRequested:
		if role == RoleClient && (current == StatusSubmittedForReview || current == StatusDelivered) {
			return nil
		}
	case StatusCancelled:
		if (role == RoleClient || role == RoleFreelancer) && current == StatusConfirmed {
			return nil
		}
	}
	return &InvalidTransitionError{From: current, To: requested, Role: role}
}
