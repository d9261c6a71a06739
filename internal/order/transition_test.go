package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransitionAllowed(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		role Role
	}{
		{"freelancer starts confirmed order", StatusConfirmed, StatusInProgress, RoleFreelancer},
		{"freelancer submits work", StatusInProgress, StatusSubmittedForReview, RoleFreelancer},
		{"client approves submission", StatusSubmittedForReview, StatusCompleted, RoleClient},
		{"client approves legacy delivered", StatusDelivered, StatusCompleted, RoleClient},
		{"client requests revision", StatusSubmittedForReview, StatusRevisionRequested, RoleClient},
		{"client requests revision on legacy delivered", StatusDelivered, StatusRevisionRequested, RoleClient},
		{"client cancels confirmed order", StatusConfirmed, StatusCancelled, RoleClient},
		{"freelancer cancels confirmed order", StatusConfirmed, StatusCancelled, RoleFreelancer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NoError(t, ValidateTransition(tc.from, tc.to, tc.role))
		})
	}
}

func TestValidateTransitionDenied(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		role Role
	}{
		{"client cannot start work", StatusConfirmed, StatusInProgress, RoleClient},
		{"cannot start before payment", StatusPendingPayment, StatusInProgress, RoleFreelancer},
		{"cannot submit before starting", StatusConfirmed, StatusSubmittedForReview, RoleFreelancer},
		{"client cannot submit work", StatusInProgress, StatusSubmittedForReview, RoleClient},
		{"freelancer cannot approve own work", StatusSubmittedForReview, StatusCompleted, RoleFreelancer},
		{"cannot complete in-progress work", StatusInProgress, StatusCompleted, RoleClient},
		{"freelancer cannot request revision", StatusSubmittedForReview, StatusRevisionRequested, RoleFreelancer},
		{"cannot cancel once started", StatusInProgress, StatusCancelled, RoleClient},
		{"cannot cancel submitted work", StatusSubmittedForReview, StatusCancelled, RoleFreelancer},
		{"cannot cancel completed order", StatusCompleted, StatusCancelled, RoleClient},
		{"completed is terminal", StatusCompleted, StatusInProgress, RoleFreelancer},
		{"cancelled is terminal", StatusCancelled, StatusInProgress, RoleFreelancer},
		{"cannot move to confirmed", StatusInProgress, StatusConfirmed, RoleFreelancer},
		{"non-party has no moves", StatusConfirmed, StatusInProgress, Role("")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateTransition(tc.from, tc.to, tc.role)
			require.Error(t, err)

			var invalid *InvalidTransitionError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.from, invalid.From)
			assert.Equal(t, tc.to, invalid.To)
			assert.Equal(t, tc.role, invalid.Role)
		})
	}
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := &InvalidTransitionError{From: StatusConfirmed, To: StatusCompleted, Role: RoleClient}
	assert.Equal(t, "invalid transition from confirmed to completed for role client", err.Error())
}
