package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigconnect/server/internal/order"
	"github.com/gigconnect/server/internal/payment"
	"github.com/gigconnect/server/internal/requirement"
)

type fakeWorkflow struct {
	purchaseCalls []string
	acceptCalls   []string
	startCalls    []string

	acceptErr   error
	purchaseErr error
	startErr    error
	result      *order.Order
}

func (f *fakeWorkflow) PurchaseGig(_ context.Context, gigID, clientID, paymentRef, clientNotes string) (*order.Order, error) {
	f.purchaseCalls = append(f.purchaseCalls, gigID+"|"+clientID+"|"+paymentRef)
	if f.purchaseErr != nil {
		return nil, f.purchaseErr
	}
	return f.result, nil
}

func (f *fakeWorkflow) AcceptProposal(_ context.Context, proposalID, clientID, paymentRef, clientNotes string) (*order.Order, error) {
	f.acceptCalls = append(f.acceptCalls, proposalID+"|"+clientID+"|"+paymentRef+"|"+clientNotes)
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	return f.result, nil
}

func (f *fakeWorkflow) StartWork(_ context.Context, orderID, freelancerID string) (*order.Order, error) {
	f.startCalls = append(f.startCalls, orderID+"|"+freelancerID)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.result, nil
}

type fakeRequirements struct {
	statusCalls []string
	rejectCalls []string
	statusErr   error
}

func (f *fakeRequirements) SetRequirementStatus(_ context.Context, id string, status requirement.Status) error {
	f.statusCalls = append(f.statusCalls, id+"|"+string(status))
	return f.statusErr
}

func (f *fakeRequirements) RejectPendingSiblings(_ context.Context, requirementID, keepProposalID, reason string) error {
	f.rejectCalls = append(f.rejectCalls, requirementID+"|"+keepProposalID)
	return nil
}

type fakePayments struct {
	records map[string]*payment.Record
}

func (f *fakePayments) Get(_ context.Context, id string) (*payment.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, payment.ErrNotFound
	}
	return rec, nil
}

func proposalRecord(status payment.Status) *fakePayments {
	return &fakePayments{records: map[string]*payment.Record{
		"rec-1": {
			ID:              "rec-1",
			ClientID:        "client-1",
			ReferenceKind:   payment.RefProposal,
			ReferenceID:     "prop-1",
			ExternalOrderID: "pay_xyz",
			Amount:          80000,
			Status:          status,
		},
	}}
}

func confirmedOrder() *order.Order {
	reqID := "req-1"
	propID := "prop-1"
	return &order.Order{
		ID:            "order-1",
		Type:          order.TypeCustomProject,
		ClientID:      "client-1",
		FreelancerID:  "free-1",
		RequirementID: &reqID,
		ProposalID:    &propID,
		Status:        order.StatusConfirmed,
	}
}

func TestHandleSuccessfulPaymentProposal(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts proposal, updates requirement and auto-starts", func(t *testing.T) {
		wf := &fakeWorkflow{result: confirmedOrder()}
		reqs := &fakeRequirements{}
		r := New(wf, reqs, proposalRecord(payment.StatusPaid))

		require.NoError(t, r.HandleSuccessfulPayment(ctx, "rec-1"))

		require.Len(t, wf.acceptCalls, 1)
		assert.Equal(t, "prop-1|client-1|pay_xyz|Payment verified - proposal accepted automatically", wf.acceptCalls[0])
		assert.Equal(t, []string{"req-1|in_progress"}, reqs.statusCalls)
		assert.Equal(t, []string{"req-1|prop-1"}, reqs.rejectCalls)
		assert.Equal(t, []string{"order-1|free-1"}, wf.startCalls)
	})

	t.Run("skips records that are not paid", func(t *testing.T) {
		wf := &fakeWorkflow{result: confirmedOrder()}
		reqs := &fakeRequirements{}
		r := New(wf, reqs, proposalRecord(payment.StatusCreated))

		require.NoError(t, r.HandleSuccessfulPayment(ctx, "rec-1"))
		assert.Empty(t, wf.acceptCalls)
		assert.Empty(t, reqs.statusCalls)
	})

	t.Run("propagates acceptance failure without side effects", func(t *testing.T) {
		wf := &fakeWorkflow{acceptErr: order.ErrAmountMismatch}
		reqs := &fakeRequirements{}
		r := New(wf, reqs, proposalRecord(payment.StatusPaid))

		err := r.HandleSuccessfulPayment(ctx, "rec-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, order.ErrAmountMismatch)
		assert.Empty(t, reqs.statusCalls)
		assert.Empty(t, wf.startCalls)
	})

	t.Run("requirement update failure is non-fatal", func(t *testing.T) {
		wf := &fakeWorkflow{result: confirmedOrder()}
		reqs := &fakeRequirements{statusErr: errors.New("db down")}
		r := New(wf, reqs, proposalRecord(payment.StatusPaid))

		require.NoError(t, r.HandleSuccessfulPayment(ctx, "rec-1"))
	})

	t.Run("auto-start failure is non-fatal", func(t *testing.T) {
		wf := &fakeWorkflow{result: confirmedOrder(), startErr: errors.New("conflict")}
		reqs := &fakeRequirements{}
		r := New(wf, reqs, proposalRecord(payment.StatusPaid))

		require.NoError(t, r.HandleSuccessfulPayment(ctx, "rec-1"))
	})

	t.Run("does not start an already started order", func(t *testing.T) {
		o := confirmedOrder()
		o.Status = order.StatusInProgress
		wf := &fakeWorkflow{result: o}
		reqs := &fakeRequirements{}
		r := New(wf, reqs, proposalRecord(payment.StatusPaid))

		require.NoError(t, r.HandleSuccessfulPayment(ctx, "rec-1"))
		assert.Empty(t, wf.startCalls)
	})

	t.Run("unknown record id is an error", func(t *testing.T) {
		wf := &fakeWorkflow{}
		r := New(wf, &fakeRequirements{}, &fakePayments{records: map[string]*payment.Record{}})

		err := r.HandleSuccessfulPayment(ctx, "missing")
		require.Error(t, err)
		assert.ErrorIs(t, err, payment.ErrNotFound)
	})
}

func TestHandleSuccessfulPaymentGig(t *testing.T) {
	ctx := context.Background()

	gigRecord := &fakePayments{records: map[string]*payment.Record{
		"rec-2": {
			ID:              "rec-2",
			ClientID:        "client-1",
			ReferenceKind:   payment.RefGig,
			ReferenceID:     "gig-1",
			ExternalOrderID: "pay_abc",
			Amount:          50000,
			Status:          payment.StatusPaid,
		},
	}}

	t.Run("purchases gig and auto-starts", func(t *testing.T) {
		o := confirmedOrder()
		o.Type = order.TypeGigPurchase
		wf := &fakeWorkflow{result: o}
		r := New(wf, &fakeRequirements{}, gigRecord)

		require.NoError(t, r.HandleSuccessfulPayment(ctx, "rec-2"))
		require.Len(t, wf.purchaseCalls, 1)
		assert.Equal(t, "gig-1|client-1|pay_abc", wf.purchaseCalls[0])
		assert.Equal(t, []string{"order-1|free-1"}, wf.startCalls)
	})

	t.Run("propagates purchase failure", func(t *testing.T) {
		wf := &fakeWorkflow{purchaseErr: order.ErrGigUnavailable}
		r := New(wf, &fakeRequirements{}, gigRecord)

		err := r.HandleSuccessfulPayment(ctx, "rec-2")
		assert.ErrorIs(t, err, order.ErrGigUnavailable)
		assert.Empty(t, wf.startCalls)
	})
}
