package order

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigconnect/server/internal/catalog"
	"github.com/gigconnect/server/internal/payment"
	"github.com/gigconnect/server/internal/requirement"
)

// In-memory fixture shared by the fakes. Proposals are shared with the order
// store so acceptance and mirroring touch the same state, like the real
// transactions do.
type fixture struct {
	gigs         map[string]*catalog.Gig
	proposals    map[string]*requirement.Proposal
	requirements map[string]*requirement.Requirement
	payments     map[string]*payment.Record
	users        map[string]bool

	orders  map[string]*Order
	nextID  int
	store   *fakeOrderStore
	service *Service
}

func newFixture() *fixture {
	f := &fixture{
		gigs:         make(map[string]*catalog.Gig),
		proposals:    make(map[string]*requirement.Proposal),
		requirements: make(map[string]*requirement.Requirement),
		payments:     make(map[string]*payment.Record),
		users:        make(map[string]bool),
		orders:       make(map[string]*Order),
	}
	f.store = &fakeOrderStore{f: f}
	f.service = NewService(f.store, fakeGigs{f}, fakeProposals{f}, fakeRequirements{f}, fakePayments{f}, fakeUsers{f})
	return f
}

type fakeGigs struct{ f *fixture }

func (s fakeGigs) Get(_ context.Context, id string) (*catalog.Gig, error) {
	g, ok := s.f.gigs[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return g, nil
}

type fakeProposals struct{ f *fixture }

func (s fakeProposals) GetProposal(_ context.Context, id string) (*requirement.Proposal, error) {
	p, ok := s.f.proposals[id]
	if !ok {
		return nil, requirement.ErrNotFound
	}
	return p, nil
}

type fakeRequirements struct{ f *fixture }

func (s fakeRequirements) GetRequirement(_ context.Context, id string) (*requirement.Requirement, error) {
	r, ok := s.f.requirements[id]
	if !ok {
		return nil, requirement.ErrNotFound
	}
	return r, nil
}

type fakePayments struct{ f *fixture }

func (s fakePayments) GetByExternalRef(_ context.Context, ref string) (*payment.Record, error) {
	for _, rec := range s.f.payments {
		if rec.ExternalOrderID == ref {
			return rec, nil
		}
		if rec.ExternalPaymentID != nil && *rec.ExternalPaymentID == ref {
			return rec, nil
		}
	}
	return nil, payment.ErrNotFound
}

type fakeUsers struct{ f *fixture }

func (s fakeUsers) Exists(_ context.Context, id string) (bool, error) {
	return s.f.users[id], nil
}

type fakeOrderStore struct {
	f *fixture

	// beforeCreate runs once just before the next insert, to interleave a
	// competing write the way a concurrent reconciliation would.
	beforeCreate func()
}

func (s *fakeOrderStore) Get(_ context.Context, id string) (*Order, error) {
	o, ok := s.f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *fakeOrderStore) GetForUser(_ context.Context, id, userID string) (*Order, error) {
	o, ok := s.f.orders[id]
	if !ok || o.RoleOf(userID) == "" {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *fakeOrderStore) GetByProposal(_ context.Context, proposalID string) (*Order, error) {
	for _, o := range s.f.orders {
		if o.ProposalID != nil && *o.ProposalID == proposalID {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeOrderStore) GetByPaymentRef(_ context.Context, ref string) (*Order, error) {
	for _, o := range s.f.orders {
		if o.PaymentID == ref {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeOrderStore) Create(_ context.Context, o *Order) error {
	if s.beforeCreate != nil {
		hook := s.beforeCreate
		s.beforeCreate = nil
		hook()
	}
	// Same uniqueness the orders table enforces on payment_id and proposal_id.
	for _, existing := range s.f.orders {
		if existing.PaymentID == o.PaymentID {
			return ErrDuplicateOrder
		}
		if existing.ProposalID != nil && o.ProposalID != nil && *existing.ProposalID == *o.ProposalID {
			return ErrDuplicateOrder
		}
	}
	if o.ID == "" {
		s.f.nextID++
		o.ID = fmt.Sprintf("order-%d", s.f.nextID)
	}
	s.f.orders[o.ID] = o
	return nil
}

func (s *fakeOrderStore) CreateAcceptingProposal(ctx context.Context, o *Order, rejectionReason string) error {
	p := s.f.proposals[*o.ProposalID]
	if p.Status != requirement.ProposalPending {
		return ErrAlreadyProcessed
	}
	p.Status = requirement.ProposalAccepted
	for _, sibling := range s.f.proposals {
		if sibling.RequirementID == p.RequirementID && sibling.ID != p.ID && sibling.Status == requirement.ProposalPending {
			sibling.Status = requirement.ProposalRejected
			reason := rejectionReason
			sibling.RejectionReason = &reason
		}
	}
	return s.Create(ctx, o)
}

func (s *fakeOrderStore) Update(_ context.Context, o *Order, mirror *ProposalMirror) error {
	if _, ok := s.f.orders[o.ID]; !ok {
		return ErrNotFound
	}
	s.f.orders[o.ID] = o
	if mirror != nil {
		p := s.f.proposals[mirror.ProposalID]
		p.Status = mirror.Status
		p.CompletedAt = mirror.CompletedAt
	}
	return nil
}

func (s *fakeOrderStore) ListForUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range s.f.orders {
		if o.RoleOf(userID) != "" {
			out = append(out, *o)
		}
	}
	return out, nil
}

// Fixture helpers.

func (f *fixture) addUser(id string) { f.users[id] = true }

func (f *fixture) addGig(id, freelancerID string, price int64, status catalog.GigStatus) {
	f.addUser(freelancerID)
	f.gigs[id] = &catalog.Gig{ID: id, FreelancerID: freelancerID, Title: "Logo design", Description: "A logo", Price: price, Status: status}
}

func (f *fixture) addPaidPayment(extOrderID string, amount int64) {
	payID := extOrderID + "_pay"
	f.payments[extOrderID] = &payment.Record{
		ID:                "rec_" + extOrderID,
		ExternalOrderID:   extOrderID,
		ExternalPaymentID: &payID,
		Amount:            amount,
		Status:            payment.StatusPaid,
	}
}

func (f *fixture) addRequirementWithProposal(reqID, clientID, proposalID, freelancerID string, price int64) {
	f.addUser(clientID)
	f.addUser(freelancerID)
	f.requirements[reqID] = &requirement.Requirement{ID: reqID, ClientID: clientID, Title: "Build a website", Description: "Full site", Status: requirement.StatusOpen}
	f.proposals[proposalID] = &requirement.Proposal{ID: proposalID, RequirementID: reqID, FreelancerID: freelancerID, ProposedPrice: price, Status: requirement.ProposalPending}
}

func TestPurchaseGig(t *testing.T) {
	ctx := context.Background()

	t.Run("creates confirmed order with snapshot", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
		f.addPaidPayment("pay_abc", 50000)

		o, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "please use blue")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, o.Status)
		assert.Equal(t, TypeGigPurchase, o.Type)
		assert.Equal(t, SourceDirectGig, o.Source)
		assert.Equal(t, "Logo design", o.Title)
		assert.Equal(t, int64(50000), o.Amount)
		assert.Equal(t, "free-1", o.FreelancerID)
		require.NotNil(t, o.ClientNotes)
		assert.Equal(t, "please use blue", *o.ClientNotes)
	})

	t.Run("is idempotent per payment reference", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
		f.addPaidPayment("pay_abc", 50000)

		first, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
		require.NoError(t, err)
		second, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, f.orders, 1)
	})

	t.Run("concurrent purchases of one payment yield one order", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
		f.addPaidPayment("pay_abc", 50000)

		// A rival reconciliation commits between our existence check and our
		// insert; the unique index turns our insert into a lookup.
		f.store.beforeCreate = func() {
			rival := &Order{
				ID:           "order-rival",
				Type:         TypeGigPurchase,
				Source:       SourceDirectGig,
				ClientID:     "client-1",
				FreelancerID: "free-1",
				PaymentID:    "pay_abc",
				Amount:       50000,
				Status:       StatusConfirmed,
			}
			f.orders[rival.ID] = rival
		}

		o, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
		require.NoError(t, err)
		assert.Equal(t, "order-rival", o.ID)
		assert.Len(t, f.orders, 1)
	})

	t.Run("resolves payment by external payment id too", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
		f.addPaidPayment("pay_abc", 50000)

		_, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc_pay", "")
		require.NoError(t, err)
	})

	t.Run("rejects non-active gig", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigInactive)
		f.addPaidPayment("pay_abc", 50000)

		_, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
		assert.ErrorIs(t, err, ErrGigUnavailable)
	})

	t.Run("rejects missing gig and missing client", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
		f.addPaidPayment("pay_abc", 50000)

		_, err := f.service.PurchaseGig(ctx, "nope", "client-1", "pay_abc", "")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = f.service.PurchaseGig(ctx, "gig-1", "ghost", "pay_abc", "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("rejects unknown payment reference", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)

		_, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_missing", "")
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})

	t.Run("rejects unpaid payment", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
		f.addPaidPayment("pay_abc", 50000)
		f.payments["pay_abc"].Status = payment.StatusCreated

		_, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
		assert.ErrorIs(t, err, ErrPaymentNotCompleted)
	})

	t.Run("rejects amount mismatch", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
		f.addPaidPayment("pay_abc", 49900)

		_, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
		assert.ErrorIs(t, err, ErrAmountMismatch)
	})

	t.Run("accepts legacy major-unit price scaled by 100", func(t *testing.T) {
		f := newFixture()
		f.addUser("client-1")
		f.addGig("gig-1", "free-1", 500, catalog.GigActive)
		f.addPaidPayment("pay_abc", 50000)

		o, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
		require.NoError(t, err)
		assert.Equal(t, int64(500), o.Amount)
	})
}

func TestAcceptProposal(t *testing.T) {
	ctx := context.Background()

	t.Run("accepts pending proposal and rejects siblings", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.proposals["prop-2"] = &requirement.Proposal{ID: "prop-2", RequirementID: "req-1", FreelancerID: "free-2", ProposedPrice: 90000, Status: requirement.ProposalPending}
		f.addPaidPayment("pay_xyz", 80000)

		o, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, o.Status)
		assert.Equal(t, TypeCustomProject, o.Type)
		assert.Equal(t, SourceAcceptedProposal, o.Source)
		assert.Equal(t, "Build a website", o.Title)
		assert.Equal(t, int64(80000), o.Amount)

		assert.Equal(t, requirement.ProposalAccepted, f.proposals["prop-1"].Status)
		assert.Equal(t, requirement.ProposalRejected, f.proposals["prop-2"].Status)
		require.NotNil(t, f.proposals["prop-2"].RejectionReason)
		assert.Equal(t, "Another freelancer was selected for this project", *f.proposals["prop-2"].RejectionReason)
	})

	t.Run("rejects non-owner", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 80000)

		_, err := f.service.AcceptProposal(ctx, "prop-1", "intruder", "pay_xyz", "")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, requirement.ProposalPending, f.proposals["prop-1"].Status)
	})

	t.Run("returns existing order for already accepted proposal", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 80000)

		first, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		require.NoError(t, err)
		second, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Len(t, f.orders, 1)
	})

	t.Run("recreates missing order after crash between writes", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 80000)
		// Proposal accepted but the order insert never happened.
		f.proposals["prop-1"].Status = requirement.ProposalAccepted

		o, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, o.Status)
		assert.Len(t, f.orders, 1)
	})

	t.Run("concurrent accepts of one payment yield one order", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 80000)

		propID := "prop-1"
		f.store.beforeCreate = func() {
			rival := &Order{
				ID:           "order-rival",
				Type:         TypeCustomProject,
				Source:       SourceAcceptedProposal,
				ClientID:     "client-1",
				FreelancerID: "free-1",
				ProposalID:   &propID,
				PaymentID:    "pay_xyz",
				Amount:       80000,
				Status:       StatusConfirmed,
			}
			f.orders[rival.ID] = rival
		}

		o, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		require.NoError(t, err)
		assert.Equal(t, "order-rival", o.ID)
		assert.Len(t, f.orders, 1)
	})

	t.Run("concurrent crash recoveries yield one order", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 80000)
		f.proposals["prop-1"].Status = requirement.ProposalAccepted

		propID := "prop-1"
		f.store.beforeCreate = func() {
			rival := &Order{
				ID:           "order-rival",
				Type:         TypeCustomProject,
				Source:       SourceAcceptedProposal,
				ClientID:     "client-1",
				FreelancerID: "free-1",
				ProposalID:   &propID,
				PaymentID:    "pay_xyz",
				Amount:       80000,
				Status:       StatusConfirmed,
			}
			f.orders[rival.ID] = rival
		}

		o, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		require.NoError(t, err)
		assert.Equal(t, "order-rival", o.ID)
		assert.Len(t, f.orders, 1)
	})

	t.Run("rejects already rejected proposal", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 80000)
		f.proposals["prop-1"].Status = requirement.ProposalRejected

		_, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	})

	t.Run("rejects amount mismatch against proposed price", func(t *testing.T) {
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 70000)

		_, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		assert.ErrorIs(t, err, ErrAmountMismatch)
		assert.Equal(t, requirement.ProposalPending, f.proposals["prop-1"].Status)
	})
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*fixture, *Order) {
		t.Helper()
		f := newFixture()
		f.addRequirementWithProposal("req-1", "client-1", "prop-1", "free-1", 80000)
		f.addPaidPayment("pay_xyz", 80000)
		o, err := f.service.AcceptProposal(ctx, "prop-1", "client-1", "pay_xyz", "")
		require.NoError(t, err)
		return f, o
	}

	t.Run("freelancer starts work and proposal mirrors", func(t *testing.T) {
		f, o := setup(t)
		updated, err := f.service.StartWork(ctx, o.ID, "free-1")
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, updated.Status)
		require.NotNil(t, updated.StartedAt)
		assert.Equal(t, requirement.ProposalInProgress, f.proposals["prop-1"].Status)
	})

	t.Run("client cannot start work", func(t *testing.T) {
		f, o := setup(t)
		_, err := f.service.StartWork(ctx, o.ID, "client-1")
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, RoleClient, invalid.Role)
	})

	t.Run("deliver requires in-progress", func(t *testing.T) {
		f, o := setup(t)
		_, err := f.service.DeliverWork(ctx, o.ID, "free-1", "done")
		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, StatusConfirmed, invalid.From)
	})

	t.Run("deliver records notes and timestamp", func(t *testing.T) {
		f, o := setup(t)
		_, err := f.service.StartWork(ctx, o.ID, "free-1")
		require.NoError(t, err)

		updated, err := f.service.DeliverWork(ctx, o.ID, "free-1", "all pages done")
		require.NoError(t, err)
		assert.Equal(t, StatusSubmittedForReview, updated.Status)
		require.NotNil(t, updated.DeliveredAt)
		require.NotNil(t, updated.DeliveryNotes)
		assert.Equal(t, "all pages done", *updated.DeliveryNotes)
	})

	t.Run("approval completes order and proposal", func(t *testing.T) {
		f, o := setup(t)
		_, err := f.service.StartWork(ctx, o.ID, "free-1")
		require.NoError(t, err)
		_, err = f.service.DeliverWork(ctx, o.ID, "free-1", "done")
		require.NoError(t, err)

		updated, err := f.service.ApproveWork(ctx, o.ID, "client-1", "great work")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, updated.Status)
		require.NotNil(t, updated.CompletedAt)
		assert.Equal(t, requirement.ProposalCompleted, f.proposals["prop-1"].Status)
		require.NotNil(t, f.proposals["prop-1"].CompletedAt)
	})

	t.Run("revision request re-enters in_progress and clears delivery", func(t *testing.T) {
		f, o := setup(t)
		_, err := f.service.StartWork(ctx, o.ID, "free-1")
		require.NoError(t, err)
		_, err = f.service.DeliverWork(ctx, o.ID, "free-1", "done")
		require.NoError(t, err)

		updated, err := f.service.RequestRevision(ctx, o.ID, "client-1", "wrong font")
		require.NoError(t, err)
		assert.Equal(t, StatusInProgress, updated.Status)
		assert.Nil(t, updated.DeliveredAt)
		require.NotNil(t, updated.RevisionNotes)
		assert.Equal(t, "wrong font", *updated.RevisionNotes)

		// The freelancer can deliver again after the revision.
		again, err := f.service.DeliverWork(ctx, o.ID, "free-1", "fixed font")
		require.NoError(t, err)
		assert.Equal(t, StatusSubmittedForReview, again.Status)
	})

	t.Run("either party can cancel a confirmed order", func(t *testing.T) {
		f, o := setup(t)
		updated, err := f.service.UpdateStatus(ctx, o.ID, "client-1", StatusCancelled, UpdatePayload{})
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, updated.Status)
	})

	t.Run("non-party sees not found", func(t *testing.T) {
		f, o := setup(t)
		_, err := f.service.UpdateStatus(ctx, o.ID, "stranger", StatusCancelled, UpdatePayload{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestGetByPaymentRef(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addUser("client-1")
	f.addGig("gig-1", "free-1", 50000, catalog.GigActive)
	f.addPaidPayment("pay_abc", 50000)

	o, err := f.service.PurchaseGig(ctx, "gig-1", "client-1", "pay_abc", "")
	require.NoError(t, err)

	got, err := f.service.GetByPaymentRef(ctx, "pay_abc", "free-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.service.GetByPaymentRef(ctx, "pay_abc", "stranger")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAmountMatches(t *testing.T) {
	assert.True(t, amountMatches(50000, 50000))
	assert.True(t, amountMatches(50000, 500))
	assert.False(t, amountMatches(500, 50000))
	assert.False(t, amountMatches(49900, 50000))
	assert.False(t, amountMatches(0, 50000))
}
