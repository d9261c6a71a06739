package db

import (
	"context"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema the handlers expect.
func Init(dsn string) {
	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureUsersTable()
	ensureGigsTable()
	ensureRequirementsTable()
	ensureProposalsTable()
	ensurePaymentsTable()
	ensureOrdersTable()
	ensureMessagesTable()
}

func ensureUsersTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'client' CHECK (role IN ('client','freelancer','admin')),
            bio TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            skills TEXT[] NOT NULL DEFAULT '{}',
            hourly_rate BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to create users table: %v", err)
	}
}

func ensureGigsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS gigs (
            id UUID PRIMARY KEY,
            freelancer_id UUID NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            price BIGINT NOT NULL,
            skills TEXT[] NOT NULL DEFAULT '{}',
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','inactive','deleted')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_gigs_freelancer ON gigs(freelancer_id);
        CREATE INDEX IF NOT EXISTS idx_gigs_status ON gigs(status);
    `)
	if err != nil {
		log.Printf("failed to create gigs table: %v", err)
	}
}

func ensureRequirementsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS requirements (
            id UUID PRIMARY KEY,
            client_id UUID NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            budget_min BIGINT NOT NULL DEFAULT 0,
            budget_max BIGINT NOT NULL DEFAULT 0,
            skills TEXT[] NOT NULL DEFAULT '{}',
            status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','in_progress','completed','cancelled','closed')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_requirements_client ON requirements(client_id);
        CREATE INDEX IF NOT EXISTS idx_requirements_status ON requirements(status);
    `)
	if err != nil {
		log.Printf("failed to create requirements table: %v", err)
	}
}

func ensureProposalsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS proposals (
            id UUID PRIMARY KEY,
            requirement_id UUID NOT NULL REFERENCES requirements(id),
            freelancer_id UUID NOT NULL REFERENCES users(id),
            proposed_price BIGINT NOT NULL,
            message TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','accepted','in_progress','awaiting_completion','completed','rejected')),
            rejection_reason TEXT NULL,
            completion_notes TEXT NULL,
            client_feedback TEXT NULL,
            rating INTEGER NULL CHECK (rating BETWEEN 1 AND 5),
            submitted_at TIMESTAMP WITH TIME ZONE NULL,
            completed_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (requirement_id, freelancer_id)
        );
        CREATE INDEX IF NOT EXISTS idx_proposals_requirement ON proposals(requirement_id);
        CREATE INDEX IF NOT EXISTS idx_proposals_freelancer ON proposals(freelancer_id);
    `)
	if err != nil {
		log.Printf("failed to create proposals table: %v", err)
	}
}

func ensurePaymentsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS payments (
            id UUID PRIMARY KEY,
            client_id UUID NOT NULL REFERENCES users(id),
            reference_kind TEXT NOT NULL CHECK (reference_kind IN ('gig','proposal')),
            reference_id TEXT NOT NULL,
            external_order_id TEXT NOT NULL UNIQUE,
            external_payment_id TEXT NULL,
            amount BIGINT NOT NULL,
            currency TEXT NOT NULL DEFAULT 'INR',
            status TEXT NOT NULL DEFAULT 'created' CHECK (status IN ('created','paid','failed')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_payments_reference ON payments(reference_kind, reference_id);
        CREATE INDEX IF NOT EXISTS idx_payments_client ON payments(client_id);
    `)
	if err != nil {
		log.Printf("failed to create payments table: %v", err)
	}
}

func ensureOrdersTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS orders (
            id UUID PRIMARY KEY,
            order_type TEXT NOT NULL CHECK (order_type IN ('gig_purchase','custom_project')),
            order_source TEXT NOT NULL CHECK (order_source IN ('direct_gig','accepted_proposal')),
            client_id UUID NOT NULL REFERENCES users(id),
            freelancer_id UUID NOT NULL REFERENCES users(id),
            gig_id UUID NULL REFERENCES gigs(id),
            requirement_id UUID NULL REFERENCES requirements(id),
            proposal_id UUID NULL REFERENCES proposals(id),
            payment_id TEXT NOT NULL,
            amount BIGINT NOT NULL,
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending_payment' CHECK (status IN (
                'pending_payment', 'confirmed', 'in_progress', 'submitted_for_review',
                'delivered', 'revision_requested', 'completed', 'cancelled', 'refunded'
            )),
            delivery_notes TEXT NULL,
            client_notes TEXT NULL,
            revision_notes TEXT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            started_at TIMESTAMP WITH TIME ZONE NULL,
            delivered_at TIMESTAMP WITH TIME ZONE NULL,
            completed_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_orders_client ON orders(client_id);
        CREATE INDEX IF NOT EXISTS idx_orders_freelancer ON orders(freelancer_id);
        CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_proposal ON orders(proposal_id) WHERE proposal_id IS NOT NULL;
        CREATE UNIQUE INDEX IF NOT EXISTS uq_orders_payment ON orders(payment_id);
    `)
	if err != nil {
		log.Printf("failed to create orders table: %v", err)
	}
}

func ensureMessagesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY,
            order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
            sender_id UUID NOT NULL REFERENCES users(id),
            recipient_id UUID NOT NULL REFERENCES users(id),
            content TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_messages_order ON messages(order_id, created_at);
    `)
	if err != nil {
		log.Printf("failed to create messages table: %v", err)
	}
}
