package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx pool against the given DSN and verifies it with a ping.
// The pool is handed to each feature handler rather than kept as a package
// global, so tests and utilities can supply their own.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	log.Println("Connected to Postgres successfully")
	return pool, nil
}

// EnsureSchema brings up the tables the handlers expect. Each step is
// idempotent; failures are logged and the remaining steps still run so a
// partially provisioned database doesn't block startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) {
	ensureUsersTable(ctx, pool)
	ensureItemsTable(ctx, pool)
	ensureMeetupsTable(ctx, pool)
	ensureReputationHistoryTable(ctx, pool)
	ensureBoardTables(ctx, pool)
	ensureOffersTable(ctx, pool)
	ensureMessagesTable(ctx, pool)
	ensureFriendshipsTable(ctx, pool)
	ensureNotificationsTable(ctx, pool)
	ensureReferralsTable(ctx, pool)
}

func ensureUsersTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            course TEXT,
            current_year TEXT,
            block_section TEXT,
            phone_number TEXT,
            address TEXT,
            profile_picture TEXT,
            profile_completed BOOLEAN DEFAULT FALSE,
            reputation_score INTEGER NOT NULL DEFAULT 0,
            referral_code TEXT UNIQUE,
            referred_by UUID NULL REFERENCES users(id) ON DELETE SET NULL,
            total_referrals INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
		return
	}
	// Older databases predate the reputation column
	_, err = pool.Exec(ctx, `ALTER TABLE users ADD COLUMN IF NOT EXISTS reputation_score INTEGER NOT NULL DEFAULT 0`)
	if err != nil {
		log.Printf("failed to add users.reputation_score: %v", err)
	}
}

func ensureItemsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS items (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            seller_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT,
            category TEXT,
            subcategory TEXT,
            condition TEXT,
            size TEXT,
            notes TEXT,
            price NUMERIC NULL,
            images JSONB DEFAULT '[]'::jsonb,
            status TEXT NOT NULL DEFAULT 'active',
            is_sold BOOLEAN NOT NULL DEFAULT FALSE,
            view_count INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_items_seller ON items(seller_id);
        CREATE INDEX IF NOT EXISTS idx_items_status_created ON items(status, created_at)`)
	if err != nil {
		log.Printf("failed to ensure items table: %v", err)
	}
}

func ensureMeetupsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS meetups (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            item_id UUID NULL REFERENCES items(id) ON DELETE SET NULL,
            seller_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            buyer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT,
            scheduled_date TEXT,
            scheduled_time TEXT,
            location_name TEXT,
            location_lat DOUBLE PRECISION NULL,
            location_lng DOUBLE PRECISION NULL,
            notes TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            cancelled_at TIMESTAMP WITH TIME ZONE NULL,
            cancellation_reason TEXT NULL,
            completed_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_meetups_seller ON meetups(seller_id);
        CREATE INDEX IF NOT EXISTS idx_meetups_buyer ON meetups(buyer_id)`)
	if err != nil {
		log.Printf("failed to ensure meetups table: %v", err)
		return
	}
	// Keep the status constraint aligned with the lifecycle handlers
	_, _ = pool.Exec(ctx, `ALTER TABLE meetups DROP CONSTRAINT IF EXISTS meetups_status_check`)
	_, err = pool.Exec(ctx, `
        ALTER TABLE meetups
        ADD CONSTRAINT meetups_status_check
        CHECK (status IN ('pending', 'confirmed', 'completed', 'cancelled_by_seller', 'cancelled_by_buyer'))`)
	if err != nil {
		log.Printf("failed to update meetups status constraint: %v", err)
	}
}

func ensureReputationHistoryTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS reputation_history (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            meetup_id UUID NULL,
            change_amount INTEGER NOT NULL,
            reason TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_reputation_history_user ON reputation_history(user_id, created_at)`)
	if err != nil {
		log.Printf("failed to ensure reputation_history table: %v", err)
	}
}

func ensureBoardTables(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS requests (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            description TEXT,
            category TEXT,
            subcategory TEXT,
            budget NUMERIC NULL,
            status TEXT NOT NULL DEFAULT 'active',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS request_likes (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (request_id, user_id)
        );
        CREATE TABLE IF NOT EXISTS request_replies (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            request_id UUID NOT NULL REFERENCES requests(id) ON DELETE CASCADE,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            message TEXT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_requests_status_created ON requests(status, created_at);
        CREATE INDEX IF NOT EXISTS idx_request_likes_request ON request_likes(request_id)`)
	if err != nil {
		log.Printf("failed to ensure board tables: %v", err)
	}
}

func ensureOffersTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS offers (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            item_id UUID NOT NULL REFERENCES items(id) ON DELETE CASCADE,
            buyer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            seller_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            offer_amount NUMERIC NOT NULL,
            message TEXT,
            counter_amount NUMERIC NULL,
            counter_message TEXT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_offers_seller ON offers(seller_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_offers_buyer ON offers(buyer_id, created_at)`)
	if err != nil {
		log.Printf("failed to ensure offers table: %v", err)
	}
}

func ensureMessagesTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS messages (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            receiver_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            message TEXT NOT NULL,
            item_id UUID NULL,
            offer_id UUID NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_messages_receiver_unread ON messages(receiver_id) WHERE is_read = FALSE;
        CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id, created_at)`)
	if err != nil {
		log.Printf("failed to ensure messages table: %v", err)
	}
}

func ensureFriendshipsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS friendships (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            friend_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'active')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_friendships_user ON friendships(user_id);
        CREATE INDEX IF NOT EXISTS idx_friendships_friend ON friendships(friend_id)`)
	if err != nil {
		log.Printf("failed to ensure friendships table: %v", err)
	}
}

func ensureNotificationsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            message TEXT NOT NULL,
            related_id UUID NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            read_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE is_read = FALSE`)
	if err != nil {
		log.Printf("failed to ensure notifications table: %v", err)
	}
}

func ensureReferralsTable(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS referrals (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            referrer_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            referred_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (referrer_id, referred_id)
        );
        CREATE INDEX IF NOT EXISTS idx_referrals_referrer ON referrals(referrer_id, created_at)`)
	if err != nil {
		log.Printf("failed to ensure referrals table: %v", err)
	}
}
