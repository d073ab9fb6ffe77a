package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/supportchat-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteStore)(nil)

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, Migrate)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Tests pass Migrate (or a custom schema) against ":memory:".
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps ":memory:"
	// databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}

// ==== UserStore implementation ====

// CreateUser inserts a new user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (id, email, name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, user.ID, user.Email, user.Name, user.Role, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *SQLiteStore) getUser(ctx context.Context, column, value string) (*store.User, error) {
	query := `
		SELECT id, email, name, role, password_hash, created_at
		FROM users
		WHERE ` + column + ` = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return &user, nil
}

// ==== CustomerStore implementation ====

// CreateCustomer inserts a new customer.
func (s *SQLiteStore) CreateCustomer(ctx context.Context, customer *store.Customer) error {
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO customers (id, name, email, created_at) VALUES (?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query, customer.ID, customer.Name, customer.Email, customer.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert customer: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID.
func (s *SQLiteStore) GetCustomer(ctx context.Context, id string) (*store.Customer, error) {
	query := `SELECT id, name, email, created_at FROM customers WHERE id = ?`
	var c store.Customer
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		return nil, notFound(err, "customer")
	}
	return &c, nil
}

// ListCustomers returns all customers ordered by name.
func (s *SQLiteStore) ListCustomers(ctx context.Context) ([]*store.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, created_at FROM customers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	var customers []*store.Customer
	for rows.Next() {
		var c store.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, &c)
	}
	return customers, rows.Err()
}

// ==== ConversationStore implementation ====

const conversationColumns = `
	c.id, c.customer_id, cu.name, cu.email, c.agent_id, u.name,
	c.status, c.sentiment, c.created_at, c.updated_at, c.resolved_at
`

const conversationFrom = `
	FROM conversations c
	JOIN customers cu ON cu.id = c.customer_id
	LEFT JOIN users u ON u.id = c.agent_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (*store.Conversation, error) {
	var conv store.Conversation
	var agentID, agentName sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(
		&conv.ID,
		&conv.CustomerID,
		&conv.CustomerName,
		&conv.CustomerEmail,
		&agentID,
		&agentName,
		&conv.Status,
		&conv.Sentiment,
		&conv.CreatedAt,
		&conv.UpdatedAt,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if agentID.Valid {
		conv.AgentID = &agentID.String
	}
	if agentName.Valid {
		conv.AgentName = &agentName.String
	}
	if resolvedAt.Valid {
		conv.ResolvedAt = &resolvedAt.Time
	}
	return &conv, nil
}

// CreateConversation inserts a conversation. The customer must exist.
func (s *SQLiteStore) CreateConversation(ctx context.Context, conv *store.Conversation) error {
	if _, err := s.GetCustomer(ctx, conv.CustomerID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	if conv.UpdatedAt.IsZero() {
		conv.UpdatedAt = conv.CreatedAt
	}
	if conv.Status == "" {
		conv.Status = store.StatusActive
	}
	if conv.Sentiment == "" {
		conv.Sentiment = store.SentimentNeutral
	}

	query := `
		INSERT INTO conversations (id, customer_id, agent_id, status, sentiment, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, conv.ID, conv.CustomerID, conv.AgentID, conv.Status, conv.Sentiment, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert conversation: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// GetConversation retrieves a conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	query := `SELECT ` + conversationColumns + conversationFrom + ` WHERE c.id = ?`
	conv, err := scanConversation(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "conversation")
	}
	return conv, nil
}

// ListConversations returns all conversations, most recently updated first.
func (s *SQLiteStore) ListConversations(ctx context.Context) ([]*store.Conversation, error) {
	query := `SELECT ` + conversationColumns + conversationFrom + ` ORDER BY c.updated_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*store.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

// UpdateConversationStatus changes a conversation's status.
func (s *SQLiteStore) UpdateConversationStatus(ctx context.Context, id string, status store.ConversationStatus) (*store.Conversation, error) {
	now := time.Now().UTC()
	var resolvedAt *time.Time
	if status == store.StatusResolved {
		resolvedAt = &now
	}

	query := `UPDATE conversations SET status = ?, resolved_at = ?, updated_at = ? WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, status, resolvedAt, now, id)
	if err != nil {
		return nil, fmt.Errorf("update conversation status: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("conversation: %w", store.ErrNotFound)
	}
	return s.GetConversation(ctx, id)
}

// TouchConversation bumps a conversation's updated_at.
func (s *SQLiteStore) TouchConversation(ctx context.Context, id string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, at, id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// ConversationStats counts conversations by status and sentiment.
func (s *SQLiteStore) ConversationStats(ctx context.Context) (*store.ConversationStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, sentiment, COUNT(*) FROM conversations GROUP BY status, sentiment`)
	if err != nil {
		return nil, fmt.Errorf("query conversation stats: %w", err)
	}
	defer rows.Close()

	stats := &store.ConversationStats{
		ByStatus:    make(map[store.ConversationStatus]int),
		BySentiment: make(map[store.Sentiment]int),
	}
	for rows.Next() {
		var status store.ConversationStatus
		var sentiment store.Sentiment
		var count int
		if err := rows.Scan(&status, &sentiment, &count); err != nil {
			return nil, fmt.Errorf("scan conversation stats: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.BySentiment[sentiment] += count
	}
	return stats, rows.Err()
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	query := `
		INSERT INTO messages (id, conversation_id, content, sender, agent_id, ai_suggestion, ai_confidence, edited, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		msg.ID, msg.ConversationID, msg.Content, msg.Sender, msg.AgentID,
		msg.AISuggestion, msg.AIConfidence, msg.Edited, msg.Timestamp,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert message: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns a conversation's messages in chronological order.
func (s *SQLiteStore) ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error) {
	query := `
		SELECT id, conversation_id, content, sender, agent_id, ai_suggestion, ai_confidence, edited, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp ASC
	`
	return s.queryMessages(ctx, query, conversationID)
}

// RecentMessages returns up to limit latest messages, oldest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]*store.Message, error) {
	query := `
		SELECT id, conversation_id, content, sender, agent_id, ai_suggestion, ai_confidence, edited, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`
	messages, err := s.queryMessages(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i := 0; i < len(messages)/2; i++ {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}
	return messages, nil
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var agentID, suggestion sql.NullString
		var confidence sql.NullFloat64
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Content,
			&msg.Sender,
			&agentID,
			&suggestion,
			&confidence,
			&msg.Edited,
			&msg.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if agentID.Valid {
			msg.AgentID = &agentID.String
		}
		if suggestion.Valid {
			msg.AISuggestion = &suggestion.String
		}
		if confidence.Valid {
			msg.AIConfidence = &confidence.Float64
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}

// ==== FAQStore implementation ====

// CreateFAQ inserts a knowledge-base entry.
func (s *SQLiteStore) CreateFAQ(ctx context.Context, faq *store.FAQ) error {
	now := time.Now().UTC()
	if faq.CreatedAt.IsZero() {
		faq.CreatedAt = now
	}
	faq.UpdatedAt = faq.CreatedAt

	tags, err := encodeTags(faq.Tags)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO faqs (id, question, answer, category, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, faq.ID, faq.Question, faq.Answer, faq.Category, tags, faq.CreatedAt, faq.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert faq: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert faq: %w", err)
	}
	return nil
}

// UpdateFAQ overwrites question, answer, category and tags.
func (s *SQLiteStore) UpdateFAQ(ctx context.Context, faq *store.FAQ) error {
	faq.UpdatedAt = time.Now().UTC()

	tags, err := encodeTags(faq.Tags)
	if err != nil {
		return err
	}

	query := `
		UPDATE faqs SET question = ?, answer = ?, category = ?, tags = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query, faq.Question, faq.Answer, faq.Category, tags, faq.UpdatedAt, faq.ID)
	if err != nil {
		return fmt.Errorf("update faq: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("faq: %w", store.ErrNotFound)
	}
	return nil
}

// DeleteFAQ removes a knowledge-base entry.
func (s *SQLiteStore) DeleteFAQ(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM faqs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("faq: %w", store.ErrNotFound)
	}
	return nil
}

// GetFAQ retrieves a knowledge-base entry by ID.
func (s *SQLiteStore) GetFAQ(ctx context.Context, id string) (*store.FAQ, error) {
	query := `SELECT id, question, answer, category, tags, created_at, updated_at FROM faqs WHERE id = ?`
	faq, err := scanFAQ(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "faq")
	}
	return faq, nil
}

// ListFAQs returns all entries grouped by category.
func (s *SQLiteStore) ListFAQs(ctx context.Context) ([]*store.FAQ, error) {
	query := `SELECT id, question, answer, category, tags, created_at, updated_at FROM faqs ORDER BY category, question`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query faqs: %w", err)
	}
	defer rows.Close()

	var faqs []*store.FAQ
	for rows.Next() {
		faq, err := scanFAQ(rows)
		if err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		faqs = append(faqs, faq)
	}
	return faqs, rows.Err()
}

func scanFAQ(row rowScanner) (*store.FAQ, error) {
	var faq store.FAQ
	var tags string
	if err := row.Scan(&faq.ID, &faq.Question, &faq.Answer, &faq.Category, &tags, &faq.CreatedAt, &faq.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(tags), &faq.Tags); err != nil {
		return nil, fmt.Errorf("decode faq tags: %w", err)
	}
	return &faq, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode faq tags: %w", err)
	}
	return string(data), nil
}
