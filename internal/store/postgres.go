package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/jsonx"
	"github.com/casatico/stayfly/internal/model"
)

// PostgresStore implements Store against Postgres + pgvector, per
// SPEC_FULL.md §5.8's table layout: properties/documents carry a
// vector(D) column, documents additionally carries a generated
// tsvector column with a GIN index for lexical search, and
// (tenant_id, source_url) is uniquely constrained on properties for
// upsert-by-source-url semantics.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and registers pgvector's Vector
// type on every pooled connection, per pgvector-go's documented
// AfterConnect hook pattern.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgvector.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return apperr.Wrap(apperr.KindTransient, err, "pinging postgres")
	}
	return nil
}

func (s *PostgresStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	if t.Slug == "" {
		return apperr.New(apperr.KindValidation, "tenant slug must not be empty")
	}
	limits, err := jsonx.Marshal(t.PlanLimits)
	if err != nil {
		return fmt.Errorf("marshalling plan limits: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tenants (id, slug, plan_limits, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, now(), now())
		RETURNING id, created_at, updated_at
	`, t.Slug, limits)

	return row.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (s *PostgresStore) GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, slug, plan_limits, created_at, updated_at FROM tenants WHERE slug = $1`, slug)
	return scanTenant(row)
}

func (s *PostgresStore) GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, slug, plan_limits, created_at, updated_at FROM tenants WHERE id = $1`, id)
	return scanTenant(row)
}

func (s *PostgresStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, slug, plan_limits, created_at, updated_at FROM tenants ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var out []model.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTenant(row pgx.Row) (*model.Tenant, error) {
	var t model.Tenant
	var limits []byte
	if err := row.Scan(&t.ID, &t.Slug, &limits, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "tenant not found")
		}
		return nil, fmt.Errorf("scanning tenant: %w", err)
	}
	if len(limits) > 0 {
		if err := jsonx.Unmarshal(limits, &t.PlanLimits); err != nil {
			return nil, fmt.Errorf("unmarshalling plan limits: %w", err)
		}
	}
	return &t, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, tenant_id, role, preferences, created_at FROM users WHERE id = $1`, id)
	var u model.User
	var prefs []byte
	if err := row.Scan(&u.ID, &u.TenantID, &u.Role, &prefs, &u.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if len(prefs) > 0 {
		if err := jsonx.Unmarshal(prefs, &u.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshalling user preferences: %w", err)
		}
	}
	return &u, nil
}

// UpsertPropertyBySourceURL implements the uniqueness-on-(tenant,
// source_url) upsert required by spec.md §4.8, storing the tagged-union
// payload as a single JSONB column (`payload`) keyed by content_type +
// page_type, since Postgres has no native sum-type column.
func (s *PostgresStore) UpsertPropertyBySourceURL(ctx context.Context, p *model.Property) (*model.Property, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid property")
	}

	payload, err := jsonx.Marshal(propertyPayload(p))
	if err != nil {
		return nil, fmt.Errorf("marshalling property payload: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO properties (id, tenant_id, content_type, page_type, source_url, payload, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (tenant_id, source_url) WHERE source_url IS NOT NULL
		DO UPDATE SET content_type = EXCLUDED.content_type, page_type = EXCLUDED.page_type,
			payload = EXCLUDED.payload, updated_at = now()
		RETURNING id, created_at, updated_at
	`, p.TenantID, p.ContentType, p.PageType, p.SourceURL, payload)

	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upserting property: %w", err)
	}
	out := *p
	return &out, nil
}

// propertyPayload isolates the tagged-union variant fields into a plain
// map for JSONB storage without exposing nil pointers for the
// unpopulated variants.
func propertyPayload(p *model.Property) map[string]any {
	payload := map[string]any{}
	switch {
	case p.RealEstate != nil:
		payload["real_estate"] = p.RealEstate
	case p.TourSpecific != nil:
		payload["tour_specific"] = p.TourSpecific
	case p.TourGeneral != nil:
		payload["tour_general"] = p.TourGeneral
	case p.Restaurant != nil:
		payload["restaurant"] = p.Restaurant
	case p.TransportationSpecific != nil:
		payload["transportation_specific"] = p.TransportationSpecific
	case p.TransportationGeneral != nil:
		payload["transportation_general"] = p.TransportationGeneral
	case p.LocalTips != nil:
		payload["local_tips"] = p.LocalTips
	}
	return payload
}

func (s *PostgresStore) GetProperty(ctx context.Context, tenantID, id uuid.UUID) (*model.Property, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, content_type, page_type, source_url, payload
		FROM properties WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanProperty(row)
}

func scanProperty(row pgx.Row) (*model.Property, error) {
	var p model.Property
	var payload []byte
	if err := row.Scan(&p.ID, &p.TenantID, &p.ContentType, &p.PageType, &p.SourceURL, &payload); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "property not found")
		}
		return nil, fmt.Errorf("scanning property: %w", err)
	}
	if err := unmarshalPropertyPayload(&p, payload); err != nil {
		return nil, err
	}
	return &p, nil
}

func unmarshalPropertyPayload(p *model.Property, payload []byte) error {
	var raw map[string]jsonx.RawMessage
	if err := jsonx.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("unmarshalling property payload: %w", err)
	}
	targets := map[string]any{
		"real_estate":             &p.RealEstate,
		"tour_specific":           &p.TourSpecific,
		"tour_general":            &p.TourGeneral,
		"restaurant":              &p.Restaurant,
		"transportation_specific": &p.TransportationSpecific,
		"transportation_general":  &p.TransportationGeneral,
		"local_tips":              &p.LocalTips,
	}
	for key, raw := range raw {
		target, ok := targets[key]
		if !ok {
			continue
		}
		if err := jsonx.Unmarshal(raw, target); err != nil {
			return fmt.Errorf("unmarshalling property.%s: %w", key, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListProperties(ctx context.Context, tenantID uuid.UUID, filter PropertyFilter) ([]model.Property, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, content_type, page_type, source_url, payload
		FROM properties
		WHERE tenant_id = $1
		  AND ($2 = '' OR content_type = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, tenantID, string(filter.ContentType), limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer rows.Close()

	var out []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) PropertyStats(ctx context.Context, tenantID uuid.UUID) (map[model.ContentType]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT content_type, count(*) FROM properties WHERE tenant_id = $1 GROUP BY content_type
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("computing property stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[model.ContentType]int)
	for rows.Next() {
		var ct model.ContentType
		var count int
		if err := rows.Scan(&ct, &count); err != nil {
			return nil, fmt.Errorf("scanning property stats: %w", err)
		}
		stats[ct] = count
	}
	return stats, rows.Err()
}

// UpsertDocumentForProperty keeps exactly one Document per Property
// (spec.md §4.8: "Maintain derived Document per Property").
func (s *PostgresStore) UpsertDocumentForProperty(ctx context.Context, d *model.Document) (*model.Document, error) {
	visibility := make([]string, 0, len(d.Visibility.Roles()))
	for _, r := range d.Visibility.Roles() {
		visibility = append(visibility, string(r))
	}

	var vec any
	if len(d.Embedding) > 0 {
		vec = pgvector.NewVector(d.Embedding)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO documents (id, tenant_id, property_id, content_type, content, visibility,
			freshness_date, is_active, embedding, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		ON CONFLICT (property_id) WHERE property_id IS NOT NULL
		DO UPDATE SET content_type = EXCLUDED.content_type, content = EXCLUDED.content,
			visibility = EXCLUDED.visibility, freshness_date = EXCLUDED.freshness_date,
			is_active = EXCLUDED.is_active,
			embedding = CASE WHEN EXCLUDED.embedding IS NOT NULL THEN EXCLUDED.embedding ELSE documents.embedding END,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`, d.TenantID, d.PropertyID, d.ContentType, d.Content, visibility, d.FreshnessDate, d.IsActive, vec)

	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upserting document: %w", err)
	}
	out := *d
	return &out, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, tenantID, id uuid.UUID) (*model.Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, property_id, content_type, content, visibility, freshness_date,
			is_active, embedding, created_at, updated_at
		FROM documents WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)
	return scanDocument(row)
}

func scanDocument(row pgx.Row) (*model.Document, error) {
	var d model.Document
	var visibility []string
	var vec *pgvector.Vector
	if err := row.Scan(&d.ID, &d.TenantID, &d.PropertyID, &d.ContentType, &d.Content, &visibility,
		&d.FreshnessDate, &d.IsActive, &vec, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "document not found")
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	roles := make([]model.Role, 0, len(visibility))
	for _, r := range visibility {
		roles = append(roles, model.Role(r))
	}
	d.Visibility = model.NewVisibilitySet(roles...)
	if vec != nil {
		d.Embedding = vec.Slice()
	}
	return &d, nil
}

func (s *PostgresStore) GetDocuments(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, property_id, content_type, content, visibility, freshness_date,
			is_active, embedding, created_at, updated_at
		FROM documents WHERE tenant_id = $1 AND id = ANY($2)
	`, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching documents: %w", err)
	}
	defer rows.Close()

	var out []model.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SetDocumentEmbedding(ctx context.Context, tenantID, id uuid.UUID, embedding []float32) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET embedding = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3
	`, pgvector.NewVector(embedding), tenantID, id)
	if err != nil {
		return fmt.Errorf("setting document embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.New(apperr.KindNotFound, "document not found")
	}
	return nil
}

func (s *PostgresStore) MarkDocumentsStaleByProperty(ctx context.Context, propertyID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents SET embedding = NULL, updated_at = now() WHERE property_id = $1
	`, propertyID)
	if err != nil {
		return fmt.Errorf("marking document stale: %w", err)
	}
	return nil
}

// VectorSearch implements the vector-candidates half of spec.md §4.9's
// hybrid algorithm via pgvector's `<=>` cosine-distance operator.
func (s *PostgresStore) VectorSearch(ctx context.Context, tenantID uuid.UUID, queryEmbedding []float32, topK int) ([]VectorCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, property_id, content_type, content, visibility, freshness_date,
			is_active, embedding, created_at, updated_at,
			1 - (embedding <=> $2) AS vector_score
		FROM documents
		WHERE tenant_id = $1 AND is_active AND embedding IS NOT NULL
		ORDER BY embedding <=> $2
		LIMIT $3
	`, tenantID, pgvector.NewVector(queryEmbedding), topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var out []VectorCandidate
	for rows.Next() {
		var d model.Document
		var visibility []string
		var vec *pgvector.Vector
		var score float64
		if err := rows.Scan(&d.ID, &d.TenantID, &d.PropertyID, &d.ContentType, &d.Content, &visibility,
			&d.FreshnessDate, &d.IsActive, &vec, &d.CreatedAt, &d.UpdatedAt, &score); err != nil {
			return nil, fmt.Errorf("scanning vector search row: %w", err)
		}
		roles := make([]model.Role, 0, len(visibility))
		for _, r := range visibility {
			roles = append(roles, model.Role(r))
		}
		d.Visibility = model.NewVisibilitySet(roles...)
		if vec != nil {
			d.Embedding = vec.Slice()
		}
		out = append(out, VectorCandidate{Document: d, VectorScore: score})
	}
	return out, rows.Err()
}

// LexicalSearch implements the lexical-candidates half of spec.md
// §4.9's hybrid algorithm via Postgres full-text ranking against the
// `content_tsv` generated column (see schema.sql).
func (s *PostgresStore) LexicalSearch(ctx context.Context, tenantID uuid.UUID, queryText string, topK int) ([]LexicalCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, property_id, content_type, content, visibility, freshness_date,
			is_active, embedding, created_at, updated_at,
			ts_rank(content_tsv, plainto_tsquery('english', $2)) AS raw_rank
		FROM documents
		WHERE tenant_id = $1 AND is_active AND content_tsv @@ plainto_tsquery('english', $2)
		ORDER BY raw_rank DESC
		LIMIT $3
	`, tenantID, queryText, topK)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var out []LexicalCandidate
	for rows.Next() {
		var d model.Document
		var visibility []string
		var vec *pgvector.Vector
		var rank float64
		if err := rows.Scan(&d.ID, &d.TenantID, &d.PropertyID, &d.ContentType, &d.Content, &visibility,
			&d.FreshnessDate, &d.IsActive, &vec, &d.CreatedAt, &d.UpdatedAt, &rank); err != nil {
			return nil, fmt.Errorf("scanning lexical search row: %w", err)
		}
		roles := make([]model.Role, 0, len(visibility))
		for _, r := range visibility {
			roles = append(roles, model.Role(r))
		}
		d.Visibility = model.NewVisibilitySet(roles...)
		if vec != nil {
			d.Embedding = vec.Slice()
		}
		out = append(out, LexicalCandidate{Document: d, RawRank: rank})
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, tenant_id, user_id, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, now(), now())
		RETURNING id, created_at, updated_at
	`, c.TenantID, c.UserID)
	return row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (s *PostgresStore) GetConversation(ctx context.Context, tenantID, id uuid.UUID) (*model.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, tenant_id, user_id, total_input_tokens, total_output_tokens, total_cost_usd, created_at, updated_at
		FROM conversations WHERE tenant_id = $1 AND id = $2
	`, tenantID, id)

	var c model.Conversation
	if err := row.Scan(&c.ID, &c.TenantID, &c.UserID, &c.Totals.InputTokens, &c.Totals.OutputTokens,
		&c.Totals.CostUSD, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperr.New(apperr.KindNotFound, "conversation not found")
		}
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	msgRows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, role, content, model_id, input_tokens, output_tokens, cost_usd, sources, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var m model.Message
		var sources []byte
		if err := msgRows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ModelID, &m.InputTokens,
			&m.OutputTokens, &m.CostUSD, &sources, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if len(sources) > 0 {
			if err := jsonx.Unmarshal(sources, &m.Sources); err != nil {
				return nil, fmt.Errorf("unmarshalling message sources: %w", err)
			}
		}
		c.Messages = append(c.Messages, m)
	}
	return &c, msgRows.Err()
}

func (s *PostgresStore) ListConversations(ctx context.Context, tenantID uuid.UUID) ([]model.Conversation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, user_id, total_input_tokens, total_output_tokens, total_cost_usd, created_at, updated_at
		FROM conversations WHERE tenant_id = $1 ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	var out []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.TenantID, &c.UserID, &c.Totals.InputTokens, &c.Totals.OutputTokens,
			&c.Totals.CostUSD, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// AppendMessage persists a Message and, for assistant messages,
// atomically increments the Conversation's aggregates in the same
// statement set (spec.md §4.12: "atomic increment of Conversation
// aggregates... when an assistant Message is persisted").
func (s *PostgresStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, msg model.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	sources, err := jsonx.Marshal(msg.Sources)
	if err != nil {
		return fmt.Errorf("marshalling message sources: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, model_id, input_tokens, output_tokens, cost_usd, sources, created_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, now())
	`, conversationID, msg.Role, msg.Content, msg.ModelID, msg.InputTokens, msg.OutputTokens, msg.CostUSD, sources); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	if msg.Role == model.MessageRoleAssistant {
		if _, err := tx.Exec(ctx, `
			UPDATE conversations
			SET total_input_tokens = total_input_tokens + $1,
				total_output_tokens = total_output_tokens + $2,
				total_cost_usd = total_cost_usd + $3,
				updated_at = now()
			WHERE id = $4
		`, msg.InputTokens, msg.OutputTokens, msg.CostUSD, conversationID); err != nil {
			return fmt.Errorf("updating conversation aggregates: %w", err)
		}
	}

	return tx.Commit(ctx)
}

var _ Store = (*PostgresStore)(nil)
