package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/casatico/stayfly/internal/apperr"
	"github.com/casatico/stayfly/internal/model"
)

// MemoryStore is an in-process Store implementation backing unit tests
// for internal/rag and internal/retrieval, so neither needs a live
// Postgres instance to exercise its control flow.
type MemoryStore struct {
	mu sync.RWMutex

	tenants       map[uuid.UUID]*model.Tenant
	tenantBySlug  map[string]uuid.UUID
	users         map[uuid.UUID]*model.User
	properties    map[uuid.UUID]*model.Property
	propBySource  map[string]uuid.UUID // tenantID|sourceURL -> propertyID
	documents     map[uuid.UUID]*model.Document
	docByProperty map[uuid.UUID]uuid.UUID
	conversations map[uuid.UUID]*model.Conversation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants:       make(map[uuid.UUID]*model.Tenant),
		tenantBySlug:  make(map[string]uuid.UUID),
		users:         make(map[uuid.UUID]*model.User),
		properties:    make(map[uuid.UUID]*model.Property),
		propBySource:  make(map[string]uuid.UUID),
		documents:     make(map[uuid.UUID]*model.Document),
		docByProperty: make(map[uuid.UUID]uuid.UUID),
		conversations: make(map[uuid.UUID]*model.Conversation),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) CreateTenant(ctx context.Context, t *model.Tenant) error {
	if t.Slug == "" {
		return apperr.New(apperr.KindValidation, "tenant slug must not be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.tenantBySlug[t.Slug]; exists {
		return apperr.Newf(apperr.KindValidation, "tenant slug %q already exists", t.Slug)
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt, t.UpdatedAt = now(), now()
	cp := *t
	m.tenants[t.ID] = &cp
	m.tenantBySlug[t.Slug] = t.ID
	return nil
}

func (m *MemoryStore) GetTenantBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.tenantBySlug[slug]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "no tenant with slug %q", slug)
	}
	cp := *m.tenants[id]
	return &cp, nil
}

func (m *MemoryStore) GetTenantByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "no tenant %s", id)
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "no user %s", id)
	}
	cp := *u
	return &cp, nil
}

// PutUser is a test/seed helper; the HTTP surface never creates users
// directly (spec.md treats auth as out-of-scope).
func (m *MemoryStore) PutUser(u *model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.users[u.ID] = &cp
}

func sourceKey(tenantID uuid.UUID, sourceURL string) string {
	return tenantID.String() + "|" + sourceURL
}

func (m *MemoryStore) UpsertPropertyBySourceURL(ctx context.Context, p *model.Property) (*model.Property, error) {
	if err := p.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid property")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sourceKey(p.TenantID, p.SourceURL)
	if existingID, ok := m.propBySource[key]; ok {
		cp := *p
		cp.ID = existingID
		m.properties[existingID] = &cp
		out := cp
		return &out, nil
	}

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	cp := *p
	m.properties[cp.ID] = &cp
	m.propBySource[key] = cp.ID
	out := cp
	return &out, nil
}

func (m *MemoryStore) GetProperty(ctx context.Context, tenantID, id uuid.UUID) (*model.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	if !ok || p.TenantID != tenantID {
		return nil, apperr.Newf(apperr.KindNotFound, "no property %s", id)
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListProperties(ctx context.Context, tenantID uuid.UUID, filter PropertyFilter) ([]model.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []model.Property
	for _, p := range m.properties {
		if p.TenantID != tenantID {
			continue
		}
		if filter.ContentType != "" && p.ContentType != filter.ContentType {
			continue
		}
		if filter.Location != "" && !matchesLocation(p, filter.Location) {
			continue
		}
		if price, ok := propertyPrice(p); ok {
			if filter.MinPriceUSD != nil && price < *filter.MinPriceUSD {
				continue
			}
			if filter.MaxPriceUSD != nil && price > *filter.MaxPriceUSD {
				continue
			}
		} else if filter.MinPriceUSD != nil || filter.MaxPriceUSD != nil {
			continue
		}
		results = append(results, *p)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].ID.String() < results[j].ID.String() })

	if filter.Offset > 0 && filter.Offset < len(results) {
		results = results[filter.Offset:]
	} else if filter.Offset >= len(results) {
		results = nil
	}
	if filter.Limit > 0 && filter.Limit < len(results) {
		results = results[:filter.Limit]
	}
	return results, nil
}

func matchesLocation(p *model.Property, location string) bool {
	location = strings.ToLower(location)
	if p.RealEstate != nil {
		return strings.Contains(strings.ToLower(p.RealEstate.Address.City), location)
	}
	return strings.Contains(strings.ToLower(p.SourceURL), location)
}

func propertyPrice(p *model.Property) (float64, bool) {
	if p.HasPrice() {
		if p.RealEstate != nil {
			return p.RealEstate.PriceUSD.Value, true
		}
	}
	return 0, false
}

func (m *MemoryStore) PropertyStats(ctx context.Context, tenantID uuid.UUID) (map[model.ContentType]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := make(map[model.ContentType]int)
	for _, p := range m.properties {
		if p.TenantID != tenantID {
			continue
		}
		stats[p.ContentType]++
	}
	return stats, nil
}

func (m *MemoryStore) UpsertDocumentForProperty(ctx context.Context, d *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d.PropertyID != nil {
		if existingID, ok := m.docByProperty[*d.PropertyID]; ok {
			cp := *d
			cp.ID = existingID
			cp.UpdatedAt = now()
			m.documents[existingID] = &cp
			out := cp
			return &out, nil
		}
	}

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt, d.UpdatedAt = now(), now()
	cp := *d
	m.documents[cp.ID] = &cp
	if cp.PropertyID != nil {
		m.docByProperty[*cp.PropertyID] = cp.ID
	}
	out := cp
	return &out, nil
}

func (m *MemoryStore) GetDocument(ctx context.Context, tenantID, id uuid.UUID) (*model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.documents[id]
	if !ok || d.TenantID != tenantID {
		return nil, apperr.Newf(apperr.KindNotFound, "no document %s", id)
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) GetDocuments(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Document
	for _, id := range ids {
		if d, ok := m.documents[id]; ok && d.TenantID == tenantID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *MemoryStore) SetDocumentEmbedding(ctx context.Context, tenantID, id uuid.UUID, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.documents[id]
	if !ok || d.TenantID != tenantID {
		return apperr.Newf(apperr.KindNotFound, "no document %s", id)
	}
	d.Embedding = embedding
	d.UpdatedAt = now()
	return nil
}

func (m *MemoryStore) MarkDocumentsStaleByProperty(ctx context.Context, propertyID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.docByProperty[propertyID]; ok {
		if d, ok := m.documents[id]; ok {
			d.Embedding = nil
		}
	}
	return nil
}

func (m *MemoryStore) VectorSearch(ctx context.Context, tenantID uuid.UUID, queryEmbedding []float32, topK int) ([]VectorCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var candidates []VectorCandidate
	for _, d := range m.documents {
		if d.TenantID != tenantID || !d.IsActive || len(d.Embedding) == 0 {
			continue
		}
		score := 1 - cosineDistance(queryEmbedding, d.Embedding)
		candidates = append(candidates, VectorCandidate{Document: *d, VectorScore: score})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].VectorScore > candidates[j].VectorScore })
	if topK > 0 && topK < len(candidates) {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - cos
}

func (m *MemoryStore) LexicalSearch(ctx context.Context, tenantID uuid.UUID, queryText string, topK int) ([]LexicalCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(queryText))
	var candidates []LexicalCandidate
	for _, d := range m.documents {
		if d.TenantID != tenantID || !d.IsActive {
			continue
		}
		rank := lexicalRank(strings.ToLower(d.Content), terms)
		if rank <= 0 {
			continue
		}
		candidates = append(candidates, LexicalCandidate{Document: *d, RawRank: rank})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].RawRank > candidates[j].RawRank })
	if topK > 0 && topK < len(candidates) {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// lexicalRank is a term-frequency stand-in for Postgres's ts_rank, good
// enough to exercise the retrieval engine's normalization logic in
// tests without a live full-text index.
func lexicalRank(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	var hits float64
	for _, t := range terms {
		hits += float64(strings.Count(content, t))
	}
	return hits
}

func (m *MemoryStore) CreateConversation(ctx context.Context, c *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt, c.UpdatedAt = now(), now()
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *MemoryStore) GetConversation(ctx context.Context, tenantID, id uuid.UUID) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.conversations[id]
	if !ok || c.TenantID != tenantID {
		return nil, apperr.Newf(apperr.KindNotFound, "no conversation %s", id)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) ListConversations(ctx context.Context, tenantID uuid.UUID) ([]model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Conversation
	for _, c := range m.conversations {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, conversationID uuid.UUID, msg model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conversations[conversationID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "no conversation %s", conversationID)
	}
	if msg.Role == model.MessageRoleAssistant {
		c.AddAssistantMessage(msg)
	} else {
		c.AddUserMessage(msg)
	}
	c.UpdatedAt = now()
	return nil
}

var _ Store = (*MemoryStore)(nil)
