package testutil

import (
	"apaeventus/src/services"
	"apaeventus/src/types"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// ValidSignature is the only signature FakeGateway accepts.
const ValidSignature = "t=1,v1=valid"

type FakeGateway struct {
	mu       sync.Mutex
	sessions map[string]*types.GatewaySession
	seq      int

	CreateErr   error
	RetrieveErr error
	PriceErr    error
	Expired     []string
	Prices      []types.CreatePriceParams
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{sessions: map[string]*types.GatewaySession{}}
}

func (g *FakeGateway) CreateCheckoutSession(ctx context.Context, params types.CheckoutSessionParams) (*types.GatewaySession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.seq++
	id := fmt.Sprintf("cs_test_%d", g.seq)
	session := &types.GatewaySession{
		ID:            id,
		URL:           "https://checkout.stripe.test/" + id,
		PaymentStatus: "unpaid",
		Status:        "open",
		AmountTotal:   params.UnitAmount * int64(params.Quantity),
		Currency:      params.Currency,
		Metadata: map[string]string{
			"ticketId": strconv.FormatUint(uint64(params.TicketID), 10),
			"userId":   strconv.FormatUint(uint64(params.UserID), 10),
			"quantity": strconv.Itoa(params.Quantity),
		},
	}
	g.sessions[id] = session
	cp := *session
	return &cp, nil
}

// PutSession registers or replaces a session as the gateway would report it.
func (g *FakeGateway) PutSession(session types.GatewaySession) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[session.ID] = &session
}

// MarkPaid flips a created session to paid.
func (g *FakeGateway) MarkPaid(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.sessions[id]; ok {
		s.PaymentStatus = "paid"
		s.Status = "complete"
	}
}

func (g *FakeGateway) RetrieveSession(ctx context.Context, id string) (*types.GatewaySession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RetrieveErr != nil {
		return nil, g.RetrieveErr
	}
	s, ok := g.sessions[id]
	if !ok {
		return nil, fmt.Errorf("no such checkout session: %s", id)
	}
	cp := *s
	return &cp, nil
}

func (g *FakeGateway) ExpireSession(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Expired = append(g.Expired, id)
	return nil
}

func (g *FakeGateway) CreatePrice(ctx context.Context, params types.CreatePriceParams) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.PriceErr != nil {
		return "", g.PriceErr
	}
	g.Prices = append(g.Prices, params)
	return fmt.Sprintf("price_test_%d", len(g.Prices)), nil
}

func (g *FakeGateway) ConstructEvent(payload []byte, signature string) (*types.GatewayEvent, error) {
	if signature != ValidSignature {
		return nil, errors.New("webhook has no valid signature")
	}
	if !gjson.ValidBytes(payload) {
		return nil, errors.New("invalid payload")
	}
	res := gjson.GetManyBytes(payload, "id", "type", "data.object.id", "created")
	return &types.GatewayEvent{
		ID:       res[0].String(),
		Type:     res[1].String(),
		ObjectID: res[2].String(),
		Created:  time.Unix(res[3].Int(), 0),
	}, nil
}

// EventPayload builds a minimal Stripe event body.
func EventPayload(eventID string, eventType string, objectID string) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":%q,"created":1700000000,"data":{"object":{"id":%q}}}`, eventID, eventType, objectID))
}

type FakeStorage struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Uploads int
	// FailSuffix makes uploads whose key ends with it fail.
	FailSuffix string
}

func NewFakeStorage() *FakeStorage {
	return &FakeStorage{Objects: map[string][]byte{}}
}

func (s *FakeStorage) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSuffix != "" && strings.HasSuffix(key, s.FailSuffix) {
		return "", ErrInjected
	}
	s.Uploads++
	s.Objects[key] = body
	return "https://bucket.test/" + key, nil
}

type FakeMailer struct {
	mu   sync.Mutex
	Sent []types.EmailMessage
	Err  error
}

func (m *FakeMailer) Send(ctx context.Context, msg types.EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

func (m *FakeMailer) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

type FakePublisher struct {
	mu       sync.Mutex
	Messages []types.SaleFulfilledMessage
}

func (p *FakePublisher) PublishSaleFulfilled(ctx context.Context, msg types.SaleFulfilledMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, msg)
	return nil
}

// FakeDeduplicator mirrors the Redis event guard in memory.
type FakeDeduplicator struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *FakeDeduplicator) Acquire(ctx context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	if d.seen[eventID] {
		return false, nil
	}
	d.seen[eventID] = true
	return true, nil
}

func (d *FakeDeduplicator) Release(ctx context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, eventID)
	return nil
}

// FakeRenderer produces readable placeholder bytes instead of images.
type FakeRenderer struct {
	mu        sync.Mutex
	Documents [][]string
}

func (r *FakeRenderer) QRCode(content string) ([]byte, error) {
	return []byte("qr:" + content), nil
}

func (r *FakeRenderer) RenderTicket(page types.TicketPage) ([]byte, error) {
	return []byte("pdf:" + page.SaleID), nil
}

func (r *FakeRenderer) NewDocument() services.TicketDocument {
	return &fakeDocument{renderer: r}
}

type fakeDocument struct {
	renderer *FakeRenderer
	pages    []string
}

func (d *fakeDocument) AddPage(page types.TicketPage) error {
	d.pages = append(d.pages, page.SaleID)
	return nil
}

func (d *fakeDocument) Bytes() ([]byte, error) {
	d.renderer.mu.Lock()
	d.renderer.Documents = append(d.renderer.Documents, d.pages)
	d.renderer.mu.Unlock()
	var buf bytes.Buffer
	for _, p := range d.pages {
		buf.WriteString("pdf:" + p + "\n")
	}
	return buf.Bytes(), nil
}
