package lib

import (
	"apaeventus/src/types"
	"context"
	"os"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"github.com/tidwall/gjson"
)

var stripeClient *stripe.Client

func GetStripeClient() *stripe.Client {
	if stripeClient != nil {
		return stripeClient
	}
	apiKey := os.Getenv("STRIPE_SECRET_KEY")
	sc := stripe.NewClient(apiKey)
	stripeClient = sc

	return sc
}

func NewStripeClient(c *stripe.Client) {
	stripeClient = c
}

// StripeGateway adapts the Stripe client to the payment gateway the sale
// services talk to.
type StripeGateway struct {
	client        *stripe.Client
	webhookSecret string
}

func NewStripeGateway(client *stripe.Client, webhookSecret string) *StripeGateway {
	return &StripeGateway{client: client, webhookSecret: webhookSecret}
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params types.CheckoutSessionParams) (*types.GatewaySession, error) {
	productData := &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
		Name: stripe.String(params.Title),
	}
	if params.Description != "" {
		productData.Description = stripe.String(params.Description)
	}
	if params.ImageURL != nil {
		productData.Images = []*string{params.ImageURL}
	}
	metadata := map[string]string{
		"ticketId": strconv.FormatUint(uint64(params.TicketID), 10),
		"userId":   strconv.FormatUint(uint64(params.UserID), 10),
		"quantity": strconv.Itoa(params.Quantity),
	}
	createParams := &stripe.CheckoutSessionCreateParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:    stripe.String(params.Currency),
					ProductData: productData,
					UnitAmount:  stripe.Int64(params.UnitAmount),
				},
				Quantity: stripe.Int64(int64(params.Quantity)),
			},
		},
		Metadata: metadata,
	}
	if params.Email != "" {
		createParams.CustomerEmail = stripe.String(params.Email)
	}
	cs, err := g.client.V1CheckoutSessions.Create(ctx, createParams)
	if err != nil {
		return nil, err
	}
	return toGatewaySession(cs), nil
}

func (g *StripeGateway) RetrieveSession(ctx context.Context, id string) (*types.GatewaySession, error) {
	cs, err := g.client.V1CheckoutSessions.Retrieve(ctx, id, &stripe.CheckoutSessionRetrieveParams{})
	if err != nil {
		return nil, err
	}
	return toGatewaySession(cs), nil
}

func (g *StripeGateway) ExpireSession(ctx context.Context, id string) error {
	_, err := g.client.V1CheckoutSessions.Expire(ctx, id, &stripe.CheckoutSessionExpireParams{})
	return err
}

// CreatePrice registers a product and its price, returning the price id.
func (g *StripeGateway) CreatePrice(ctx context.Context, params types.CreatePriceParams) (string, error) {
	productParams := &stripe.ProductCreateParams{
		Name: stripe.String(params.Name),
	}
	if params.Description != "" {
		productParams.Description = stripe.String(params.Description)
	}
	if params.ImageURL != nil {
		productParams.Images = []*string{params.ImageURL}
	}
	product, err := g.client.V1Products.Create(ctx, productParams)
	if err != nil {
		return "", err
	}
	price, err := g.client.V1Prices.Create(ctx, &stripe.PriceCreateParams{
		Product:    stripe.String(product.ID),
		Currency:   stripe.String(params.Currency),
		UnitAmount: stripe.Int64(params.UnitAmount),
	})
	if err != nil {
		return "", err
	}
	return price.ID, nil
}

func (g *StripeGateway) ConstructEvent(payload []byte, signature string) (*types.GatewayEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, err
	}
	return &types.GatewayEvent{
		ID:       event.ID,
		Type:     string(event.Type),
		ObjectID: gjson.GetBytes(event.Data.Raw, "id").String(),
		Created:  time.Unix(event.Created, 0).UTC(),
	}, nil
}

func toGatewaySession(cs *stripe.CheckoutSession) *types.GatewaySession {
	return &types.GatewaySession{
		ID:            cs.ID,
		URL:           cs.URL,
		PaymentStatus: string(cs.PaymentStatus),
		Status:        string(cs.Status),
		AmountTotal:   cs.AmountTotal,
		Currency:      string(cs.Currency),
		Metadata:      cs.Metadata,
	}
}
