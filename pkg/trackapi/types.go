package trackapi

import "context"

// Endpoint paths relative to the API host.
const (
	PathClick      = "/track/click"
	PathVisit      = "/track/visit"
	PathLead       = "/track/lead"
	PathSale       = "/track/sale"
	PathLeadClient = "/track/lead/client"
	PathSaleClient = "/track/sale/client"
)

type ClickRequest struct {
	Domain   string `json:"domain"`
	Key      string `json:"key"`
	URL      string `json:"url"`
	Referrer string `json:"referrer"`
}

type Partner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image,omitempty"`
}

type Discount struct {
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	MaxDuration *int    `json:"maxDuration"`
}

type ClickResponse struct {
	ClickID  string    `json:"clickId"`
	Partner  *Partner  `json:"partner,omitempty"`
	Discount *Discount `json:"discount,omitempty"`
}

type VisitRequest struct {
	Domain   string `json:"domain"`
	URL      string `json:"url"`
	Referrer string `json:"referrer"`
}

type VisitResponse struct {
	ClickID string `json:"clickId"`
}

// Event holds lead or sale properties. The API defines the schema; the client
// passes it through.
type Event map[string]any

// Visitor identifies the browser a server-side call is made for.
type Visitor struct {
	IP        string
	UserAgent string
}

type visitorKey struct{}

// WithVisitor attaches v to ctx. Calls made with ctx forward it to the API.
func WithVisitor(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, visitorKey{}, v)
}

// VisitorFromContext returns the visitor attached to ctx.
func VisitorFromContext(ctx context.Context) (Visitor, bool) {
	v, ok := ctx.Value(visitorKey{}).(Visitor)
	return v, ok
}
