package billing

import (
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"

	"github.com/fitcoach/fitcoach/internal/pkg/mail"
)

// classifyChange compares the stored and the new major-unit amounts.
func classifyChange(previous, next float64) mail.ChangeKind {
	switch {
	case next > previous:
		return mail.ChangeUpgrade
	case next < previous:
		return mail.ChangeDowngrade
	default:
		return mail.ChangeModification
	}
}

func centsToMajor(amount int64) float64 {
	return float64(amount) / 100
}

func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func planMetadata(key, name, priceID string) map[string]string {
	return map[string]string{
		MetaPlanType: key,
		MetaPlanName: name,
		MetaPriceID:  priceID,
	}
}

// firstMeta returns the first non-empty value for key across metadata maps.
func firstMeta(key string, sources ...map[string]string) string {
	for _, m := range sources {
		if v := strings.TrimSpace(m[key]); v != "" {
			return v
		}
	}
	return ""
}

func firstInvoiceLine(inv *stripe.Invoice) *stripe.InvoiceLineItem {
	if inv.Lines == nil || len(inv.Lines.Data) == 0 {
		return nil
	}
	return inv.Lines.Data[0]
}

func firstSubscriptionItem(sub *stripe.Subscription) *stripe.SubscriptionItem {
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil
	}
	return sub.Items.Data[0]
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func priceRefs(p *stripe.Price) (priceID, productID string) {
	if p == nil {
		return "", ""
	}
	if p.Product != nil {
		productID = p.Product.ID
	}
	return p.ID, productID
}
