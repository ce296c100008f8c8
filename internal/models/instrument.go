package models

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InstrumentAttrs is what an adapter extracts from a vendor card payload.
// Number may be a full, masked or last-four number; only the masked form is
// kept.
type InstrumentAttrs struct {
	ID              string
	Number          string
	ExpirationMonth int
	ExpirationYear  int
	CVV             string
	CardType        string
	HolderName      string
	Valid           Flag
	Expired         Flag
	Raw             any
}

// Instrument is a stored card as reported by a gateway.
type Instrument struct {
	provider        Provider
	id              string
	number          string
	expirationMonth int
	expirationYear  int
	cvv             string
	cardType        string
	holderName      string
	valid           Flag
	expired         Flag
	raw             any
}

// NewInstrument is used by adapters to build an instrument bound to p.
func NewInstrument(p Provider, a InstrumentAttrs) *Instrument {
	return &Instrument{
		provider:        p,
		id:              a.ID,
		number:          MaskNumber(a.Number, a.CardType),
		expirationMonth: a.ExpirationMonth,
		expirationYear:  a.ExpirationYear,
		cvv:             a.CVV,
		cardType:        a.CardType,
		holderName:      a.HolderName,
		valid:           a.Valid,
		expired:         a.Expired,
		raw:             a.Raw,
	}
}

// ID is the vault token of the card.
func (i *Instrument) ID() string { return i.id }

// Provider is the gateway the card is stored with.
func (i *Instrument) Provider() Provider { return i.provider }

// Number is the masked card number.
func (i *Instrument) Number() string { return i.number }

// ExpirationMonth is 1 to 12, or 0 when unknown.
func (i *Instrument) ExpirationMonth() int { return i.expirationMonth }

// ExpirationYear is the four digit expiry year, or 0 when unknown.
func (i *Instrument) ExpirationYear() int { return i.expirationYear }

// CVV is the verification code, when the gateway returns one.
func (i *Instrument) CVV() string { return i.cvv }

// CardType is the brand as reported by the gateway.
func (i *Instrument) CardType() string { return i.cardType }

// HolderName is the cardholder name.
func (i *Instrument) HolderName() string { return i.holderName }

// Raw is the vendor record the card was built from.
func (i *Instrument) Raw() any { return i.raw }

// InstrumentRefID makes an Instrument usable as an InstrumentRef.
func (i *Instrument) InstrumentRefID() string {
	if i == nil {
		return ""
	}
	return i.id
}

// Valid reports the gateway's verdict on the card. It returns a
// MissingFieldError when the gateway did not say.
func (i *Instrument) Valid() (bool, error) {
	if !i.valid.Known() {
		return false, &MissingFieldError{Field: "valid", Record: "instrument"}
	}
	return i.valid.Bool(), nil
}

// Expired reports whether the card is past its expiry date, with the same
// MissingFieldError as Valid when unknown.
func (i *Instrument) Expired() (bool, error) {
	if !i.expired.Known() {
		return false, &MissingFieldError{Field: "expired", Record: "instrument"}
	}
	return i.expired.Bool(), nil
}

// Usable reports whether the card is valid and not expired.
func (i *Instrument) Usable() (bool, error) {
	valid, err := i.Valid()
	if err != nil {
		return false, err
	}
	expired, err := i.Expired()
	if err != nil {
		return false, err
	}
	return valid && !expired, nil
}

// CanAuthorize reports whether the gateway authorizes and the card is usable.
func (i *Instrument) CanAuthorize(ctx context.Context) (bool, error) {
	return i.can(ctx, FeatureAuthorize)
}

// CanPurchase reports whether the gateway purchases and the card is usable.
func (i *Instrument) CanPurchase(ctx context.Context) (bool, error) {
	return i.can(ctx, FeaturePurchase)
}

// CanCredit reports whether the gateway credits and the card is usable.
func (i *Instrument) CanCredit(ctx context.Context) (bool, error) {
	return i.can(ctx, FeatureCredit)
}

// CanDelete reports whether the gateway can remove the card from its vault.
func (i *Instrument) CanDelete(ctx context.Context) (bool, error) {
	return i.provider.Supports(ctx, FeatureDelete)
}

func (i *Instrument) can(ctx context.Context, f Feature) (bool, error) {
	ok, err := i.provider.Supports(ctx, f)
	if err != nil || !ok {
		return false, err
	}
	return i.Usable()
}

// Authorize reserves amount on the card.
func (i *Instrument) Authorize(ctx context.Context, amount decimal.Decimal) (*Result, error) {
	if err := i.guard(ctx, FeatureAuthorize); err != nil {
		return nil, err
	}
	return i.provider.AuthorizeViaInstrument(ctx, i, amount)
}

// Purchase authorizes and settles amount in one step.
func (i *Instrument) Purchase(ctx context.Context, amount decimal.Decimal) (*Result, error) {
	if err := i.guard(ctx, FeaturePurchase); err != nil {
		return nil, err
	}
	return i.provider.PurchaseViaInstrument(ctx, i, amount)
}

// Credit pays amount to the card without a prior purchase.
func (i *Instrument) Credit(ctx context.Context, amount decimal.Decimal) (*Result, error) {
	if err := i.guard(ctx, FeatureCredit); err != nil {
		return nil, err
	}
	return i.provider.CreditViaInstrument(ctx, i, amount)
}

// Delete removes the card from the gateway vault.
func (i *Instrument) Delete(ctx context.Context) (*Result, error) {
	return i.provider.DeleteInstrument(ctx, i)
}

// Retain keeps the card in vaults that expire unused cards.
func (i *Instrument) Retain(ctx context.Context) (*Result, error) {
	return i.provider.RetainInstrument(ctx, i)
}

// guard rejects unusable cards for supported features. Unsupported features
// are left to the provider so it reports ErrNotSupported itself.
func (i *Instrument) guard(ctx context.Context, f Feature) error {
	ok, err := i.provider.Supports(ctx, f)
	if err != nil || !ok {
		return err
	}
	valid, err := i.Valid()
	if err != nil {
		return err
	}
	expired, err := i.Expired()
	if err != nil {
		return err
	}
	if !valid || expired {
		return &InvalidCardError{ID: i.id, Action: f, Expired: expired}
	}
	return nil
}

// MaskNumber renders the last four digits of number in the display form
// XXXX-XXXX-XXXX-1234, or XXXX-XXXXXX-12345 style grouping for fifteen digit
// and American Express cards. number may already be masked.
func MaskNumber(number, cardType string) string {
	var digits []byte
	length := 0
	for i := 0; i < len(number); i++ {
		c := number[i]
		switch {
		case c >= '0' && c <= '9':
			digits = append(digits, c)
			length++
		case c == '*' || c == 'X' || c == 'x':
			length++
		}
	}
	if len(digits) == 0 {
		return ""
	}
	last4 := string(digits)
	if len(last4) > 4 {
		last4 = last4[len(last4)-4:]
	}
	if length == 15 || isAmex(cardType) {
		return "XXXX-XXXXXX-" + last4
	}
	return "XXXX-XXXX-XXXX-" + last4
}

func isAmex(cardType string) bool {
	t := strings.ToLower(cardType)
	t = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(t)
	return t == "amex" || t == "americanexpress"
}

// CardExpired reports whether a card expiring at month/year has lapsed at
// now. A card is valid through the end of its expiry month.
func CardExpired(month, year int, now time.Time) bool {
	if year < now.Year() {
		return true
	}
	return year == now.Year() && month < int(now.Month())
}
