package braintree

import (
	"encoding/xml"
	"strings"
)

// CreditCard is a vaulted card or the card details embedded in a
// transaction.
type CreditCard struct {
	Token           string `xml:"token"`
	Bin             string `xml:"bin"`
	Last4           string `xml:"last-4"`
	MaskedNumber    string `xml:"masked-number"`
	CardType        string `xml:"card-type"`
	ExpirationMonth string `xml:"expiration-month"`
	ExpirationYear  string `xml:"expiration-year"`
	CardholderName  string `xml:"cardholder-name"`
	Expired         string `xml:"expired"`
}

type Transaction struct {
	ID                    string      `xml:"id"`
	Status                string      `xml:"status"`
	Type                  string      `xml:"type"`
	Amount                string      `xml:"amount"`
	CurrencyISOCode       string      `xml:"currency-iso-code"`
	CreatedAt             string      `xml:"created-at"`
	UpdatedAt             string      `xml:"updated-at"`
	ProcessorResponseCode string      `xml:"processor-response-code"`
	ProcessorResponseText string      `xml:"processor-response-text"`
	CreditCard            *CreditCard `xml:"credit-card"`
}

// ValidationError is one entry of Braintree's nested error tree.
type ValidationError struct {
	Code      string `xml:"code"`
	Attribute string `xml:"attribute"`
	Message   string `xml:"message"`
}

// Response is the union of Braintree's successful and error results.
// Params echoes the submitted form on errors, with hyphens in keys
// replaced by underscores.
type Response struct {
	Success     bool
	Transaction *Transaction
	Errors      []ValidationError
	Params      map[string]any
	Message     string
	Body        []byte
}

// node is a generic XML element.
type node struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Content string     `xml:",chardata"`
	Nodes   []node     `xml:",any"`
}

func (n node) child(name string) (node, bool) {
	for _, c := range n.Nodes {
		if c.XMLName.Local == name {
			return c, true
		}
	}
	return node{}, false
}

func (n node) text(name string) string {
	c, _ := n.child(name)
	return strings.TrimSpace(c.Content)
}

// validationErrors collects every <error> element below n.
func (n node) validationErrors() []ValidationError {
	var out []ValidationError
	var walk func(node)
	walk = func(cur node) {
		for _, c := range cur.Nodes {
			if c.XMLName.Local == "error" {
				out = append(out, ValidationError{
					Code:      c.text("code"),
					Attribute: c.text("attribute"),
					Message:   c.text("message"),
				})
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// toMap converts a params tree into nested maps of strings.
func (n node) toMap() map[string]any {
	out := make(map[string]any, len(n.Nodes))
	for _, c := range n.Nodes {
		key := strings.ReplaceAll(c.XMLName.Local, "-", "_")
		if len(c.Nodes) > 0 {
			out[key] = c.toMap()
			continue
		}
		out[key] = strings.TrimSpace(c.Content)
	}
	return out
}

type errorResponse struct {
	Errors      node         `xml:"errors"`
	Params      node         `xml:"params"`
	Message     string       `xml:"message"`
	Transaction *Transaction `xml:"transaction"`
}

// parseResponse decodes a transaction or api-error-response document.
func parseResponse(body []byte) (*Response, error) {
	var root node
	if err := xml.Unmarshal(body, &root); err != nil {
		return nil, err
	}

	switch root.XMLName.Local {
	case "api-error-response":
		var er errorResponse
		if err := xml.Unmarshal(body, &er); err != nil {
			return nil, err
		}
		return &Response{
			Transaction: er.Transaction,
			Errors:      er.Errors.validationErrors(),
			Params:      er.Params.toMap(),
			Message:     strings.TrimSpace(er.Message),
			Body:        body,
		}, nil
	case "transaction":
		var tx Transaction
		if err := xml.Unmarshal(body, &tx); err != nil {
			return nil, err
		}
		return &Response{Success: true, Transaction: &tx, Body: body}, nil
	}
	return &Response{Success: true, Body: body}, nil
}

// lookup walks nested param maps.
func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = mm[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func lookupString(m map[string]any, path ...string) string {
	v, _ := lookup(m, path...)
	s, _ := v.(string)
	return s
}

func lookupMap(m map[string]any, path ...string) map[string]any {
	v, _ := lookup(m, path...)
	mm, _ := v.(map[string]any)
	return mm
}
