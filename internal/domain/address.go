package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type ShippingAddress struct {
	Street       string `json:"street" bson:"street"`
	City         string `json:"city" bson:"city"`
	State        string `json:"state" bson:"state"`
	ZipCode      string `json:"zipCode" bson:"zipCode"`
	Country      string `json:"country" bson:"country"`
	MobileNumber string `json:"mobileNumber,omitempty" bson:"mobileNumber,omitempty"`
	Region       string `json:"region,omitempty" bson:"region,omitempty"`
	District     string `json:"district,omitempty" bson:"district,omitempty"`
	Residence    string `json:"residence,omitempty" bson:"residence,omitempty"`
}

// Validate requires the canonical fields every carrier needs.
func (a ShippingAddress) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"street", a.Street},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Validationf("Shipping address is missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RawAddress is a shipping address as the client sent it, before aliases are resolved.
type RawAddress map[string]any

type addressAlias struct {
	target  func(*ShippingAddress) *string
	sources []string
}

// Evaluated in order; the first non-empty source wins.
var addressAliases = []addressAlias{
	{func(a *ShippingAddress) *string { return &a.Street }, []string{"street", "residence"}},
	{func(a *ShippingAddress) *string { return &a.City }, []string{"city", "district"}},
	{func(a *ShippingAddress) *string { return &a.State }, []string{"state", "region"}},
	{func(a *ShippingAddress) *string { return &a.ZipCode }, []string{"zipCode", "postalCode"}},
	{func(a *ShippingAddress) *string { return &a.Country }, []string{"country"}},
	{func(a *ShippingAddress) *string { return &a.MobileNumber }, []string{"mobileNumber", "phone"}},
	{func(a *ShippingAddress) *string { return &a.Region }, []string{"region"}},
	{func(a *ShippingAddress) *string { return &a.District }, []string{"district"}},
	{func(a *ShippingAddress) *string { return &a.Residence }, []string{"residence"}},
}

// NormalizeAddress resolves the alias table into a canonical address. Fields with no
// source become "".
func NormalizeAddress(raw RawAddress) ShippingAddress {
	var addr ShippingAddress
	for _, alias := range addressAliases {
		for _, key := range alias.sources {
			if v := scalarString(raw[key]); v != "" {
				*alias.target(&addr) = v
				break
			}
		}
	}
	return addr
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

// String is used in log lines.
func (a ShippingAddress) String() string {
	return fmt.Sprintf("%s, %s, %s %s, %s", a.Street, a.City, a.State, a.ZipCode, a.Country)
}
