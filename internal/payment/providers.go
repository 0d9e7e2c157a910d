package payment

import "github.com/FeruzyNtillah/my-e-commerce/internal/domain"

// Rail is the kind of network a provider settles over.
type Rail string

const (
	RailMobileMoney   Rail = "mobile_money"
	RailMobileBanking Rail = "mobile_banking"
)

type Provider struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Rail         Rail   `json:"rail"`
	Instructions string `json:"instructions"`
}

var providers = []Provider{
	{Code: "mpesa", Name: "M-Pesa (Vodacom)", Rail: RailMobileMoney, Instructions: "Dial *150*00# and follow the prompts"},
	{Code: "tigo_pesa", Name: "Tigo Pesa", Rail: RailMobileMoney, Instructions: "Dial *150*01# and follow the prompts"},
	{Code: "airtel_money", Name: "Airtel Money", Rail: RailMobileMoney, Instructions: "Dial *150*60# and follow the prompts"},
	{Code: "halopesa", Name: "HaloPesa (Halotel)", Rail: RailMobileMoney, Instructions: "Dial *150*88# and follow the prompts"},
	{Code: "crdb", Name: "CRDB SimBanking", Rail: RailMobileBanking, Instructions: "Use CRDB SimBanking app or dial *150*55#"},
	{Code: "nmb", Name: "NMB Mobile Banking", Rail: RailMobileBanking, Instructions: "Use NMB Mobile app or dial *150*66#"},
	{Code: "nbc", Name: "NBC Mobile Banking", Rail: RailMobileBanking, Instructions: "Use NBC Mobile app or USSD"},
}

// Providers returns the provider catalogue in display order.
func Providers() []Provider {
	return append([]Provider(nil), providers...)
}

func LookupProvider(code string) (Provider, bool) {
	for _, p := range providers {
		if p.Code == code {
			return p, true
		}
	}
	return Provider{}, false
}

// RailFor maps an order payment method to the rail that can settle it.
func RailFor(method domain.PaymentMethod) (Rail, bool) {
	switch method {
	case domain.PaymentMobileMoney:
		return RailMobileMoney, true
	case domain.PaymentMobileBanking:
		return RailMobileBanking, true
	default:
		return "", false
	}
}
