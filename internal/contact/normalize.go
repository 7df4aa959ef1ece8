// Package contact normalizes lead contact details at ingest.
package contact

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
	"github.com/opensource-finance/leadscore/internal/domain"
)

// MetaPhoneCountry is the metadata key holding the phone's ISO region.
const MetaPhoneCountry = "phoneCountry"

// Normalizer cleans contact fields using a default phone region.
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer. Region is an ISO 3166-1 alpha-2 code
// used for numbers without a country prefix.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = "US"
	}
	return &Normalizer{region: region}
}

// NormalizePhone formats a phone number to E.164. If parsing fails, it
// returns the trimmed input.
func (n *Normalizer) NormalizePhone(input string) string {
	number, ok := n.parse(input)
	if !ok {
		return strings.TrimSpace(input)
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}

// PhoneCountry returns the ISO region of a valid phone number, or "".
func (n *Normalizer) PhoneCountry(input string) string {
	number, ok := n.parse(input)
	if !ok {
		return ""
	}
	return phonenumbers.GetRegionCodeForNumber(number)
}

func (n *Normalizer) parse(input string) (*phonenumbers.PhoneNumber, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, false
	}

	number, err := phonenumbers.Parse(trimmed, n.region)
	if err != nil {
		return nil, false
	}
	if !phonenumbers.IsValidNumber(number) {
		return nil, false
	}
	return number, true
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// NormalizeLead cleans the lead's email and phone in place and records the
// phone country in metadata when it can be determined.
func (n *Normalizer) NormalizeLead(lead *domain.Lead) {
	if lead == nil {
		return
	}

	lead.Email = NormalizeEmail(lead.Email)
	lead.Name = strings.TrimSpace(lead.Name)

	if lead.Phone == "" {
		return
	}
	if country := n.PhoneCountry(lead.Phone); country != "" {
		if lead.Metadata == nil {
			lead.Metadata = make(map[string]any, 1)
		}
		lead.Metadata[MetaPhoneCountry] = country
	}
	lead.Phone = n.NormalizePhone(lead.Phone)
}
