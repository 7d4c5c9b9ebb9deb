package models

// Attribution keys captured from landing-page query strings.
const (
	ParamGclid       = "gclid"
	ParamUTMSource   = "utm_source"
	ParamUTMMedium   = "utm_medium"
	ParamUTMCampaign = "utm_campaign"
	ParamUTMTerm     = "utm_term"
	ParamUTMContent  = "utm_content"
)

// TrackedParams lists the attribution keys in their canonical order.
var TrackedParams = []string{
	ParamGclid,
	ParamUTMSource,
	ParamUTMMedium,
	ParamUTMCampaign,
	ParamUTMTerm,
	ParamUTMContent,
}

// IsTrackedParam reports whether key is one of the attribution keys.
func IsTrackedParam(key string) bool {
	for _, p := range TrackedParams {
		if p == key {
			return true
		}
	}
	return false
}

// AttributeMapping maps an attribution key to the CRM custom field id provisioned for it.
type AttributeMapping map[string]string

// AttributionSnapshot is the set of attribution values held for one visitor.
type AttributionSnapshot map[string]string

// CustomFieldValue is one entry of the contact's customFields list.
type CustomFieldValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ContactPayload is the body of a contact-creation request.
type ContactPayload struct {
	LocationID   string             `json:"locationId,omitempty"`
	Email        string             `json:"email,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	FirstName    string             `json:"firstName,omitempty"`
	LastName     string             `json:"lastName,omitempty"`
	Tags         []string           `json:"tags,omitempty"`
	CustomFields []CustomFieldValue `json:"customFields,omitempty"`
}

// HasCustomField reports whether a custom field with the given id is already set.
func (p *ContactPayload) HasCustomField(id string) bool {
	for _, f := range p.CustomFields {
		if f.ID == id {
			return true
		}
	}
	return false
}
