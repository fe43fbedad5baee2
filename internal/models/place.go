package models

// PlaceRecord is one confirmed, non-duplicate detail page collected from a list.
// URL is the canonical detail-page URL and the dedup identity within a job.
type PlaceRecord struct {
	Name    *string `json:"name"`
	URL     string  `json:"url"`
	Address *string `json:"address"`
	PlaceID *string `json:"placeId"`
}

// DisplayName returns the record name, or fallback when the name is unknown
func (p PlaceRecord) DisplayName(fallback string) string {
	if p.Name == nil || *p.Name == "" {
		return fallback
	}
	return *p.Name
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
