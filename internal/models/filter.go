package models

// QueryFilter is the structured output of the natural-language translation
// step. The JSON shape is the wire contract with the translator: exactly the
// keys v, g, p_max and free, each nullable. Anything else is a translation
// failure.
type QueryFilter struct {
	Venue    *string  `json:"v"`
	Genre    *string  `json:"g"`
	MaxPrice *float64 `json:"p_max"`
	FreeOnly *bool    `json:"free"`
}

// IsEmpty reports whether no filter field is set. An empty filter is the
// default listing view, not an error.
func (f QueryFilter) IsEmpty() bool {
	return f.Venue == nil && f.Genre == nil && f.MaxPrice == nil && f.FreeOnly == nil
}
