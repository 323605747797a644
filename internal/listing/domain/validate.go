package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ApplyDefaults fills optional fields that have a documented default.
func (l *Listing) ApplyDefaults() {
	if l.District == "" {
		l.District = DefaultDistrict
	}
	if l.PriceCurrency == "" {
		l.PriceCurrency = CurrencyRWF
	}
	if l.LandSizeUnit == "" {
		l.LandSizeUnit = UnitSqm
	}
	if l.Status == "" {
		l.Status = StatusAvailable
	}
	if l.Images == nil {
		l.Images = []Media{}
	}
	if l.Documents == nil {
		l.Documents = []Media{}
	}
	if l.Videos == nil {
		l.Videos = []Media{}
	}
}

// Validate checks every field constraint and reports all violations at once.
func (l *Listing) Validate() error {
	fields := map[string]string{}

	checkLen := func(name, value string, min, max int) {
		n := utf8.RuneCountInString(strings.TrimSpace(value))
		if n < min || n > max {
			fields[name] = fmt.Sprintf("must be between %d and %d characters", min, max)
		}
	}
	required := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			fields[name] = "is required"
		}
	}

	checkLen("title", l.Title, 5, 200)
	checkLen("description", l.Description, 20, 2000)
	required("sector", l.Sector)
	required("cell", l.Cell)
	required("village", l.Village)
	required("landowner_name", l.LandownerName)
	required("landowner_phone", l.LandownerPhone)
	required("landowner_id_number", l.LandownerIDNumber)

	if l.PriceAmount < 0 {
		fields["price_amount"] = "must be a positive number"
	}
	if !l.PriceCurrency.IsValid() {
		fields["price_currency"] = "must be RWF or USD"
	}
	if l.LandSizeValue < 1 {
		fields["land_size_value"] = "must be at least 1"
	}
	if !l.LandSizeUnit.IsValid() {
		fields["land_size_unit"] = "must be sqm, hectares or acres"
	}
	if !l.LandType.IsValid() {
		fields["land_type"] = "must be residential, commercial, agricultural, industrial or mixed"
	}
	if !l.Status.IsValid() {
		fields["status"] = "must be available, reserved or sold"
	}
	if l.Latitude != nil && (*l.Latitude < -90 || *l.Latitude > 90) {
		fields["latitude"] = "must be between -90 and 90"
	}
	if l.Longitude != nil && (*l.Longitude < -180 || *l.Longitude > 180) {
		fields["longitude"] = "must be between -180 and 180"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Normalize clamps pagination and sorting to supported values.
func (f *Filter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if !IsSortable(f.SortBy) {
		f.SortBy = "created_at"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

// Validate rejects negative ranges and unknown enum values.
func (f *Filter) Validate() error {
	fields := map[string]string{}
	for name, v := range map[string]*float64{"min_price": f.MinPrice, "max_price": f.MaxPrice, "min_size": f.MinSize, "max_size": f.MaxSize} {
		if v != nil && *v < 0 {
			fields[name] = "must be a positive number"
		}
	}
	if f.LandType != "" && !f.LandType.IsValid() {
		fields["land_type"] = "unknown land type"
	}
	for _, s := range f.Statuses {
		if !s.IsValid() {
			fields["status"] = "must be available, reserved or sold"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
