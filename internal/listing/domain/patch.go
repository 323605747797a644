package domain

// ListingPatch is a partial update. Nil fields are left unchanged.
type ListingPatch struct {
	Title              *string
	Description        *string
	District           *string
	Sector             *string
	Cell               *string
	Village            *string
	PlotNumber         *string
	PriceAmount        *float64
	PriceCurrency      *Currency
	PriceNegotiable    *bool
	LandSizeValue      *float64
	LandSizeUnit       *SizeUnit
	LandType           *LandType
	LandownerName      *string
	LandownerPhone     *string
	LandownerIDNumber  *string
	LandownerEmail     *string
	LandTitleAvailable *bool
	Amenities          *[]string
	Infrastructure     *[]string
	Latitude           *float64
	Longitude          *float64
	Status             *ListingStatus
}

// Apply copies the set fields onto l and returns the names of the fields that changed.
func (p ListingPatch) Apply(l *Listing) []string {
	var changed []string
	setStr := func(name string, dst *string, v *string) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, name)
		}
	}
	setFloat := func(name string, dst *float64, v *float64) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, name)
		}
	}
	setBool := func(name string, dst *bool, v *bool) {
		if v != nil && *dst != *v {
			*dst = *v
			changed = append(changed, name)
		}
	}

	setStr("title", &l.Title, p.Title)
	setStr("description", &l.Description, p.Description)
	setStr("district", &l.District, p.District)
	setStr("sector", &l.Sector, p.Sector)
	setStr("cell", &l.Cell, p.Cell)
	setStr("village", &l.Village, p.Village)
	setStr("plot_number", &l.PlotNumber, p.PlotNumber)
	setFloat("price_amount", &l.PriceAmount, p.PriceAmount)
	setBool("price_negotiable", &l.PriceNegotiable, p.PriceNegotiable)
	setFloat("land_size_value", &l.LandSizeValue, p.LandSizeValue)
	setStr("landowner_name", &l.LandownerName, p.LandownerName)
	setStr("landowner_phone", &l.LandownerPhone, p.LandownerPhone)
	setStr("landowner_id_number", &l.LandownerIDNumber, p.LandownerIDNumber)
	setStr("landowner_email", &l.LandownerEmail, p.LandownerEmail)
	setBool("land_title_available", &l.LandTitleAvailable, p.LandTitleAvailable)

	if p.PriceCurrency != nil && l.PriceCurrency != *p.PriceCurrency {
		l.PriceCurrency = *p.PriceCurrency
		changed = append(changed, "price_currency")
	}
	if p.LandSizeUnit != nil && l.LandSizeUnit != *p.LandSizeUnit {
		l.LandSizeUnit = *p.LandSizeUnit
		changed = append(changed, "land_size_unit")
	}
	if p.LandType != nil && l.LandType != *p.LandType {
		l.LandType = *p.LandType
		changed = append(changed, "land_type")
	}
	if p.Status != nil && l.Status != *p.Status {
		l.Status = *p.Status
		changed = append(changed, "status")
	}
	if p.Amenities != nil {
		l.Amenities = *p.Amenities
		changed = append(changed, "amenities")
	}
	if p.Infrastructure != nil {
		l.Infrastructure = *p.Infrastructure
		changed = append(changed, "infrastructure")
	}
	if p.Latitude != nil {
		v := *p.Latitude
		l.Latitude = &v
		changed = append(changed, "latitude")
	}
	if p.Longitude != nil {
		v := *p.Longitude
		l.Longitude = &v
		changed = append(changed, "longitude")
	}
	return changed
}
