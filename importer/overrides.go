package importer

// PriceOverrides maps an app id to a fixed price used for both price and
// original price. It covers titles whose appdetails carry no usable price.
type PriceOverrides map[int]float64

// DefaultPriceOverrides returns the built-in override table.
func DefaultPriceOverrides() PriceOverrides {
	return PriceOverrides{
		271590: 29.99, // Grand Theft Auto V
	}
}

func (o PriceOverrides) Lookup(appID int) (float64, bool) {
	if o == nil {
		return 0, false
	}
	p, ok := o[appID]
	return p, ok
}

// Merge returns a copy of o with extra applied on top.
func (o PriceOverrides) Merge(extra PriceOverrides) PriceOverrides {
	out := make(PriceOverrides, len(o)+len(extra))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
