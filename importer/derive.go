package importer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

const (
	DefaultStockQuantity = 100
	DefaultSection       = "trending"
	DefaultCDNBase       = "https://shared.akamai.steamstatic.com/store_item_assets/steam/apps"

	unknownValue       = "Unknown"
	noDescription      = "No description available."
	reviewCountRating  = 7.5
	portraitImageName  = "library_600x900_2x.jpg"
	landscapeImageName = "header.jpg"
)

// ImageProber reports whether an image URL resolves. Implementations must
// treat every failure as "absent".
type ImageProber interface {
	ImageExists(ctx context.Context, url string) bool
}

// Deriver computes the normalized game fields from a raw payload.
type Deriver struct {
	CDNBase       string
	Overrides     PriceOverrides
	Prober        ImageProber
	StockQuantity int
}

func (d *Deriver) Derive(ctx context.Context, appID int, section string, gd *AppDetails) NormalizedGame {
	price, original := DerivePrice(appID, gd, d.Overrides)
	stock := d.StockQuantity
	if stock == 0 {
		stock = DefaultStockQuantity
	}
	return NormalizedGame{
		AppID:         appID,
		Title:         Strip(orDefault(gd.Name, fmt.Sprintf("Unknown Game %d", appID))),
		Price:         price,
		OriginalPrice: original,
		Image:         d.SelectImage(ctx, appID, gd.HeaderImage),
		Trailer:       SelectTrailer(gd.Movies),
		Description:   Strip(orDefault(gd.ShortDescription, noDescription)),
		Genre:         JoinGenres(gd.Genres),
		Section:       orDefault(section, DefaultSection),
		ReleaseDate:   ReleaseDate(gd.ReleaseDate),
		Rating:        DeriveRating(gd.Metacritic, gd.Recommendations),
		StockQuantity: stock,
	}
}

// SelectTrailer picks the first movie's best mp4 rendition, falling back to
// its DASH then HLS manifest.
func SelectTrailer(movies []Movie) string {
	if len(movies) == 0 {
		return ""
	}
	m := movies[0]
	if v := m.MP4["max"]; v != "" {
		return v
	}
	if v := m.MP4["480"]; v != "" {
		return v
	}
	keys := make([]string, 0, len(m.MP4))
	for k := range m.MP4 {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := m.MP4[k]; v != "" {
			return v
		}
	}
	if m.DashH264 != "" {
		return m.DashH264
	}
	return m.HLSH264
}

func (d *Deriver) cdnBase() string {
	return strings.TrimRight(orDefault(d.CDNBase, DefaultCDNBase), "/")
}

// PortraitURL is the high-resolution vertical capsule for appID.
func (d *Deriver) PortraitURL(appID int) string {
	return fmt.Sprintf("%s/%d/%s", d.cdnBase(), appID, portraitImageName)
}

// HeaderURL is the landscape header for appID, preferring the payload field.
func (d *Deriver) HeaderURL(appID int, headerImage string) string {
	if headerImage != "" {
		return headerImage
	}
	return fmt.Sprintf("%s/%d/%s", d.cdnBase(), appID, landscapeImageName)
}

// SelectImage returns the portrait capsule when the probe confirms it and
// the landscape header otherwise.
func (d *Deriver) SelectImage(ctx context.Context, appID int, headerImage string) string {
	portrait := d.PortraitURL(appID)
	if d.Prober != nil && d.Prober.ImageExists(ctx, portrait) {
		return portrait
	}
	return d.HeaderURL(appID, headerImage)
}

// DerivePrice returns price and original price in major currency units.
func DerivePrice(appID int, gd *AppDetails, overrides PriceOverrides) (float64, float64) {
	if gd.IsFree {
		return 0, 0
	}
	if p, ok := overrides.Lookup(appID); ok {
		return p, p
	}
	return overviewPrices(gd.PriceOverview)
}

func overviewPrices(po *PriceOverview) (float64, float64) {
	if po == nil {
		return 0, 0
	}
	return float64(po.Final) / 100, float64(po.Initial) / 100
}

func JoinGenres(genres []Genre) string {
	if len(genres) == 0 {
		return unknownValue
	}
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Description)
	}
	return strings.Join(names, ", ")
}

func ReleaseDate(ri *ReleaseInfo) string {
	if ri == nil {
		return unknownValue
	}
	return orDefault(ri.Date, unknownValue)
}

// DeriveRating maps a critic score to 0-10. Titles with only a review count
// get a flat 7.5; titles with neither get no rating.
func DeriveRating(mc *Metacritic, rec *Recommendations) *float64 {
	if mc != nil && mc.Score > 0 {
		r := clampRating(round(float64(mc.Score)/10, 1))
		return &r
	}
	if rec != nil && rec.Total > 0 {
		r := reviewCountRating
		return &r
	}
	return nil
}

func clampRating(r float64) float64 {
	return math.Max(0, math.Min(10, r))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
