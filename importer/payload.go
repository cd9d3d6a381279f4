package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// AppEnvelope is the per-id entry of an appdetails response:
//
//	{"1245620": {"success": true, "data": {...}}}
type AppEnvelope struct {
	Success bool        `json:"success"`
	Data    *AppDetails `json:"data"`
}

// AppDetails holds the subset of the appdetails payload the importer consumes.
type AppDetails struct {
	Name             string             `json:"name"`
	IsFree           bool               `json:"is_free"`
	ShortDescription string             `json:"short_description"`
	HeaderImage      string             `json:"header_image"`
	Movies           []Movie            `json:"movies"`
	PriceOverview    *PriceOverview     `json:"price_overview"`
	Genres           []Genre            `json:"genres"`
	ReleaseDate      *ReleaseInfo       `json:"release_date"`
	Metacritic       *Metacritic        `json:"metacritic"`
	Recommendations  *Recommendations   `json:"recommendations"`
	PCRequirements   RequirementsBlocks `json:"pc_requirements"`
	DLC              []int              `json:"dlc"`
	PackageGroups    []PackageGroup     `json:"package_groups"`
	Screenshots      []Screenshot       `json:"screenshots"`
}

type Movie struct {
	MP4      map[string]string `json:"mp4"`
	DashH264 string            `json:"dash_h264"`
	HLSH264  string            `json:"hls_h264"`
}

// PriceOverview amounts are in minor currency units.
type PriceOverview struct {
	Currency string `json:"currency"`
	Initial  int64  `json:"initial"`
	Final    int64  `json:"final"`
}

type Genre struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type ReleaseInfo struct {
	ComingSoon bool   `json:"coming_soon"`
	Date       string `json:"date"`
}

type Metacritic struct {
	Score int    `json:"score"`
	URL   string `json:"url"`
}

type Recommendations struct {
	Total int `json:"total"`
}

type PackageGroup struct {
	Name string       `json:"name"`
	Subs []PackageSub `json:"subs"`
}

type PackageSub struct {
	PackageID                int     `json:"packageid"`
	OptionText               string  `json:"option_text"`
	PercentSavings           float64 `json:"percent_savings"`
	PriceInCentsWithDiscount int64   `json:"price_in_cents_with_discount"`
}

type Screenshot struct {
	ID       int    `json:"id"`
	PathFull string `json:"path_full"`
}

// RequirementsBlocks is the pc_requirements object. The upstream sends an
// empty JSON array instead of an object when a title has no requirements,
// so anything that is not an object decodes to the zero value.
type RequirementsBlocks struct {
	Minimum     string
	Recommended string
}

func (r *RequirementsBlocks) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] != '{' {
		*r = RequirementsBlocks{}
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	minimum, _ := raw["minimum"].(string)
	recommended, _ := raw["recommended"].(string)
	*r = RequirementsBlocks{Minimum: minimum, Recommended: recommended}
	return nil
}

func (r RequirementsBlocks) Present() bool {
	return r.Minimum != "" || r.Recommended != ""
}

// DecodeAppDetails extracts the data block for appID from an appdetails
// response body.
func DecodeAppDetails(body []byte, appID int) (*AppDetails, error) {
	var envelope map[string]AppEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	entry, ok := envelope[strconv.Itoa(appID)]
	if !ok || !entry.Success {
		return nil, ErrUnsuccessful
	}
	if entry.Data == nil {
		return nil, fmt.Errorf("%w: missing data block", ErrMalformedPayload)
	}
	return entry.Data, nil
}
