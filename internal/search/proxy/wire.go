package proxy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haneul-dev/addrsearch/internal/core/domain"
)

// searchResponse is the proxy's JSON contract:
// {documents: [...], meta: {total_count, pageable_count, is_end}}.
type searchResponse struct {
	Documents []document `json:"documents"`
	Meta      meta       `json:"meta"`
}

type meta struct {
	TotalCount    int  `json:"total_count"`
	PageableCount int  `json:"pageable_count"`
	IsEnd         bool `json:"is_end"`
}

// document is one raw provider address. Coordinates arrive as strings.
type document struct {
	AddressName string      `json:"address_name"`
	AddressType string      `json:"address_type"`
	X           string      `json:"x"`
	Y           string      `json:"y"`
	Address     *regionInfo `json:"address"`
	RoadAddress *regionInfo `json:"road_address"`
}

type regionInfo struct {
	Region1 string `json:"region_1depth_name"`
	Region2 string `json:"region_2depth_name"`
	Region3 string `json:"region_3depth_name"`
}

func (d document) toDomain() domain.AddressResult {
	x, _ := strconv.ParseFloat(d.X, 64)
	y, _ := strconv.ParseFloat(d.Y, 64)

	kind := domain.AddressKindPlace
	switch d.AddressType {
	case "ROAD", "ROAD_ADDR":
		kind = domain.AddressKindRoad
	case "REGION", "REGION_ADDR":
		kind = domain.AddressKindLot
	}

	info := d.RoadAddress
	if info == nil {
		info = d.Address
	}
	var region domain.Region
	if info != nil {
		region = domain.Region{
			Level1: info.Region1,
			Level2: info.Region2,
			Level3: info.Region3,
		}
		region.FullName = joinNonEmpty(info.Region1, info.Region2, info.Region3)
	}

	return domain.AddressResult{
		// The provider returns no stable identifier; derive one from kind and
		// coordinates. De-duplication uses FormattedName regardless.
		ID:            fmt.Sprintf("%s:%s,%s", kind, d.X, d.Y),
		FormattedName: d.AddressName,
		Kind:          kind,
		Coordinates:   domain.Coordinates{X: x, Y: y},
		Region:        region,
	}
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
