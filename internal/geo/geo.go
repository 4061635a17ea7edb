// Package geo finds places and driving routes.
package geo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/alucardeht/logia/internal/logger"
)

var log = logger.ForComponent("geo")

const MaxAlternatives = 3

var (
	ErrNoAPIKey         = errors.New("maps api key is not configured")
	ErrLocationNotFound = errors.New("could not find coordinates")
	ErrNoRoute          = errors.New("could not calculate a route")
)

type Place struct {
	Name    string   `json:"name"`
	Address string   `json:"address"`
	Rating  *float64 `json:"rating,omitempty"`
}

// RatingValue treats a missing rating as zero.
func (p Place) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

func (p Place) String() string {
	rating := "N/A"
	if p.Rating != nil {
		rating = fmt.Sprintf("%.1f", *p.Rating)
	}
	address := p.Address
	if address == "" {
		address = "Unknown address"
	}
	return fmt.Sprintf("%s | rating %s | %s", p.Name, rating, address)
}

type Route struct {
	DistanceText string        `json:"distance"`
	DurationText string        `json:"duration"`
	Meters       int           `json:"meters"`
	Duration     time.Duration `json:"duration_ns"`
}

func (r *Route) Kilometers() float64 { return float64(r.Meters) / 1000 }
func (r *Route) Minutes() float64    { return r.Duration.Minutes() }

type Service interface {
	// FindAlternatives returns up to MaxAlternatives places matching query
	// near locationHint, closest first.
	FindAlternatives(ctx context.Context, query, locationHint string) ([]Place, error)
	Route(ctx context.Context, origin, destination string) (*Route, error)
}

type GoogleMaps struct {
	client *maps.Client
}

func NewGoogleMaps(apiKey string) (*GoogleMaps, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("maps init: %w", err)
	}
	return &GoogleMaps{client: client}, nil
}

func (g *GoogleMaps) FindAlternatives(ctx context.Context, query, locationHint string) ([]Place, error) {
	geocoded, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: locationHint})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", locationHint, err)
	}
	if len(geocoded) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrLocationNotFound, locationHint)
	}
	loc := geocoded[0].Geometry.Location

	resp, err := g.client.NearbySearch(ctx, &maps.NearbySearchRequest{
		Location: &maps.LatLng{Lat: loc.Lat, Lng: loc.Lng},
		Keyword:  query,
		RankBy:   maps.RankByDistance,
	})
	if err != nil {
		return nil, fmt.Errorf("nearby search %q: %w", query, err)
	}

	places := make([]Place, 0, MaxAlternatives)
	for _, r := range resp.Results {
		if len(places) == MaxAlternatives {
			break
		}
		p := Place{Name: r.Name, Address: r.Vicinity}
		if p.Address == "" {
			p.Address = r.FormattedAddress
		}
		if r.Rating > 0 {
			rating := float64(r.Rating)
			p.Rating = &rating
		}
		places = append(places, p)
	}
	log.Debug("alternatives found", "query", query, "location", locationHint, "count", len(places))
	return places, nil
}

func (g *GoogleMaps) Route(ctx context.Context, origin, destination string) (*Route, error) {
	routes, _, err := g.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return nil, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	return &Route{
		DistanceText: leg.Distance.HumanReadable,
		DurationText: humanDuration(leg.Duration),
		Meters:       leg.Distance.Meters,
		Duration:     leg.Duration,
	}, nil
}

func humanDuration(d time.Duration) string {
	mins := int(d.Round(time.Minute).Minutes())
	if mins < 60 {
		if mins == 1 {
			return "1 min"
		}
		return fmt.Sprintf("%d mins", mins)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d hour", mins/60)
	if mins/60 > 1 {
		b.WriteString("s")
	}
	if rest := mins % 60; rest > 0 {
		fmt.Fprintf(&b, " %d mins", rest)
	}
	return b.String()
}

var _ Service = (*GoogleMaps)(nil)
