// Package places fetches candidate attractions from external sources for the import job.
package places

import (
	"context"
	"strings"
)

// DefaultRadius is the search radius around a region center, in meters.
const DefaultRadius = 50000

// Region is a named search area.
type Region struct {
	Name   string
	Lat    float64
	Lon    float64
	Radius int // meters
}

// Place is one attraction as reported by a source.
type Place struct {
	ExternalID  string
	Name        string
	Description string
	Types       []string
	Location    string
	Price       *float64
	ImageURL    string
	Lat         float64
	Lon         float64
}

// Source yields the places of a region.
type Source interface {
	Nearby(ctx context.Context, region Region) ([]Place, error)
}

// EcuadorProvinces lists the 23 mainland and insular provinces with a center point.
var EcuadorProvinces = []Region{
	{Name: "Pichincha", Lat: -0.2299, Lon: -78.5045},
	{Name: "Guayas", Lat: -2.1900, Lon: -79.8852},
	{Name: "Azuay", Lat: -2.8906, Lon: -78.9902},
	{Name: "Manabí", Lat: -0.9557, Lon: -80.7322},
	{Name: "Los Ríos", Lat: -1.0682, Lon: -79.2440},
	{Name: "Tungurahua", Lat: -1.2290, Lon: -78.6272},
	{Name: "Imbabura", Lat: 0.3520, Lon: -78.1200},
	{Name: "Cotopaxi", Lat: -0.9322, Lon: -78.1137},
	{Name: "Morona Santiago", Lat: -2.2985, Lon: -78.1829},
	{Name: "Pastaza", Lat: -1.5319, Lon: -77.9789},
	{Name: "Napo", Lat: -0.5050, Lon: -77.4829},
	{Name: "Sucumbíos", Lat: 0.0902, Lon: -76.8628},
	{Name: "Orellana", Lat: -0.4620, Lon: -76.9829},
	{Name: "Santa Elena", Lat: -2.2139, Lon: -80.3734},
	{Name: "El Oro", Lat: -3.3682, Lon: -79.5938},
	{Name: "Loja", Lat: -3.9939, Lon: -79.2040},
	{Name: "Zamora Chinchipe", Lat: -4.0608, Lon: -78.9779},
	{Name: "Chimborazo", Lat: -1.6705, Lon: -78.6477},
	{Name: "Cañar", Lat: -2.5586, Lon: -78.6140},
	{Name: "Esmeraldas", Lat: 0.9568, Lon: -79.6536},
	{Name: "Carchi", Lat: 0.5807, Lon: -77.2260},
	{Name: "Bolívar", Lat: -1.4089, Lon: -78.8928},
	{Name: "Galápagos", Lat: -0.9430, Lon: -90.5455},
}

// Provinces returns EcuadorProvinces with radius applied, or only the one named name.
// ok is false if name is set but unknown.
func Provinces(name string, radius int) ([]Region, bool) {
	out := make([]Region, 0, len(EcuadorProvinces))
	for _, r := range EcuadorProvinces {
		if name != "" && !strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			continue
		}
		r.Radius = radius
		out = append(out, r)
	}
	return out, len(out) > 0
}
