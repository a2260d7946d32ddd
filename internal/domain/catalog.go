package domain

import (
	"fmt"
	"sort"
)

// Coordinate is an exact (lon, lat) key. Matching is by value equality, so
// callers must use the catalog's numeric precision.
type Coordinate struct {
	Lon float64
	Lat float64
}

// Catalog resolves sub-basin identity by name or by coordinates. It is built
// once per run and is read-only afterwards, so it is safe to share between
// goroutines.
type Catalog struct {
	basins  []SubBasin
	byID    map[int]SubBasin
	byName  map[string]int
	byCoord map[Coordinate]int
}

// NewCatalog indexes the sub-basins fetched from the forecast service. The
// first entry wins when two sub-basins share a name or a coordinate.
func NewCatalog(basins []SubBasin) (*Catalog, error) {
	if len(basins) == 0 {
		return nil, fmt.Errorf("sub-basin catalog is empty: %w", ErrUpstreamService)
	}

	c := &Catalog{
		basins:  make([]SubBasin, len(basins)),
		byID:    make(map[int]SubBasin, len(basins)),
		byName:  make(map[string]int, len(basins)),
		byCoord: make(map[Coordinate]int, len(basins)),
	}
	copy(c.basins, basins)

	for _, b := range basins {
		if _, dup := c.byID[b.ID]; dup {
			return nil, fmt.Errorf("sub-basin catalog has duplicate id %d: %w", b.ID, ErrUpstreamService)
		}
		c.byID[b.ID] = b
		if _, ok := c.byName[b.Name]; !ok {
			c.byName[b.Name] = b.ID
		}
		key := Coordinate{Lon: b.Longitude, Lat: b.Latitude}
		if _, ok := c.byCoord[key]; !ok {
			c.byCoord[key] = b.ID
		}
	}
	return c, nil
}

// Len returns the number of sub-basins.
func (c *Catalog) Len() int { return len(c.basins) }

// SubBasins returns a copy of the catalog entries ordered by id.
func (c *Catalog) SubBasins() []SubBasin {
	out := make([]SubBasin, len(c.basins))
	copy(out, c.basins)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SubBasin returns the entry registered under id.
func (c *Catalog) SubBasin(id int) (SubBasin, bool) {
	b, ok := c.byID[id]
	return b, ok
}

// LookupName reports the sub-basin id registered under name.
func (c *Catalog) LookupName(name string) (int, bool) {
	id, ok := c.byName[name]
	return id, ok
}

// LookupCoordinates reports the sub-basin id registered at exactly (lon, lat).
func (c *Catalog) LookupCoordinates(lon, lat float64) (int, bool) {
	id, ok := c.byCoord[Coordinate{Lon: lon, Lat: lat}]
	return id, ok
}

// ResolveByName is LookupName with an ErrNotFound error on a miss.
func (c *Catalog) ResolveByName(name string) (int, error) {
	id, ok := c.LookupName(name)
	if !ok {
		return 0, fmt.Errorf("sub-basin %q: %w", name, ErrNotFound)
	}
	return id, nil
}

// ResolveByCoordinates is LookupCoordinates with an ErrNotFound error on a miss.
func (c *Catalog) ResolveByCoordinates(lon, lat float64) (int, error) {
	id, ok := c.LookupCoordinates(lon, lat)
	if !ok {
		return 0, fmt.Errorf("sub-basin at (%g, %g): %w", lon, lat, ErrNotFound)
	}
	return id, nil
}
