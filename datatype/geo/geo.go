// Package geo provides the geospatial types: latitude, longitude, a
// latitude/longitude pair and distance.
package geo

import (
	"github.com/c360/semmodel/datatype"
)

// Type names.
const (
	TypeLatitude  = "geo:latitude"
	TypeLongitude = "geo:longitude"
	TypeLatLong   = "geo:latlong"
	TypeDist      = "geo:dist"
)

// Register adds the geo types to reg.
func Register(reg *datatype.Registry) error {
	lat, err := NewLatitude(TypeLatitude, "", datatype.Info{Doc: "A latitude in degrees, -90.0 to 90.0."}, nil)
	if err != nil {
		return err
	}
	lon, err := NewLongitude(TypeLongitude, "", datatype.Info{Doc: "A longitude in degrees, -180.0 to 180.0."}, nil)
	if err != nil {
		return err
	}
	latlong, err := NewLatLong(TypeLatLong, "", datatype.Info{
		Doc: "A Lat/Long string specifying a point on Earth",
		Ex:  "-12.45,56.78",
	}, nil, lat, lon)
	if err != nil {
		return err
	}
	dist, err := NewDist(TypeDist, "", datatype.Info{
		Doc: "A geographic distance (base unit is mm)",
		Ex:  "10 km",
	}, nil)
	if err != nil {
		return err
	}

	for _, t := range []datatype.Type{lat, lon, latlong, dist} {
		if err := reg.Add(t); err != nil {
			return err
		}
	}
	return nil
}
