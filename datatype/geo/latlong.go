package geo

import (
	"strings"

	"github.com/c360/semmodel/datatype"
)

// LatLong is a (latitude, longitude) pair. It accepts "lat,lon" text or a two
// element list and exposes the parts as the lat and lon subs.
type LatLong struct {
	datatype.Common
	lat, lon *Angle
}

// Point is a normalized LatLong value.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewLatLong builds a LatLong type normalizing its parts through lat and lon.
func NewLatLong(name, base string, info datatype.Info, opts map[string]any, lat, lon *Angle) (*LatLong, error) {
	t := &LatLong{lat: lat, lon: lon}
	t.Common = datatype.NewCommon(name, base, info, opts, datatype.StorLatLong)
	t.Handle(datatype.VariantStr, t.normStr)
	t.Handle(datatype.VariantList, t.normList)
	return t, nil
}

func (t *LatLong) normStr(r datatype.Raw) (datatype.Norm, error) {
	parts := strings.Split(strings.TrimSpace(r.Str), ",")
	items := make([]datatype.Raw, len(parts))
	for i, p := range parts {
		items[i] = datatype.StrRaw(p)
	}
	return t.normPair(items, r.Value)
}

func (t *LatLong) normList(r datatype.Raw) (datatype.Norm, error) {
	return t.normPair(r.List, r.Value)
}

func (t *LatLong) normPair(items []datatype.Raw, orig any) (datatype.Norm, error) {
	if len(items) != 2 {
		return datatype.Norm{}, t.BadValu(orig, "Valu must contain valid latitude,longitude")
	}
	lat, err := t.lat.NormalizeRaw(items[0])
	if err != nil {
		return datatype.Norm{}, t.BadValu(orig, "%v", err)
	}
	lon, err := t.lon.NormalizeRaw(items[1])
	if err != nil {
		return datatype.Norm{}, t.BadValu(orig, "%v", err)
	}
	latv, lonv := lat.Value.(float64), lon.Value.(float64)
	return datatype.Norm{
		Value: Point{Lat: latv, Lon: lonv},
		Subs:  map[string]any{"lat": latv, "lon": lonv},
	}, nil
}

// Index is the latitude key followed by the longitude key.
func (t *LatLong) Index(valu any) ([]byte, error) {
	p, ok := valu.(Point)
	if !ok {
		return nil, t.BadValu(valu, "index expects geo.Point, got %T", valu)
	}
	latKey, err := t.lat.Index(p.Lat)
	if err != nil {
		return nil, err
	}
	lonKey, err := t.lon.Index(p.Lon)
	if err != nil {
		return nil, err
	}
	return append(latKey, lonKey...), nil
}

func (t *LatLong) Repr(valu any) (string, error) {
	p, ok := valu.(Point)
	if !ok {
		return "", t.BadValu(valu, "repr expects geo.Point, got %T", valu)
	}
	lat, _ := t.lat.Repr(p.Lat)
	lon, _ := t.lon.Repr(p.Lon)
	return lat + "," + lon, nil
}

func (t *LatLong) Extend(name string, opts map[string]any, info datatype.Info) (datatype.Type, error) {
	return NewLatLong(name, t.Name(), info, datatype.MergeOpts(t.Opts(), opts), t.lat, t.lon)
}
