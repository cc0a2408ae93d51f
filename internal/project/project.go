// Package project maps an arbitrary record onto the fixed display template
// (image, heading, sub-headings, identifier, map action) described by a
// FieldMap. Invalid values are dropped, never rendered as placeholders.
package project

import (
	"strconv"
	"strings"

	"github.com/abelbrown/universal/internal/record"
)

// DefaultMapURL opens OpenStreetMap at the coordinate.
const DefaultMapURL = "https://www.openstreetmap.org/?mlat={lat}&mlon={lng}#map=16/{lat}/{lng}"

// Options configures a Projector.
type Options struct {
	ImageBase    string // prefix for relative image values
	DefaultImage string // used when the image field is absent or invalid
	MapURL       string // template with {lat} and {lng}; DefaultMapURL when empty
}

// MapAction opens an external map service at a coordinate.
type MapAction struct {
	Lat float64
	Lng float64
	URL string
}

// Presentation is the normalized view of one record.
// Empty strings and nil Map mean "absent".
type Presentation struct {
	ID          any
	Image       string
	Heading     string
	SubHeadings []string
	Map         *MapAction
}

// HasHeading reports whether a heading is present.
func (p Presentation) HasHeading() bool { return p.Heading != "" }

// Projector is pure; a single instance can be shared.
type Projector struct {
	opts Options
}

// New creates a Projector.
func New(opts Options) *Projector {
	opts.ImageBase = strings.TrimRight(opts.ImageBase, "/")
	if opts.MapURL == "" {
		opts.MapURL = DefaultMapURL
	}
	return &Projector{opts: opts}
}

// Project builds the Presentation for rec under fm.
func (p *Projector) Project(rec record.Record, fm record.FieldMap) Presentation {
	out := Presentation{
		ID:    rec.ID(fm),
		Image: p.image(rec, fm.ImageField),
	}
	if h, ok := rec.Text(fm.HeadingField); ok {
		out.Heading = h
	}
	for _, f := range fm.SubHeadingFields {
		if s, ok := rec.Text(f); ok {
			out.SubHeadings = append(out.SubHeadings, s)
		}
	}
	out.Map = p.mapAction(rec, fm)
	return out
}

func (p *Projector) image(rec record.Record, field string) string {
	v, ok := rec.Text(field)
	if !ok {
		return p.opts.DefaultImage
	}
	if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
		return v
	}
	if p.opts.ImageBase == "" {
		return v
	}
	return p.opts.ImageBase + "/" + strings.TrimLeft(v, "/")
}

func (p *Projector) mapAction(rec record.Record, fm record.FieldMap) *MapAction {
	lat, ok := rec.Float(fm.Latitude())
	if !ok {
		return nil
	}
	lng, ok := rec.Float(fm.Longitude())
	if !ok {
		return nil
	}
	url := strings.NewReplacer(
		"{lat}", strconv.FormatFloat(lat, 'f', -1, 64),
		"{lng}", strconv.FormatFloat(lng, 'f', -1, 64),
	).Replace(p.opts.MapURL)
	return &MapAction{Lat: lat, Lng: lng, URL: url}
}
