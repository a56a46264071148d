package core

import (
	"strings"

	"github.com/NERVsystems/osmbuildings/pkg/osm"
)

// ValidateRef checks that ref names a way or relation with a positive id
func ValidateRef(ref osm.ElementRef) error {
	if ref.ID <= 0 {
		return Errorf(ErrInvalidInput, "element id must be positive, got %d", ref.ID).
			WithGuidance("Use the numeric id shown in the OSM editor, e.g. way/201181659")
	}
	switch ref.Kind {
	case osm.KindWay, osm.KindRelation:
		return nil
	case osm.KindNode:
		return NewError(ErrInvalidInput, "a node cannot be a building").
			WithElement(ref).
			WithGuidance("Buildings are mapped as ways or relations")
	default:
		return Errorf(ErrInvalidInput, "unknown element kind %q", ref.Kind)
	}
}

// ParseRef parses and validates an element reference such as "way/201181659"
func ParseRef(s string) (osm.ElementRef, error) {
	ref, err := osm.ParseElementRef(s)
	if err != nil {
		return osm.ElementRef{}, NewError(ErrInvalidInput, "invalid element reference").
			WithCause(err).
			WithGuidance("Use kind/id, e.g. way/201181659 or relation/42")
	}
	if err := ValidateRef(ref); err != nil {
		return osm.ElementRef{}, err
	}
	return ref, nil
}

// ParseRefs parses a comma separated list of references
func ParseRefs(s string) ([]osm.ElementRef, error) {
	var refs []osm.ElementRef
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		ref, err := ParseRef(part)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if len(refs) == 0 {
		return nil, NewError(ErrInvalidInput, "no element reference given")
	}
	return refs, nil
}
