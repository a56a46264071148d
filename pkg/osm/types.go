// Package osm provides utilities for interacting with OpenStreetMap APIs.
package osm

import (
	"fmt"
	"strconv"
	"strings"

	gosm "github.com/paulmach/osm"
)

// Kind is the element type of a map reference
type Kind = gosm.Type

// Supported element kinds
const (
	KindNode     Kind = gosm.TypeNode
	KindWay      Kind = gosm.TypeWay
	KindRelation Kind = gosm.TypeRelation
)

// ElementRef identifies a single element of the map by kind and id
type ElementRef struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

// WayRef returns a reference to a way
func WayRef(id int64) ElementRef {
	return ElementRef{Kind: KindWay, ID: id}
}

// RelationRef returns a reference to a relation
func RelationRef(id int64) ElementRef {
	return ElementRef{Kind: KindRelation, ID: id}
}

// String formats the reference as kind/id, the path form used by the API
func (r ElementRef) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// IsZero reports whether the reference is unset
func (r ElementRef) IsZero() bool {
	return r.Kind == "" && r.ID == 0
}

// ParseKind converts user input to an element kind. Single letter
// abbreviations (n, w, r) are accepted.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "node", "n":
		return KindNode, nil
	case "way", "w":
		return KindWay, nil
	case "relation", "rel", "r":
		return KindRelation, nil
	default:
		return "", fmt.Errorf("unknown element kind %q", s)
	}
}

// ParseElementRef parses references of the form "way/123", "w123" or "relation 42"
func ParseElementRef(s string) (ElementRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ElementRef{}, fmt.Errorf("empty element reference")
	}

	var kindPart, idPart string
	if i := strings.IndexAny(s, "/ "); i >= 0 {
		kindPart, idPart = s[:i], strings.TrimSpace(s[i+1:])
	} else {
		i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
		if i <= 0 {
			return ElementRef{}, fmt.Errorf("invalid element reference %q", s)
		}
		kindPart, idPart = s[:i], s[i:]
	}

	kind, err := ParseKind(kindPart)
	if err != nil {
		return ElementRef{}, err
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return ElementRef{}, fmt.Errorf("invalid element id %q", idPart)
	}

	return ElementRef{Kind: kind, ID: id}, nil
}
