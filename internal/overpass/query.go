// Package overpass builds Overpass QL boundary queries and parses their responses.
package overpass

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mohammed-shakir/suburb-boundaries/internal/core/model"
)

const (
	// suburb-equivalent admin levels (NSW suburbs are tagged 9, some localities 10)
	suburbAdminLevels = "9|10"
	// state/territory admin level used to scope by-name lookups
	regionAdminLevel = "4"
	serverTimeoutSec = 30
)

type Kind string

const (
	KindArea Kind = "area"
	KindName Kind = "name"
)

// Query is a ready-to-send Overpass QL payload.
type Query struct {
	Kind Kind
	Text string
}

// FormBody returns the form-encoded request body (data=<query>).
func (q Query) FormBody() string {
	return url.Values{"data": {q.Text}}.Encode()
}

func header() string {
	return fmt.Sprintf("[out:json][timeout:%d];", serverTimeoutSec)
}

// BuildAreaQuery selects suburb relations intersecting bb, with full member geometry.
// An inverted box is not rejected; the server simply returns nothing for it.
func BuildAreaQuery(bb model.BBox) Query {
	box := "(" + bb.String() + ")"
	var b strings.Builder
	b.WriteString(header())
	b.WriteString("\n(\n")
	for _, sel := range suburbSelectors("") {
		b.WriteString("  ")
		b.WriteString(sel)
		b.WriteString(box)
		b.WriteString(";\n")
	}
	b.WriteString(");\nout geom;")
	return Query{Kind: KindArea, Text: b.String()}
}

// BuildNameQuery resolves region as an admin_level 4 area and selects suburb
// relations named exactly name inside it.
func BuildNameQuery(name, region string) Query {
	var b strings.Builder
	b.WriteString(header())
	b.WriteString("\n")
	fmt.Fprintf(&b, `area["name"="%s"]["admin_level"="%s"]->.region;`, Escape(region), regionAdminLevel)
	b.WriteString("\n(\n")
	for _, sel := range suburbSelectors(name) {
		b.WriteString("  ")
		b.WriteString(sel)
		b.WriteString("(area.region);\n")
	}
	b.WriteString(");\nout geom;")
	return Query{Kind: KindName, Text: b.String()}
}

// buildUnscopedNameQuery matches the suburb name without an enclosing area.
func buildUnscopedNameQuery(name, _ string) Query {
	var b strings.Builder
	b.WriteString(header())
	b.WriteString("\n(\n")
	for _, sel := range suburbSelectors(name) {
		b.WriteString("  ")
		b.WriteString(sel)
		b.WriteString(";\n")
	}
	b.WriteString(");\nout geom;")
	return Query{Kind: KindName, Text: b.String()}
}

// the three ways a suburb relation is tagged in OSM
func suburbSelectors(name string) []string {
	nameFilter := ""
	if name != "" {
		nameFilter = fmt.Sprintf(`["name"="%s"]`, Escape(name))
	}
	return []string{
		fmt.Sprintf(`relation%s["boundary"="administrative"]["admin_level"~"%s"]`, nameFilter, suburbAdminLevels),
		fmt.Sprintf(`relation%s["boundary"="suburb"]`, nameFilter),
		fmt.Sprintf(`relation%s["place"="suburb"]`, nameFilter),
	}
}

// Escape quotes a value for use inside an Overpass QL string literal.
func Escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", "", "\t", " ")
	return r.Replace(s)
}

// NameStrategy is one phrasing of a by-name lookup.
type NameStrategy struct {
	Name  string
	Build func(name, region string) Query
}

// DefaultNameStrategies lists by-name phrasings in the order they are tried.
func DefaultNameStrategies() []NameStrategy {
	return []NameStrategy{
		{Name: "state-scoped", Build: BuildNameQuery},
		{Name: "unscoped", Build: buildUnscopedNameQuery},
	}
}
