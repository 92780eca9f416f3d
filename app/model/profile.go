package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/pie/v2"
)

const notAvailable = "N/A"

// MatchProfile is the latest scraped snapshot of a match. Each re-scrape
// replaces the previous snapshot wholesale. LastMessages is only a transient
// carrier for freshly scraped chat lines and is never persisted.
type MatchProfile struct {
	MatchID    string            `json:"match_id"`
	Name       string            `json:"name,omitempty"`
	Age        int               `json:"age,omitempty"`
	Bio        string            `json:"bio,omitempty"`
	LookingFor string            `json:"looking_for,omitempty"`
	Location   string            `json:"location,omitempty"`
	Distance   string            `json:"distance,omitempty"`
	Interests  []string          `json:"interests,omitempty"`
	Essentials []string          `json:"essentials,omitempty"`
	Lifestyle  map[string]string `json:"lifestyle,omitempty"`

	LastMessages []Message `json:"last_messages,omitempty"`
}

// Render produces the deterministic human-readable block used as classifier
// and generator input. The schema is closed, so fields are written in a fixed
// order; unset optionals render as an explicit N/A marker.
func (p MatchProfile) Render() string {
	var b strings.Builder

	writeField(&b, "Name", orNA(p.Name))
	writeField(&b, "Age", intOrNA(p.Age))
	writeField(&b, "Bio", orNA(p.Bio))
	writeField(&b, "Looking for", orNA(p.LookingFor))
	writeField(&b, "Location", orNA(p.Location))
	writeField(&b, "Distance", orNA(p.Distance))
	writeField(&b, "Interests", listOrNA(p.Interests))
	writeField(&b, "Essentials", listOrNA(p.Essentials))

	if len(p.Lifestyle) == 0 {
		writeField(&b, "Lifestyle", notAvailable)
		return strings.TrimRight(b.String(), "\n")
	}

	b.WriteString("Lifestyle:\n")

	keys := pie.Keys(p.Lifestyle)
	sort.Strings(keys)

	for _, key := range keys {
		b.WriteString(fmt.Sprintf("  %s: %s\n", key, p.Lifestyle[key]))
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func orNA(value string) string {
	if value == "" {
		return notAvailable
	}

	return value
}

func intOrNA(value int) string {
	if value == 0 {
		return notAvailable
	}

	return strconv.Itoa(value)
}

func listOrNA(values []string) string {
	if len(values) == 0 {
		return notAvailable
	}

	sorted := pie.Sort(values)

	return strings.Join(sorted, ", ")
}
