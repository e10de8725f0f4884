package phone

import (
	"strings"

	"github.com/avvvet/deliverybuddy/internal/textnorm"
)

// City is a known delivery city with its telephone area code (DDD).
type City struct {
	Name     string
	AreaCode string
	State    string
	Large    bool // capital or metro-size city
}

// Cities is the fixed gazetteer used for address city resolution and area-code lookup.
// Multi-word names come before names they contain.
var Cities = []City{
	{Name: "Volta Redonda", AreaCode: "24", State: "RJ"},
	{Name: "Barra Mansa", AreaCode: "24", State: "RJ"},
	{Name: "Barra do Piraí", AreaCode: "24", State: "RJ"},
	{Name: "Resende", AreaCode: "24", State: "RJ"},
	{Name: "Pinheiral", AreaCode: "24", State: "RJ"},
	{Name: "Angra dos Reis", AreaCode: "24", State: "RJ"},
	{Name: "Petrópolis", AreaCode: "24", State: "RJ"},
	{Name: "Rio de Janeiro", AreaCode: "21", State: "RJ", Large: true},
	{Name: "Niterói", AreaCode: "21", State: "RJ"},
	{Name: "São Paulo", AreaCode: "11", State: "SP", Large: true},
	{Name: "Campinas", AreaCode: "19", State: "SP"},
	{Name: "Santos", AreaCode: "13", State: "SP"},
	{Name: "Belo Horizonte", AreaCode: "31", State: "MG", Large: true},
	{Name: "Juiz de Fora", AreaCode: "32", State: "MG"},
	{Name: "Curitiba", AreaCode: "41", State: "PR", Large: true},
	{Name: "Florianópolis", AreaCode: "48", State: "SC"},
	{Name: "Porto Alegre", AreaCode: "51", State: "RS", Large: true},
	{Name: "Brasília", AreaCode: "61", State: "DF", Large: true},
	{Name: "Goiânia", AreaCode: "62", State: "GO"},
	{Name: "Salvador", AreaCode: "71", State: "BA", Large: true},
	{Name: "Recife", AreaCode: "81", State: "PE", Large: true},
	{Name: "Fortaleza", AreaCode: "85", State: "CE", Large: true},
	{Name: "Manaus", AreaCode: "92", State: "AM", Large: true},
	{Name: "Belém", AreaCode: "91", State: "PA"},
	{Name: "Vitória", AreaCode: "27", State: "ES"},
}

// LookupCity finds a city by exact (case and accent insensitive) name.
func LookupCity(name string) (City, bool) {
	key := strings.TrimSpace(textnorm.Fold(name))
	for _, c := range Cities {
		if textnorm.Fold(c.Name) == key {
			return c, true
		}
	}
	return City{}, false
}

// FindCity returns the first gazetteer city whose name appears inside text.
func FindCity(text string) (City, bool) {
	folded := textnorm.Fold(text)
	for _, c := range Cities {
		if strings.Contains(folded, textnorm.Fold(c.Name)) {
			return c, true
		}
	}
	return City{}, false
}

// AreaCodeFor resolves a city's area code, or returns fallback for unknown cities.
func AreaCodeFor(city, fallback string) string {
	if c, ok := LookupCity(city); ok {
		return c.AreaCode
	}
	return fallback
}

// StateFor resolves a city's state abbreviation, or returns fallback.
func StateFor(city, fallback string) string {
	if c, ok := LookupCity(city); ok {
		return c.State
	}
	return fallback
}

// IsLargeCity reports whether city is a capital-size market.
func IsLargeCity(city string) bool {
	c, ok := LookupCity(city)
	return ok && c.Large
}
