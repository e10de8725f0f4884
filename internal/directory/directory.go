// Package directory finds restaurants for a food category and city and verifies a
// reachable contact number for each.
package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/models"
	"github.com/avvvet/deliverybuddy/internal/phone"
	"github.com/avvvet/deliverybuddy/internal/search"
	"github.com/avvvet/deliverybuddy/internal/textnorm"
)

const (
	MaxCandidates     = 3
	maxEstablishments = 12
	maxPageFetches    = 3

	// PlaceholderName labels the single establishment returned when the search API
	// has no credentials.
	PlaceholderName = "Busca indisponível"
)

var contactNumber = regexp.MustCompile(`(?:\+?55[\s.-]?)?\(?\d{2}\)?[\s.-]?9[\s.-]?\d{4}[\s.-]?\d{4}`)

var titleSeparators = []string{" - ", " | ", " – ", " — "}

// Query describes what to search for.
type Query struct {
	FoodType string
	City     string
	State    string
}

type establishment struct {
	Name        string
	Link        string
	Snippet     string
	Score       int
	Placeholder bool
}

type Options struct {
	DefaultAreaCode string
	DefaultState    string
}

// Searcher runs establishment discovery, contact discovery and fallback padding.
type Searcher struct {
	client    search.Client
	fetcher   search.Fetcher
	estimator Estimator
	options   Options
	logger    logger.Logger
}

func NewSearcher(client search.Client, fetcher search.Fetcher, estimator Estimator, opts Options, log logger.Logger) *Searcher {
	return &Searcher{
		client:    client,
		fetcher:   fetcher,
		estimator: estimator,
		options:   opts,
		logger: log.With(map[string]interface{}{
			"component": "directory",
		}),
	}
}

// Search returns at most three candidates with distinct contact numbers. It never fails:
// search errors degrade to an empty list.
func (s *Searcher) Search(ctx context.Context, q Query) []models.Restaurant {
	areaCode := phone.AreaCodeFor(q.City, s.options.DefaultAreaCode)
	if q.State == "" {
		q.State = phone.StateFor(q.City, s.options.DefaultState)
	}

	log := s.logger.With(map[string]interface{}{
		"foodType": q.FoodType,
		"city":     q.City,
		"areaCode": areaCode,
	})

	establishments := s.discover(ctx, q, log)
	if len(establishments) == 0 {
		log.Info("no establishments found", nil)
		return []models.Restaurant{}
	}

	used := make(map[string]bool)
	names := make(map[string]bool)
	var out []models.Restaurant

	for _, est := range establishments {
		if len(out) >= MaxCandidates {
			break
		}
		if est.Placeholder {
			continue
		}
		number, ok := s.findContact(ctx, est, q, areaCode, used)
		if !ok {
			continue
		}
		used[number] = true
		names[textnorm.Fold(est.Name)] = true
		out = append(out, s.annotate(models.Restaurant{
			Name:          est.Name,
			ContactNumber: number,
			Verified:      true,
		}, q))
	}

	verified := len(out)
	for _, name := range FallbackNames(q.FoodType) {
		if len(out) >= MaxCandidates {
			break
		}
		if names[textnorm.Fold(name)] {
			continue
		}
		number, ok := s.freshNumber(areaCode, used)
		if !ok {
			break
		}
		used[number] = true
		names[textnorm.Fold(name)] = true
		out = append(out, s.annotate(models.Restaurant{
			Name:          name,
			ContactNumber: number,
		}, q))
	}

	log.Info("directory search completed", map[string]interface{}{
		"establishments": len(establishments),
		"verified":       verified,
		"candidates":     len(out),
	})
	return out
}

func (s *Searcher) discover(ctx context.Context, q Query, log logger.Logger) []establishment {
	query := fmt.Sprintf("%s restaurante delivery %s %s", q.FoodType, q.City, q.State)

	results, err := s.client.Search(ctx, query)
	if err != nil {
		if errors.Is(err, search.ErrNotConfigured) {
			log.Warn("search API not configured, using placeholder establishment", nil)
			return []establishment{{Name: PlaceholderName, Placeholder: true}}
		}
		log.WithError(err).Warn("establishment discovery failed", map[string]interface{}{
			"query": query,
		})
		return nil
	}

	return rankEstablishments(results, q)
}

// rankEstablishments keeps hits mentioning the city or a .br domain, scores them by
// brand position and keeps the best twelve.
func rankEstablishments(results []search.Result, q Query) []establishment {
	city := textnorm.Fold(q.City)
	seen := make(map[string]bool)
	var out []establishment

	for _, r := range results {
		text := textnorm.Fold(r.Title + " " + r.Snippet + " " + r.Link)
		if !(city != "" && strings.Contains(text, city)) && !strings.Contains(r.Link, ".br") {
			continue
		}
		name := establishmentName(r.Title)
		if name == "" || seen[textnorm.Fold(name)] {
			continue
		}
		seen[textnorm.Fold(name)] = true

		out = append(out, establishment{
			Name:    name,
			Link:    r.Link,
			Snippet: r.Snippet,
			Score:   brandScore(text, q.FoodType),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > maxEstablishments {
		out = out[:maxEstablishments]
	}
	return out
}

// brandScore is len(brands)-i for the first brand i found in folded text, else 0.
func brandScore(folded, foodType string) int {
	brands := brandKeywords[foodType]
	for i, b := range brands {
		if strings.Contains(folded, textnorm.Fold(b)) {
			return len(brands) - i
		}
	}
	return 0
}

func establishmentName(title string) string {
	name := title
	for _, sep := range titleSeparators {
		if i := strings.Index(name, sep); i > 0 {
			name = name[:i]
		}
	}
	return strings.TrimSpace(name)
}

func contactQueries(name, areaCode, city string) []string {
	return []string{
		fmt.Sprintf("%q whatsapp %s %s", name, areaCode, city),
		fmt.Sprintf("%q contato %s", name, areaCode),
		fmt.Sprintf("%q wa.me/55%s", name, areaCode),
	}
}

// findContact looks for the first valid number for est, snippet first, then the page.
func (s *Searcher) findContact(ctx context.Context, est establishment, q Query, areaCode string, used map[string]bool) (string, bool) {
	for _, query := range contactQueries(est.Name, areaCode, q.City) {
		if ctx.Err() != nil {
			return "", false
		}
		results, err := s.client.Search(ctx, query)
		if err != nil {
			s.logger.Debug("contact query failed", map[string]interface{}{
				"query": query,
				"error": err.Error(),
			})
			continue
		}

		for _, r := range results {
			if number, ok := scanNumbers(r.Snippet, areaCode, used); ok {
				return number, true
			}
		}

		for i, r := range results {
			if i >= maxPageFetches || r.Link == "" {
				break
			}
			text, err := s.fetcher.Fetch(ctx, r.Link)
			if err != nil {
				continue
			}
			if number, ok := scanNumbers(text, areaCode, used); ok {
				return number, true
			}
		}
	}
	return "", false
}

// scanNumbers returns the first number in text that validates as a mobile on areaCode
// and is not already taken.
func scanNumbers(text, areaCode string, used map[string]bool) (string, bool) {
	for _, match := range contactNumber.FindAllString(text, -1) {
		if !phone.IsValidMobile(match, areaCode) {
			continue
		}
		normalized, _ := phone.Normalize(match, areaCode)
		if used[normalized] {
			continue
		}
		return normalized, true
	}
	return "", false
}

func (s *Searcher) freshNumber(areaCode string, used map[string]bool) (string, bool) {
	for i := 0; i < maxPhoneAttempts; i++ {
		n := s.estimator.Phone(areaCode)
		if !used[n] && phone.IsValidMobile(n, areaCode) {
			return n, true
		}
	}
	return "", false
}

func (s *Searcher) annotate(r models.Restaurant, q Query) models.Restaurant {
	r.Address = fmt.Sprintf("%s - %s", q.City, q.State)
	r.Rating = s.estimator.Rating(r.Name, q.FoodType)
	r.EstimatedTime = s.estimator.DeliveryTime(q.FoodType, q.City)
	r.EstimatedPrice = s.estimator.PriceRange(q.FoodType, q.City)
	r.Specialty = Specialty(q.FoodType)
	return r
}
