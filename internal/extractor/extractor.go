// Package extractor derives a structured order from freeform chat messages.
package extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/avvvet/deliverybuddy/internal/models"
	"github.com/avvvet/deliverybuddy/internal/phone"
	"github.com/avvvet/deliverybuddy/internal/textnorm"
)

const maxNameLength = 30

var (
	introName = regexp.MustCompile(`\b(?i:meu nome é|meu nome e|me chamo|my name is|eu sou o|eu sou a|eu sou|sou o|sou a|i am|i'm)\s+(\p{L}+(?:\s+\p{Lu}\p{L}*)?)`)
	labelName = regexp.MustCompile(`(?i:nome)\s*:\s*(\p{L}+(?:\s+\p{L}+){0,3})`)
	bareName  = regexp.MustCompile(`^\s*(\p{L}+)\s*[.!]?\s*$`)

	labeledAddress = regexp.MustCompile(`(?i:endereço|endereco|address|entregar na|entregar no|entregar em|entrega na|entrega no|entrega em|deliver to|moro na|moro no|moro em|i live at)\s*:?\s*([^,\n]+(?:,\s*\d{1,5}\b[^,\n]*)*)`)
	streetAddress  = regexp.MustCompile(`(?i)\b(?:rua|avenida|av\.|r\.|travessa|tv\.|alameda|estrada|rodovia)\s+[^,\n]+(?:,\s*\d{1,5}\b[^,\n]*)*`)

	labeledPhone = regexp.MustCompile(`\b(?i:telefone|tel|celular|cel|whatsapp|whats|zap|fone|contato|numero|número|phone)\s*:?\s*((?:\+?55[\s.-]?)?(?:\(\d{2}\)|\d{2})\s*9?\s*\d{4}[\s.-]?\d{4})\b`)
	shapedPhone  = regexp.MustCompile(`(?:\+?\b55[\s.-]?(?:\(\d{2}\)|\d{2})|\(\d{2}\)|\b\d{2})\s*\d{4,5}[\s-]?\d{4}\b`)
	barePhone    = regexp.MustCompile(`\b\d{10,13}\b`)

	changeAmount = regexp.MustCompile(`(?i)\btroco\s*(?::|para|pra|p/|de)\s*(?:r\$\s*)?(\d{1,4})\b`)
)

// Extractor turns conversation history into an ExtractedOrder. It is a pure function
// of its input and safe to run on every turn.
type Extractor struct {
	DefaultCity string
}

func New(defaultCity string) *Extractor {
	return &Extractor{DefaultCity: defaultCity}
}

// Extract reads all prior user messages plus the newest one. Fields that cannot be
// matched stay empty.
func (e *Extractor) Extract(history []string, current string) models.ExtractedOrder {
	messages := make([]string, 0, len(history)+1)
	for _, m := range history {
		if strings.TrimSpace(m) != "" {
			messages = append(messages, m)
		}
	}
	if strings.TrimSpace(current) != "" {
		messages = append(messages, current)
	}
	all := strings.Join(messages, "\n")

	var order models.ExtractedOrder
	order.ClientName = extractName(messages)
	order.Food, order.FoodType = extractFood(all, messages)
	order.Address, order.City = e.extractAddress(messages)
	order.Phone = extractPhone(messages)
	if method, ok := PaymentRules.Match(all); ok {
		order.PaymentMethod = method
	}
	if m := changeAmount.FindStringSubmatch(all); m != nil {
		order.Change = m[1]
	}
	return order
}

func extractName(messages []string) string {
	for _, re := range []*regexp.Regexp{introName, labelName} {
		for _, msg := range messages {
			if m := re.FindStringSubmatch(msg); m != nil {
				if name, ok := cleanName(m[1]); ok {
					return name
				}
			}
		}
	}

	for _, msg := range messages {
		m := bareName.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		if _, food := FoodRules.Match(m[1]); food {
			continue
		}
		if _, pay := PaymentRules.Match(m[1]); pay {
			continue
		}
		if name, ok := cleanName(m[1]); ok {
			return name
		}
	}
	return ""
}

func cleanName(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if utf8.RuneCountInString(candidate) < 2 {
		return "", false
	}
	if strings.IndexFunc(candidate, unicode.IsDigit) >= 0 {
		return "", false
	}
	first := strings.ToLower(strings.Fields(candidate)[0])
	if nameStopwords[first] {
		return "", false
	}

	name := textnorm.Title(candidate)
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return strings.TrimSpace(name), true
}

// extractFood picks the category from the whole conversation, then keeps the first
// message mentioning the winning keyword verbatim.
func extractFood(all string, messages []string) (string, string) {
	rule, ok := FoodRules.MatchRule(all)
	if !ok {
		return "", ""
	}
	keyword := textnorm.Fold(rule.Pattern)
	for _, msg := range messages {
		if strings.Contains(textnorm.Fold(msg), keyword) {
			return strings.TrimSpace(msg), rule.Tag
		}
	}
	return "", ""
}

func (e *Extractor) extractAddress(messages []string) (string, string) {
	address := ""
	for _, msg := range messages {
		if m := labeledAddress.FindStringSubmatch(msg); m != nil {
			address = m[1]
			break
		}
	}
	if address == "" {
		for _, msg := range messages {
			if m := streetAddress.FindString(msg); m != "" {
				address = m
				break
			}
		}
	}

	address = strings.TrimRight(strings.TrimSpace(address), ".;!")
	if address == "" {
		return "", ""
	}

	if city, ok := phone.FindCity(address); ok {
		return address, city.Name
	}
	return address, e.DefaultCity
}

func extractPhone(messages []string) string {
	for _, re := range []*regexp.Regexp{labeledPhone, shapedPhone, barePhone} {
		for _, msg := range messages {
			for _, m := range re.FindAllStringSubmatch(msg, -1) {
				candidate := m[0]
				if len(m) > 1 {
					candidate = m[1]
				}
				if digits, ok := localNumber(candidate); ok {
					return digits
				}
			}
		}
	}
	return ""
}

// localNumber strips a leading country code and accepts area code plus 8 or 9 digits.
func localNumber(candidate string) (string, bool) {
	digits := phone.Digits(candidate)
	if (len(digits) == 12 || len(digits) == 13) && strings.HasPrefix(digits, phone.CountryCode) {
		digits = digits[len(phone.CountryCode):]
	}
	return digits, len(digits) == 10 || len(digits) == 11
}
