package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/deliverybuddy/internal/logger"
	"github.com/avvvet/deliverybuddy/internal/models"
	"github.com/avvvet/deliverybuddy/internal/phone"
	"github.com/avvvet/deliverybuddy/internal/search"
)

type fakeClient struct {
	mu        sync.Mutex
	responses map[string][]search.Result
	err       error
	queries   []string
}

func (f *fakeClient) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.responses[query], nil
}

type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	text, ok := f.pages[url]
	if !ok {
		return "", errors.New("not found")
	}
	return text, nil
}

type fakeEstimator struct {
	mu     sync.Mutex
	phones []string
	next   int
}

func (f *fakeEstimator) Rating(name, foodType string) float64      { return 4.5 }
func (f *fakeEstimator) DeliveryTime(foodType, city string) string { return "30-45 min" }
func (f *fakeEstimator) PriceRange(foodType, city string) string   { return "R$ 30-60" }

func (f *fakeEstimator) Phone(areaCode string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next < len(f.phones) {
		p := f.phones[f.next]
		f.next++
		return p
	}
	f.next++
	return fmt.Sprintf("55%s9%08d", areaCode, 12345670+f.next)
}

var voltaRedonda = Query{FoodType: "pizza", City: "Volta Redonda", State: "RJ"}

func newTestSearcher(client search.Client, fetcher search.Fetcher, est Estimator) *Searcher {
	return NewSearcher(client, fetcher, est, Options{DefaultAreaCode: "24", DefaultState: "RJ"}, logger.NewNoOpLogger())
}

func TestSearch_VerifiedAndPadded(t *testing.T) {
	discovery := "pizza restaurante delivery Volta Redonda RJ"
	dominos := contactQueries("Domino's Pizza", "24", "Volta Redonda")
	napoli := contactQueries("Pizzaria Napoli", "24", "Volta Redonda")

	client := &fakeClient{responses: map[string][]search.Result{
		discovery: {
			{Title: "Pizzaria Napoli - Delivery", Link: "https://napoli.com.br", Snippet: "A melhor de Volta Redonda"},
			{Title: "Domino's Pizza | Volta Redonda", Link: "https://dominos.com.br/vr", Snippet: "Peça já"},
			{Title: "Casa do Sabor", Link: "https://casadosabor.com", Snippet: "delivery em Volta Redonda"},
			{Title: "Pizza Paulista", Link: "https://pizzapaulista.com", Snippet: "São Paulo capital"},
		},
		dominos[0]: {{Title: "Domino's", Snippet: "WhatsApp (24) 99811-2233"}},
		napoli[0]:  {{Title: "Napoli", Snippet: "Pedidos (24) 99811-2233"}},
		napoli[1]:  {{Title: "Napoli contato", Link: "https://napoli.com.br/contato", Snippet: "Fale conosco"}},
	}}
	fetcher := &fakeFetcher{pages: map[string]string{
		"https://napoli.com.br/contato": "Chame no https://wa.me/5524998877665 agora",
	}}
	est := &fakeEstimator{phones: []string{"5524998112233", "5524997776655"}}

	got := newTestSearcher(client, fetcher, est).Search(context.Background(), voltaRedonda)

	require.Len(t, got, 3)
	assert.Equal(t, "Domino's Pizza", got[0].Name)
	assert.Equal(t, "5524998112233", got[0].ContactNumber)
	assert.True(t, got[0].Verified)

	assert.Equal(t, "Pizzaria Napoli", got[1].Name)
	assert.Equal(t, "5524998877665", got[1].ContactNumber)
	assert.True(t, got[1].Verified)

	assert.Equal(t, "Pizzaria Bella Napoli", got[2].Name)
	assert.Equal(t, "5524997776655", got[2].ContactNumber)
	assert.False(t, got[2].Verified)

	for _, r := range got {
		assert.Equal(t, 4.5, r.Rating)
		assert.Equal(t, "Pizzas tradicionais e especiais", r.Specialty)
		assert.Equal(t, "Volta Redonda - RJ", r.Address)
	}
	assertDistinctValidNumbers(t, got, "24")
}

func TestSearch_NoEstablishmentsReturnsEmpty(t *testing.T) {
	client := &fakeClient{responses: map[string][]search.Result{}}

	got := newTestSearcher(client, &fakeFetcher{}, &fakeEstimator{}).Search(context.Background(), voltaRedonda)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearch_SearchFailureReturnsEmpty(t *testing.T) {
	client := &fakeClient{err: search.ErrSearchFailed}

	got := newTestSearcher(client, &fakeFetcher{}, &fakeEstimator{}).Search(context.Background(), voltaRedonda)

	assert.Empty(t, got)
	assert.Len(t, client.queries, 1)
}

func TestSearch_NotConfiguredRunsFallbackOnly(t *testing.T) {
	client := &fakeClient{err: search.ErrNotConfigured}

	got := newTestSearcher(client, &fakeFetcher{}, &fakeEstimator{}).Search(context.Background(), voltaRedonda)

	require.Len(t, got, MaxCandidates)
	for i, r := range got {
		assert.Equal(t, FallbackNames("pizza")[i], r.Name)
		assert.False(t, r.Verified)
		assert.NotEqual(t, PlaceholderName, r.Name)
	}
	assertDistinctValidNumbers(t, got, "24")
	assert.Len(t, client.queries, 1)
}

func TestSearch_RejectsForeignAreaCode(t *testing.T) {
	discovery := "sushi restaurante delivery Volta Redonda RJ"
	queries := contactQueries("Sushi Kyoto", "24", "Volta Redonda")

	client := &fakeClient{responses: map[string][]search.Result{
		discovery:  {{Title: "Sushi Kyoto", Link: "https://kyoto.com.br", Snippet: "Volta Redonda"}},
		queries[0]: {{Snippet: "WhatsApp (21) 99811-2233"}},
		queries[1]: {{Snippet: "Tel (24) 99999-9999"}},
	}}

	q := Query{FoodType: "sushi", City: "Volta Redonda", State: "RJ"}
	got := newTestSearcher(client, &fakeFetcher{}, &fakeEstimator{}).Search(context.Background(), q)

	require.Len(t, got, MaxCandidates)
	for _, r := range got {
		assert.False(t, r.Verified)
		assert.NotEqual(t, "Sushi Kyoto", r.Name)
	}
	assertDistinctValidNumbers(t, got, "24")
}

func TestSearch_UsesCityAreaCode(t *testing.T) {
	client := &fakeClient{err: search.ErrNotConfigured}
	q := Query{FoodType: "hamburguer", City: "Curitiba"}

	got := newTestSearcher(client, &fakeFetcher{}, &fakeEstimator{}).Search(context.Background(), q)

	require.NotEmpty(t, got)
	assert.Equal(t, "Curitiba - PR", got[0].Address)
	assertDistinctValidNumbers(t, got, "41")
}

func TestRankEstablishments(t *testing.T) {
	results := []search.Result{
		{Title: "Lanchonete do Zé", Link: "https://ze.com.br"},
		{Title: "Burger King - Volta Redonda", Link: "https://bk.com"},
		{Title: "Madero Steak House | Shopping", Link: "https://madero.com.br"},
		{Title: "Outro lugar", Link: "https://outro.com", Snippet: "Resende"},
		{Title: "Burger King - Centro", Link: "https://bk.com.br"},
	}

	got := rankEstablishments(results, Query{FoodType: "hamburguer", City: "Volta Redonda"})

	require.Len(t, got, 3)
	assert.Equal(t, "Madero Steak House", got[0].Name)
	assert.Equal(t, "Burger King", got[1].Name)
	assert.Equal(t, "Lanchonete do Zé", got[2].Name)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestEstablishmentName(t *testing.T) {
	assert.Equal(t, "Pizzaria Bella", establishmentName("Pizzaria Bella - Volta Redonda | iFood"))
	assert.Equal(t, "Sushi Bar", establishmentName("Sushi Bar – Delivery"))
	assert.Equal(t, "Casa", establishmentName("  Casa  "))
}

func TestScanNumbers(t *testing.T) {
	used := map[string]bool{"5524991112222": true}

	n, ok := scanNumbers("ligue +55 (24) 99111-2222 ou 24 9 9333-4444", "24", used)
	assert.True(t, ok)
	assert.Equal(t, "5524993334444", n)

	_, ok = scanNumbers("fixo (24) 3333-4444", "24", nil)
	assert.False(t, ok)
}

func TestSpecialtyDefault(t *testing.T) {
	assert.Equal(t, "Delivery", Specialty("feijoada"))
}

func assertDistinctValidNumbers(t *testing.T, got []models.Restaurant, areaCode string) {
	t.Helper()
	seen := make(map[string]bool)
	for _, r := range got {
		assert.True(t, phone.IsValidMobile(r.ContactNumber, areaCode), r.ContactNumber)
		assert.False(t, seen[r.ContactNumber], "duplicate number %s", r.ContactNumber)
		seen[r.ContactNumber] = true
	}
}
