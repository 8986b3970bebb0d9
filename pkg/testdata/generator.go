// Package testdata generates realistic users, researches and reports for
// tests and the demo seed.
package testdata

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/jordanlanch/rivalscope/pkg/models"
)

// DefaultPassword is the plaintext password of every generated user
const DefaultPassword = "password123"

// LocationData maps Brazilian states to some of their largest cities
var LocationData = map[string][]string{
	"SP": {"São Paulo", "Campinas", "Santos", "Ribeirão Preto", "Sorocaba"},
	"RJ": {"Rio de Janeiro", "Niterói", "Petrópolis", "Duque de Caxias"},
	"MG": {"Belo Horizonte", "Uberlândia", "Juiz de Fora", "Contagem"},
	"PR": {"Curitiba", "Londrina", "Maringá", "Ponta Grossa"},
	"RS": {"Porto Alegre", "Caxias do Sul", "Pelotas", "Canoas"},
	"BA": {"Salvador", "Feira de Santana", "Vitória da Conquista"},
	"PE": {"Recife", "Olinda", "Caruaru", "Petrolina"},
	"SC": {"Florianópolis", "Joinville", "Blumenau", "Chapecó"},
}

// SalesChannels are the channel ids offered by the research form
var SalesChannels = []string{
	"physical", "website", "marketplace", "socialMedia", "whatsapp", "email",
	"outdoorAds", "resellers", "affiliates", "delivery", "deliveryApps", "phoneOrders",
}

// Aspects are the analysis aspect ids offered by the research form
var Aspects = []string{"preco", "produtos", "marketing", "online", "clientes", "diferenciais", "swot"}

// categoryProducts maps a product category to products sold in it and the
// words competitor names are built from
var categoryProducts = map[string]struct {
	Products []string
	Prefixes []string
	Suffixes []string
}{
	"food": {
		Products: []string{"Artisan bakery", "Vegan burger", "Craft beer", "Açaí bowls"},
		Prefixes: []string{"Sabor", "Casa", "Fresh", "Golden", "Urban"},
		Suffixes: []string{"Kitchen", "Bistrô", "Foods", "Grill", "Empório"},
	},
	"fashion": {
		Products: []string{"Streetwear", "Sustainable sneakers", "Beachwear", "Plus-size clothing"},
		Prefixes: []string{"Moda", "Urban", "Style", "Trend", "Chic"},
		Suffixes: []string{"Boutique", "Store", "Wear", "Closet", "Ateliê"},
	},
	"tech": {
		Products: []string{"CRM", "Point-of-sale app", "Inventory SaaS", "Scheduling app"},
		Prefixes: []string{"Cloud", "Smart", "Nexus", "Data", "Byte"},
		Suffixes: []string{"Tech", "Labs", "Systems", "Soft", "Hub"},
	},
	"beauty": {
		Products: []string{"Natural cosmetics", "Hair salon", "Nail studio", "Skincare line"},
		Prefixes: []string{"Bella", "Glow", "Pure", "Divine", "Luxe"},
		Suffixes: []string{"Beauty", "Studio", "Cosméticos", "Spa", "Salon"},
	},
	"education": {
		Products: []string{"English course", "Coding bootcamp", "Exam prep", "Music school"},
		Prefixes: []string{"Saber", "Mind", "Next", "Prime", "Future"},
		Suffixes: []string{"Academy", "Escola", "Institute", "Learning", "Cursos"},
	},
	"pet": {
		Products: []string{"Pet shop", "Dog daycare", "Premium pet food", "Veterinary clinic"},
		Prefixes: []string{"Pet", "Amigo", "Happy", "Bicho", "Patas"},
		Suffixes: []string{"Center", "Shop", "Care", "Vet", "Club"},
	},
}

// Generator produces deterministic fixtures for a given seed
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator creates a generator. The same seed yields the same fixtures.
func NewGenerator(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Categories returns the known product categories
func Categories() []string {
	out := make([]string, 0, len(categoryProducts))
	for c := range categoryProducts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// RegisterRequest returns a valid registration with DefaultPassword
func (g *Generator) RegisterRequest() models.RegisterRequest {
	first := g.faker.FirstName()
	last := g.faker.LastName()
	username := strings.ToLower(fmt.Sprintf("%s.%s%d", first, last, g.faker.Number(10, 999)))
	username = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, username)

	return models.RegisterRequest{
		Username:  username,
		Password:  DefaultPassword,
		FirstName: first,
		LastName:  &last,
		Email:     username + "@" + g.faker.DomainName(),
	}
}

// CompetitorNames returns n distinct competitor names for category
func (g *Generator) CompetitorNames(category string, n int) []string {
	parts, ok := categoryProducts[category]
	seen := make(map[string]bool, n)
	names := make([]string, 0, n)
	for attempts := 0; len(names) < n && attempts < n*20; attempts++ {
		var name string
		if ok {
			name = g.faker.RandomString(parts.Prefixes) + " " + g.faker.RandomString(parts.Suffixes)
		} else {
			name = g.faker.Company()
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

// CreateResearchRequest returns a valid research submission
func (g *Generator) CreateResearchRequest(autoFind bool) models.CreateResearchRequest {
	category := g.faker.RandomString(Categories())
	state := g.faker.RandomString(keys(LocationData))

	req := models.CreateResearchRequest{
		Product:             g.faker.RandomString(categoryProducts[category].Products),
		ProductCategory:     category,
		SalesChannels:       g.pick(SalesChannels, 1, 3),
		Country:             "BR",
		State:               state,
		City:                g.faker.RandomString(LocationData[state]),
		AutoFindCompetitors: autoFind,
		AspectsToAnalyze:    g.pick(Aspects, 1, 4),
	}
	req.Title = fmt.Sprintf("%s in %s", req.Product, req.City)
	if !autoFind {
		list := strings.Join(g.CompetitorNames(category, 3), ", ")
		req.Competitors = &list
	}
	return req
}

// Research returns a research owned by userID in the given status
func (g *Generator) Research(userID int, autoFind bool, status models.ResearchStatus) *models.Research {
	r := g.CreateResearchRequest(autoFind).ToResearch(userID)
	r.Status = status
	if autoFind && status == models.ResearchCompleted {
		list := strings.Join(g.CompetitorNames(r.ProductCategory, 5), ", ")
		r.Competitors = &list
	}
	return r
}

// ReportContent returns a complete report for research. Optional sections
// follow the research toggles.
func (g *Generator) ReportContent(research *models.Research) models.ReportContent {
	names := research.ManualCompetitors()
	if len(names) == 0 {
		names = g.CompetitorNames(research.ProductCategory, 5)
	}

	content := models.ReportContent{
		Competitors: make([]models.CompetitorProfile, 0, len(names)),
		Conclusions: models.Conclusions{
			Findings:        g.sentences(3),
			Opportunities:   g.sentences(2),
			Recommendations: g.sentences(3),
		},
	}

	features := g.pick([]string{"Free shipping", "Loyalty program", "Mobile app", "24h support", "Subscription plan"}, 3, 4)
	price := &models.PriceComparison{Analysis: g.faker.Sentence(12)}
	feature := &models.FeatureComparison{Features: features, Analysis: g.faker.Sentence(12)}
	positioning := &models.MarketPositioning{Analysis: g.faker.Sentence(12)}
	share := &models.MarketShare{Analysis: g.faker.Sentence(10)}

	remaining := 100.0
	for i, name := range names {
		content.Competitors = append(content.Competitors, models.CompetitorProfile{
			Name:        name,
			Website:     "https://" + slug(name) + ".com.br",
			Description: g.faker.Sentence(10),
		})
		price.Data = append(price.Data, models.PricePoint{Competitor: name, Price: g.faker.Price(20, 500)})

		row := models.FeatureRow{Competitor: name}
		for range features {
			row.HasFeature = append(row.HasFeature, g.faker.Bool())
		}
		feature.Data = append(feature.Data, row)

		s := remaining / 2
		if i == len(names)-1 {
			s = remaining
		}
		remaining -= s
		share.Data = append(share.Data, models.SharePoint{Competitor: name, Share: round(s)})
		positioning.Data = append(positioning.Data, models.PositioningPoint{
			Competitor:  name,
			X:           round(g.faker.Float64Range(0, 10)),
			Y:           round(g.faker.Float64Range(0, 10)),
			MarketShare: round(s),
		})
	}
	content.PriceComparison = price
	content.FeatureComparison = feature
	content.MarketPositioning = positioning
	content.MarketShare = share

	if research.IncludeGoogleAnalytics {
		content.GoogleAnalytics = &models.GoogleAnalytics{
			Keywords: []string{strings.ToLower(research.Product), research.ProductCategory, research.City},
			TrafficSources: []models.TrafficSource{
				{Source: "Organic search", Percentage: 45},
				{Source: "Social", Percentage: 30},
				{Source: "Direct", Percentage: 25},
			},
			AverageTimeOnSite: fmt.Sprintf("%dm %02ds", g.faker.Number(1, 5), g.faker.Number(0, 59)),
			BounceRate:        fmt.Sprintf("%d%%", g.faker.Number(25, 70)),
			Analysis:          g.faker.Sentence(12),
		}
	}
	if research.IncludeGoogleTrends {
		trends := &models.GoogleTrends{Analysis: g.faker.Sentence(12)}
		for _, month := range []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"} {
			trends.InterestOverTime = append(trends.InterestOverTime, models.InterestPoint{
				Month: month,
				Value: float64(g.faker.Number(20, 100)),
			})
		}
		trends.RelatedTopics = []models.RelatedTopic{
			{Name: g.faker.BuzzWord(), Growth: fmt.Sprintf("+%d%%", g.faker.Number(5, 200))},
			{Name: g.faker.BuzzWord(), Growth: fmt.Sprintf("+%d%%", g.faker.Number(5, 200))},
		}
		content.GoogleTrends = trends
	}
	return content
}

// pick returns between min and max distinct items of options
func (g *Generator) pick(options []string, min, max int) []string {
	shuffled := append([]string(nil), options...)
	g.faker.ShuffleStrings(shuffled)
	n := g.faker.Number(min, max)
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}

func (g *Generator) sentences(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = g.faker.Sentence(8)
	}
	return out
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func slug(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}

func round(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
