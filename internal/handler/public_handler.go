package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/nexsite/internal/binding"
	"github.com/nexsite/internal/catalog"
	"github.com/nexsite/internal/consult"
	"github.com/nexsite/internal/db"
)

// Sections shown on the home page, in fetch order.
const (
	sectionHome          = "home"
	sectionAIFacts       = "ai_facts"
	sectionAIFactsStats  = "ai_facts_stats"
	sectionAbout         = "about"
	sectionAboutBenefits = "about_benefits"
	sectionFAQ           = "faq"
)

var homeSections = []string{
	sectionHome,
	sectionAIFacts,
	sectionAIFactsStats,
	sectionAbout,
	sectionAboutBenefits,
	sectionFAQ,
}

type heroView struct {
	Title    string
	Content  string
	Subtitle string
	CTAText  string
	CTALink  string
}

type factsView struct {
	Title    string
	Content  string
	Headline []string
}

type statView struct {
	Value string
	Label string
	Quote string
}

type aboutView struct {
	Title   string
	Content string
	Mission string
	Vision  string
}

type benefitView struct {
	Title   string
	Content string
	Icon    string
}

type faqView struct {
	Question string
	Answer   string
}

var (
	heroBinding = binding.Binding[heroView]{
		Section: sectionHome,
		Fallback: heroView{
			Title:    "AI Solutions That Work as Hard as You Do",
			Content:  "From intelligent chatbots to automated workflows, we help businesses run smoother, faster and smarter.",
			Subtitle: "probably harder",
			CTAText:  "Let's Get Automating",
			CTALink:  "#consultation",
		},
		Bind: func(items []db.ContentItem, fallback heroView) heroView {
			item, _ := binding.First(items)
			subtitle, _ := item.Metadata.String("subtitle")
			ctaText, _ := item.Metadata.String("cta_text")
			ctaLink, _ := item.Metadata.String("cta_link")
			return heroView{
				Title:    item.Title,
				Content:  item.Content,
				Subtitle: subtitle,
				CTAText:  binding.TextOr(ctaText, fallback.CTAText),
				CTALink:  binding.TextOr(ctaLink, fallback.CTALink),
			}
		},
	}

	factsBinding = binding.Binding[factsView]{
		Section:  sectionAIFacts,
		Fallback: factsView{Title: "AI IS CHANGING THE GAME. ARE YOU READY?"},
		Bind: func(items []db.ContentItem, _ factsView) factsView {
			item, _ := binding.First(items)
			return factsView{Title: item.Title, Content: item.Content}
		},
	}

	statsBinding = binding.Binding[[]statView]{
		Section: sectionAIFactsStats,
		Bind: func(items []db.ContentItem, _ []statView) []statView {
			stats := make([]statView, 0, len(items))
			for _, item := range items {
				quote, _ := item.Metadata.String("quote")
				stats = append(stats, statView{
					Value: statValue(item),
					Label: item.Content,
					Quote: quote,
				})
			}
			return stats
		},
	}

	aboutBinding = binding.Binding[aboutView]{
		Section: sectionAbout,
		Fallback: aboutView{
			Title:   "Maximise Efficiency and Impact",
			Content: "Why Partner with Us? The key advantages of adopting AI in your business.",
			Mission: "We believe AI should empower people, not replace them. Our mission is to create smarter businesses that put people first whist still increasing productivity and time.",
			Vision:  "A future where businesses grow effortlessly, people work smarter, and technology bridges gaps, not creates them.",
		},
		Bind: func(items []db.ContentItem, _ aboutView) aboutView {
			item, _ := binding.First(items)
			mission, _ := item.Metadata.String("mission")
			vision, _ := item.Metadata.String("vision")
			return aboutView{
				Title:   item.Title,
				Content: item.Content,
				Mission: mission,
				Vision:  vision,
			}
		},
	}

	benefitsBinding = binding.Binding[[]benefitView]{
		Section: sectionAboutBenefits,
		Bind: func(items []db.ContentItem, _ []benefitView) []benefitView {
			benefits := make([]benefitView, 0, len(items))
			for _, item := range items {
				icon, _ := item.Metadata.String("icon")
				benefits = append(benefits, benefitView{Title: item.Title, Content: item.Content, Icon: icon})
			}
			return benefits
		},
	}

	faqBinding = binding.Binding[[]faqView]{
		Section: sectionFAQ,
		Bind: func(items []db.ContentItem, _ []faqView) []faqView {
			faqs := make([]faqView, 0, len(items))
			for _, item := range items {
				faqs = append(faqs, faqView{Question: item.Title, Answer: item.Content})
			}
			return faqs
		},
	}
)

// statValue formats a stat card's figure: "$<to>T" for trillion figures,
// otherwise the leading integer of the title as a percentage.
func statValue(item db.ContentItem) string {
	if trillions, _ := item.Metadata.Bool("isTrillions"); trillions {
		to, _ := item.Metadata.Float("to")
		return "$" + strconv.FormatFloat(to, 'f', -1, 64) + "T"
	}
	return strconv.Itoa(leadingInt(item.Title)) + "%"
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && unicode.IsDigit(rune(s[end])) {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// headline splits a title at its full stops for line-by-line display.
func headline(title string) []string {
	var parts []string
	for _, part := range strings.Split(title, ".") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// consultationView is the consultation block's state for one render.
type consultationView struct {
	Form       consult.Form
	Outcome    consult.Outcome
	Notice     string
	Industries []string
}

func newConsultationView(form consult.Form, outcome consult.Outcome, notice string) consultationView {
	if outcome.State == "" {
		outcome.State = consult.StateEditing
	}
	return consultationView{Form: form, Outcome: outcome, Notice: notice, Industries: consult.Industries}
}

// ShowHome renders the composite single page.
func (a *API) ShowHome(c *gin.Context) {
	a.renderSite(c, http.StatusOK, newConsultationView(consult.Form{}, consult.Outcome{}, ""))
}

// renderSite fetches the page's sections and renders it with the given
// consultation state. A request whose context ended during the fetch gets
// no page.
func (a *API) renderSite(c *gin.Context, status int, consultation consultationView) {
	sections, err := binding.Fetch(c.Request.Context(), a.content, homeSections...)
	if err != nil {
		c.Error(err)
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}

	facts := factsBinding.Resolve(sections)
	facts.Headline = headline(facts.Title)

	a.renderHTML(c, status, "site.html", gin.H{
		"title":        a.siteName,
		"hero":         heroBinding.Resolve(sections),
		"facts":        facts,
		"stats":        statsBinding.Resolve(sections),
		"about":        aboutBinding.Resolve(sections),
		"benefits":     benefitsBinding.Resolve(sections),
		"faqs":         faqBinding.Resolve(sections),
		"services":     a.catalog.Services,
		"tools":        a.catalog.Tools,
		"process":      a.catalog.Process,
		"consultation": consultation,
	})
}

// ShowService renders one service's detail page.
func (a *API) ShowService(c *gin.Context) {
	svc, err := a.catalog.Service(c.Param("serviceId"))
	if err != nil {
		if errors.Is(err, catalog.ErrServiceNotFound) {
			a.renderHTML(c, http.StatusNotFound, "not_found.html", gin.H{
				"title":   "Service not found",
				"message": "The service you are looking for does not exist.",
			})
			return
		}
		c.Error(err)
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	a.renderHTML(c, http.StatusOK, "service.html", gin.H{
		"title":   svc.Title,
		"service": svc,
	})
}

// ShowHowAIHelps renders the industry helper page.
func (a *API) ShowHowAIHelps(c *gin.Context) {
	a.renderHTML(c, http.StatusOK, "how_ai_helps.html", gin.H{
		"title":      "How AI Helps",
		"industries": a.catalog.Industries,
	})
}

// ShowNotFound is the fallback for unknown routes.
func (a *API) ShowNotFound(c *gin.Context) {
	a.renderHTML(c, http.StatusNotFound, "not_found.html", gin.H{
		"title":   "Page not found",
		"message": "The page you are looking for does not exist.",
	})
}

// GetSectionContent returns the active items of one section.
func (a *API) GetSectionContent(c *gin.Context) {
	section := strings.TrimSpace(c.Param("section"))
	items := a.content.FetchSection(c.Request.Context(), section)
	if items == nil {
		items = []db.ContentItem{}
	}
	c.JSON(http.StatusOK, gin.H{
		"section": section,
		"items":   items,
	})
}
