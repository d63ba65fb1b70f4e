// Package market implements the competitor-data collaborator: it scrapes a
// marketplace listing page for offers and resolves each offer's real price
// from its detail page's price-option widget.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/fairyhunter13/plati-repricer/internal/model"
	"github.com/fairyhunter13/plati-repricer/internal/obs"
)

// Scraper fetches competitor offers from marketplace listing pages.
type Scraper struct {
	client  *http.Client
	baseURL string
}

// NewScraper creates a Scraper for the marketplace at baseURL with the given
// request timeout.
func NewScraper(baseURL string, timeout time.Duration) *Scraper {
	return newScraper(&http.Client{Timeout: timeout}, baseURL)
}

// newScraper is the internal constructor; tests inject client and base URL.
func newScraper(client *http.Client, baseURL string) *Scraper {
	return &Scraper{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// FetchOffers scrapes the listing page and returns one Offer per card.
// Each card's detail page is fetched concurrently to resolve the price of the
// option matching the variant keywords; when no option matches, the card's
// outside price is kept.
func (s *Scraper) FetchOffers(ctx context.Context, listingURL, keywords string) ([]model.Offer, error) {
	doc, err := s.fetchDocument(ctx, listingURL)
	if err != nil {
		return nil, err
	}

	offers := s.parseListing(doc)
	if len(offers) == 0 {
		return nil, model.ErrOfferNotFound
	}

	var wg sync.WaitGroup
	for i := range offers {
		if offers[i].Link == "" {
			continue
		}
		wg.Add(1)
		go func(o *model.Offer) {
			defer wg.Done()
			price, err := s.insidePrice(ctx, o.Link, keywords)
			if err != nil {
				obs.Logger.Warn("offer_inside_price_failed", "link", o.Link, "error", err)
				return
			}
			if price != nil {
				o.Price = price
			}
		}(&offers[i])
	}
	wg.Wait()

	return offers, nil
}

// parseListing extracts offer cards from the listing document.
func (s *Scraper) parseListing(doc *goquery.Document) []model.Offer {
	var offers []model.Offer
	doc.Find("ul#item_list li.section-list__item").Each(func(_ int, card *goquery.Selection) {
		link := card.Find("a.card").First()
		if link.Length() == 0 {
			return
		}

		o := model.Offer{
			Name:   strings.TrimSpace(link.AttrOr("title", "")),
			Seller: strings.TrimSpace(card.Find(".card__seller-name").First().Text()),
		}

		if href, ok := link.Attr("href"); ok {
			o.Link = s.absoluteURL(href)
		}
		if p := normalizePrice(link.Find("span.title-bold").First().Text()); p != nil {
			o.Price = p
		}
		card.Find("span").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			text := sel.Text()
			if !strings.Contains(text, "Sold") {
				return true
			}
			o.SoldCount = parseCount(text)
			return false
		})

		offers = append(offers, o)
	})
	return offers
}

// insidePrice resolves the detail-page price for the option matching the
// keyword list. Returns nil when no option matches.
func (s *Scraper) insidePrice(ctx context.Context, link, keywords string) (*float64, error) {
	doc, err := s.fetchDocument(ctx, link)
	if err != nil {
		return nil, err
	}

	options := s.parsePriceOptions(doc)
	priceURL := matchOptionURL(options, keywords)
	if priceURL == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, priceURL, nil)
	if err != nil {
		return nil, err
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, &model.ConnectivityError{Op: "market option price", Err: err}
	}
	defer func() { _ = res.Body.Close() }()
	if res.StatusCode != http.StatusOK {
		return nil, &model.ConnectivityError{Op: "market option price", Err: fmt.Errorf("status %d", res.StatusCode)}
	}

	var payload struct {
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload.Price, nil
}

// priceOption is one selectable price chip on a detail page.
type priceOption struct {
	priceText  string
	requestURL string
}

// parsePriceOptions extracts the price-option chips and builds the price
// lookup URL for each one.
func (s *Scraper) parsePriceOptions(doc *goquery.Document) []priceOption {
	var options []priceOption
	currency := "USD"
	doc.Find("div.id_chips_container div.chips--large").Each(func(_ int, chip *goquery.Selection) {
		input := chip.Find("input.chips__input").First()
		label := chip.Find("label.chips__label").First()
		if input.Length() == 0 || label.Length() == 0 {
			return
		}

		itemID := input.AttrOr("data-item-id", "")
		optionID := input.AttrOr("data-id", "")
		valueID := input.AttrOr("value", "")
		priceText := strings.TrimSpace(label.Text())

		if m := currencyPattern.FindString(priceText); m != "" {
			currency = strings.ToUpper(m)
		}
		if itemID == "" || optionID == "" || valueID == "" {
			return
		}

		xml := fmt.Sprintf(`<response><option O="%s" V="%s"/></response>`, optionID, valueID)
		options = append(options, priceOption{
			priceText: priceText,
			requestURL: fmt.Sprintf("%s/asp/price_options.asp?p=%s&c=%s&x=%s",
				s.baseURL, itemID, currency, url.QueryEscape(xml)),
		})
	})
	return options
}

// matchOptionURL picks the option matching any keyword. A keyword that parses
// as a number matches an option with the same numeric price; otherwise the
// keyword must appear as a whole word in the option text.
func matchOptionURL(options []priceOption, keywords string) string {
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}

		if target := normalizePrice(kw); target != nil {
			for _, opt := range options {
				if p := normalizePrice(opt.priceText); p != nil && floatsEqual(*p, *target) {
					return opt.requestURL
				}
			}
		}

		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
		if err != nil {
			continue
		}
		for _, opt := range options {
			if pattern.MatchString(opt.priceText) {
				return opt.requestURL
			}
		}
	}
	return ""
}

func floatsEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}

// fetchDocument GETs a page with browser-like headers and parses it.
func (s *Scraper) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	res, err := s.client.Do(req)
	if err != nil {
		return nil, &model.ConnectivityError{Op: "market fetch " + pageURL, Err: err}
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= http.StatusInternalServerError {
		return nil, &model.ConnectivityError{Op: "market fetch " + pageURL, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("market fetch %s: status %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// absoluteURL resolves protocol-relative and site-relative hrefs.
func (s *Scraper) absoluteURL(href string) string {
	switch {
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return s.baseURL + href
	default:
		return href
	}
}

var (
	currencyPattern = regexp.MustCompile(`[A-Za-z]+`)
	numberPattern   = regexp.MustCompile(`[\d.,]+`)
	digitPattern    = regexp.MustCompile(`[0-9]+`)
)

// normalizePrice extracts a numeric price from free text like "1 234,56 ₽".
func normalizePrice(text string) *float64 {
	text = strings.ReplaceAll(text, " ", " ")
	text = strings.ReplaceAll(text, " ", "")
	m := numberPattern.FindString(text)
	if m == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(m, ",", "."), 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseCount extracts an integer from text like "Sold 1,024".
func parseCount(text string) int {
	parts := digitPattern.FindAllString(text, -1)
	if len(parts) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(strings.Join(parts, ""))
	return n
}
