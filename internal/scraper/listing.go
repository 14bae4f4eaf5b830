package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/ARAGRAGMED/scraper-cours-comptes/internal/metrics"
)

// PublicationCategories is the fixed category set published by the site.
var PublicationCategories = []string{
	"Rapport thématique",
	"Rapport particulier",
	"Rapport annuel",
	"Rapport partis politiques",
	"Synthèses des missions CRC",
	"Arrêt",
	"Référé",
	"Formulaire",
}

// categorySlugs maps the site's data-cat attribute values to display names.
// Unmapped slugs pass through raw.
var categorySlugs = map[string]string{
	"rapport-annuel":             "Rapport annuel",
	"rapport-thematique":         "Rapport thématique",
	"rapport-particulier":        "Rapport particulier",
	"rapport-partis-politiques":  "Rapport partis politiques",
	"syntheses-des-missions-crc": "Synthèses des missions CRC",
	"arret":                      "Arrêt",
	"refere":                     "Référé",
	"formulaire":                 "Formulaire",
}

var yearPattern = regexp.MustCompile(`(\d{4})`)

// ListingExtractor parses a publications index page into candidate records,
// enriching each one from its detail page when a detail link is present.
type ListingExtractor struct {
	detail     DetailFetcher
	clock      Clock
	logger     *zap.Logger
	showDetail bool
}

// NewListingExtractor constructs a ListingExtractor. The detail fetcher may
// be nil, yielding listing-only records.
func NewListingExtractor(detail DetailFetcher, clk Clock, logger *zap.Logger, showDetail bool) *ListingExtractor {
	return &ListingExtractor{
		detail:     detail,
		clock:      clk,
		logger:     logger,
		showDetail: showDetail,
	}
}

// Extract returns the records found on the listing page for targetYear.
// Detail extraction failure for one record never aborts the remaining
// records; the failed record degrades to its listing-only fields.
func (e *ListingExtractor) Extract(ctx context.Context, pageHTML []byte, baseURL string, targetYear int) ([]PublicationRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(pageHTML))
	if err != nil {
		return nil, &ExtractionError{URL: baseURL, Part: "listing page", Err: err}
	}

	items := doc.Find(fmt.Sprintf(`div.item[data-time="%d"]`, targetYear))
	if e.showDetail {
		e.logger.Info("found listing items",
			zap.Int("count", items.Length()),
			zap.Int("year", targetYear),
		)
	}

	var records []PublicationRecord
	items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if ctx.Err() != nil {
			return false
		}

		rec, ok := e.recordFromItem(item, baseURL, targetYear)
		if !ok {
			return true
		}

		if rec.URL != "" && e.detail != nil {
			if e.showDetail {
				e.logger.Debug("extracting details", zap.String("url", rec.URL))
			}
			fields, err := e.detail.Extract(ctx, rec.URL)
			switch {
			case err != nil:
				e.logger.Warn("detail extraction failed, keeping listing-only record",
					zap.String("url", rec.URL),
					zap.Error(err),
				)
			case fields != nil:
				mergeDetails(&rec, fields)
			}
		}

		records = append(records, rec)
		metrics.ObservePublication(rec.Category)
		if e.showDetail {
			e.logger.Debug("extracted publication",
				zap.String("title", truncate(rec.Title, 50)),
				zap.String("category", rec.Category),
			)
		}
		return true
	})

	if err := ctx.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// recordFromItem pulls the listing-level fields from one item node.
// A node yields no record when both the data-title attribute and the
// heading text are empty.
func (e *ListingExtractor) recordFromItem(item *goquery.Selection, baseURL string, targetYear int) (PublicationRecord, bool) {
	rec := PublicationRecord{
		ScrapedAt: e.clock.Now(),
		SourceURL: baseURL,
	}

	rec.Title = strings.TrimSpace(item.AttrOr("data-title", ""))
	if rec.Title == "" {
		rec.Title = strings.TrimSpace(item.Find("h2").First().Text())
	}

	if slug := strings.TrimSpace(item.AttrOr("data-cat", "")); slug != "" {
		if name, ok := categorySlugs[slug]; ok {
			rec.Category = name
		} else {
			rec.Category = slug
		}
	}

	if timeEl := item.Find("time").First(); timeEl.Length() > 0 {
		rec.Date = strings.TrimSpace(timeEl.Text())
		year := targetYear
		if m := yearPattern.FindStringSubmatch(rec.Date); m != nil {
			if parsed, err := strconv.Atoi(m[1]); err == nil {
				year = parsed
			}
		}
		rec.Year = &year
	}

	rec.URL = item.Find("a").First().AttrOr("href", "")

	if rec.Title == "" {
		return PublicationRecord{}, false
	}
	return rec, true
}

// mergeDetails overlays detail fields onto a listing record. Detail values
// win only when non-empty; the listing-derived date is never overridden.
func mergeDetails(rec *PublicationRecord, fields *DetailFields) {
	if fields.Description != "" {
		rec.Description = fields.Description
	}
	if fields.FullContent != "" {
		rec.FullContent = fields.FullContent
	}
	if fields.Author != "" {
		rec.Author = fields.Author
	}
	if len(fields.PDFFiles) > 0 {
		rec.PDFFiles = fields.PDFFiles
	}
	if len(fields.AdditionalFiles) > 0 {
		rec.AdditionalFiles = fields.AdditionalFiles
	}
	if fields.ArabicVersionURL != "" {
		rec.ArabicVersionURL = fields.ArabicVersionURL
	}
	if len(fields.LanguageVersions) > 0 {
		rec.LanguageVersions = fields.LanguageVersions
	}
	if fields.PDFURL != "" {
		rec.PDFURL = fields.PDFURL
	}
	if fields.PDFFilename != "" {
		rec.PDFFilename = fields.PDFFilename
	}
	if fields.ExtractedDate != "" {
		if rec.PublicationDetails == nil {
			rec.PublicationDetails = map[string]string{}
		}
		rec.PublicationDetails["extracted_date"] = fields.ExtractedDate
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
