package scraper

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const descriptionLimit = 500

// contentSelectors is the ordered fallback chain for body-derived
// descriptions, tried only when the page metadata has none.
var contentSelectors = []string{
	".entry-content",
	".post-content",
	".article-content",
	".content",
	"article .content",
	".single-content",
}

var (
	onclickDocPattern = regexp.MustCompile(`(?i)open_doc\(['"]([^'"]*\.pdf)['"]`)
	pdfHrefPattern    = regexp.MustCompile(`(?i)\.pdf$`)
	officeHrefPattern = regexp.MustCompile(`(?i)\.(doc|docx|xls|xlsx|zip|rar)$`)
	authorLabel       = regexp.MustCompile(`(?i)auteur`)

	// datePatterns is the ordered chain for the supplementary free-text
	// date; the first match anywhere in the page text wins.
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(\d{1,2}\s+[\p{L}\p{N}_]+\s+\d{4})`),
		regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
		regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`),
	}

	arabicMarkers     = []string{"arabe", "arabic", "عربي"}
	frenchMarkers     = []string{"français", "francais"}
	synthesisKeywords = []string{"synthèse", "synthese", "synthesis", "resume", "summary"}
	synthesisURLHints = []string{"synthese", "synthèse"}
)

// descriptionStrategy is one attempt at locating the description. The
// ordered strategy list is the extraction contract: first present wins.
type descriptionStrategy struct {
	Name    string
	Extract func(doc *goquery.Document) (description, fullContent string, ok bool)
}

func descriptionStrategies() []descriptionStrategy {
	strategies := []descriptionStrategy{{
		Name: "og:description",
		Extract: func(doc *goquery.Document) (string, string, bool) {
			content := strings.TrimSpace(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
			return content, "", content != ""
		},
	}}
	for _, selector := range contentSelectors {
		sel := selector
		strategies = append(strategies, descriptionStrategy{
			Name: "content " + sel,
			Extract: func(doc *goquery.Document) (string, string, bool) {
				node := doc.Find(sel).First()
				if node.Length() == 0 {
					return "", "", false
				}
				text := collapseWhitespace(node.Text())
				if text == "" {
					return "", "", false
				}
				return truncateDescription(text), text, true
			},
		})
	}
	return strategies
}

// DetailExtractor fetches a publication's detail page and parses the
// enrichment fields out of it.
type DetailExtractor struct {
	fetcher    Fetcher
	logger     *zap.Logger
	showDetail bool
	strategies []descriptionStrategy
}

// NewDetailExtractor constructs a DetailExtractor.
func NewDetailExtractor(fetcher Fetcher, logger *zap.Logger, showDetail bool) *DetailExtractor {
	return &DetailExtractor{
		fetcher:    fetcher,
		logger:     logger,
		showDetail: showDetail,
		strategies: descriptionStrategies(),
	}
}

// Extract fetches detailURL and returns its enrichment fields. A fetch or
// parse failure returns a nil result and the error; the caller degrades the
// record rather than aborting the run. There is no partial detail merge.
func (e *DetailExtractor) Extract(ctx context.Context, detailURL string) (*DetailFields, error) {
	if e.showDetail {
		e.logger.Debug("fetching detail page", zap.String("url", detailURL))
	}

	page, err := e.fetcher.Fetch(ctx, detailURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, &ExtractionError{URL: detailURL, Part: "detail page", Err: err}
	}

	fields := e.parse(doc, detailURL)
	if e.showDetail {
		e.logger.Debug("extracted detail fields",
			zap.String("url", detailURL),
			zap.Int("pdf_files", len(fields.PDFFiles)),
			zap.Int("additional_files", len(fields.AdditionalFiles)),
		)
	}
	return fields, nil
}

func (e *DetailExtractor) parse(doc *goquery.Document, detailURL string) *DetailFields {
	fields := &DetailFields{
		LanguageVersions: map[string]LanguageVersion{},
	}

	for _, strategy := range e.strategies {
		if desc, full, ok := strategy.Extract(doc); ok {
			fields.Description = desc
			fields.FullContent = full
			break
		}
	}

	fields.Author = extractAuthor(doc)
	e.extractLanguageVersions(doc, fields)
	e.extractFiles(doc, detailURL, fields)

	if len(fields.PDFFiles) > 0 {
		fields.PDFURL = fields.PDFFiles[0].URL
		fields.PDFFilename = fields.PDFFiles[0].Filename
	}

	pageText := doc.Text()
	for _, pattern := range datePatterns {
		if m := pattern.FindStringSubmatch(pageText); m != nil {
			fields.ExtractedDate = m[1]
			break
		}
	}

	if len(fields.LanguageVersions) == 0 {
		fields.LanguageVersions = nil
	}
	return fields
}

// extractAuthor locates an "Auteur" heading and takes the following styled
// paragraph. The site tags author names with the txtRougeP1 class.
func extractAuthor(doc *goquery.Document) string {
	heading := doc.Find("h3").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return authorLabel.MatchString(s.Text())
	}).First()
	if heading.Length() == 0 {
		return ""
	}
	author := heading.NextAllFiltered("p.txtRougeP1").First()
	if author.Length() == 0 {
		author = heading.Parent().Find("p.txtRougeP1").First()
	}
	return strings.TrimSpace(author.Text())
}

func (e *DetailExtractor) extractLanguageVersions(doc *goquery.Document, fields *DetailFields) {
	doc.Find("a.wpml-ls-link").Each(func(_ int, link *goquery.Selection) {
		span := link.Find("span.wpml-ls-native").First()
		if span.Length() == 0 {
			return
		}
		name := strings.TrimSpace(span.Text())
		href := link.AttrOr("href", "")
		lower := strings.ToLower(name)

		switch {
		case strings.Contains(name, "العربية") || strings.Contains(lower, "arabic"):
			fields.ArabicVersionURL = href
			fields.LanguageVersions[VersionArabic] = LanguageVersion{Name: name, URL: href}
		case strings.Contains(name, "ⵜⴰⵎⴰⵣⵉⵖⵜ") || strings.Contains(lower, "amazigh"):
			fields.LanguageVersions[VersionAmazigh] = LanguageVersion{Name: name, URL: href}
		case strings.Contains(lower, "english") || strings.Contains(lower, "anglais"):
			fields.LanguageVersions[VersionEnglish] = LanguageVersion{Name: name, URL: href}
		}
	})
}

// extractFiles merges the two PDF sources into one ordered list: plain
// anchors first, then script-embedded open_doc links. Office documents and
// archives go into AdditionalFiles.
func (e *DetailExtractor) extractFiles(doc *goquery.Document, detailURL string, fields *DetailFields) {
	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := link.AttrOr("href", "")
		if !pdfHrefPattern.MatchString(href) {
			return
		}
		resolved := resolveURL(detailURL, href)
		name := lastPathSegment(resolved)
		title := strings.TrimSpace(link.Text())
		if title == "" {
			title = name
		}
		fields.PDFFiles = append(fields.PDFFiles, PDFFile{
			URL:      resolved,
			Filename: name,
			Title:    title,
			Type:     "pdf",
		})
	})

	doc.Find("[onclick]").Each(func(_ int, el *goquery.Selection) {
		m := onclickDocPattern.FindStringSubmatch(el.AttrOr("onclick", ""))
		if m == nil {
			return
		}
		pdfURL := m[1]
		name := lastPathSegment(pdfURL)

		title := name
		if container := el.Closest("div.item"); container.Length() > 0 {
			if h := container.Find("h2.widthTitle").First(); h.Length() > 0 {
				title = strings.TrimSpace(h.Text())
			}
		}

		fields.PDFFiles = append(fields.PDFFiles, PDFFile{
			URL:          pdfURL,
			Filename:     name,
			Title:        title,
			Type:         "pdf",
			Language:     classifyLanguage(title, pdfURL),
			DocumentType: classifyDocumentType(title, pdfURL),
		})
	})

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := link.AttrOr("href", "")
		if !officeHrefPattern.MatchString(href) {
			return
		}
		resolved := resolveURL(detailURL, href)
		name := lastPathSegment(resolved)
		title := strings.TrimSpace(link.Text())
		if title == "" {
			title = name
		}
		fields.AdditionalFiles = append(fields.AdditionalFiles, AdditionalFile{
			URL:      resolved,
			Filename: name,
			Title:    title,
			Type:     fileExtension(resolved),
		})
	})
}

// classifyLanguage infers the document language from the title and file
// path. The short ar/fr codes must appear as standalone tokens so that
// words like "rapport" do not register as Arabic; the longer markers match
// anywhere. Arabic wins over French.
func classifyLanguage(title, fileURL string) string {
	haystack := strings.ToLower(title + " " + fileURL)
	tokens := tokenize(haystack)

	if tokens["ar"] || containsAny(haystack, arabicMarkers) {
		return LanguageArabic
	}
	if tokens["fr"] || containsAny(haystack, frenchMarkers) {
		return LanguageFrench
	}
	return LanguageUnknown
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

func tokenize(s string) map[string]bool {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(parts))
	for _, part := range parts {
		set[part] = true
	}
	return set
}

// classifyDocumentType flags synthesis documents by keyword in the title
// or the file URL; everything else is a main report.
func classifyDocumentType(title, fileURL string) string {
	lowerTitle := strings.ToLower(title)
	for _, kw := range synthesisKeywords {
		if strings.Contains(lowerTitle, kw) {
			return DocTypeSynthesis
		}
	}
	lowerURL := strings.ToLower(fileURL)
	for _, kw := range synthesisURLHints {
		if strings.Contains(lowerURL, kw) {
			return DocTypeSynthesis
		}
	}
	return DocTypeMainReport
}

func resolveURL(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}

func lastPathSegment(rawURL string) string {
	trimmed := strings.TrimRight(rawURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

func fileExtension(rawURL string) string {
	if i := strings.LastIndex(rawURL, "."); i >= 0 {
		return strings.ToLower(rawURL[i+1:])
	}
	return ""
}

// truncateDescription cuts body-derived text to the description limit,
// appending an ellipsis only when something was cut.
func truncateDescription(text string) string {
	runes := []rune(text)
	if len(runes) <= descriptionLimit {
		return text
	}
	return string(runes[:descriptionLimit]) + "..."
}

var whitespaceRun = regexp.MustCompile(`\s+`)

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
