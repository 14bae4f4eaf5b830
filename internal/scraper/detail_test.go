package scraper

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubFetcher serves canned pages keyed by URL and records every fetch.
type stubFetcher struct {
	pages map[string]Page
	errs  map[string]error
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (Page, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return Page{}, err
	}
	page, ok := f.pages[url]
	if !ok {
		return Page{}, &FetchExhaustedError{URL: url, Attempts: 1}
	}
	return page, nil
}

func TestClassifyLanguage(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		fileURL string
		want    string
	}{
		{name: "ar token in filename", title: "", fileURL: "rapport_ar_synthese.pdf", want: LanguageArabic},
		{name: "fr token in filename", title: "", fileURL: "rapport_fr.pdf", want: LanguageFrench},
		{name: "rapport alone is not arabic", title: "Rapport annuel", fileURL: "rapport_2026.pdf", want: LanguageUnknown},
		{name: "arabe marker in title", title: "Version arabe", fileURL: "doc.pdf", want: LanguageArabic},
		{name: "arabic script marker", title: "التقرير عربي", fileURL: "doc.pdf", want: LanguageArabic},
		{name: "francais marker", title: "Version française", fileURL: "doc.pdf", want: LanguageFrench},
		{name: "arabic wins over french", title: "arabe et français", fileURL: "doc.pdf", want: LanguageArabic},
		{name: "nothing matches", title: "Summary", fileURL: "doc.pdf", want: LanguageUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyLanguage(tt.title, tt.fileURL)
			if got != tt.want {
				t.Fatalf("classifyLanguage(%q, %q) = %q, want %q", tt.title, tt.fileURL, got, tt.want)
			}
		})
	}
}

func TestClassifyDocumentType(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		fileURL string
		want    string
	}{
		{name: "synthese in title", title: "Synthèse du rapport", fileURL: "doc.pdf", want: DocTypeSynthesis},
		{name: "synthesis keyword ascii", title: "synthesis report", fileURL: "doc.pdf", want: DocTypeSynthesis},
		{name: "synthese in url", title: "Rapport annuel", fileURL: "rapport_ar_synthese.pdf", want: DocTypeSynthesis},
		{name: "plain report", title: "Rapport annuel", fileURL: "rapport_fr.pdf", want: DocTypeMainReport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyDocumentType(tt.title, tt.fileURL)
			if got != tt.want {
				t.Fatalf("classifyDocumentType(%q, %q) = %q, want %q", tt.title, tt.fileURL, got, tt.want)
			}
		})
	}
}

func TestTruncateDescription(t *testing.T) {
	short := strings.Repeat("a", descriptionLimit)
	if got := truncateDescription(short); got != short {
		t.Fatalf("text at the limit must not be truncated")
	}

	long := strings.Repeat("é", descriptionLimit+1)
	got := truncateDescription(long)
	runes := []rune(got)
	if len(runes) != descriptionLimit+3 {
		t.Fatalf("expected %d runes, got %d", descriptionLimit+3, len(runes))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis suffix, got %q", got[len(got)-6:])
	}
}

func TestDetailExtractorOGDescriptionWins(t *testing.T) {
	html := `<html><head>
		<meta property="og:description" content="  Résumé officiel.  ">
	</head><body>
		<div class="entry-content">Body text that should not be used.</div>
	</body></html>`

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://example.test/pub": {Body: []byte(html), StatusCode: 200},
	}}
	ex := NewDetailExtractor(fetcher, zap.NewNop(), false)

	fields, err := ex.Extract(context.Background(), "https://example.test/pub")
	require.NoError(t, err)
	require.Equal(t, "Résumé officiel.", fields.Description)
	require.Empty(t, fields.FullContent)
}

func TestDetailExtractorContentFallback(t *testing.T) {
	body := strings.Repeat("mot ", 200) // well past the truncation limit
	html := `<html><body><div class="post-content">` + body + `</div></body></html>`

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://example.test/pub": {Body: []byte(html), StatusCode: 200},
	}}
	ex := NewDetailExtractor(fetcher, zap.NewNop(), false)

	fields, err := ex.Extract(context.Background(), "https://example.test/pub")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(fields.Description, "..."))
	require.Len(t, []rune(fields.Description), descriptionLimit+3)
	require.Greater(t, len(fields.FullContent), len(fields.Description))
}

func TestDetailExtractorFilesAndAuthor(t *testing.T) {
	html := `<html><body>
		<h3>Auteur</h3>
		<p class="txtRougeP1">Cour des comptes</p>
		<a href="/docs/rapport_fr.pdf">Rapport complet</a>
		<div class="item">
			<h2 class="widthTitle">Rapport annuel</h2>
			<button onclick="open_doc('https://example.test/docs/rapport_ar_synthese.pdf')">Voir</button>
		</div>
		<a href="/docs/annexes.xlsx">Annexes</a>
		<p>Publié le 12 mars 2026</p>
	</body></html>`

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://example.test/pub/": {Body: []byte(html), StatusCode: 200},
	}}
	ex := NewDetailExtractor(fetcher, zap.NewNop(), false)

	fields, err := ex.Extract(context.Background(), "https://example.test/pub/")
	require.NoError(t, err)

	require.Equal(t, "Cour des comptes", fields.Author)
	require.Equal(t, "12 mars 2026", fields.ExtractedDate)

	require.Len(t, fields.PDFFiles, 2)
	// Plain anchors come before script-embedded links.
	require.Equal(t, "https://example.test/docs/rapport_fr.pdf", fields.PDFFiles[0].URL)
	require.Equal(t, "rapport_fr.pdf", fields.PDFFiles[0].Filename)
	require.Equal(t, "Rapport complet", fields.PDFFiles[0].Title)

	embedded := fields.PDFFiles[1]
	require.Equal(t, "Rapport annuel", embedded.Title)
	require.Equal(t, LanguageArabic, embedded.Language)
	require.Equal(t, DocTypeSynthesis, embedded.DocumentType)

	// First PDF feeds the top-level convenience fields.
	require.Equal(t, fields.PDFFiles[0].URL, fields.PDFURL)
	require.Equal(t, "rapport_fr.pdf", fields.PDFFilename)

	require.Len(t, fields.AdditionalFiles, 1)
	require.Equal(t, "xlsx", fields.AdditionalFiles[0].Type)
	require.Equal(t, "annexes.xlsx", fields.AdditionalFiles[0].Filename)
}

func TestDetailExtractorLanguageVersions(t *testing.T) {
	html := `<html><body>
		<a class="wpml-ls-link" href="https://example.test/ar/pub"><span class="wpml-ls-native">العربية</span></a>
		<a class="wpml-ls-link" href="https://example.test/en/pub"><span class="wpml-ls-native">English</span></a>
	</body></html>`

	fetcher := &stubFetcher{pages: map[string]Page{
		"https://example.test/pub": {Body: []byte(html), StatusCode: 200},
	}}
	ex := NewDetailExtractor(fetcher, zap.NewNop(), false)

	fields, err := ex.Extract(context.Background(), "https://example.test/pub")
	require.NoError(t, err)
	require.Equal(t, "https://example.test/ar/pub", fields.ArabicVersionURL)
	require.Equal(t, "https://example.test/ar/pub", fields.LanguageVersions[VersionArabic].URL)
	require.Equal(t, "English", fields.LanguageVersions[VersionEnglish].Name)
}

func TestDetailExtractorFetchFailure(t *testing.T) {
	fetchErr := &FetchExhaustedError{URL: "https://example.test/pub", Attempts: 4}
	fetcher := &stubFetcher{errs: map[string]error{
		"https://example.test/pub": fetchErr,
	}}
	ex := NewDetailExtractor(fetcher, zap.NewNop(), false)

	fields, err := ex.Extract(context.Background(), "https://example.test/pub")
	require.Nil(t, fields)
	require.ErrorIs(t, err, fetchErr)
}
