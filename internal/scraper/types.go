// Package scraper implements the Court of Accounts publications extraction
// engine: the retrying fetch client, the listing and detail page extractors,
// deduplication, and the run orchestrator.
package scraper

import "time"

// Document language values inferred from filename/title keywords.
const (
	LanguageArabic  = "arabic"
	LanguageFrench  = "french"
	LanguageUnknown = "unknown"
)

// Document type values inferred from synthesis keywords.
const (
	DocTypeSynthesis  = "synthesis"
	DocTypeMainReport = "main_report"
)

// Language version keys in PublicationRecord.LanguageVersions.
const (
	VersionArabic  = "arabic"
	VersionAmazigh = "amazigh"
	VersionEnglish = "english"
)

// PDFFile is one attached PDF discovered on a detail page. Language and
// DocumentType are only inferred for script-embedded links.
type PDFFile struct {
	URL          string `json:"url"`
	Filename     string `json:"filename"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Language     string `json:"language,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
}

// AdditionalFile is a non-PDF attachment (office document or archive).
type AdditionalFile struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Type     string `json:"type"`
}

// LanguageVersion points at an alternate-language rendition of a publication.
type LanguageVersion struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// PublicationRecord is the unit of extraction. JSON keys match the snapshot
// schema consumed by the publications viewer.
type PublicationRecord struct {
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Year        *int      `json:"year"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	PDFURL      string    `json:"pdf_url"`
	PDFFilename string    `json:"pdf_filename"`
	URL         string    `json:"url"`
	ScrapedAt   time.Time `json:"scraped_at"`
	SourceURL   string    `json:"source_url"`

	Author             string                     `json:"author,omitempty"`
	PDFFiles           []PDFFile                  `json:"pdf_files,omitempty"`
	AdditionalFiles    []AdditionalFile           `json:"additional_files,omitempty"`
	FullContent        string                     `json:"full_content,omitempty"`
	ArabicVersionURL   string                     `json:"arabic_version_url,omitempty"`
	LanguageVersions   map[string]LanguageVersion `json:"language_versions,omitempty"`
	PublicationDetails map[string]string          `json:"publication_details,omitempty"`
}

// DetailFields is the enrichment extracted from a publication's detail page.
// A nil *DetailFields signals total page-fetch failure; the caller degrades
// to the listing-only record.
type DetailFields struct {
	Description      string
	FullContent      string
	Author           string
	PDFFiles         []PDFFile
	AdditionalFiles  []AdditionalFile
	ArabicVersionURL string
	LanguageVersions map[string]LanguageVersion
	PDFURL           string
	PDFFilename      string
	ExtractedDate    string
}

// Snapshot is the persisted artifact for one completed run. It is written
// wholesale on every successful run and never mutated in place.
type Snapshot struct {
	ScrapedAt       time.Time           `json:"scraped_at"`
	TotalItems      int                 `json:"total_items"`
	SourceWebsite   string              `json:"source_website"`
	ExtractionLevel string              `json:"data_extraction_level"`
	Categories      []string            `json:"publication_categories"`
	DedupEnabled    bool                `json:"duplicate_checking"`
	Data            []PublicationRecord `json:"data"`
}

// RunState is the orchestrator's lifecycle state.
type RunState string

// Run states, in transition order.
const (
	StateIdle             RunState = "idle"
	StateCheckingExisting RunState = "checking_existing"
	StateSkipped          RunState = "skipped"
	StateScraping         RunState = "scraping"
	StateExtracting       RunState = "extracting"
	StatePersisting       RunState = "persisting"
	StateCompleted        RunState = "completed"
	StateFailed           RunState = "failed"
)

// RunSample is one entry of the summary preview.
type RunSample struct {
	Date     string `json:"date"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// RunSummary is the structured outcome of a run. The orchestrator always
// returns one; extraction-layer failures never escape as panics or errors.
type RunSummary struct {
	RunID    string        `json:"run_id"`
	Success  bool          `json:"success"`
	Skipped  bool          `json:"skipped"`
	Message  string        `json:"message"`
	Count    int           `json:"count"`
	Sample   []RunSample   `json:"sample,omitempty"`
	Started  time.Time     `json:"started_at"`
	Duration time.Duration `json:"duration"`
}
