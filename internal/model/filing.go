package model

import (
	"fmt"
	"time"
)

// FraudRecord is one row of the enforcement table: a single incident
// attributed to a company, with the years and months it covered.
type FraudRecord struct {
	CIK         string `json:"cik" dynamodbav:"cik"`
	CompanyName string `json:"company_name" dynamodbav:"company_name"`
	YearStart   int    `json:"year_start" dynamodbav:"year_start"`
	YearEnd     int    `json:"year_end" dynamodbav:"year_end"`
	MonthStart  int    `json:"month_start" dynamodbav:"month_start"`
	MonthEnd    int    `json:"month_end" dynamodbav:"month_end"`
	Contains21C bool   `json:"contains_21c" dynamodbav:"contains_21c"` // Release cites a Section 21(c) proceeding
	URL         string `json:"url" dynamodbav:"url"`                   // Source release URL (table sort key)
	Scraped     bool   `json:"scraped,omitempty" dynamodbav:"scraped"` // Set once the fraud pipeline archived it
}

// RowKey is the primary key of one fraud table item
type RowKey struct {
	CompanyName string `json:"company_name"`
	URL         string `json:"url"`
}

// Key returns the table key of the record
func (r FraudRecord) Key() RowKey {
	return RowKey{CompanyName: r.CompanyName, URL: r.URL}
}

// TimeRange is the consolidated suspected-fraud span for one company. Rows
// holds the table items merged into the range when tracking is requested;
// they may carry different company names for the same CIK.
type TimeRange struct {
	CIK         string   `json:"cik"`
	StartYear   int      `json:"start_year"`
	EndYear     int      `json:"end_year"`
	CompanyName string   `json:"company_name,omitempty"`
	Rows        []RowKey `json:"rows,omitempty"`
}

// PeerSet holds the ranked non-fraud peers found for a fraud company
type PeerSet struct {
	CIK       string   `json:"cik"`
	Peers     []string `json:"peers"`
	StartYear int      `json:"start_year"`
	EndYear   int      `json:"end_year"`
}

// FilingReference points at one annual report document to archive
type FilingReference struct {
	DocumentURL string `json:"document_url"`
	CIK         string `json:"cik"`
	Year        string `json:"year"`
	PairedWith  string `json:"paired_with,omitempty"` // Fraud CIK this peer document was sampled for
}

// Label selects the top-level prefix an archived filing is written under
type Label string

const (
	LabelFraudulent    Label = "fraudulent"
	LabelNonFraudulent Label = "nonfraudulent"
)

// Section codes extracted from every annual report
const (
	SectionRiskFactors = "1A" // Item 1A. Risk Factors
	SectionMDA         = "7"  // Item 7. Management's Discussion and Analysis
	SectionMarketRisk  = "7A" // Item 7A. Quantitative and Qualitative Disclosures About Market Risk
)

// DefaultSections returns the sections archived for each filing, in order
func DefaultSections() []string {
	return []string{SectionRiskFactors, SectionMDA, SectionMarketRisk}
}

// ExtractedFiling is the archived artifact for one filing document
type ExtractedFiling struct {
	URL        string            `json:"url" yaml:"url"`
	CIK        string            `json:"cik" yaml:"cik"`
	Year       string            `json:"year" yaml:"year"`
	Label      Label             `json:"label" yaml:"label"`
	PairedWith string            `json:"paired_with,omitempty" yaml:"paired_with,omitempty"`
	Sections   map[string]string `json:"sections" yaml:"sections"`
	RunID      string            `json:"run_id" yaml:"run_id"`
	ArchivedAt time.Time         `json:"archived_at" yaml:"archived_at"`
}

// ObjectKey builds the storage key for a filing: {label}/{cik}/{year}.{ext}
func ObjectKey(label Label, cik, year, ext string) string {
	return fmt.Sprintf("%s/%s/%s.%s", label, cik, year, ext)
}
