package secapi

import (
	"fmt"
	"strings"
)

// FormAnnualReport is the annual report form type
const FormAnnualReport = "10-K"

// Company is one row returned by the mapping API
type Company struct {
	Name       string `json:"name"`
	Ticker     string `json:"ticker"`
	CIK        string `json:"cik"`
	Exchange   string `json:"exchange"`
	IsDelisted bool   `json:"isDelisted"`
	Sector     string `json:"sector"`
	Industry   string `json:"industry"`
	SIC        string `json:"sic"`
}

// FilingQuery selects filings of one company and form type filed within a
// span of calendar years
type FilingQuery struct {
	CIK       string
	StartYear int
	EndYear   int
	FormType  string
	Size      int
}

// QueryString renders the Lucene query understood by the query API
func (q FilingQuery) QueryString() string {
	form := q.FormType
	if form == "" {
		form = FormAnnualReport
	}
	return fmt.Sprintf(`cik:"%s" AND filedAt:{%d-01-01 TO %d-12-31} AND formType:"%s" AND documentFormatFiles.type:"%s"`,
		q.CIK, q.StartYear, q.EndYear, form, form)
}

// Document is one file attached to a filing
type Document struct {
	Sequence    string `json:"sequence"`
	Description string `json:"description"`
	DocumentURL string `json:"documentUrl"`
	Type        string `json:"type"`
}

// Filing is one filing returned by the query API
type Filing struct {
	ID                  string     `json:"id"`
	AccessionNo         string     `json:"accessionNo"`
	CIK                 string     `json:"cik"`
	Ticker              string     `json:"ticker"`
	CompanyName         string     `json:"companyName"`
	FormType            string     `json:"formType"`
	FiledAt             string     `json:"filedAt"`
	DocumentFormatFiles []Document `json:"documentFormatFiles"`
}

// FirstDocument returns the first attached document of the given type,
// compared case-insensitively
func (f Filing) FirstDocument(docType string) (Document, bool) {
	for _, doc := range f.DocumentFormatFiles {
		if strings.EqualFold(doc.Type, docType) {
			return doc, true
		}
	}
	return Document{}, false
}

// Year returns the four-digit filing year
func (f Filing) Year() string {
	if len(f.FiledAt) < 4 {
		return f.FiledAt
	}
	return f.FiledAt[:4]
}

type queryRequest struct {
	Query struct {
		QueryString struct {
			Query string `json:"query"`
		} `json:"query_string"`
	} `json:"query"`
	From string           `json:"from"`
	Size string           `json:"size"`
	Sort []map[string]any `json:"sort"`
}

type queryResponse struct {
	Total struct {
		Value int `json:"value"`
	} `json:"total"`
	Filings []Filing `json:"filings"`
}
