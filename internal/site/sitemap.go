/*
Copyright © 2025 Private Practice Guide.

Released under MIT license.
*/

package site

import (
	"encoding/xml"
	"strconv"
	"time"
)

// SitemapNamespace is the XML namespace of the sitemap protocol.
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFreqMonthly is the change frequency of every page.
const ChangeFreqMonthly = "monthly"

// Page is a public page listed in the sitemap.
type Page struct {
	Path     string
	Priority float64
}

// Pages returns the pages listed in the sitemap, most important first.
func Pages() []Page {
	return []Page{
		{"/", 1.0},
		{"/physiotherapy", 0.9},
		{"/podiatry", 0.9},
		{"/exercise-physiology", 0.9},
		{"/dietetics", 0.9},
		{"/guides/cdm-billing", 0.8},
		{"/guides/practice-costs", 0.8},
		{"/guides/provider-number", 0.8},
		{"/guides/business-structure", 0.8},
		{"/checklist", 0.7},
	}
}

// SitemapURL is a <url> element of the sitemap.
type SitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap is the <urlset> root element.
type Sitemap struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

// NewSitemap builds the sitemap for the base URL. Every page gets generatedAt as its last modification time.
// The home page is listed as the bare base URL.
func NewSitemap(baseURL string, generatedAt time.Time) *Sitemap {
	lastMod := generatedAt.UTC().Format(time.RFC3339)
	pages := Pages()
	sm := &Sitemap{XMLNS: SitemapNamespace, URLs: make([]SitemapURL, 0, len(pages))}
	for _, page := range pages {
		loc := baseURL
		if page.Path != "/" {
			loc += page.Path
		}
		sm.URLs = append(sm.URLs, SitemapURL{
			Loc:        loc,
			LastMod:    lastMod,
			ChangeFreq: ChangeFreqMonthly,
			Priority:   strconv.FormatFloat(page.Priority, 'f', 1, 64),
		})
	}
	return sm
}

// Marshal encodes the sitemap as an XML document.
func (sm *Sitemap) Marshal() ([]byte, error) {
	data, err := xml.MarshalIndent(sm, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}
