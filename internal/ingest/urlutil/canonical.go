// Package urlutil provides canonical URL handling so the same document is
// identified consistently across URL variants and tracking decorations.
package urlutil

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// trackingParams are query keys stripped during canonicalization, matched on
// the lowercased key.
var trackingParams = map[string]struct{}{
	// Google Analytics
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"gclid":        {},
	"gclsrc":       {},
	// Facebook
	"fbclid":          {},
	"fb_action_ids":   {},
	"fb_action_types": {},
	"fb_source":       {},
	"fb_ref":          {},
	// Twitter
	"twclid": {},
	// Microsoft
	"msclkid": {},
	// HubSpot
	"hsa_acc": {},
	"hsa_cam": {},
	"hsa_grp": {},
	"hsa_ad":  {},
	"hsa_src": {},
	"hsa_tgt": {},
	"hsa_kw":  {},
	"hsa_mt":  {},
	"hsa_net": {},
	"hsa_ver": {},
	// Mailchimp
	"mc_cid": {},
	"mc_eid": {},
	// Generic tracking
	"ref":      {},
	"source":   {},
	"campaign": {},
	"_ga":      {},
	"_gl":      {},
	"trk":      {},
	"trkinfo":  {},
}

// secPreserveParams are exact-case keys kept on sec.gov hosts even when they
// collide with the tracking blocklist. EDGAR reuses generic-looking names
// (e.g. "type") for query semantics that must survive canonicalization.
var secPreserveParams = map[string]struct{}{
	"action":  {},
	"CIK":     {},
	"type":    {},
	"dateb":   {},
	"owner":   {},
	"count":   {},
	"filenum": {},
	"State":   {},
	"SIC":     {},
}

// Canonicalize reduces a URL to its canonical form.
//
// Steps, in order: lowercase scheme and host, strip default ports, strip a
// single trailing slash (empty path becomes "/"), drop tracking parameters
// (with the sec.gov carve-out), sort the remaining query keys, and drop the
// fragment unless preserveFragment is set. Pure and deterministic; the order
// matters because URLHash depends on the exact output.
func Canonicalize(rawURL string, preserveFragment bool) string {
	if rawURL == "" {
		return ""
	}

	trimmed := strings.TrimSpace(rawURL)
	u, err := url.Parse(trimmed)
	if err != nil {
		// Unparseable input passes through untouched; IsValid gates every
		// fetch path before canonical forms are used.
		return trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}

	u.RawQuery = filterQuery(u.RawQuery, strings.Contains(u.Host, "sec.gov"))

	if !preserveFragment {
		u.Fragment = ""
	}

	return u.String()
}

// filterQuery drops tracking parameters and re-encodes the remainder with
// keys in lexicographic order. Blank values survive as empty strings.
func filterQuery(rawQuery string, secHost bool) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	for key := range values {
		if _, tracked := trackingParams[strings.ToLower(key)]; !tracked {
			continue
		}
		if secHost {
			if _, keep := secPreserveParams[key]; keep {
				continue
			}
		}
		delete(values, key)
	}

	// url.Values.Encode already sorts by key; spelled out here because the
	// ordering is a contract, not an implementation accident.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		for _, value := range values[key] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(value))
		}
	}
	return b.String()
}

// SameDocument reports whether two URLs canonicalize to the same form.
func SameDocument(urlA, urlB string) bool {
	return Canonicalize(urlA, false) == Canonicalize(urlB, false)
}

// IsValid reports whether the string parses with a non-empty http or https
// scheme and a non-empty host.
func IsValid(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme == "" || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// ExtractDomain returns the lowercased host component of a URL.
func ExtractDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// ToHTTPS upgrades an http URL to https, leaving anything else alone.
func ToHTTPS(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme != "http" {
		return rawURL
	}
	u.Scheme = "https"
	return u.String()
}

// accessionPattern matches SEC accession numbers of the form CIK-YY-NNNNNN.
var accessionPattern = regexp.MustCompile(`(\d{10}-\d{2}-\d{6})`)

// SECAccessionNumber extracts the accession number from an EDGAR URL, or
// returns "" if none is present.
func SECAccessionNumber(rawURL string) string {
	return accessionPattern.FindString(rawURL)
}
