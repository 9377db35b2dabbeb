package domains

// Default returns the registry seeded with the project's standing allowlist.
// Rates are deliberately conservative; SEC EDGAR in particular is throttled
// far below the 10 req/s the SEC permits.
func Default() *Registry {
	r, err := NewRegistry(
		Config{
			Domain:            "sec.gov",
			Source:            SourceSECFiling,
			Priority:          PriorityHigh,
			RequestsPerSecond: 0.1,
			Description:       "SEC EDGAR filing system",
			Notes:             "Use SEC-compliant User-Agent header",
		},
		Config{
			Domain:            "www.sec.gov",
			Source:            SourceSECFiling,
			Priority:          PriorityHigh,
			RequestsPerSecond: 0.1,
			Description:       "SEC EDGAR filing system (www)",
			Notes:             "Use SEC-compliant User-Agent header",
		},
		Config{
			Domain:            "investor.workday.com",
			Source:            SourceInvestorRelations,
			Priority:          PriorityHigh,
			RequestsPerSecond: 0.5,
			Description:       "Workday investor relations portal",
		},
		Config{
			Domain:            "newsroom.workday.com",
			Source:            SourcePressRelease,
			Priority:          PriorityMedium,
			RequestsPerSecond: 0.5,
			Description:       "Workday press releases and news",
		},
		Config{
			Domain:            "blog.workday.com",
			Source:            SourceBlog,
			Priority:          PriorityMedium,
			RequestsPerSecond: 0.5,
			Description:       "Workday corporate blog",
		},
		Config{
			Domain:            "www.workday.com",
			Source:            SourceInvestorRelations,
			Priority:          PriorityLow,
			RequestsPerSecond: 0.5,
			Description:       "Workday main website",
		},
		Config{
			Domain:            "seekingalpha.com",
			Source:            SourceEarningsTranscript,
			Priority:          PriorityMedium,
			RequestsPerSecond: 0.2,
			Description:       "Seeking Alpha - public transcripts only",
			SpecialHandling:   true,
			Notes:             "Only use publicly accessible content; check for paywall",
		},
		Config{
			Domain:            "www.fool.com",
			Source:            SourceEarningsTranscript,
			Priority:          PriorityMedium,
			RequestsPerSecond: 0.2,
			Description:       "Motley Fool - public transcripts",
			Notes:             "Verify content is not behind paywall",
		},
		Config{
			Domain:            "www.reuters.com",
			Source:            SourceNewsMedia,
			Priority:          PriorityLow,
			RequestsPerSecond: 0.2,
			Description:       "Reuters news coverage",
		},
		Config{
			Domain:            "techcrunch.com",
			Source:            SourceNewsMedia,
			Priority:          PriorityLow,
			RequestsPerSecond: 0.2,
			Description:       "TechCrunch technology news",
		},
		Config{
			Domain:            "www.businesswire.com",
			Source:            SourcePressRelease,
			Priority:          PriorityMedium,
			RequestsPerSecond: 0.3,
			Description:       "Business Wire press release distribution",
		},
		Config{
			Domain:            "www.prnewswire.com",
			Source:            SourcePressRelease,
			Priority:          PriorityMedium,
			RequestsPerSecond: 0.3,
			Description:       "PR Newswire press release distribution",
		},
	)
	if err != nil {
		// The seed table is compiled in; a construction failure is a bug.
		panic(err)
	}
	return r
}
