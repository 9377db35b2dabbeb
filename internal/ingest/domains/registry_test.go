package domains

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefault_Seed(t *testing.T) {
	t.Parallel()
	registry := Default()

	require.Greater(t, registry.Len(), 0)
	require.True(t, registry.Allowed("sec.gov"))
	require.True(t, registry.Allowed("www.sec.gov"))
	require.True(t, registry.Allowed("investor.workday.com"))
	require.False(t, registry.Allowed("example.com"))
	require.False(t, registry.Allowed("malicious-site.com"))

	cfg, ok := registry.Lookup("sec.gov")
	require.True(t, ok)
	require.Equal(t, SourceSECFiling, cfg.Source)
	require.Equal(t, PriorityHigh, cfg.Priority)
	require.Greater(t, cfg.RequestsPerSecond, 0.0)
}

func TestRegistry_ExactMatching(t *testing.T) {
	t.Parallel()
	registry := Default()

	// Case-insensitive, whitespace-trimmed, no subdomain inference.
	require.True(t, registry.Allowed("SEC.GOV"))
	require.True(t, registry.Allowed("  sec.gov  "))
	require.False(t, registry.Allowed("edgar.sec.gov"))
	require.False(t, registry.Allowed("blog.workday.com.evil.com"))
}

func TestRegistry_BySourceAndPriority(t *testing.T) {
	t.Parallel()
	registry := Default()

	sec := registry.BySource(SourceSECFiling)
	require.NotEmpty(t, sec)
	for _, cfg := range sec {
		require.Equal(t, SourceSECFiling, cfg.Source)
	}

	high := registry.ByPriority(PriorityHigh)
	require.NotEmpty(t, high)
	for _, cfg := range high {
		require.Equal(t, PriorityHigh, cfg.Priority)
	}
}

func TestNewRegistry_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(
		Config{Domain: "a.com", Source: SourceBlog, Priority: PriorityLow, RequestsPerSecond: 1},
		Config{Domain: "A.com", Source: SourceBlog, Priority: PriorityLow, RequestsPerSecond: 1},
	)
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate")
}

func TestNewRegistry_RejectsBadRates(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(Config{Domain: "a.com", Source: SourceBlog, Priority: PriorityLow})
	require.Error(t, err)

	_, err = NewRegistry(Config{Domain: "", Source: SourceBlog, Priority: PriorityLow, RequestsPerSecond: 1})
	require.Error(t, err)
}

func TestRegistry_Rates(t *testing.T) {
	t.Parallel()
	registry := Default()

	rates := registry.Rates()
	require.Len(t, rates, registry.Len())
	require.InDelta(t, 0.1, rates["sec.gov"], 1e-9)
}

func TestRegistry_Domains(t *testing.T) {
	t.Parallel()
	registry := Default()

	names := registry.Domains()
	require.Len(t, names, registry.Len())
	require.Contains(t, names, "techcrunch.com")
}
