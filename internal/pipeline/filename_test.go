package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveNameShortPathUsesHash(t *testing.T) {
	t.Parallel()

	name := DeriveName("proj-1", "https://example.com")
	require.Equal(t, "proj-1_example_com_c984d06a.pdf", name)
}

func TestDeriveNameLongPathUsesPath(t *testing.T) {
	t.Parallel()

	name := DeriveName("proj-1", "https://www.example.com/docs/report.html")
	require.Equal(t, "proj-1_example_com_docs_report_html.pdf", name)
}

func TestDeriveNameIsDeterministic(t *testing.T) {
	t.Parallel()

	a := DeriveName("p", "http://site.io/x")
	b := DeriveName("p", "http://site.io/x")
	require.Equal(t, a, b)
}

func TestDeriveNameDistinctURLsSameHost(t *testing.T) {
	t.Parallel()

	a := DeriveName("p", "https://example.com")
	b := DeriveName("p", "https://example.com/a")
	require.NotEqual(t, a, b)
}

func TestDeriveNameCapsBaseLength(t *testing.T) {
	t.Parallel()

	long := "https://example.com/" + strings.Repeat("segment/", 20)
	name := DeriveName("proj", long)
	base := strings.TrimSuffix(strings.TrimPrefix(name, "proj_"), ".pdf")
	require.LessOrEqual(t, len(base), 50)
}

func TestDeriveNameLongHostnameKeepsHashSuffix(t *testing.T) {
	t.Parallel()

	name := DeriveName("p",
		"https://very-long-subdomain-name-for-a-document-portal.example-enterprise-host.com")
	require.True(t, strings.HasSuffix(name, "_ad531331.pdf"))
}

func TestDeriveNameSanitizesUnsafeCharacters(t *testing.T) {
	t.Parallel()

	name := DeriveName("p", "https://example.com/a%20b/c.d?q=1")
	require.Equal(t, "p_example_com_a_b_c_d.pdf", name)
}
