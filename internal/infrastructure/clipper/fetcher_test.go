package clipper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"

	"github.com/tablewise/server/internal/infrastructure/config"
	"github.com/tablewise/server/pkg/errors"
)

const jsonLDPage = `<html><head>
<title>Weeknight Chili | Example Kitchen</title>
<script type="application/ld+json">
{"@context":"https://schema.org","@graph":[
  {"@type":"WebSite","name":"Example Kitchen"},
  {"@type":["Recipe"],"name":"Weeknight Chili","recipeYield":["4","4 bowls"],
   "image":{"@type":"ImageObject","url":"https://example.com/chili.jpg"},
   "totalTime":"PT45M",
   "recipeIngredient":["500g  beef mince","1 tin kidney beans"],
   "recipeInstructions":[
     {"@type":"HowToSection","itemListElement":[{"@type":"HowToStep","text":"Brown the beef."}]},
     {"@type":"HowToStep","text":"Add beans and simmer."}
   ]}
]}
</script></head><body><p>Ads and life story.</p></body></html>`

const articlePage = `<html><head><title>Tomato Soup</title>
<meta property="og:image" content="https://example.com/soup.jpg"></head>
<body><nav>Home | Recipes | About</nav>
<article><h1>Tomato Soup</h1>
<p>This tomato soup is the one we make every autumn when the garden gives us more tomatoes than we can eat fresh. It takes very little effort and freezes well.</p>
<p>Start by roasting two kilograms of ripe tomatoes with a head of garlic and a splash of olive oil until they collapse and char at the edges, about forty minutes.</p>
<p>Blend the roasted tomatoes with a litre of vegetable stock, season with salt and pepper, then simmer for twenty minutes before serving with crusty bread.</p>
</article><footer>Copyright Example Kitchen</footer></body></html>`

const thinPage = `<html><head><title>Quick Toast</title><script>trackVisitor()</script></head>
<body><nav>Menu</nav><div>Toast bread.   Butter it.</div><footer>Footer links</footer></body></html>`

type FetcherTestSuite struct {
	suite.Suite
	server  *httptest.Server
	fetcher *Fetcher
	ctx     context.Context
}

func (s *FetcherTestSuite) SetupTest() {
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			s.Equal("test-agent", r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/chili", serve(jsonLDPage))
	mux.HandleFunc("/soup", serve(articlePage))
	mux.HandleFunc("/toast", serve(thinPage))
	mux.HandleFunc("/old-soup", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/soup", http.StatusMovedPermanently)
	})
	s.server = httptest.NewServer(mux)
	s.T().Cleanup(s.server.Close)

	s.fetcher = NewFetcher(config.ImporterConfig{UserAgent: "test-agent", AllowPrivateHosts: true}, zaptest.NewLogger(s.T()))
	s.ctx = context.Background()
}

func (s *FetcherTestSuite) TestFetch_ShouldPreferStructuredRecipeData() {
	page, err := s.fetcher.Fetch(s.ctx, s.server.URL+"/chili")

	s.Require().NoError(err)
	s.Equal("Weeknight Chili", page.Title)
	s.Equal("https://example.com/chili.jpg", page.Image)
	s.Equal("Servings: 4\nTotal time: PT45M\nIngredients:\n500g beef mince\n1 tin kidney beans\nInstructions:\nBrown the beef.\nAdd beans and simmer.", page.Text)
}

func (s *FetcherTestSuite) TestFetch_ShouldExtractArticleText() {
	page, err := s.fetcher.Fetch(s.ctx, s.server.URL+"/old-soup")

	s.Require().NoError(err)
	s.Equal(s.server.URL+"/soup", page.URL)
	s.Contains(page.Title, "Tomato Soup")
	s.Contains(page.Text, "roasting two kilograms of ripe tomatoes")
	s.NotContains(page.Text, "Copyright Example Kitchen")
	s.Equal("https://example.com/soup.jpg", page.Image)
}

func (s *FetcherTestSuite) TestFetch_ShouldFallBackToCleanBodyText() {
	page, err := s.fetcher.Fetch(s.ctx, s.server.URL+"/toast")

	s.Require().NoError(err)
	s.Equal("Quick Toast", page.Title)
	s.Equal("Toast bread. Butter it.", page.Text)
}

func (s *FetcherTestSuite) TestFetch_ShouldRejectBadURLs() {
	for _, raw := range []string{"", "ftp://example.com/x", "not a url", "https://"} {
		_, err := s.fetcher.Fetch(s.ctx, raw)

		appErr, ok := errors.As(err)
		s.Require().True(ok, raw)
		s.Equal(errors.CodeBadRequest, appErr.Code, raw)
	}
}

func (s *FetcherTestSuite) TestFetch_ShouldReportHTTPFailures() {
	_, err := s.fetcher.Fetch(s.ctx, s.server.URL+"/missing")

	s.Require().Error(err)
	s.Contains(err.Error(), "404")
}

func TestFetcherTestSuite(t *testing.T) {
	suite.Run(t, new(FetcherTestSuite))
}

func TestNormalizeText(t *testing.T) {
	got := normalizeText("  Line   one \n\n\t\n line two\t\tend ")

	assert.Equal(t, "Line one\nline two end", got)
}

func TestFetch_ShouldCapPageSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>" + strings.Repeat("a", 64) + "</p>" + strings.Repeat("b", 4096) + "</body></html>"))
	}))
	defer srv.Close()
	f := NewFetcher(config.ImporterConfig{MaxPageBytes: 80, AllowPrivateHosts: true}, zaptest.NewLogger(t))

	page, err := f.Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.NotContains(t, page.Text, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
}

func TestFetch_ShouldRefuseLoopbackByDefault(t *testing.T) {
	// Arrange
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		w.Write([]byte(thinPage))
	}))
	defer srv.Close()
	f := NewFetcher(config.ImporterConfig{}, zaptest.NewLogger(t))

	// Act
	_, err := f.Fetch(context.Background(), srv.URL)

	// Assert
	appErr, ok := errors.As(err)
	require.True(t, ok, "expected *errors.AppError, got %v", err)
	assert.Equal(t, errors.CodeBadRequest, appErr.Code)
	assert.False(t, hit)
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"93.184.216.34", true},
		{"2606:2800:220:1:248:1893:25c8:1946", true},
		{"127.0.0.1", false},
		{"10.1.2.3", false},
		{"172.16.0.9", false},
		{"192.168.1.1", false},
		{"169.254.169.254", false},
		{"100.64.0.1", false},
		{"0.0.0.0", false},
		{"::1", false},
		{"fe80::1", false},
		{"fc00::1", false},
		{"::ffff:127.0.0.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, isPublic(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestPublicOnly_ShouldRejectResolvedPrivateAddress(t *testing.T) {
	assert.ErrorIs(t, publicOnly("tcp4", "169.254.169.254:80", nil), errBlockedAddress)
	assert.NoError(t, publicOnly("tcp4", "93.184.216.34:443", nil))
}
