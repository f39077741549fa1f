package recorder

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexnaranjo95/metrics-lab-speed-server-sub002/internal/inventory"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestHarvestAnchors(t *testing.T) {
	origin := mustParse(t, "https://example.com")
	html := `
		<html><body>
			<a href="/about">About</a>
			<a href="/about">About again</a>
			<a href="https://example.com/contact?x=1">Contact</a>
			<a href="https://other.com/page">External</a>
			<a href="/wp-admin/options.php">Admin</a>
			<a href="/login">Login</a>
			<a href="/blog?replytocom=42">Reply</a>
			<a href="#section">Fragment</a>
			<a href="mailto:hi@example.com">Mail</a>
			<a href="/brochure.pdf">PDF</a>
			<a href="services/">Relative</a>
		</body></html>
	`

	paths := harvestAnchors(origin, html, 15)

	assert.Equal(t, "/", paths[0])
	assert.Contains(t, paths, "/about")
	assert.Contains(t, paths, "/contact")
	assert.Contains(t, paths, "/services/")
	assert.NotContains(t, paths, "/wp-admin/options.php")
	assert.NotContains(t, paths, "/login")
	assert.NotContains(t, paths, "/blog")
	assert.NotContains(t, paths, "/brochure.pdf")

	// dedup: /about appears once
	count := 0
	for _, p := range paths {
		if p == "/about" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestHarvestAnchorsCap(t *testing.T) {
	origin := mustParse(t, "https://example.com")
	html := "<body>"
	for i := 0; i < 40; i++ {
		html += `<a href="/page-` + string(rune('a'+i%26)) + string(rune('a'+i/26)) + `">x</a>`
	}
	html += "</body>"

	paths := harvestAnchors(origin, html, 15)
	assert.LessOrEqual(t, len(paths), 15)
}

func TestClassifyAsset(t *testing.T) {
	tests := []struct {
		url      string
		expected inventory.AssetCategory
	}{
		{"/wp-includes/js/jquery/jquery.min.js", inventory.AssetJquery},
		{"https://cdn.example.com/jquery-3.6.0.slim.min.js", inventory.AssetJquery},
		{"/js/jquery.fancybox.min.js", inventory.AssetJqueryPlugin},
		{"/js/slick.min.js", inventory.AssetJqueryPlugin},
		{"/js/owl.carousel.js", inventory.AssetJqueryPlugin},
		{"https://www.googletagmanager.com/gtag/js?id=G-1", inventory.AssetAnalytics},
		{"https://connect.facebook.net/en_US/fbevents.js", inventory.AssetAnalytics},
		{"/wp-content/plugins/elementor/js/frontend.min.js", inventory.AssetBloat},
		{"/wp-includes/js/wp-emoji-release.min.js", inventory.AssetBloat},
		{"/js/theme.js", inventory.AssetOther},
		{"/css/style.css", inventory.AssetOther},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, classifyAsset(tt.url), "url: %s", tt.url)
	}
}

func TestCollectAssetsFirstSeenWins(t *testing.T) {
	var scripts, styles []inventory.AssetRef

	page1 := `<html><head>
		<script src="/js/jquery.min.js"></script>
		<link rel="stylesheet" href="/css/main.css">
	</head></html>`
	page2 := `<html><head>
		<script src="/js/jquery.min.js"></script>
		<script src="/js/extra.js"></script>
		<link rel="stylesheet" href="/css/main.css">
	</head></html>`

	collectAssets("/", page1, &scripts, &styles)
	collectAssets("/about", page2, &scripts, &styles)

	require.Len(t, scripts, 2)
	assert.Equal(t, "/", scripts[0].FirstSeen)
	assert.Equal(t, inventory.AssetJquery, scripts[0].Category)
	assert.Equal(t, "/about", scripts[1].FirstSeen)

	require.Len(t, styles, 1)
	assert.Equal(t, "/", styles[0].FirstSeen)
}

func TestExtractPageFeatures(t *testing.T) {
	html := `<html><body>
		<form action="/search"><input name="q"></form>
		<div class="swiper"><div class="swiper-slide">1</div></div>
		<div class="accordion"><div class="item">x</div></div>
		<iframe src="https://www.youtube.com/embed/abc"></iframe>
	</body></html>`

	page := extractPageFeatures("/features", html)

	assert.Equal(t, "/features", page.Path)
	assert.True(t, page.HasForm)
	assert.True(t, page.HasSlider)
	assert.True(t, page.HasAccordion)
	assert.True(t, page.HasVideo)
	assert.False(t, page.HasModal)
	assert.False(t, page.HasTabs)
	assert.Equal(t, len(html), page.SizeBytes)
}

func TestDetectInteractiveElements(t *testing.T) {
	html := `<html><body>
		<script src="/js/jquery.min.js"></script>
		<button class="navbar-toggler" id="menu-btn">Menu</button>
		<li class="menu-item-has-children"><a href="/x">More</a></li>
		<div class="swiper hero-slider"></div>
		<div class="accordion faq"></div>
		<nav><a href="/about">About</a></nav>
		<form id="contact-form"></form>
	</body></html>`

	elements := detectInteractiveElements("/", html, true)

	byType := make(map[inventory.ElementType]inventory.InteractiveElement)
	for _, el := range elements {
		byType[el.Type] = el
	}

	hamburger, ok := byType[inventory.ElementHamburger]
	require.True(t, ok)
	assert.Equal(t, "#menu-btn", hamburger.Selector)
	assert.Equal(t, inventory.TriggerClick, hamburger.TriggerAction)
	assert.False(t, hamburger.DependsOnJquery)

	dropdown, ok := byType[inventory.ElementDropdown]
	require.True(t, ok)
	assert.Equal(t, inventory.TriggerHover, dropdown.TriggerAction)

	slider, ok := byType[inventory.ElementSlider]
	require.True(t, ok)
	assert.True(t, slider.DependsOnJquery)
	assert.Contains(t, slider.Selector, "swiper")

	form, ok := byType[inventory.ElementForm]
	require.True(t, ok)
	assert.Equal(t, "#contact-form", form.Selector)
}

func TestDetectInteractiveElementsCap(t *testing.T) {
	html := "<body>"
	for i := 0; i < 80; i++ {
		html += `<div class="accordion"></div>`
	}
	html += "</body>"

	elements := detectInteractiveElements("/", html, false)
	assert.LessOrEqual(t, len(elements), maxElementsPerPage)
}

func TestStableSelectorFallsBackToTag(t *testing.T) {
	// many identical class combos: the combo matches >3 elements, so the
	// selector degrades to the bare tag
	html := "<body>"
	for i := 0; i < 5; i++ {
		html += `<div class="accordion"></div>`
	}
	html += "</body>"

	elements := detectInteractiveElements("/", html, false)
	require.NotEmpty(t, elements)
	assert.Equal(t, "div", elements[0].Selector)
}

func TestSelectBehaviorElements(t *testing.T) {
	var all []inventory.InteractiveElement
	// 12 sliders on page A, 5 accordions on page B, links and forms mixed in
	for i := 0; i < 12; i++ {
		all = append(all, inventory.InteractiveElement{Type: inventory.ElementSlider, PagePath: "/a"})
	}
	for i := 0; i < 5; i++ {
		all = append(all, inventory.InteractiveElement{Type: inventory.ElementAccordion, PagePath: "/b"})
	}
	all = append(all,
		inventory.InteractiveElement{Type: inventory.ElementLink, PagePath: "/a"},
		inventory.InteractiveElement{Type: inventory.ElementForm, PagePath: "/b"},
	)

	byPage := selectBehaviorElements(all)

	assert.Len(t, byPage["/a"], maxBehaviorPerPage)
	assert.Len(t, byPage["/b"], 5)

	total := 0
	for _, els := range byPage {
		total += len(els)
		for _, el := range els {
			assert.NotEqual(t, inventory.ElementLink, el.Type)
			assert.NotEqual(t, inventory.ElementForm, el.Type)
		}
	}
	assert.LessOrEqual(t, total, maxBehaviorElements)
}

func TestNormalizeSiteLink(t *testing.T) {
	origin := mustParse(t, "https://example.com/")

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{"/pricing", "/pricing", true},
		{"pricing", "/pricing", true},
		{"https://example.com/docs", "/docs", true},
		{"https://evil.com/docs", "", false},
		{"javascript:void(0)", "", false},
		{"tel:+15551234", "", false},
		{"/feed/", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := normalizeSiteLink(origin, tt.href)
		assert.Equal(t, tt.ok, ok, "href: %s", tt.href)
		if tt.ok {
			assert.Equal(t, tt.want, got, "href: %s", tt.href)
		}
	}
}

func TestScreenshotBasename(t *testing.T) {
	assert.Equal(t, "baseline-home-desktop", screenshotBasename("baseline", "/", "desktop"))
	assert.Equal(t, "baseline-shop-widgets-mobile", screenshotBasename("baseline", "/shop/widgets", "mobile"))
}
