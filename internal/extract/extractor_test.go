package extract

import (
	"reflect"
	"strings"
	"testing"

	"github.com/nao1215/kwcrawl/internal/model"
)

const articlePage = `<!DOCTYPE html>
<html>
<head>
  <title>Politie | Nieuws</title>
  <meta name="author" content="Redactie">
  <meta name="keywords" content="vuurwerk, jaarwisseling, , vuurwerk">
  <meta property="og:image" content="/img/og.jpg">
  <script>var tracking = "vuurwerk";</script>
</head>
<body>
  <nav><a href="/menu">Menu</a></nav>
  <article>
    <h1>Illegaal vuurwerk in beslag genomen</h1>
    <time datetime="2023-12-31T10:00:00Z">31 december 2023</time>
    <p>De politie heeft <b>200 kilo</b> vuurwerk gevonden.</p>
    <style>.x{color:red}</style>
    <img src="inline.jpg">
    <a href="/nieuws/b#top">Lees meer</a>
    <a href="https://other.test/x">Extern</a>
    <a href="mailto:info@politie.nl">Mail</a>
    <a href="javascript:void(0)">Klik</a>
    <a href="#">Top</a>
    <a href="https://www.politie.nl/nieuws/a">Zelf</a>
    <a href="https://data.politie.nl/dataset/1">Data</a>
  </article>
</body>
</html>`

func TestExtractorExtract(t *testing.T) {
	t.Parallel()

	e := New(NewScope("www.politie.nl"))
	rec := e.Extract([]byte(articlePage), "https://www.politie.nl/nieuws/a")

	t.Run("title from first heading", func(t *testing.T) {
		t.Parallel()

		if rec.Title != "Illegaal vuurwerk in beslag genomen" {
			t.Errorf("Title = %q", rec.Title)
		}
	})

	t.Run("date from datetime attribute", func(t *testing.T) {
		t.Parallel()

		if got := model.StringValue(rec.PublishDate); got != "2023-12-31T10:00:00Z" {
			t.Errorf("PublishDate = %q", got)
		}
	})

	t.Run("author from meta tag", func(t *testing.T) {
		t.Parallel()

		if got := model.StringValue(rec.Author); got != "Redactie" {
			t.Errorf("Author = %q", got)
		}
	})

	t.Run("tags from meta keywords", func(t *testing.T) {
		t.Parallel()

		want := []string{"vuurwerk", "jaarwisseling"}
		if !reflect.DeepEqual(rec.Tags, want) {
			t.Errorf("Tags = %v, want %v", rec.Tags, want)
		}
	})

	t.Run("image from og tag resolved absolute", func(t *testing.T) {
		t.Parallel()

		if got := model.StringValue(rec.PrimaryImageURL); got != "https://www.politie.nl/img/og.jpg" {
			t.Errorf("PrimaryImageURL = %q", got)
		}
	})

	t.Run("body text from article without script or style", func(t *testing.T) {
		t.Parallel()

		if !strings.Contains(rec.BodyText, "De politie heeft 200 kilo vuurwerk gevonden.") {
			t.Errorf("BodyText = %q", rec.BodyText)
		}
		if strings.Contains(rec.BodyText, "Menu") {
			t.Error("body text includes navigation outside the article")
		}
		if strings.Contains(rec.BodyText, "color:red") || strings.Contains(rec.BodyText, "tracking") {
			t.Error("body text includes script or style content")
		}
		if rec.WordCount != len(strings.Fields(rec.BodyText)) {
			t.Error("WordCount out of sync with BodyText")
		}
	})

	t.Run("links are resolved and partitioned", func(t *testing.T) {
		t.Parallel()

		wantSame := []string{
			"https://www.politie.nl/menu",
			"https://www.politie.nl/nieuws/b",
			"https://data.politie.nl/dataset/1",
		}
		if !reflect.DeepEqual(rec.Links.SameSite, wantSame) {
			t.Errorf("SameSite = %v, want %v", rec.Links.SameSite, wantSame)
		}
		wantOff := []string{"https://other.test/x"}
		if !reflect.DeepEqual(rec.Links.OffSite, wantOff) {
			t.Errorf("OffSite = %v, want %v", rec.Links.OffSite, wantOff)
		}
	})
}

func TestExtractorFallbacks(t *testing.T) {
	t.Parallel()

	t.Run("empty input yields empty record", func(t *testing.T) {
		t.Parallel()

		rec := New(nil).Extract(nil, "https://site.test/")
		if rec.Title != "" || rec.BodyText != "" || rec.WordCount != 0 {
			t.Errorf("expected empty record, got %+v", rec)
		}
		if rec.PublishDate != nil || rec.Author != nil || rec.PrimaryImageURL != nil {
			t.Error("expected nil optional fields")
		}
		if rec.Tags == nil {
			t.Error("expected non-nil tags")
		}
	})

	t.Run("malformed markup degrades gracefully", func(t *testing.T) {
		t.Parallel()

		rec := New(nil).Extract([]byte("<div><p>vuurwerk <b>knal</div></p><<<"), "https://site.test/")
		if !strings.Contains(rec.BodyText, "vuurwerk") {
			t.Errorf("BodyText = %q", rec.BodyText)
		}
	})

	t.Run("whole document when no content region", func(t *testing.T) {
		t.Parallel()

		page := `<html><head><title>Alleen titel</title></head><body><div>Tekst een</div><div>Tekst twee</div><img src="/a.png"></body></html>`
		rec := New(nil).Extract([]byte(page), "https://site.test/p")
		if rec.Title != "Alleen titel" {
			t.Errorf("Title = %q", rec.Title)
		}
		if rec.BodyText != "Tekst een Tekst twee" {
			t.Errorf("BodyText = %q", rec.BodyText)
		}
		if got := model.StringValue(rec.PrimaryImageURL); got != "https://site.test/a.png" {
			t.Errorf("PrimaryImageURL = %q", got)
		}
	})

	t.Run("class hinted content region", func(t *testing.T) {
		t.Parallel()

		page := `<body><div class="sidebar">zijbalk</div><div id="main-content">hoofdtekst</div></body>`
		rec := New(nil).Extract([]byte(page), "https://site.test/")
		if rec.BodyText != "hoofdtekst" {
			t.Errorf("BodyText = %q", rec.BodyText)
		}
	})

	t.Run("content region must be a container", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			page string
			want string
		}{
			{
				name: "nav anchor with article class",
				page: `<body><nav><a class="article-link" href="/volgende">Volgende</a></nav><div id="content"><p>Veel vuurwerk in de stad.</p></div></body>`,
				want: "Veel vuurwerk in de stad.",
			},
			{
				name: "date span with article class",
				page: `<body><header><span class="article-date">1 januari</span></header><section class="article-body"><p>Vuurwerkschade gemeld.</p></section></body>`,
				want: "Vuurwerkschade gemeld.",
			},
			{
				name: "capitalised class",
				page: `<body><nav>Menu Home Contact</nav><div class="Article-Body"><p>Veel vuurwerk.</p></div><footer>Cookie</footer></body>`,
				want: "Veel vuurwerk.",
			},
			{
				name: "capitalised id",
				page: `<body><nav>Menu</nav><div id="MainContent"><p>Knallers.</p></div></body>`,
				want: "Knallers.",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				rec := New(nil).Extract([]byte(tt.page), "https://site.test/")
				if rec.BodyText != tt.want {
					t.Errorf("BodyText = %q, want %q", rec.BodyText, tt.want)
				}
			})
		}
	})

	t.Run("tags from hinted elements", func(t *testing.T) {
		t.Parallel()

		page := `<body><a class="tag-link">knalvuurwerk</a><span class="keyword">oudjaar</span><span class="tag">knalvuurwerk</span></body>`
		rec := New(nil).Extract([]byte(page), "https://site.test/")
		want := []string{"knalvuurwerk", "oudjaar"}
		if !reflect.DeepEqual(rec.Tags, want) {
			t.Errorf("Tags = %v, want %v", rec.Tags, want)
		}
	})
}

func TestExtractorReadability(t *testing.T) {
	t.Parallel()

	paragraph := strings.Repeat("Tijdens de jaarwisseling werd op meerdere plekken vuurwerk afgestoken, ondanks het verbod. ", 8)
	page := `<html><head><title>Verslag</title></head><body>
<div class="sidebar">Navigatie</div>
<div><p>` + paragraph + `</p><p>` + paragraph + `</p></div>
</body></html>`

	rec := New(nil, WithReadability(true)).Extract([]byte(page), "https://site.test/verslag")
	if !strings.Contains(rec.BodyText, "vuurwerk afgestoken") {
		t.Errorf("BodyText = %q", rec.BodyText)
	}
}
