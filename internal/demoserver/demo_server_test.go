package demoserver_test

import (
	"bytes"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/raysh454/pageshot/internal/demoserver"
)

func newTestServer(t *testing.T, cfg demoserver.Config) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(demoserver.NewDemoServer(cfg, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getDoc(t *testing.T, url string) *goquery.Document {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", url, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parse %s: %v", url, err)
	}
	return doc
}

func TestIndex_LinksFixturePages(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, demoserver.DefaultConfig())

	doc := getDoc(t, srv.URL+"/")
	links := map[string]bool{}
	doc.Find("ul.pages a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links[href] = true
	})
	for _, p := range []string{"/lazy", "/tall", "/slow"} {
		if !links[p] {
			t.Errorf("index missing link to %s", p)
		}
	}
}

func TestLazy_ImagesHaveNoSrcUntilScrolled(t *testing.T) {
	t.Parallel()
	cfg := demoserver.DefaultConfig()
	cfg.Images = 4
	srv := newTestServer(t, cfg)

	doc := getDoc(t, srv.URL+"/lazy")
	imgs := doc.Find("img.lazy")
	if imgs.Length() != 4 {
		t.Fatalf("expected 4 lazy images, got %d", imgs.Length())
	}
	imgs.Each(func(i int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			t.Errorf("image %d already has src", i)
		}
		if ds, _ := s.Attr("data-src"); ds == "" {
			t.Errorf("image %d missing data-src", i)
		}
	})
	if doc.Find("script").Length() == 0 {
		t.Error("expected the observer script")
	}
}

func TestTall_HasConfiguredHeight(t *testing.T) {
	t.Parallel()
	cfg := demoserver.DefaultConfig()
	cfg.TallHeight = 4321
	srv := newTestServer(t, cfg)

	doc := getDoc(t, srv.URL+"/tall")
	if doc.Find("#bottom").Length() != 1 {
		t.Error("missing footer")
	}
	if !bytes.Contains([]byte(doc.Find("style").Text()), []byte("4321px")) {
		t.Error("tall height not applied")
	}
}

func TestImage_ServesPNG(t *testing.T) {
	t.Parallel()
	cfg := demoserver.DefaultConfig()
	cfg.ImageSize = 40
	srv := newTestServer(t, cfg)

	resp, err := http.Get(srv.URL + "/img/3.png")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("content type %q", resp.Header.Get("Content-Type"))
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("unexpected bounds %v", b)
	}

	for _, bad := range []string{"/img/0.png", "/img/x.png", "/img/03.png", "/img/3.jpg"} {
		r, err := http.Get(srv.URL + bad)
		if err != nil {
			t.Fatalf("GET %s: %v", bad, err)
		}
		r.Body.Close()
		if r.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", bad, r.StatusCode)
		}
	}
}

func TestSlow_DelaysResponse(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, demoserver.DefaultConfig())

	start := time.Now()
	doc := getDoc(t, srv.URL+"/slow?ms=80")
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("response came back after %s", elapsed)
	}
	if got := doc.Find("#delay").Text(); got != "80" {
		t.Errorf("delay text %q", got)
	}

	resp, err := http.Get(srv.URL + "/slow?ms=-1")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSlow_CapsDelay(t *testing.T) {
	t.Parallel()
	cfg := demoserver.DefaultConfig()
	cfg.MaxDelay = 10 * time.Millisecond
	srv := newTestServer(t, cfg)

	doc := getDoc(t, srv.URL+"/slow?ms=60000")
	if got := doc.Find("#delay").Text(); got != "10" {
		t.Errorf("delay text %q", got)
	}
}
