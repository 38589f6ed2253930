package scraper

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// fakeSession serves canned HTML pages. Navigate selects the page sequence
// registered for a URL; Click advances through that sequence the way the
// real next-page control does.
type fakeSession struct {
	pages    map[string][]string
	seq      []string
	pos      int
	navErr   map[string]error
	clickErr map[int]error
	clicks   int
	closed   bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:    map[string][]string{},
		navErr:   map[string]error{},
		clickErr: map[int]error{},
	}
}

func (s *fakeSession) Navigate(_ context.Context, url string) (*goquery.Document, error) {
	if err := s.navErr[url]; err != nil {
		return nil, err
	}
	seq, ok := s.pages[url]
	if !ok || len(seq) == 0 {
		return nil, fmt.Errorf("no page registered for %s", url)
	}
	s.seq = seq
	s.pos = 0
	return parseHTML(seq[0])
}

func (s *fakeSession) Click(_ context.Context, _ string) error {
	s.clicks++
	if err := s.clickErr[s.clicks]; err != nil {
		return err
	}
	if s.pos < len(s.seq)-1 {
		s.pos++
	}
	return nil
}

func (s *fakeSession) Document(_ context.Context) (*goquery.Document, error) {
	if len(s.seq) == 0 {
		return nil, fmt.Errorf("no page loaded")
	}
	return parseHTML(s.seq[s.pos])
}

func (s *fakeSession) Close(_ context.Context) error {
	s.closed = true
	return nil
}

func parseHTML(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// listingHTML builds one listing page with the given item hrefs and a pager
// reporting totalPages.
func listingHTML(totalPages int, hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="gel-wrap promo-collection__container az-page"><div>`)
	for _, href := range hrefs {
		fmt.Fprintf(&b, `<div><a href=%q>item</a></div>`, href)
	}
	b.WriteString(`</div></div>`)
	if totalPages > 1 {
		b.WriteString(`<ul class="pagination">`)
		for i := 1; i <= totalPages; i++ {
			fmt.Fprintf(&b, `<li><a href="/page/%d">%d</a></li>`, i, i)
		}
		b.WriteString(`<li><span aria-label="Next">Next</span></li></ul>`)
	}
	b.WriteString(`</body></html>`)
	return b.String()
}
