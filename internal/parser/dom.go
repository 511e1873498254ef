package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/offer-pricer/internal/outcome"
)

var ErrNoMatch = errors.New("selector matched no element")

// TextAt returns the trimmed text of the first element matching selector
// in a rendered page snapshot.
func TextAt(html, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", outcome.ParseFailure("", "failed to parse HTML", err)
	}

	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", outcome.ElementNotFound("", fmt.Sprintf("no element for %q", selector), ErrNoMatch)
	}

	return strings.Join(strings.Fields(sel.Text()), " "), nil
}
