package listing

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	pageParam    = regexp.MustCompile(`search\[page\]=[0-9]+`)
	perPageParam = regexp.MustCompile(`search\[per_page\]=[0-9]+`)
)

// Query is a listing address split into the site path and the decoded query string.
type Query struct {
	Site string // URL without the query
	Raw  string // decoded query, without the leading '?'
}

// ParseHref splits a listing link into site and decoded query.
func ParseHref(href string) Query {
	site, query, found := strings.Cut(href, "?")
	if !found {
		return Query{Site: site}
	}
	return Query{Site: site, Raw: decodeComponent(query)}
}

// WithPage rewrites the first search[page] and search[per_page] parameters.
// Every other byte of the query is left untouched; a parameter that is
// absent is not added.
func (q Query) WithPage(page, perPage int) string {
	out := replaceFirst(pageParam, q.Raw, "search[page]="+strconv.Itoa(page))
	return replaceFirst(perPageParam, out, "search[per_page]="+strconv.Itoa(perPage))
}

// URL returns the address of the given page.
func (q Query) URL(page, perPage int) string {
	return q.Site + "?" + EncodeURI(q.WithPage(page, perPage))
}

func replaceFirst(re *regexp.Regexp, s, repl string) string {
	loc := re.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return s[:loc[0]] + repl + s[loc[1]:]
}

// uriSafe holds the bytes encodeURI leaves as they are.
const uriSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789" +
	";,/?:@&=+$-_.!~*'()#"

// EncodeURI escapes s the way a browser's encodeURI does: reserved URI
// characters survive, everything else is percent-encoded as UTF-8.
func EncodeURI(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(uriSafe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}
