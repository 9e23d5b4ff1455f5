package wikipedia

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePage is one article served by fakeWiki.
type fakePage struct {
	extract        string
	fullURL        string
	disambiguation bool
	links          []string
}

// fakeWiki serves the subset of the action API the client uses, plus
// article HTML under /wiki/.
type fakeWiki struct {
	searchHits map[string]string // query -> title
	pages      map[string]fakePage
	html       string
	srv        *httptest.Server

	mu      sync.Mutex
	queries []url.Values
	accepts map[string]string // path -> last Accept header
}

func newFakeWiki(t *testing.T) *fakeWiki {
	t.Helper()
	f := &fakeWiki{
		searchHits: map[string]string{},
		pages:      map[string]fakePage{},
		accepts:    map[string]string{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f.record(r)
		switch {
		case q.Get("list") == "search":
			var hits []map[string]string
			if title, ok := f.searchHits[q.Get("srsearch")]; ok {
				hits = append(hits, map[string]string{"title": title})
			}
			writeJSON(w, map[string]any{"query": map[string]any{"search": hits}})
		case q.Get("prop") == "links":
			var links []map[string]string
			for _, l := range f.pages[q.Get("titles")].links {
				links = append(links, map[string]string{"title": l})
			}
			writeJSON(w, map[string]any{"query": map[string]any{
				"pages": []map[string]any{{"links": links}},
			}})
		case strings.Contains(q.Get("prop"), "extracts"):
			title := q.Get("titles")
			p, ok := f.pages[title]
			if !ok {
				writeJSON(w, map[string]any{"query": map[string]any{
					"pages": []map[string]any{{"title": title, "missing": true}},
				}})
				return
			}
			body := map[string]any{"title": title, "extract": p.extract, "fullurl": p.fullURL}
			if p.disambiguation {
				body["pageprops"] = map[string]any{"disambiguation": ""}
			}
			writeJSON(w, map[string]any{"query": map[string]any{"pages": []map[string]any{body}}})
		default:
			http.Error(w, "bad request", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/wiki/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(f.html))
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeWiki) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accepts[r.URL.Path] = r.Header.Get("Accept")
	if r.URL.Path == "/w/api.php" {
		f.queries = append(f.queries, r.URL.Query())
	}
}

// extractQuery returns the parameters of the last extracts request.
func (f *fakeWiki) extractQuery(t *testing.T) url.Values {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.queries) - 1; i >= 0; i-- {
		if strings.Contains(f.queries[i].Get("prop"), "extracts") {
			return f.queries[i]
		}
	}
	t.Fatal("no extracts request recorded")
	return nil
}

func (f *fakeWiki) client() *Client {
	return NewClient(Options{APIURL: f.srv.URL + "/w/api.php"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestLookupRequestsServerSideSentenceLimit(t *testing.T) {
	f := newFakeWiki(t)
	f.searchHits["go language"] = "Go (programming language)"
	f.pages["Go (programming language)"] = fakePage{
		extract: "Go is a language. It was designed at Google. It is compiled.",
		fullURL: "https://en.wikipedia.org/wiki/Go_(programming_language)",
	}

	res := f.client().Lookup(context.Background(), "go language")
	require.Equal(t, KindSuccess, res.Kind, res.Message)
	assert.Equal(t, "Go (programming language)", res.Title)
	assert.Equal(t, "Go is a language. It was designed at Google. It is compiled.", res.Summary)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go_(programming_language)", res.URL)

	q := f.extractQuery(t)
	assert.Equal(t, "3", q.Get("exsentences"))
	assert.Equal(t, "1", q.Get("explaintext"))
	assert.Equal(t, "1", q.Get("redirects"))
}

func TestLookupKeepsAbbreviationsIntact(t *testing.T) {
	cases := map[string]string{
		"washington": "Washington, D.C., formally the District of Columbia, is the capital city of the United States. " +
			"It is located on the Potomac River. The city was founded in 1791.",
		"house": "Dr. Gregory House is a fictional character. He is the protagonist of House. " +
			"He was created by David Shore.",
	}
	for query, extract := range cases {
		t.Run(query, func(t *testing.T) {
			f := newFakeWiki(t)
			f.searchHits[query] = query
			f.pages[query] = fakePage{extract: extract, fullURL: "https://en.wikipedia.org/wiki/" + query}

			res := f.client().Lookup(context.Background(), query)
			require.Equal(t, KindSuccess, res.Kind, res.Message)
			assert.Equal(t, extract, res.Summary)
		})
	}
}

func TestLookupHonorsConfiguredSentences(t *testing.T) {
	f := newFakeWiki(t)
	f.searchHits["go"] = "Go"
	f.pages["Go"] = fakePage{extract: "Go is a board game.", fullURL: "https://en.wikipedia.org/wiki/Go"}

	c := NewClient(Options{APIURL: f.srv.URL + "/w/api.php", Sentences: 1})
	res := c.Lookup(context.Background(), "go")
	require.Equal(t, KindSuccess, res.Kind, res.Message)
	assert.Equal(t, "1", f.extractQuery(t).Get("exsentences"))
}

func TestLookupDisambiguationCapsOptions(t *testing.T) {
	f := newFakeWiki(t)
	f.searchHits["python"] = "Python"
	f.pages["Python"] = fakePage{
		extract:        "Python may refer to:",
		disambiguation: true,
		links:          []string{"Python (programming language)", "Pythonidae", "Python (genus)", "Monty Python", "PyPy", "Python of Aenus", "Python (film)"},
	}

	res := f.client().Lookup(context.Background(), "python")
	require.Equal(t, KindAmbiguous, res.Kind)
	assert.Len(t, res.Options, MaxOptions)
	assert.Equal(t, "Python (programming language)", res.Options[0])
	assert.Empty(t, res.Summary)
}

func TestLookupNotFound(t *testing.T) {
	f := newFakeWiki(t)

	res := f.client().Lookup(context.Background(), "xyzzy-no-such-topic")
	assert.Equal(t, KindNotFound, res.Kind)

	f.searchHits["ghost"] = "Ghost page"
	res = f.client().Lookup(context.Background(), "ghost")
	assert.Equal(t, KindNotFound, res.Kind, "missing page maps to not found")

	res = f.client().Lookup(context.Background(), "   ")
	assert.Equal(t, KindNotFound, res.Kind)
}

func TestLookupServerErrorIsOther(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Options{APIURL: srv.URL})
	res := c.Lookup(context.Background(), "anything")
	assert.Equal(t, KindOther, res.Kind)
	assert.Contains(t, res.Message, "500")
}

func TestLookupFallsBackToArticleHTML(t *testing.T) {
	f := newFakeWiki(t)
	f.searchHits["gopher"] = "Gopher"
	f.pages["Gopher"] = fakePage{fullURL: f.srv.URL + "/wiki/Gopher"}
	f.html = `<html><head><title>Gopher</title></head><body><article>
<p>Gophers are small burrowing rodents. They live in North America. They eat roots and tubers.
They are known for their extensive tunnel systems and for the damage they can cause to gardens.</p>
<p>Pocket gophers have fur-lined cheek pouches that they use for carrying food, and they spend most of
their lives underground, rarely venturing far from the entrances of their burrows during daylight.</p>
<p>Farmers and gardeners often regard gophers as pests, although their digging aerates the soil and
mixes organic matter into it, which benefits plant communities across the grasslands they inhabit.</p>
</article></body></html>`

	res := f.client().Lookup(context.Background(), "gopher")
	require.Equal(t, KindSuccess, res.Kind, res.Message)
	assert.Equal(t, "Gophers are small burrowing rodents. They live in North America. They eat roots and tubers.", res.Summary)
}

func TestLookupSendsAcceptPerRequest(t *testing.T) {
	f := newFakeWiki(t)
	f.searchHits["gopher"] = "Gopher"
	f.pages["Gopher"] = fakePage{fullURL: f.srv.URL + "/wiki/Gopher"}
	f.html = `<html><body><article><p>Gophers dig. They burrow under lawns and fields all summer long.</p></article></body></html>`

	_ = f.client().Lookup(context.Background(), "gopher")

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(t, "application/json", f.accepts["/w/api.php"])
	assert.Equal(t, "text/html", f.accepts["/wiki/Gopher"])
}

func TestFirstSentencesHandlesAbbreviations(t *testing.T) {
	got, err := firstSentences("Dr. Smith went to Washington. He met the mayor.  He left the next day. Then he flew home.", 3)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Smith went to Washington. He met the mayor. He left the next day.", got)

	got, err = firstSentences("One sentence only.", 3)
	require.NoError(t, err)
	assert.Equal(t, "One sentence only.", got)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "success", KindSuccess.String())
	assert.Equal(t, "ambiguous", KindAmbiguous.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "other", KindOther.String())
}
