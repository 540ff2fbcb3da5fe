// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubmed looks up PubMed identifiers for bibliography entries and
// fetches abstracts through the NCBI E-utilities.
// Implements: IdentifierLookup and AbstractFetcher collaborators;
//
//	docs/ARCHITECTURE § Record Merging.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pdiddy/guideline-engine/internal/httputil"
	"github.com/pdiddy/guideline-engine/pkg/types"
)

// eutilsBase is the E-utilities root. Declared as a var so tests can
// substitute an httptest server.
var eutilsBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

const (
	defaultMaxIDs       = 3
	defaultRequestDelay = 350 * time.Millisecond
	defaultTimeout      = 30 * time.Second
	defaultUserAgent    = "guideline-engine/0.1"
)

var (
	termSeparators = regexp.MustCompile(`[.;]`)
	markup         = regexp.MustCompile(`<[^>]+>`)
)

// Client queries esearch and efetch. It is safe for concurrent use; requests
// are spaced by the configured delay to stay within the NCBI rate limit.
type Client struct {
	http *http.Client
	cfg  types.PubMedConfig

	mu   sync.Mutex
	last time.Time
}

// New returns a client for cfg. Zero values take defaults. A nil http
// client uses one with cfg.Timeout.
func New(cfg types.PubMedConfig, hc *http.Client) *Client {
	if cfg.MaxIDs <= 0 {
		cfg.MaxIDs = defaultMaxIDs
	}
	if cfg.RequestDelay <= 0 {
		cfg.RequestDelay = defaultRequestDelay
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{http: hc, cfg: cfg}
}

// Term turns bibliography text into an esearch term: sentence and list
// separators become OR operators.
func Term(citationText string) string {
	return strings.TrimSpace(termSeparators.ReplaceAllString(citationText, "|"))
}

type esearchResponse struct {
	Result struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// LookupIDs returns up to MaxIDs PubMed identifiers for citationText,
// most relevant first.
func (c *Client) LookupIDs(ctx context.Context, citationText string) ([]string, error) {
	term := Term(citationText)
	if term == "" {
		return nil, nil
	}
	params := url.Values{
		"db":      {"pubmed"},
		"sort":    {"relevance"},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(c.cfg.MaxIDs)},
		"term":    {term},
	}

	resp, err := c.get(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var er esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	return er.Result.IDList, nil
}

type articleSet struct {
	Articles []struct {
		Citation struct {
			PMID    string `xml:"PMID"`
			Article struct {
				Title    innerText `xml:"ArticleTitle"`
				Abstract struct {
					Texts []innerText `xml:"AbstractText"`
				} `xml:"Abstract"`
				Authors []struct {
					LastName       string `xml:"LastName"`
					ForeName       string `xml:"ForeName"`
					CollectiveName string `xml:"CollectiveName"`
				} `xml:"AuthorList>Author"`
			} `xml:"Article"`
		} `xml:"MedlineCitation"`
	} `xml:"PubmedArticle"`
}

type innerText struct {
	Inner string `xml:",innerxml"`
}

// String strips inline markup such as <i> and <sup>.
func (t innerText) String() string {
	return strings.TrimSpace(html.UnescapeString(markup.ReplaceAllString(t.Inner, "")))
}

// FetchAbstract returns the title, authors and abstract of pmid. Structured
// abstracts have their sections joined by newlines.
func (c *Client) FetchAbstract(ctx context.Context, pmid string) (types.Abstract, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {pmid},
		"rettype": {"abstract"},
		"retmode": {"xml"},
	}
	resp, err := c.get(ctx, "efetch.fcgi", params)
	if err != nil {
		return types.Abstract{}, err
	}
	defer resp.Body.Close()

	var set articleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return types.Abstract{}, fmt.Errorf("parsing efetch response: %w", err)
	}
	if len(set.Articles) == 0 {
		return types.Abstract{}, fmt.Errorf("pmid %s: no article returned", pmid)
	}

	art := set.Articles[0].Citation.Article
	out := types.Abstract{PMID: pmid, Title: art.Title.String()}
	for _, a := range art.Authors {
		name := strings.TrimSpace(a.LastName + " " + a.ForeName)
		if name == "" {
			name = a.CollectiveName
		}
		if name != "" {
			out.Authors = append(out.Authors, name)
		}
	}
	var sections []string
	for _, s := range art.Abstract.Texts {
		if text := s.String(); text != "" {
			sections = append(sections, text)
		}
	}
	out.Abstract = strings.Join(sections, "\n")
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	if c.cfg.Email != "" {
		params.Set("email", c.cfg.Email)
		params.Set("tool", "guideline-engine")
	}
	if c.cfg.APIKey != "" {
		params.Set("api_key", c.cfg.APIKey)
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, eutilsBase+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, 0)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", endpoint, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned HTTP %d", endpoint, resp.StatusCode)
	}
	return resp, nil
}

// wait blocks until RequestDelay has passed since the previous request.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d := c.cfg.RequestDelay - time.Since(c.last); d > 0 && !c.last.IsZero() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d):
		}
	}
	c.last = time.Now()
	return nil
}
