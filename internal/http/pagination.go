package httpserver

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// pageParams is the external pager input. The ordering contract is owned
// by the filter engine; this only slices the ordered sequence.
type pageParams struct {
	Page int
	Size int
}

// pageEnvelope is the paginated list payload. Boundary pages carry
// explicit null links, the keys are always present.
type pageEnvelope struct {
	Count    int64       `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

func (s *Server) parsePageParams(query url.Values) (pageParams, error) {
	params := pageParams{Page: 1, Size: s.cfg.PageSizeDefault}
	if params.Size <= 0 {
		params.Size = 20
	}
	if val := strings.TrimSpace(query.Get("page")); val != "" {
		page, err := strconv.Atoi(val)
		if err != nil || page <= 0 {
			return params, fmt.Errorf("invalid page value")
		}
		params.Page = page
	}
	if val := strings.TrimSpace(query.Get("page_size")); val != "" {
		size, err := strconv.Atoi(val)
		if err != nil || size <= 0 {
			return params, fmt.Errorf("invalid page_size value")
		}
		if max := s.cfg.PageSizeMax; max > 0 && size > max {
			size = max
		}
		params.Size = size
	}
	return params, nil
}

// paginate assembles the envelope with next/previous links relative to
// the request URL.
func paginate(r *http.Request, params pageParams, total int64, results interface{}) pageEnvelope {
	envelope := pageEnvelope{Count: total, Results: results}
	if int64(params.Page)*int64(params.Size) < total {
		envelope.Next = pageLink(r, params.Page+1)
	}
	if params.Page > 1 {
		envelope.Previous = pageLink(r, params.Page-1)
	}
	return envelope
}

func pageLink(r *http.Request, page int) *string {
	u := *r.URL
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}
