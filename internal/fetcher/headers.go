package fetcher

import "math/rand"

// Headers is the request header context threaded through every call. The
// paginator rewrites the Referer after each successful listing fetch so the
// ad requests that follow present a realistic referer chain.
type Headers map[string]string

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/55.0.2859.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/60.0.3112.90 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_5) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/61.0.3163.49 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.13; rv:55.0) Gecko/20100101 Firefox/55.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/55.0.2876.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux i686 (x86_64)) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/62.0.3187.0 Safari/537.36",
	"Mozilla/5.0 (X11;Fedora; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/62.0.3178.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:55.0) Gecko/20100101 Firefox/55.0",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:55.0) Gecko/20100101 Firefox/55.0",
}

// RandomHeaders builds a header set with a randomly chosen User-Agent.
func RandomHeaders() Headers {
	return Headers{
		"User-Agent":      userAgents[rand.Intn(len(userAgents))],
		"Accept-Language": "en-GB,en,q=0.5",
		"Referer":         "https://google.com",
		"DNT":             "1",
	}
}

// SetReferer rewrites the Referer header.
func (h Headers) SetReferer(url string) {
	h["Referer"] = url
}

// Referer returns the current Referer header.
func (h Headers) Referer() string {
	return h["Referer"]
}
