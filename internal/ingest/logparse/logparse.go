// Package logparse parses web-server access logs into query-log records and
// filters them down to genuine human catalog searches.
//
// The log format is the combined format extended with request size, request
// duration, the serving site domain, the app token, and one trailing quoted
// field. Only records that survive the domain, user-agent, request, and
// query filters are worth sampling from.
package logparse

import (
	"bufio"
	"compress/gzip"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
)

// Record is a single parsed access-log line.
type Record struct {
	Host            string
	User            string
	Timestamp       time.Time
	Request         string
	Status          int
	Size            int
	Referrer        string
	UserAgent       string
	RequestSize     int
	RequestDuration float64
	Domain          string
	AppToken        string
	Query           string
}

var lineRE = regexp.MustCompile(strings.Join([]string{
	`(?P<host>\S+)`,                 // host %h
	`\S+`,                           // ident %l (unused)
	`(?P<user>\S+)`,                 // user %u
	`\[(?P<timestamp>.+)\]`,         // time %t
	`"(?P<request>.+)"`,             // request "%r"
	`(?P<status>[0-9]+)`,            // status %>s
	`(?P<size>\S+)`,                 // size %b (can be '-')
	`"(?P<referrer>.*)"`,            // referrer
	`"(?P<user_agent>.*)"`,          // user agent
	`(?P<request_size>\S*)`,         // request size
	`(?P<request_duration>\S*)`,     // request duration (secs)
	`"(?P<domain>.*)"`,              // site domain
	`"(?P<app_token>.*)"`,           // app token
	`"(?P<trailer>.*)"`,             // trailing field (unused)
}, `\s+`) + `\s*$`)

var (
	requestPathRE = regexp.MustCompile(`(?:DELETE|POST|GET|PUT)\s+(.*?)\s+`)
	queryTermRE   = regexp.MustCompile(`q=(.*?)(?:&|$)`)
	fourByFourRE  = regexp.MustCompile(`(?i)^[a-z0-9]{4}-[a-z0-9]{4}$`)
)

// ParsePath extracts the HTTP request path from a raw request field such as
// "GET /browse?q=water HTTP/1.1".
func ParsePath(request string) string {
	m := requestPathRE.FindStringSubmatch(request)
	if m == nil {
		return ""
	}

	return m[1]
}

// ParseQuery extracts the URL-unescaped q= query term from a raw request
// field, or "" when the request carries none.
func ParseQuery(request string) string {
	m := queryTermRE.FindStringSubmatch(ParsePath(request))
	if m == nil {
		return ""
	}

	term, err := url.QueryUnescape(m[1])
	if err != nil {
		return ""
	}

	return term
}

// ParseLine parses one access-log line. It returns false when the line does
// not match the expected format.
func ParseLine(line string) (Record, bool) {
	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}

	fields := make(map[string]string, len(m))
	for i, name := range lineRE.SubexpNames() {
		if name != "" {
			fields[name] = m[i]
		}
	}

	rec := Record{
		Host:      fields["host"],
		User:      fields["user"],
		Request:   fields["request"],
		Referrer:  fields["referrer"],
		UserAgent: fields["user_agent"],
		Domain:    fields["domain"],
		AppToken:  fields["app_token"],
	}

	if ts, err := dateparse.ParseAny(fields["timestamp"]); err == nil {
		rec.Timestamp = ts
	}

	rec.Status, _ = strconv.Atoi(fields["status"])
	rec.Size, _ = strconv.Atoi(fields["size"])
	rec.RequestSize, _ = strconv.Atoi(fields["request_size"])
	rec.RequestDuration, _ = strconv.ParseFloat(fields["request_duration"], 64)

	rec.Query = ParseQuery(rec.Request)

	return rec, true
}

// internalDomainMarkers identifies staging and demo sites whose traffic is
// not real user behavior.
var internalDomainMarkers = []string{"rc-socrata.com", "demo.socrata.com", "test-socrata.com"}

func domainFilter(domain string) bool {
	lower := strings.ToLower(domain)

	for _, marker := range internalDomainMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	return true
}

var botMarkers = []string{"bot", "spider", "crawler", "curl", "ruby"}

func botFilter(userAgent string) bool {
	lower := strings.ToLower(userAgent)

	for _, marker := range botMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}

	return true
}

func requestFilter(request string) bool {
	return strings.Contains(request, "browse") && strings.Contains(request, "q=")
}

func queryFilter(query string) bool {
	return query != "" && !fourByFourRE.MatchString(query)
}

// Keep reports whether a record is a human catalog search worth sampling:
// not from an internal domain, not from a bot, a browse request with a query
// term, and the term is not a dataset id.
func Keep(rec Record) bool {
	return domainFilter(rec.Domain) &&
		botFilter(rec.UserAgent) &&
		requestFilter(rec.Request) &&
		queryFilter(rec.Query)
}

// ReadAll parses every line from r, keeping only records that pass Keep.
// Unparseable lines are counted and skipped.
func ReadAll(r io.Reader, log zerolog.Logger) ([]Record, error) {
	var (
		records  []Record
		read     int
		rejected int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		read++

		rec, ok := ParseLine(scanner.Text())
		if !ok {
			rejected++
			continue
		}

		if Keep(rec) {
			records = append(records, rec)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	log.Debug().
		Int("lines", read).
		Int("unparseable", rejected).
		Int("kept", len(records)).
		Msg("parsed query log")

	return records, nil
}

// ReadFile parses one log file, transparently decompressing .gz files.
func ReadFile(path string, log zerolog.Logger) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()

		r = gz
	}

	return ReadAll(r, log)
}

// ReadFiles parses and concatenates multiple log files.
func ReadFiles(paths []string, log zerolog.Logger) ([]Record, error) {
	var records []Record

	for _, path := range paths {
		recs, err := ReadFile(path, log)
		if err != nil {
			return nil, err
		}

		records = append(records, recs...)
	}

	return records, nil
}
