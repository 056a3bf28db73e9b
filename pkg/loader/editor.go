package loader

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
)

// SourceType says where an editor's document comes from.
type SourceType string

const (
	SourceJSON SourceType = "json"
	SourceAPI  SourceType = "api"
	SourceText SourceType = "text"
	SourceHTML SourceType = "html"
	SourceMD   SourceType = "md"
	SourceSQL  SourceType = "sql"
)

// Encoding is the request encoding of an API source.
type Encoding string

const (
	EncodingPlain Encoding = "plain"
	EncodingHTML  Encoding = "html"
	EncodingXML   Encoding = "xml"
	EncodingJSON  Encoding = "json"
	EncodingForm  Encoding = "form"
	EncodingURL   Encoding = "url"
)

// ContentType returns the Content-Type header an encoding is sent with.
func (e Encoding) ContentType() string {
	switch e {
	case EncodingPlain:
		return "text/plain"
	case EncodingHTML:
		return "text/html"
	case EncodingXML:
		return "application/xml"
	case EncodingForm:
		return "multipart/form-data"
	case EncodingURL:
		return "application/x-www-form-urlencoded"
	}
	return "application/json"
}

// SQLSource is a query whose result rows form the document.
type SQLSource struct {
	Driver string `yaml:"driver" json:"driver"` // sqlite, postgres or mysql
	DSN    string `yaml:"dsn" json:"dsn"`
	Query  string `yaml:"query" json:"query"`
}

// Editor describes one editable document and how it is displayed.
type Editor struct {
	Name       string     `yaml:"name" json:"name"`
	SourceType SourceType `yaml:"source_type" json:"sourceType"`

	JSONSource string `yaml:"json_source" json:"jsonsource,omitempty"`
	TextSource string `yaml:"text_source" json:"textsource,omitempty"`
	HTMLSource string `yaml:"html_source" json:"htmlsource,omitempty"`
	MDSource   string `yaml:"md_source" json:"mdsource,omitempty"`

	APISource       string         `yaml:"api_source" json:"apisource,omitempty"`
	APIMethod       string         `yaml:"api_method" json:"apimethod,omitempty"`
	APIEncoding     Encoding       `yaml:"api_encoding" json:"apiencoding,omitempty"`
	APISourceParams map[string]any `yaml:"api_source_params" json:"apiSourceParams,omitempty"`

	SQL SQLSource `yaml:"sql" json:"sql"`

	// Obj is the nested editor definition for the document's scopes.
	Obj map[string]any `yaml:"obj" json:"obj,omitempty"`
}

// LiveDraft is the draft name that means "the live document".
const LiveDraft = "New Draft (live)"

// Draft selects a saved draft of a document instead of the live one.
type Draft struct {
	Name string
	User string
}

func (d Draft) active() bool {
	return d.Name != "" && d.Name != LiveDraft && d.User != ""
}

// draftRecord is the file a draft is stored in.
const draftRecord = "record.json"

// FilePath returns the file a file-backed editor reads.
func (e *Editor) FilePath(draftDir string, d Draft) string {
	if d.active() {
		return path.Join(draftDir, e.Name, d.User, d.Name, draftRecord)
	}
	switch e.SourceType {
	case SourceText:
		return e.TextSource
	case SourceHTML:
		return e.HTMLSource
	case SourceMD:
		return e.MDSource
	}
	return e.JSONSource
}

// Validate reports an editor that cannot be loaded.
func (e *Editor) Validate() error {
	switch e.SourceType {
	case SourceJSON, SourceText, SourceHTML, SourceMD:
		if e.FilePath("", Draft{}) == "" {
			return fmt.Errorf("editor %q: %s source needs a file", e.Name, e.SourceType)
		}
	case SourceAPI:
		if e.APISource == "" {
			return fmt.Errorf("editor %q: api source needs a url", e.Name)
		}
	case SourceSQL:
		if e.SQL.Driver == "" || e.SQL.Query == "" {
			return fmt.Errorf("editor %q: sql source needs a driver and query", e.Name)
		}
	default:
		return fmt.Errorf("editor %q: %w %q", e.Name, ErrUnknownSource, e.SourceType)
	}
	return nil
}

// URLEncode writes params as a query string, keys sorted.
func URLEncode(params map[string]any) string {
	vals := url.Values{}
	for k, v := range params {
		vals.Set(k, fmt.Sprint(v))
	}
	return vals.Encode()
}

// ToXML renders params as XML elements, one per key. Array values repeat
// their element once per item.
func ToXML(params map[string]any) string {
	var b strings.Builder
	writeXML(&b, params)
	return b.String()
}

func writeXML(b *strings.Builder, v any) {
	switch x := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if items, ok := x[k].([]any); ok {
				for _, item := range items {
					writeElement(b, k, item)
				}
				continue
			}
			writeElement(b, k, x[k])
		}
	case []any:
		for _, item := range x {
			writeXML(b, item)
		}
	case nil:
	default:
		xml.EscapeText(b, []byte(fmt.Sprint(x)))
	}
}

func writeElement(b *strings.Builder, name string, v any) {
	b.WriteString("<" + name + ">")
	writeXML(b, v)
	b.WriteString("</" + name + ">")
}
