package solr

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"
)

// Content types accepted by the update handler.
const (
	ContentCSV  = "csv"
	ContentJSON = "json"
	ContentXML  = "xml"
)

var mimeTypes = map[string]string{
	ContentCSV:  "application/csv",
	ContentJSON: "application/json",
	ContentXML:  "text/xml",
}

// UpdateRequest is a batch of documents posted to an index.
type UpdateRequest struct {
	Data        []byte
	ContentType string // csv (default), json or xml
	Version     string // response format version
	Params      map[string]string
}

// Select returns a sample of up to rows documents matching all documents.
func (c *Client) Select(ctx context.Context, name string, rows int) (json.RawMessage, error) {
	body, err := c.get(ctx, OpSelect, name+"/select", url.Values{
		"q":    {"*:*"},
		"rows": {strconv.Itoa(rows)},
	})
	if err != nil {
		return nil, err
	}
	resp := gjson.GetBytes(body, "response")
	if !resp.Exists() {
		return nil, &Error{Op: OpSelect, Err: ErrUnexpectedResponse}
	}
	return json.RawMessage(resp.Raw), nil
}

// Update posts documents to the update handler of an index and commits them.
func (c *Client) Update(ctx context.Context, name string, req UpdateRequest) (json.RawMessage, error) {
	ct := req.ContentType
	if ct == "" {
		ct = ContentCSV
	}
	mime, ok := mimeTypes[ct]
	if !ok {
		return nil, &Error{Op: OpUpdate, Body: "unsupported content type " + strconv.Quote(ct)}
	}

	params := url.Values{"commit": {"true"}}
	if req.Version != "" {
		params.Set("version", req.Version)
	}
	for k, v := range req.Params {
		params.Set(k, v)
	}

	body, err := c.post(ctx, OpUpdate, name+"/update", params, mime, req.Data)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(gjson.GetBytes(body, "responseHeader").Raw), nil
}
