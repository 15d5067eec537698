package solr

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"
)

// DeleteResult is the engine's answer to a collection removal.
// A non-zero Status is not turned into an error so callers can decide
// which failures are benign.
type DeleteResult struct {
	Status  int
	Message string
	Raw     string
}

// SystemMode returns the "mode" reported by admin/info/system ("solrcloud" or "std").
// Returns an empty string if the engine does not report a mode.
func (c *Client) SystemMode(ctx context.Context) (string, error) {
	body, err := c.get(ctx, OpSystemInfo, "admin/info/system", nil)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "mode").String(), nil
}

// Ping checks that the engine answers its system info endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.SystemMode(ctx)
	return err
}

// ListCollections returns the names of all SolrCloud collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, OpListCollections, "admin/collections", url.Values{"action": {"LIST"}})
	if err != nil {
		return nil, err
	}
	return stringArray(body, "collections"), nil
}

// ListAliases returns alias names mapped to their member collections.
func (c *Client) ListAliases(ctx context.Context) (map[string][]string, error) {
	body, err := c.get(ctx, OpListAliases, "admin/collections", url.Values{"action": {"LISTALIASES"}})
	if err != nil {
		return nil, err
	}
	aliases := make(map[string][]string)
	gjson.GetBytes(body, "aliases").ForEach(func(k, v gjson.Result) bool {
		aliases[k.String()] = SplitMembers(v.String())
		return true
	})
	return aliases, nil
}

// SplitMembers splits an alias target list. Members are separated by
// whitespace or commas.
func SplitMembers(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}

// DeleteAlias removes a collection alias.
func (c *Client) DeleteAlias(ctx context.Context, name string) error {
	_, err := c.post(ctx, OpDeleteAlias, "admin/collections",
		url.Values{"action": {"DELETEALIAS"}, "name": {name}}, "", nil)
	return err
}

// CreateCollection creates a collection bound to configSet.
// An empty configSet means a config set named after the collection.
func (c *Client) CreateCollection(ctx context.Context, name, configSet string) error {
	if configSet == "" {
		configSet = name
	}
	_, err := c.post(ctx, OpCreateCollection, "admin/collections", url.Values{
		"action":                {"CREATE"},
		"name":                  {name},
		"numShards":             {strconv.Itoa(c.cfg.NumShards)},
		"replicationFactor":     {strconv.Itoa(c.cfg.ReplicationFactor)},
		"collection.configName": {configSet},
	}, "", nil)
	return err
}

// AddCollection re-registers a collection against the config set of the same name.
func (c *Client) AddCollection(ctx context.Context, name string) error {
	return c.CreateCollection(ctx, name, name)
}

// DeleteCollection removes a collection and reports the engine's status.
// Only transport failures are returned as errors.
func (c *Client) DeleteCollection(ctx context.Context, name string) (DeleteResult, error) {
	body, status, err := c.call(ctx, OpDeleteCollection, "admin/collections",
		url.Values{"action": {"DELETE"}, "name": {name}})
	if err != nil {
		return DeleteResult{}, err
	}

	res := DeleteResult{Raw: string(body)}
	if s := gjson.GetBytes(body, "responseHeader.status"); s.Exists() {
		res.Status = int(s.Int())
	}
	if res.Status == 0 && (status < 200 || status >= 300) {
		res.Status = status
	}
	if res.Status != 0 {
		res.Message = errorMessage(body)
	}
	return res, nil
}

// ListCores returns the names of all cores on the node.
func (c *Client) ListCores(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, OpListCores, "admin/cores", url.Values{"action": {"STATUS"}})
	if err != nil {
		return nil, err
	}
	var cores []string
	gjson.GetBytes(body, "status").ForEach(func(k, _ gjson.Result) bool {
		cores = append(cores, k.String())
		return true
	})
	return cores, nil
}

// CreateCore creates a standalone core from instanceDir.
// ok is false when the engine rejected the request.
func (c *Client) CreateCore(ctx context.Context, name, instanceDir string) (bool, error) {
	body, status, err := c.call(ctx, OpCreateCore, "admin/cores", url.Values{
		"action":      {"CREATE"},
		"name":        {name},
		"instanceDir": {instanceDir},
	})
	if err != nil {
		return false, err
	}
	if checkResponse(OpCreateCore, status, body) != nil {
		return false, nil
	}
	return true, nil
}

// ListConfigSets returns the names of the config sets known to the cluster.
func (c *Client) ListConfigSets(ctx context.Context) ([]string, error) {
	body, err := c.get(ctx, OpListConfigSets, "admin/configs", url.Values{"action": {"LIST"}})
	if err != nil {
		return nil, err
	}
	return stringArray(body, "configSets"), nil
}

func stringArray(body []byte, path string) []string {
	arr := gjson.GetBytes(body, path).Array()
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		out = append(out, v.String())
	}
	return out
}
