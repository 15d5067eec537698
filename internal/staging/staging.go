// Package staging renders a Solr configuration bundle into a temporary directory.
//
// A bundle looks like:
//
//	<temp_root>/<bundle>/conf/schema.xml
//	<temp_root>/<bundle>/conf/solrconfig.xml
//
// where <bundle> is "solrcloud_configs" for cloud mode and "solr_configs" otherwise.
// The caller owns temp_root and must remove it.
package staging

import (
	"bytes"
	"embed"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/kailas-cloud/indexer/internal/domain/index/field"
)

// ConfDir is the directory inside a config root holding the rendered files.
const ConfDir = "conf"

// DefaultUniqueKey is used when a request names no unique key.
const DefaultUniqueKey = "id"

const (
	schemaFile     = "schema.xml"
	solrconfigFile = "solrconfig.xml"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// Config controls where templates come from and where bundles are staged.
type Config struct {
	// TemplateDir overrides the embedded templates when set. It must contain
	// schema.xml.tmpl and solrconfig.xml.tmpl.
	TemplateDir string
	// TempDir is the parent of staged bundles; os.TempDir() when empty.
	TempDir string
}

// Stager renders config bundles.
type Stager struct {
	tmpl    *template.Template
	tempDir string
}

// New parses the templates once.
func New(cfg Config) (*Stager, error) {
	t := template.New("bundle").Funcs(template.FuncMap{"xml": escape})

	var err error
	if cfg.TemplateDir != "" {
		t, err = t.ParseGlob(filepath.Join(cfg.TemplateDir, "*.tmpl"))
	} else {
		t, err = t.ParseFS(embedded, "templates/*.tmpl")
	}
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range []string{schemaFile, solrconfigFile} {
		if t.Lookup(name+".tmpl") == nil {
			return nil, fmt.Errorf("template %s.tmpl not found", name)
		}
	}
	return &Stager{tmpl: t, tempDir: cfg.TempDir}, nil
}

type schemaData struct {
	Name         string
	UniqueKey    string
	HasUniqueKey bool
	DefaultField string
	Cloud        bool
	Fields       []fieldData
}

type fieldData struct {
	Name        string
	Type        string
	Indexed     bool
	Stored      bool
	MultiValued bool
}

// Stage renders the bundle and returns the temp root and the config root.
// An empty uniqueKey defaults to "id"; an empty df defaults to the unique key.
// A cloud bundle declares only the unique key among the given fields.
// On error nothing is left on disk.
func (s *Stager) Stage(fields []field.Field, uniqueKey, df string, cloud bool) (string, string, error) {
	data := newSchemaData(fields, uniqueKey, df, cloud)

	tempRoot, err := os.MkdirTemp(s.tempDir, "indexer-")
	if err != nil {
		return "", "", fmt.Errorf("create temp dir: %w", err)
	}

	configRoot, err := s.render(tempRoot, data)
	if err != nil {
		return "", "", errors.Join(err, os.RemoveAll(tempRoot))
	}
	return tempRoot, configRoot, nil
}

func (s *Stager) render(tempRoot string, data schemaData) (string, error) {
	bundle := "solr_configs"
	if data.Cloud {
		bundle = "solrcloud_configs"
	}
	configRoot := filepath.Join(tempRoot, bundle)
	confDir := filepath.Join(configRoot, ConfDir)
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		return "", fmt.Errorf("create conf dir: %w", err)
	}

	for _, name := range []string{schemaFile, solrconfigFile} {
		var buf bytes.Buffer
		if err := s.tmpl.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
			return "", fmt.Errorf("render %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(confDir, name), buf.Bytes(), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	return configRoot, nil
}

func newSchemaData(fields []field.Field, uniqueKey, df string, cloud bool) schemaData {
	if uniqueKey == "" {
		uniqueKey = DefaultUniqueKey
	}
	if df == "" {
		df = uniqueKey
	}
	d := schemaData{
		Name:         "indexer",
		UniqueKey:    uniqueKey,
		DefaultField: df,
		Cloud:        cloud,
		Fields:       make([]fieldData, 0, len(fields)),
	}
	for _, f := range fields {
		if f.Name() == uniqueKey {
			d.HasUniqueKey = true
		} else if cloud {
			// Collections receive the remaining fields through the Schema API.
			continue
		}
		d.Fields = append(d.Fields, fieldData{
			Name:        f.Name(),
			Type:        f.Type(),
			Indexed:     f.Indexed(),
			Stored:      f.Stored(),
			MultiValued: f.MultiValued(),
		})
	}
	return d
}

// Move relocates src to dst, falling back to copy-and-remove across filesystems.
// dst must not exist.
func Move(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("move %s: %w", dst, os.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return errors.Join(fmt.Errorf("copy %s to %s: %w", src, dst, err), os.RemoveAll(dst))
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("remove %s: %w", src, err)
	}
	return nil
}

func escape(s string) (string, error) {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}
