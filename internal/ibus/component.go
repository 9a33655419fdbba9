package ibus

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Component is the ibus component file that tells ibus-daemon how to start
// the engine.
type Component struct {
	XMLName     xml.Name           `xml:"component"`
	Name        string             `xml:"name"`
	Description string             `xml:"description"`
	Exec        string             `xml:"exec"`
	Version     string             `xml:"version"`
	Author      string             `xml:"author"`
	License     string             `xml:"license"`
	Textdomain  string             `xml:"textdomain"`
	Engines     []EngineDescriptor `xml:"engines>engine"`
}

// EngineDescriptor describes one engine of a component.
type EngineDescriptor struct {
	Name        string `xml:"name"`
	Language    string `xml:"language"`
	License     string `xml:"license"`
	Author      string `xml:"author"`
	Icon        string `xml:"icon,omitempty"`
	Layout      string `xml:"layout"`
	LongName    string `xml:"longname"`
	Description string `xml:"description"`
	Rank        int    `xml:"rank"`
	Symbol      string `xml:"symbol"`
}

// NewComponent describes a pinyind engine started as `exec`.
func NewComponent(opts Options, exec, version string) Component {
	return Component{
		Name:        opts.BusName,
		Description: "Pinyin input method",
		Exec:        exec,
		Version:     version,
		Author:      "pinyind",
		License:     "MIT",
		Textdomain:  "pinyind",
		Engines: []EngineDescriptor{{
			Name:        opts.EngineName,
			Language:    "zh_CN",
			License:     "MIT",
			Author:      "pinyind",
			Layout:      "us",
			LongName:    "Pinyin (pinyind)",
			Description: "Table based pinyin input",
			Rank:        50,
			Symbol:      "拼",
		}},
	}
}

// Marshal renders the component file.
func (c Component) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(c, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("encode component: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// Install writes the component file to path.
func Install(path string, c Component) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create component directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write component: %w", err)
	}
	return nil
}

// Uninstall removes the component file. A missing file is not an error.
func Uninstall(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove component: %w", err)
	}
	return nil
}
