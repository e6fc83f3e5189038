package authoring

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"dvdmaker/internal/dvd"
)

// Document is the dvdauthor project file.
type Document struct {
	XMLName  xml.Name `xml:"dvdauthor"`
	Dest     string   `xml:"dest,attr"`
	VMGM     struct{} `xml:"vmgm"`
	Titleset Titleset `xml:"titleset"`
}

// Titleset holds the titles domain.
type Titleset struct {
	Titles Titles `xml:"titles"`
}

// Titles describes the title video format and program chains.
type Titles struct {
	Video Video `xml:"video"`
	PGCs  []PGC `xml:"pgc"`
}

// Video sets the title video attributes.
type Video struct {
	Format string `xml:"format,attr"`
	Aspect string `xml:"aspect,attr,omitempty"`
}

// PGC is one program chain.
type PGC struct {
	VOBs []VOB `xml:"vob"`
}

// VOB references one MPEG stream.
type VOB struct {
	File     string `xml:"file,attr"`
	Chapters string `xml:"chapters,attr,omitempty"`
}

// Title is one authored stream with the duration used for chapter marks.
type Title struct {
	Path            string
	DurationSeconds float64
}

// BuildDocument assembles a project with every title in one program chain.
func BuildDocument(dest string, mode dvd.Mode, aspect dvd.Aspect, chapters dvd.Chapters, titles []Title) Document {
	doc := Document{Dest: dest}
	doc.Titleset.Titles.Video = Video{Format: string(mode)}
	if aspect.Explicit() {
		doc.Titleset.Titles.Video.Aspect = string(aspect)
	}
	pgc := PGC{VOBs: make([]VOB, 0, len(titles))}
	for _, title := range titles {
		pgc.VOBs = append(pgc.VOBs, VOB{
			File:     title.Path,
			Chapters: strings.Join(dvd.ChapterMarks(title.DurationSeconds, chapters), ","),
		})
	}
	doc.Titleset.Titles.PGCs = []PGC{pgc}
	return doc
}

// Marshal renders doc with an XML header.
func (d Document) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// WriteFile writes doc to path.
func (d Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("render dvdauthor project: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
