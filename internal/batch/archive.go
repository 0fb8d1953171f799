// Package batch prepares a set of chapter archives and uploads them
// strictly one after another, isolating failures so one bad archive
// never blocks the rest of the batch.
package batch

import (
	"archive/zip"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/arqaam/mangactl/internal/apperrors"
)

// ParsedChapter is the number/title guess derived from an archive
// filename. Number defaults to "1" when nothing numeric is present.
type ParsedChapter struct {
	Number string
	Title  string
}

// Tokens that mean "chapter" rather than title text, including the
// Arabic forms the platform's uploaders use.
var chapterIndicators = map[string]struct{}{
	"ch": {}, "chp": {}, "chap": {}, "chapter": {}, "cha": {}, "c": {},
	"فصل": {}, "الفصل": {},
}

var (
	archiveExtRe = regexp.MustCompile(`(?i)\.(zip|cbz)$`)
	separatorRe  = regexp.MustCompile(`[\-_|:–—]`)
	numberRe     = regexp.MustCompile(`(?i)^(?:chapter|chap|chp|cha|ch|c|فصل|الفصل)?\s*(\d+(?:\.\d+)?)`)
	anyNumberRe  = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParseChapterFilename guesses the chapter number and title from an
// archive filename like "Solo Leveling - ch12.5 - The Gate.cbz". The
// first numeric token (optionally prefixed with a chapter word) wins;
// the remaining tokens become the title.
func ParseChapterFilename(name string) ParsedChapter {
	base := strings.TrimSpace(archiveExtRe.ReplaceAllString(filepath.Base(name), ""))

	var number string
	var titleParts []string
	for _, part := range separatorRe.Split(base, -1) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if m := numberRe.FindStringSubmatch(part); m != nil && number == "" {
			number = m[1]
			if rest := strings.TrimSpace(part[len(m[0]):]); rest != "" && !isChapterIndicator(rest) {
				titleParts = append(titleParts, rest)
			}
			continue
		}
		if !isChapterIndicator(part) {
			titleParts = append(titleParts, part)
		}
	}

	if number == "" {
		number = anyNumberRe.FindString(base)
	}
	if number == "" {
		number = "1"
	}
	return ParsedChapter{Number: number, Title: strings.Join(titleParts, " ")}
}

func isChapterIndicator(s string) bool {
	_, ok := chapterIndicators[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// Page image extensions the server extracts from an archive.
var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".webp": {}, ".gif": {},
}

// CountArchiveImages lists the page images inside a zip/cbz archive in
// sorted order, mirroring what the server will extract. macOS resource
// fork entries are skipped.
func CountArchiveImages(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation,
			fmt.Sprintf("cannot read archive %s", filepath.Base(path)), err)
	}
	defer r.Close()

	var images []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX") {
			continue
		}
		if _, ok := imageExtensions[strings.ToLower(filepath.Ext(f.Name))]; ok {
			images = append(images, f.Name)
		}
	}
	sort.Strings(images)
	return images, nil
}
